// internal/workers/assessment/persist-result/config.go
package persistresult

import "time"

type Config struct {
	Timeout time.Duration
	// IndexTimeout bounds the best-effort search indexing after the write.
	IndexTimeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      30 * time.Second,
		IndexTimeout: 5 * time.Second,
	}
}
