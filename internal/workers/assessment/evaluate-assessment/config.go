// internal/workers/assessment/evaluate-assessment/config.go
package evaluateassessment

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
