// internal/workers/assessment/notify-risk-alert/config.go
package notifyriskalert

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 15 * time.Second,
	}
}
