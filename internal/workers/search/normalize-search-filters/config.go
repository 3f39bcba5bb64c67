package normalizesearchfilters

import (
	"time"

	"property-search/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func NewConfig(cfg config.WorkerConfig) *Config {
	timeout := config.GetDuration(cfg.Timeout)
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Config{Timeout: timeout}
}
