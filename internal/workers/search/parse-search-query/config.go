package parsesearchquery

import (
	"time"

	"property-search/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

// NewConfig defaults to 30s, the budget of one text-understanding round trip.
func NewConfig(cfg config.WorkerConfig) *Config {
	timeout := config.GetDuration(cfg.Timeout)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Config{Timeout: timeout}
}
