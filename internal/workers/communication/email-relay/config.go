package emailrelay

import (
	"fmt"
	"time"

	"innovation-crm/internal/common/config"
)

const WorkerName = "email-relay"

type Config struct {
	Enabled          bool          `mapstructure:"enabled"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	BatchSize        int           `mapstructure:"batch_size"`
	Timeout          time.Duration `mapstructure:"timeout"`
	ConfigurationSet string        `mapstructure:"configuration_set"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		PollInterval: 5 * time.Second,
		BatchSize:    25,
		Timeout:      30 * time.Second,
	}
}

// ConfigFrom builds the relay settings from the application config.
func ConfigFrom(cfg *config.Config) *Config {
	w := config.GetWorkerConfig(cfg, WorkerName)
	c := DefaultConfig()
	c.Enabled = w.Enabled && cfg.Integrations.AWS.SES.Enabled
	if w.PollInterval > 0 {
		c.PollInterval = config.GetDuration(w.PollInterval)
	}
	if w.BatchSize > 0 {
		c.BatchSize = w.BatchSize
	}
	if w.Timeout > 0 {
		c.Timeout = config.GetDuration(w.Timeout)
	}
	c.ConfigurationSet = cfg.Integrations.AWS.SES.ConfigurationSet
	return c
}

func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}
