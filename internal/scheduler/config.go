package scheduler

import (
	"time"

	"github.com/smallbiznis/gglounge/internal/config"
)

// Config controls scheduler intervals and batch sizes.
type Config struct {
	Enabled     bool
	RunInterval time.Duration
	JobTimeout  time.Duration
	// SagaGrace keeps the sweep away from steps the recording call is still applying.
	SagaGrace     time.Duration
	SagaBatchSize int
	LockTTL       time.Duration
}

func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		RunInterval:   time.Minute,
		JobTimeout:    30 * time.Second,
		SagaGrace:     2 * time.Minute,
		SagaBatchSize: 100,
		LockTTL:       45 * time.Second,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled:       cfg.Scheduler.Enabled,
		RunInterval:   time.Duration(cfg.Scheduler.IntervalSeconds) * time.Second,
		SagaGrace:     time.Duration(cfg.Scheduler.GraceSeconds) * time.Second,
		SagaBatchSize: cfg.Scheduler.BatchSize,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.SagaGrace <= 0 {
		c.SagaGrace = defaults.SagaGrace
	}
	if c.SagaBatchSize <= 0 {
		c.SagaBatchSize = defaults.SagaBatchSize
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	return c
}
