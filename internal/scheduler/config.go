package scheduler

import (
	"time"
)

// Config controls scheduler intervals, timeouts and job selection.
type Config struct {
	RunInterval     time.Duration
	SnapshotTimeout time.Duration
	SweepTimeout    time.Duration
	EnabledJobs     []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval:     time.Hour,
		SnapshotTimeout: 2 * time.Minute,
		SweepTimeout:    5 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.SnapshotTimeout <= 0 {
		c.SnapshotTimeout = defaults.SnapshotTimeout
	}
	if c.SweepTimeout <= 0 {
		c.SweepTimeout = defaults.SweepTimeout
	}
	return c
}
