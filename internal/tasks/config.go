package tasks

import "time"

// Config sizes the job queue. The jobs are short: a refresh is bounded by
// the remote timeout, a replay only submits operations, a purge is one
// transaction.
type Config struct {
	Workers int
	// ReleaseAfter hands a claimed job back to the queue when its worker
	// has not finished by then, e.g. after a crash mid-refresh.
	ReleaseAfter time.Duration
	// CleanupInterval controls how often finished job rows are deleted.
	CleanupInterval time.Duration
}

const (
	DefaultWorkers         = 1
	DefaultReleaseAfter    = 5 * time.Minute
	DefaultCleanupInterval = 6 * time.Hour
)

func DefaultConfig() Config {
	return Config{
		Workers:         DefaultWorkers,
		ReleaseAfter:    DefaultReleaseAfter,
		CleanupInterval: DefaultCleanupInterval,
	}
}

// withDefaults fills zero fields, so a partial Config from the environment
// still yields a working queue.
func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.ReleaseAfter <= 0 {
		c.ReleaseAfter = DefaultReleaseAfter
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = DefaultCleanupInterval
	}
	return c
}
