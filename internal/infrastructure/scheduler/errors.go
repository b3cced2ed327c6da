package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when triggering a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrNoEnabledPlatforms is returned when no platforms are configured for sync
	ErrNoEnabledPlatforms = errors.New("no enabled platforms for scheduled sync")
)
