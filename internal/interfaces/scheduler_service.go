package interfaces

import "time"

// JobStatus represents the current status of a scheduled job
type JobStatus struct {
	Name      string
	Schedule  string
	LastRun   *time.Time
	NextRun   *time.Time
	IsRunning bool
	LastError string
}

// SchedulerService manages cron-based scheduling of sweeps
type SchedulerService interface {
	// Start the scheduler
	Start() error

	// Stop the scheduler
	Stop() error

	// RegisterDaily registers a job that fires daily at HH:MM local time
	RegisterDaily(name string, timeOfDay string, handler func() error) error

	// TriggerNow manually triggers a registered job
	TriggerNow(name string) error

	// IsRunning returns true if scheduler is active
	IsRunning() bool

	// GetJobStatus returns the status of a specific job
	GetJobStatus(name string) (*JobStatus, error)
}
