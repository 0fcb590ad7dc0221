package scheduler

import "errors"

var (
	ErrSchedulerNotRunning = errors.New("scheduler is not running")
	ErrInvalidSchedule     = errors.New("invalid cron schedule")
)
