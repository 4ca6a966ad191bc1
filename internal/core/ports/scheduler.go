package ports

import "time"

// SchedulerService drives recurring background jobs, like the mirror audit.
type SchedulerService interface {
	Start()
	Stop()
	ScheduleTaskEvery(interval time.Duration, task func()) error
}
