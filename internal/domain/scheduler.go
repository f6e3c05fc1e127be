package domain

import "context"

// MaintenanceJob is a periodic housekeeping job run by the leader.
type MaintenanceJob struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) error
}

type Scheduler interface {
	Start(ctx context.Context) error
	Stop()

	AddJob(job *MaintenanceJob) error
	RemoveJob(name string) error
}
