package domain

import "context"

// LeaderElectionManager decides which master node runs the maintenance scheduler.
type LeaderElectionManager interface {
	// Campaign blocks until this node is the leader. The returned channel is
	// closed when leadership is lost.
	Campaign(ctx context.Context) (<-chan struct{}, error)
	Resign(ctx context.Context) error
	IsLeader() bool
}
