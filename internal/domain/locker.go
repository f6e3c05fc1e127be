// internal/domain/locker.go
package domain

import (
	"context"
	"errors"
)

// ErrLockNotAcquired is returned when another node already holds the lock.
var ErrLockNotAcquired = errors.New("lock not acquired")

// Lock is a held distributed lock.
type Lock interface {
	Unlock(ctx context.Context) error
}

// Locker hands out named distributed locks. Publishing a model holds the
// lock "model-{id}" so two concurrent publishes of one model cannot interleave.
type Locker interface {
	// Lock does not wait for another holder; a held lock yields ErrLockNotAcquired.
	Lock(ctx context.Context, name string) (Lock, error)
}
