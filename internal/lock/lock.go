// Package lock provides a named mutual-exclusion guard with a bounded
// acquisition wait and a lease that bounds how long the guard can be held.
// Card movement serializes on a single fixed lock name, so one
// implementation instance guards every move in the deployment.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrNotAcquired is returned when the lock cannot be acquired within the
// wait budget.
var ErrNotAcquired = errors.New("lock not acquired within wait budget")

// Locker hands out named locks. Acquire blocks up to wait for the lock;
// once held, the lock is force-released after lease even if Release is
// never called, so a stalled holder cannot starve other callers forever.
// Critical sections are expected to finish well inside the lease.
type Locker interface {
	Acquire(ctx context.Context, name string, wait, lease time.Duration) (Handle, error)
}

// Handle represents one successful acquisition. Release is safe to call
// after the lease already expired; it then does nothing.
type Handle interface {
	Release(ctx context.Context) error
}
