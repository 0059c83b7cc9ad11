package lock

import (
	"context"
	"sync"
	"time"
)

// LocalLocker implements Locker in process memory. It is suitable for
// single-instance deployments and tests; multi-instance deployments need
// RedisLocker.
type LocalLocker struct {
	mu   sync.Mutex
	sems map[string]chan struct{}
	gen  map[string]uint64
	held map[string]uint64
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{
		sems: make(map[string]chan struct{}),
		gen:  make(map[string]uint64),
		held: make(map[string]uint64),
	}
}

func (l *LocalLocker) sem(name string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sems[name]
	if !ok {
		s = make(chan struct{}, 1)
		l.sems[name] = s
	}
	return s
}

func (l *LocalLocker) Acquire(ctx context.Context, name string, wait, lease time.Duration) (Handle, error) {
	s := l.sem(name)

	select {
	case s <- struct{}{}:
	default:
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case s <- struct{}{}:
		case <-timer.C:
			return nil, ErrNotAcquired
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	l.mu.Lock()
	l.gen[name]++
	g := l.gen[name]
	l.held[name] = g
	l.mu.Unlock()

	// Lease expiry forces the slot free. The generation check keeps an
	// expired holder's timer from freeing a later holder's slot.
	time.AfterFunc(lease, func() { l.free(name, g) })

	return &localHandle{locker: l, name: name, gen: g}, nil
}

func (l *LocalLocker) free(name string, gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[name] != gen {
		return
	}
	l.held[name] = 0
	select {
	case <-l.sems[name]:
	default:
	}
}

type localHandle struct {
	locker *LocalLocker
	name   string
	gen    uint64
}

func (h *localHandle) Release(ctx context.Context) error {
	h.locker.free(h.name, h.gen)
	return nil
}
