// Package rwlock implements a per-path reader/writer lock with strict FIFO
// ordering and writer priority: a shared acquisition that arrives while a
// writer is queued waits behind that writer, even though the lock may
// currently be held only by readers.
package rwlock

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// ErrStopped is returned by Acquire when its context is cancelled while it
// waits (or is already cancelled and the lock is not free).
var ErrStopped = errors.New("server state: lock owner stopped")

// Lock is a single path's reader/writer lock. The zero value is usable.
type Lock struct {
	mu sync.Mutex
	// cond is signalled on every release, so that waiters can recheck their
	// condition. Broadcast (not Signal) is required: releasing a writer
	// must wake every queued reader that was only blocked on pendingWriters,
	// and releasing readers must wake a queued writer as soon as the last
	// reader leaves.
	cond *sync.Cond

	readers        int
	writing        bool
	pendingWriters int
}

func (l *Lock) init() {
	if l.cond == nil {
		l.cond = sync.NewCond(&l.mu)
	}
}

// Acquire takes the lock in shared (exclusive=false) or exclusive
// (exclusive=true) mode, following spec §4.4's recheck-after-wake
// discipline. It returns ErrStopped if ctx is cancelled while waiting.
func (l *Lock) Acquire(ctx context.Context, exclusive bool) error {
	l.mu.Lock()
	l.init()
	defer l.mu.Unlock()

	blocked := func() bool {
		if exclusive {
			return l.writing || l.readers > 0
		}
		return l.writing || l.pendingWriters > 0
	}

	if exclusive {
		l.pendingWriters++
	}
	if blocked() && ctx.Err() == nil {
		// Only pay for a watcher goroutine when we actually have to wait:
		// the common uncontended case never spawns one.
		interrupted := false
		stop := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				l.mu.Lock()
				interrupted = true
				l.mu.Unlock()
				l.cond.Broadcast()
			case <-stop:
			}
		}()
		for !interrupted && blocked() {
			l.cond.Wait()
		}
		close(stop)
		if interrupted {
			if exclusive {
				l.pendingWriters--
				l.cond.Broadcast()
			}
			return errors.Wrap(ErrStopped, ctx.Err().Error())
		}
	} else if blocked() {
		if exclusive {
			l.pendingWriters--
		}
		return errors.Wrap(ErrStopped, ctx.Err().Error())
	}

	if exclusive {
		l.pendingWriters--
		l.writing = true
	} else {
		l.readers++
	}
	return nil
}

// Release releases one acquisition taken in the given mode. Every Acquire
// must be matched by exactly one Release of the same mode; Release need not
// run on the same goroutine that acquired the lock.
func (l *Lock) Release(exclusive bool) {
	l.mu.Lock()
	l.init()
	if exclusive {
		l.writing = false
	} else {
		l.readers--
	}
	l.mu.Unlock()
	l.cond.Broadcast()
}
