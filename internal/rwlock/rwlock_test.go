package rwlock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
)

func TestLock_SharedAcquisitionsConcurrent(t *testing.T) {
	defer leaktest.Check(t)()
	l := new(Lock)
	ctx := context.Background()
	if err := l.Acquire(ctx, false); err != nil {
		t.Fatal(err)
	}
	if err := l.Acquire(ctx, false); err != nil {
		t.Fatal(err)
	}
	l.Release(false)
	l.Release(false)
}

// TestLock_WriterPriority reproduces spec §8 scenario 4: threads acquire
// the same lock in order (shared, shared, exclusive, shared, shared). The
// two initial readers proceed immediately; the writer must wait for both to
// release; the two later readers must wait for the writer, even though by
// the time they ask the lock may be briefly uncontended.
func TestLock_WriterPriority(t *testing.T) {
	defer leaktest.Check(t)()
	l := new(Lock)
	ctx := context.Background()

	var order []string
	var mu sync.Mutex
	record := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}

	if err := l.Acquire(ctx, false); err != nil { // reader 1
		t.Fatal(err)
	}
	if err := l.Acquire(ctx, false); err != nil { // reader 2
		t.Fatal(err)
	}

	var writerQueued, writerDone, readersQueued int32
	go func() {
		atomic.StoreInt32(&writerQueued, 1)
		if err := l.Acquire(ctx, true); err != nil {
			t.Error(err)
			return
		}
		record("writer-acquired")
		time.Sleep(10 * time.Millisecond)
		atomic.StoreInt32(&writerDone, 1)
		l.Release(true)
	}()

	for atomic.LoadInt32(&writerQueued) == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(10 * time.Millisecond) // let the writer actually start waiting

	var wg sync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func(id int) {
			defer wg.Done()
			atomic.AddInt32(&readersQueued, 1)
			if err := l.Acquire(ctx, false); err != nil {
				t.Error(err)
				return
			}
			record("reader-acquired")
			if atomic.LoadInt32(&writerDone) == 0 {
				t.Error("late reader acquired before writer released")
			}
			l.Release(false)
		}(i)
	}

	l.Release(false) // reader 1
	l.Release(false) // reader 2

	wg.Wait()

	if len(order) != 3 || order[0] != "writer-acquired" {
		t.Fatalf("got order %v, want writer first", order)
	}
}

func TestLock_StoppedContextInterruptsWaiters(t *testing.T) {
	defer leaktest.Check(t)()
	l := new(Lock)
	ctx, cancel := context.WithCancel(context.Background())

	if err := l.Acquire(context.Background(), true); err != nil {
		t.Fatal(err)
	}

	errc := make(chan error, 1)
	go func() {
		errc <- l.Acquire(ctx, false)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		if err == nil {
			t.Fatal("expected ErrStopped, got nil")
		}
	case <-time.After(time.Second):
		t.Fatal("waiter was not interrupted")
	}

	l.Release(true)
}
