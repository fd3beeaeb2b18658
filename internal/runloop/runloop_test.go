package runloop

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunDispatchesUntilNoWork(t *testing.T) {
	var calls int32
	var idleCalls int32

	dispatch := func(ctx context.Context) bool {
		n := atomic.AddInt32(&calls, 1)
		return n <= 3 // three units of work, then idle
	}

	l := New(dispatch, Config{IdleInterval: 5 * time.Millisecond})
	l.SetIdleFunc(func(ctx context.Context) {
		if atomic.AddInt32(&idleCalls, 1) == 1 {
			l.Stop()
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}

	if atomic.LoadInt32(&calls) < 3 {
		t.Fatalf("expected at least 3 dispatch calls, got %d", calls)
	}
	if atomic.LoadInt32(&idleCalls) < 1 {
		t.Fatalf("expected idle callback to run, got %d calls", idleCalls)
	}
}

func TestWakeupBreaksIdleWait(t *testing.T) {
	dispatch := func(ctx context.Context) bool { return false }
	l := New(dispatch, Config{IdleInterval: time.Hour}) // idle wait would hang without Wakeup

	idled := make(chan struct{}, 1)
	l.SetIdleFunc(func(ctx context.Context) {
		select {
		case idled <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go l.Run(ctx)
	defer l.Stop()

	<-idled // first idle call happens immediately

	l.Wakeup()

	select {
	case <-idled:
	case <-time.After(time.Second):
		t.Fatal("Wakeup did not trigger another loop iteration")
	}
}

func TestAddRemoveFdMonitor(t *testing.T) {
	l := New(func(ctx context.Context) bool { return false }, Config{})
	id := l.AddFdMonitor(0, In, func(fd int, events EventMask) {})
	if len(l.monitors) != 1 {
		t.Fatalf("expected 1 monitor, got %d", len(l.monitors))
	}
	l.RemoveFdMonitor(id)
	if len(l.monitors) != 0 {
		t.Fatalf("expected 0 monitors after removal, got %d", len(l.monitors))
	}
}

func TestStopIsIdempotent(t *testing.T) {
	l := New(func(ctx context.Context) bool { return false }, Config{IdleInterval: time.Millisecond})
	ctx := context.Background()
	go l.Run(ctx)
	l.Stop()
	l.Stop() // must not panic or deadlock
}
