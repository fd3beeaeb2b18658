// Package runloop implements the single-threaded cooperative event loop
// that drives one runner process: dispatching ready coroutines, running an
// idle callback when nothing else is ready, and waking on readiness of
// registered file descriptors.
package runloop

import (
	"context"
	"sync"
	"time"
)

// EventMask is a bitmask of the readiness conditions a monitor can watch,
// mirroring poll(2)'s POLLIN/POLLPRI/POLLOUT/POLLERR/POLLHUP/POLLNVAL.
type EventMask uint32

const (
	In   EventMask = 1 << iota // data ready to read
	Pri                        // urgent data ready to read
	Out                        // writable without blocking
	Err                        // error condition
	Hup                        // hung up
	Nval                       // invalid fd
)

// DispatchFunc runs one unit of work (typically one coroutine tick) and
// reports whether it actually did anything, so the loop knows whether to
// fall through to the idle callback.
type DispatchFunc func(ctx context.Context) (didWork bool)

// FdEventFunc is invoked when a monitored fd becomes ready with the given
// subset of its requested event mask.
type FdEventFunc func(fd int, events EventMask)

type fdMonitor struct {
	fd     int
	events EventMask
	handle FdEventFunc
}

// Loop is a single runloop instance. The zero value is not usable; create
// one with New. A Loop must only be driven from the goroutine that calls
// Run — registration and wakeup methods are safe to call from elsewhere.
type Loop struct {
	mu       sync.Mutex
	idleFunc func(ctx context.Context)
	monitors map[int]*fdMonitor
	nextID   int

	dispatch DispatchFunc
	wake     chan struct{}
	stop     chan struct{}
	stopped  chan struct{}

	idleInterval time.Duration
}

// Config tunes the loop's idle-poll cadence; the fd readiness model used
// here is cooperative (monitors are polled, not kernel-driven) so a small
// interval keeps wakeup latency low without busy-spinning.
type Config struct {
	IdleInterval time.Duration // default 10ms
}

// New creates a Loop that calls dispatch once per iteration when there is
// coroutine work ready, falling back to the idle callback (if any)
// otherwise.
func New(dispatch DispatchFunc, cfg Config) *Loop {
	if cfg.IdleInterval <= 0 {
		cfg.IdleInterval = 10 * time.Millisecond
	}
	return &Loop{
		monitors:     make(map[int]*fdMonitor),
		dispatch:     dispatch,
		wake:         make(chan struct{}, 1),
		stop:         make(chan struct{}),
		stopped:      make(chan struct{}),
		idleInterval: cfg.IdleInterval,
	}
}

// SetIdleFunc installs the callback run when a loop iteration finds no
// coroutine work and no fd is ready. A nil idleFunc disables idle work.
func (l *Loop) SetIdleFunc(f func(ctx context.Context)) {
	l.mu.Lock()
	l.idleFunc = f
	l.mu.Unlock()
}

// AddFdMonitor registers fd for readiness polling against events. It
// returns a monitor id usable with RemoveFdMonitor. The poller that
// actually checks fd readiness is the pollFds method in poll.go.
func (l *Loop) AddFdMonitor(fd int, events EventMask, handle FdEventFunc) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextID
	l.nextID++
	l.monitors[id] = &fdMonitor{fd: fd, events: events, handle: handle}
	return id
}

// RemoveFdMonitor deregisters a monitor previously returned by
// AddFdMonitor. Removing an unknown id is a no-op.
func (l *Loop) RemoveFdMonitor(id int) {
	l.mu.Lock()
	delete(l.monitors, id)
	l.mu.Unlock()
}

// Wakeup breaks the loop out of an idle wait immediately, used when an
// external event (a posted event, a completed fetch) makes new coroutine
// work ready outside of the loop's own iteration.
func (l *Loop) Wakeup() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run drives the loop until ctx is cancelled or Stop is called. It is
// meant to be called once, from the runner's main goroutine.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.stopped)
	ticker := time.NewTicker(l.idleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stop:
			return
		default:
		}

		didWork := false
		if l.dispatch != nil {
			didWork = l.dispatch(ctx)
		}

		if l.pollFds() {
			didWork = true
		}

		if didWork {
			continue
		}

		l.mu.Lock()
		idle := l.idleFunc
		l.mu.Unlock()
		if idle != nil {
			idle(ctx)
		}

		select {
		case <-ctx.Done():
			return
		case <-l.stop:
			return
		case <-l.wake:
		case <-ticker.C:
		}
	}
}

// Stop requests the loop to exit and blocks until Run has returned. Safe
// to call from any goroutine; safe to call more than once.
func (l *Loop) Stop() {
	select {
	case <-l.stop:
	default:
		close(l.stop)
	}
	<-l.stopped
}
