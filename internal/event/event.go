// Package event implements cross-coroutine event posting and the
// yield/resume mechanism of spec.md §4.H: post_event enqueues, yield
// registers an inner observer and parks the coroutine, and Bus.Drain
// delivers queued events to a coroutine's observer registry.
package event

import (
	"fmt"
	"sync"

	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/observer"
	"github.com/purc-go/purc/internal/variant"
)

// ReduceOption controls how a newly posted event interacts with an
// already-queued event sharing the same (dest, observed, type, subtype)
// key (spec.md §4.H).
type ReduceOption uint8

const (
	// ReduceKeep always enqueues, even if a matching event is pending.
	ReduceKeep ReduceOption = iota
	// ReduceOverlay replaces any pending event with the same key.
	ReduceOverlay
	// ReduceIgnore drops the new event if one with the same key is pending.
	ReduceIgnore
)

// Event is one posted message, addressed to a destination coroutine.
type Event struct {
	DestCID      uint64
	SourceURI    string
	ElementValue string // observed
	Type         string
	Subtype      string
	Payload      *variant.Variant
	RequestID    string
}

func (e *Event) key() string {
	return fmt.Sprintf("%d\x00%s\x00%s\x00%s", e.DestCID, e.ElementValue, e.Type, e.Subtype)
}

// Bus is the process-wide event queue plus the yield bookkeeping that
// connects it to each coroutine's observer registry (component E).
type Bus struct {
	mu     sync.Mutex
	queues map[uint64][]*Event // per destination coroutine, FIFO
	keyIdx map[string]int      // key -> index into queues[dest], for OVERLAY/IGNORE
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{
		queues: make(map[uint64][]*Event),
		keyIdx: make(map[string]int),
	}
}

// PostEvent enqueues ev for delivery to ev.DestCID on its next drain,
// honoring reduceOpt against any pending event with the same
// (dest, observed, type, subtype) key.
func (b *Bus) PostEvent(ev *Event, reduceOpt ReduceOption) {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := ev.key()
	if idx, pending := b.keyIdx[k]; pending {
		switch reduceOpt {
		case ReduceIgnore:
			return
		case ReduceOverlay:
			q := b.queues[ev.DestCID]
			if idx < len(q) {
				q[idx] = ev
				return
			}
		}
	}

	q := append(b.queues[ev.DestCID], ev)
	b.queues[ev.DestCID] = q
	b.keyIdx[k] = len(q) - 1
}

// Drain removes and returns every event queued for cid, delivering them
// to reg (component E's registry) in FIFO order via reg.Dispatch, and
// clears the per-key index for this destination. This is the "drain
// queued events into observer matches" step of run_coroutine's tick
// (spec.md §4.D step 2).
func (b *Bus) Drain(cid uint64, reg *observer.Registry) {
	b.mu.Lock()
	q := b.queues[cid]
	delete(b.queues, cid)
	for k, idx := range b.keyIdx {
		// Only clear keys belonging to this destination; keys embed the
		// cid as their first field so a string prefix check is exact.
		prefix := fmt.Sprintf("%d\x00", cid)
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(b.keyIdx, k)
		}
		_ = idx
	}
	b.mu.Unlock()

	for _, ev := range q {
		reg.Dispatch(cid, &observer.Message{
			Observed:  ev.ElementValue,
			Type:      ev.Type,
			Subtype:   ev.Subtype,
			Data:      ev.Payload,
			RequestID: ev.RequestID,
		})
	}
}

// AttachTo wires co's run_coroutine-tick event drain (spec.md §4.D step 2)
// to b and reg, so every tick delivers this coroutine's queued events to
// its observer registry before the stack dispatch runs.
func (b *Bus) AttachTo(co *coroutine.Coroutine, reg *observer.Registry) {
	co.DrainEvents = func(c *coroutine.Coroutine) {
		b.Drain(c.CID, reg)
	}
}

// Pending reports how many events are currently queued for cid, the
// quantity the metrics package's event-queue-depth gauge exercises.
func (b *Bus) Pending(cid uint64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queues[cid])
}
