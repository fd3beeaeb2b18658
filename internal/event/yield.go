package event

import (
	"fmt"
	"sync/atomic"

	"github.com/purc-go/purc/internal/atom"
	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/observer"
)

// Yield registers an inner observer on co for (observed, typ, subtype)
// and transitions co to STOPPED, per spec.md §4.H `yield`. When a
// matching event is later drained into reg, the registered wrapper calls
// co.Resume, putting the coroutine back on the runloop's ready set, and
// then runs handle. With oneShot the observer is removed after that first
// match.
func Yield(reg *observer.Registry, co *coroutine.Coroutine, observed, typ, subtypePattern string, oneShot bool, handle observer.Handler) *observer.Observer {
	co.Yield()
	wrapped := func(obs *observer.Observer, msg *observer.Message) int {
		co.Resume()
		if handle != nil {
			return handle(obs, msg)
		}
		return 0
	}
	obs := &observer.Observer{
		Observed: observed,
		Type:     typ,
		Subtype:  subtypePattern,
		OneShot:  oneShot,
		Handle:   wrapped,
	}
	return reg.Register(co.CID, obs)
}

// RequestID is the composite cross-runner correlation id of spec.md §4.H:
// "(type, runner_atom, coroutine_id, token)", encoded so matching works
// across runner instances that don't share a process.
type RequestID struct {
	Type      string
	Runner    atom.Atom
	CID       uint64
	Token     uint64
}

// String renders the composite id in the wire form used as an event's
// ElementValue / observed key so an observer's Observed field can match
// it verbatim.
func (r RequestID) String() string {
	return fmt.Sprintf("%s:%d:%d:%d", r.Type, r.Runner, r.CID, r.Token)
}

var tokenSeq uint64

// NewRequestID allocates a fresh token for (typ, runner, cid).
func NewRequestID(typ string, runner atom.Atom, cid uint64) RequestID {
	tok := atomic.AddUint64(&tokenSeq, 1)
	return RequestID{Type: typ, Runner: runner, CID: cid, Token: tok}
}
