// Package coroutine implements the interpreter's call-stack execution
// model: a Coroutine owns a Stack of Frames, and RunCoroutine performs one
// step of the dispatch cycle described in spec.md §4.D against whichever
// frame is on top.
package coroutine

import (
	"sync/atomic"
	"time"

	"github.com/purc-go/purc/internal/perr"
	"github.com/purc-go/purc/internal/variant"
	"github.com/purc-go/purc/internal/vdom"
)

// State is a coroutine's scheduling state.
type State uint8

const (
	StateReady State = iota
	StateRunning
	StateStopped // yielded, waiting on an observer match (component H)
	StateExited
)

// OpsResolver maps a VDOM element to the Ops implementation that drives
// it, i.e. the element handler table (component G). Supplied by whatever
// wires the coroutine package to the element package, to avoid a direct
// import cycle between the two.
type OpsResolver func(el *vdom.Element) Ops

// Coroutine is one HVML program instance: a call stack plus the metadata
// needed to route events and results back to its owner.
type Coroutine struct {
	CID   uint64
	Owner any // the runner/instance this coroutine belongs to

	Stack *Stack
	Entry *vdom.Element
	Doc   *vdom.Document

	Result    *variant.Variant
	Exception *perr.Error

	Parent   *Coroutine
	Children []*Coroutine

	State State

	ResolveOps  OpsResolver
	DrainEvents func(co *Coroutine) // component H integration point

	// TickLog, if set, is called once per RunCoroutine invocation with the
	// element tag on top of the stack (empty once exited), the NextStep
	// name the tick dispatched against, how long the tick took, whether it
	// did any work, and any exception present when the tick finished.
	// Wired to logging.CoroutineLog by whatever assembles the runloop.
	TickLog func(cid uint64, element string, nextStep string, dur time.Duration, didWork bool, exc *perr.Error)

	exited bool
}

var cidSeq uint64

// NextCID returns a process-unique coroutine id.
func NextCID() uint64 { return atomic.AddUint64(&cidSeq, 1) }

// New creates a coroutine ready to begin executing entry, pushing its
// first frame at AFTER_PUSHED.
func New(owner any, doc *vdom.Document, entry *vdom.Element, resolve OpsResolver) *Coroutine {
	cid := NextCID()
	co := &Coroutine{
		CID:        cid,
		Owner:      owner,
		Stack:      NewStack(),
		Entry:      entry,
		Doc:        doc,
		State:      StateReady,
		ResolveOps: resolve,
	}
	co.Stack.CID = cid
	co.Stack.Yield = co.Yield
	co.Stack.Resume = co.Resume
	co.Stack.Exception = func() *perr.Error { return co.Exception }
	co.Stack.RaiseException = co.RaiseException
	co.Stack.ClearException = co.ClearException
	co.Stack.Doc = doc
	var ops Ops
	if resolve != nil {
		ops = resolve(entry)
	}
	co.Stack.Push(NewFrame(entry, ops))
	return co
}

// Exited reports whether the coroutine has fully unwound its stack.
func (co *Coroutine) Exited() bool { return co.exited }

// RunCoroutine performs exactly one step of the tick algorithm of
// spec.md §4.D against co's top frame, and reports whether it did
// anything (false means the coroutine is exited or stopped on a yield
// and has nothing to dispatch this tick).
func RunCoroutine(co *Coroutine) bool {
	if co.TickLog == nil {
		return runCoroutine(co)
	}

	start := time.Now()
	element, nextStep := "", ""
	if f := co.Stack.Top(); f != nil {
		element = f.Element.Tag
		nextStep = f.NextStep.String()
	}

	didWork := runCoroutine(co)

	if co.exited {
		element = ""
	}
	co.TickLog(co.CID, element, nextStep, time.Since(start), didWork, co.Exception)
	return didWork
}

func runCoroutine(co *Coroutine) bool {
	if co.exited {
		return false
	}
	// Queued events are delivered even while STOPPED: a matching yield
	// observer is what moves the coroutine back to READY.
	if co.DrainEvents != nil {
		co.DrainEvents(co)
	}
	if co.State == StateStopped {
		return false
	}
	co.State = StateRunning

	s := co.Stack

	if anchor := s.BackAnchor(); anchor != nil {
		if s.Top() != anchor {
			s.Pop()
			if s.Top() == nil {
				co.exited = true
				co.State = StateExited
			} else if s.Top() == anchor {
				s.ClearBackAnchor()
			}
			return true
		}
		s.ClearBackAnchor()
	}

	f := s.Top()
	if f == nil {
		co.exited = true
		co.State = StateExited
		return true
	}

	switch f.NextStep {
	case StepSelectChild:
		child := f.Ops.SelectChild(s, f.Ctxt)
		if child != nil {
			var ops Ops
			if co.ResolveOps != nil {
				ops = co.ResolveOps(child)
			}
			s.Push(NewFrame(child, ops))
		} else {
			f.NextStep = StepOnPopping
		}

	case StepAfterPushed:
		if f.Ops.AfterPushed(s, f.Element) {
			f.NextStep = StepSelectChild
		} else {
			f.NextStep = StepOnPopping
		}

	case StepRerun:
		if f.Ops.Rerun(s, f.Ctxt) {
			f.NextStep = StepSelectChild
		} else {
			f.NextStep = StepOnPopping
		}

	case StepOnPopping:
		if f.Ops.OnPopping(s, f.Ctxt) {
			s.Pop()
			if s.Top() == nil {
				co.exited = true
				co.State = StateExited
			}
		} else if f.NextStep == StepOnPopping {
			// OnPopping may itself request StepRerun (e.g. `iterate`
			// advancing to its next round); only default to
			// SELECT_CHILD when it left NextStep untouched.
			f.NextStep = StepSelectChild
		}
	}

	if co.State == StateRunning {
		co.State = StateReady
	}
	return true
}

// Yield transitions co to STOPPED, per spec.md §4.H: the runloop will not
// dispatch it again until an observer match (component E/H) calls Resume.
func (co *Coroutine) Yield() {
	co.State = StateStopped
}

// Resume transitions a STOPPED coroutine back to READY so the next tick
// dispatches it again.
func (co *Coroutine) Resume() {
	if co.State == StateStopped {
		co.State = StateReady
	}
}

// RaiseException sets co's exception slot, which a `catch` element
// consumes via ClearException. No element handler calls it: a failing
// handler sets its frame's `:` to null and leaves the slot unset, and
// ON_POPPING does not search the stack for a matching `catch`.
func (co *Coroutine) RaiseException(e *perr.Error) {
	co.Exception = e
}

// ClearException consumes the pending exception, called by a matching
// `catch` element.
func (co *Coroutine) ClearException() *perr.Error {
	e := co.Exception
	co.Exception = nil
	return e
}
