package coroutine

import (
	"github.com/purc-go/purc/internal/perr"
	"github.com/purc-go/purc/internal/vdom"
)

// Stack is a coroutine's call stack of frames, plus the back-anchor used
// by the `back`/`return` elements to unwind multiple levels at once
// (spec.md §4.D, §4.G `back`).
type Stack struct {
	frames     []*Frame
	backAnchor *Frame

	// CID is the owning coroutine's id, exposed so element Ops — which
	// only receive a *Stack, not the Coroutine itself — can address
	// observer registrations and posted events to the right coroutine.
	CID uint64

	// Yield and Resume proxy the owning Coroutine's state transitions for
	// the same reason CID is exposed here: `init`'s synchronous fetch path
	// and `request`'s synchronous send both need to park the coroutine
	// from inside an Ops method that only has the Stack in hand.
	Yield  func()
	Resume func()

	// Exception, RaiseException and ClearException proxy the owning
	// Coroutine's exception slot so `catch` can inspect and clear it from
	// inside an Ops method (spec.md §4.G `catch`, §7).
	Exception      func() *perr.Error
	RaiseException func(*perr.Error)
	ClearException func() *perr.Error

	// Doc is the owning coroutine's document, exposed for the same reason
	// as CID: `bind` needs to reach bind_document_variable from inside an
	// Ops method that only has the Stack in hand.
	Doc *vdom.Document
}

// NewStack creates an empty stack.
func NewStack() *Stack {
	return &Stack{}
}

// Push adds f to the top of the stack.
func (s *Stack) Push(f *Frame) {
	s.frames = append(s.frames, f)
}

// Top returns the current top frame, or nil if the stack is empty.
func (s *Stack) Top() *Frame {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

// Len returns the number of frames currently on the stack.
func (s *Stack) Len() int { return len(s.frames) }

// At returns the frame at depth i from the bottom (0 = entry frame), or
// nil if out of range.
func (s *Stack) At(i int) *Frame {
	if i < 0 || i >= len(s.frames) {
		return nil
	}
	return s.frames[i]
}

// Pop removes and releases the top frame, running its destructor exactly
// once (spec.md testable property #4).
func (s *Stack) Pop() *Frame {
	n := len(s.frames)
	if n == 0 {
		return nil
	}
	f := s.frames[n-1]
	s.frames = s.frames[:n-1]
	f.release()
	if s.backAnchor == f {
		s.backAnchor = nil
	}
	return f
}

// SetBackAnchor marks target as the frame a `back` unwind should stop at.
// While a back-anchor is set, Pop continues unwinding past non-anchor
// frames without letting their handlers run another tick first — the
// caller (run_coroutine) drives this by checking BackAnchor() between pops.
func (s *Stack) SetBackAnchor(target *Frame) {
	s.backAnchor = target
}

// BackAnchor returns the frame a pending `back`/`return` unwind targets,
// or nil if none is pending.
func (s *Stack) BackAnchor() *Frame {
	return s.backAnchor
}

// ClearBackAnchor cancels a pending unwind target, called once the
// anchor frame is reached.
func (s *Stack) ClearBackAnchor() {
	s.backAnchor = nil
}

// ScopeChain walks from the top frame down to the entry frame, yielding
// each frame in turn; callers use this for variable lookup that should
// stop at the first enclosing frame binding a given name.
func (s *Stack) ScopeChain(yield func(f *Frame) bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if !yield(s.frames[i]) {
			return
		}
	}
}

// PushPseudo pushes a frame that represents an observer-handler context
// rather than a markup element on the real stack, per spec.md §4.D "Frames
// provide push_pseudo/pop_pseudo for observer-handler contexts that must
// not appear as a real element on the stack."
func (s *Stack) PushPseudo(f *Frame) {
	f.Pseudo = true
	s.Push(f)
}

// PopPseudo pops and releases the top frame, which must have been pushed
// via PushPseudo.
func (s *Stack) PopPseudo() *Frame {
	return s.Pop()
}
