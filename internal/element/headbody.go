package element

import (
	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/vdom"
)

// Mode distinguishes the two document-section elements sharing HeadBodyOps.
type Mode uint8

const (
	ModeHead Mode = iota
	ModeBody
)

// HeadBodyOps implements `head` and `body`: both are plain sequential
// containers for their children, with `body` additionally serving as a
// coroutine's entry frame and the default `return` anchor when no
// enclosing `call`/`include` exists (spec.md §4.G `return`).
type HeadBodyOps struct {
	baseOps
	rt   *Runtime
	mode Mode
}

func (o *HeadBodyOps) SelectChild(s *coroutine.Stack, ctxt any) *vdom.Element {
	f := s.Top()
	return selectChildSequential(s, f.Element)
}
