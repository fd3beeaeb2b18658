package element

import (
	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/vdom"
)

// ReturnOps implements `return` (spec.md §4.G): finds the nearest
// enclosing `call`/`include` frame (or the coroutine's entry frame when
// there is none) and pops every frame up to it, setting `?` there from
// `with`.
type ReturnOps struct {
	baseOps
	rt *Runtime
}

func (o *ReturnOps) AfterPushed(s *coroutine.Stack, el *vdom.Element) bool {
	f := s.Top()

	var anchor *coroutine.Frame
	for i := s.Len() - 2; i >= 0; i-- {
		af := s.At(i)
		if af.Element != nil && (af.Element.Tag == "call" || af.Element.Tag == "include") {
			anchor = af
			break
		}
	}
	if anchor == nil {
		anchor = s.At(0) // coroutine entry (body)
	}
	if anchor == nil {
		return false
	}

	if withVal, err := evalAttr(o.rt, f, el, "with"); err == nil && withVal != nil {
		anchor.SetSymbol(coroutine.SymQuestion, withVal)
	}

	s.SetBackAnchor(anchor)
	return false
}

func (o *ReturnOps) OnPopping(s *coroutine.Stack, ctxt any) bool { return true }
