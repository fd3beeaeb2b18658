package element

import (
	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/vdom"
)

// BackOps implements `back` (spec.md §4.G): finds the target frame named
// by `to` (an `#id`, a named anchor, or an underscore-run depth) and sets
// it as the stack's back-anchor, so run_coroutine unwinds every
// intermediate frame without re-running its handler. Optional `with`
// sets `?` on the anchor frame before the unwind begins.
type BackOps struct {
	baseOps
	rt *Runtime
}

func (o *BackOps) AfterPushed(s *coroutine.Stack, el *vdom.Element) bool {
	f := s.Top()
	to, _ := el.Attr("to")

	anchorEl := resolveScopeAnchor(s, to)
	var anchorFrame *coroutine.Frame
	for i := s.Len() - 1; i >= 0; i-- {
		af := s.At(i)
		if af.Element == anchorEl {
			anchorFrame = af
			break
		}
	}
	if anchorFrame == nil {
		return false
	}

	if withVal, err := evalAttr(o.rt, f, el, "with"); err == nil && withVal != nil {
		anchorFrame.SetSymbol(coroutine.SymQuestion, withVal)
	}

	s.SetBackAnchor(anchorFrame)
	return false // no body of its own; go straight to ON_POPPING and unwind
}

func (o *BackOps) OnPopping(s *coroutine.Stack, ctxt any) bool { return true }
