package element

import (
	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/perr"
	"github.com/purc-go/purc/internal/vdom"
)

// ReduceOps implements `reduce` (spec.md §4.G): runs the executor named
// by `by` over `on` (with optional `with`) and binds the reduction to
// `?`. Executor plugin loading is an external collaborator out of scope
// here (spec.md §1), so `by` without a wired Executor fails with
// NotImplemented rather than silently passing `on` through.
type ReduceOps struct {
	baseOps
	rt *Runtime
}

func (o *ReduceOps) AfterPushed(s *coroutine.Stack, el *vdom.Element) bool {
	f := s.Top()

	on, err := evalAttr(o.rt, f, el, "on")
	if err != nil {
		return o.fail(f, err)
	}
	if on == nil {
		return o.fail(f, perr.New(perr.ArgumentMissed))
	}

	by, _ := el.Attr("by")
	if by == "" {
		f.SetSymbol(coroutine.SymQuestion, on)
		return true
	}

	return o.fail(f, perr.New(perr.NotImplemented))
}

func (o *ReduceOps) fail(f *coroutine.Frame, err *perr.Error) bool {
	f.SetSymbol(coroutine.SymColon, o.rt.Heap.MakeNull())
	return false
}

func (o *ReduceOps) SelectChild(s *coroutine.Stack, ctxt any) *vdom.Element { return nil }
