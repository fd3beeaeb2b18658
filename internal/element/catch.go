package element

import (
	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/variant"
	"github.com/purc-go/purc/internal/vdom"
)

// CatchOps implements `catch` (spec.md §4.G): runs only when the parent
// frame carries a pending exception matching its `for` pattern, clears it,
// binds `{ name, info }` to `?`, and proceeds with its body. A `for`
// mismatch re-raises by leaving the exception in place.
type CatchOps struct {
	baseOps
	rt *Runtime
}

func (o *CatchOps) AfterPushed(s *coroutine.Stack, el *vdom.Element) bool {
	f := s.Top()
	if s.Exception == nil {
		return false
	}
	exc := s.Exception()
	if exc == nil || exc.Atom == 0 {
		return false
	}

	name, ok := o.rt.Atoms.ToString(exc.Atom)
	if !ok {
		return false
	}

	forPattern, hasFor := el.Attr("for")
	if hasFor && forPattern != "*" && forPattern != name {
		return false // doesn't match, leave the exception for an outer catch
	}

	s.ClearException()

	infoVar, ok := exc.Info.(*variant.Variant)
	if !ok || infoVar == nil {
		infoVar = o.rt.Heap.MakeUndefined()
	}

	obj, oerr := o.rt.Heap.MakeObject([]string{"name", "info"}, []*variant.Variant{
		o.rt.Heap.MakeString(name),
		infoVar,
	})
	if oerr != nil {
		return false
	}
	f.SetSymbol(coroutine.SymQuestion, obj)
	return true
}

func (o *CatchOps) SelectChild(s *coroutine.Stack, ctxt any) *vdom.Element {
	f := s.Top()
	return selectChildSequential(s, f.Element)
}
