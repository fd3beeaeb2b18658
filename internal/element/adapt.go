package element

import (
	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/perr"
	"github.com/purc-go/purc/internal/variant"
	"github.com/purc-go/purc/internal/vdom"
)

// AdaptOps implements `adapt` (spec.md §4.G): applies a template `with` to
// a source `on`. With `individually`, maps the template over the source's
// linear/associative structure and builds a result of the same shape for
// array, tuple and object sources (a set or scalar source yields an array);
// otherwise evaluates the template once with `?` set to the whole source.
type AdaptOps struct {
	baseOps
	rt *Runtime
}

func (o *AdaptOps) AfterPushed(s *coroutine.Stack, el *vdom.Element) bool {
	f := s.Top()

	on, err := evalAttr(o.rt, f, el, "on")
	if err != nil {
		return o.fail(f, err)
	}
	if on == nil {
		return o.fail(f, perr.New(perr.ArgumentMissed))
	}
	withExpr, hasWith := el.Attr("with")
	if !hasWith {
		return o.fail(f, perr.New(perr.ArgumentMissed))
	}

	_, individually := el.Attr("individually")
	if !individually {
		f.SetSymbol(coroutine.SymQuestion, on)
		result, werr := o.rt.Eval.Eval(withExpr, f)
		if werr != nil {
			return o.fail(f, werr)
		}
		f.SetSymbol(coroutine.SymQuestion, result)
		return true
	}

	it := variant.NewLinearIterator(on)
	results := make([]*variant.Variant, 0, it.Len())
	keys := make([]string, 0, it.Len())
	for it.HasNext() {
		item := it.Next()
		keys = append(keys, it.Key())
		f.SetSymbol(coroutine.SymQuestion, item)
		mapped, merr := o.rt.Eval.Eval(withExpr, f)
		if merr != nil {
			return o.fail(f, merr)
		}
		results = append(results, mapped)
	}

	var out *variant.Variant
	switch on.Kind() {
	case variant.KindObject:
		obj, oerr := o.rt.Heap.MakeObject(keys, results)
		if oerr != nil {
			return o.fail(f, oerr)
		}
		out = obj
	case variant.KindTuple:
		out = o.rt.Heap.MakeTuple(results...)
	default:
		out = o.rt.Heap.MakeArray(results...)
	}
	f.SetSymbol(coroutine.SymQuestion, out)
	return true
}

func (o *AdaptOps) fail(f *coroutine.Frame, err *perr.Error) bool {
	f.SetSymbol(coroutine.SymColon, o.rt.Heap.MakeNull())
	return false
}

func (o *AdaptOps) SelectChild(s *coroutine.Stack, ctxt any) *vdom.Element { return nil }
