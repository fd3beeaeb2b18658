package element

import (
	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/perr"
	"github.com/purc-go/purc/internal/variant"
	"github.com/purc-go/purc/internal/vdom"
)

// BindOps implements `bind` (spec.md §4.G): materializes a VCM expression
// or inline content as a named variable, bound either to the document
// (default) or, with `locally`, to the parent frame's `$!` object.
type BindOps struct {
	baseOps
	rt *Runtime
}

func (o *BindOps) AfterPushed(s *coroutine.Stack, el *vdom.Element) bool {
	f := s.Top()

	asName, _ := el.Attr("as")
	if asName == "" {
		return o.fail(f, perr.New(perr.ArgumentMissed))
	}

	var value = o.rt.Heap.MakeUndefined()
	if el.Content != "" {
		v, err := o.rt.Eval.Eval(el.Content, f)
		if err != nil {
			return o.fail(f, err)
		}
		value = v
	} else if withVal, err := evalAttr(o.rt, f, el, "with"); err != nil {
		return o.fail(f, err)
	} else if withVal != nil {
		value = withVal
	}

	_, locally := el.Attr("locally")
	if locally {
		parent := s.At(s.Len() - 2)
		if parent == nil {
			return o.fail(f, perr.New(perr.EntityNotFound))
		}
		bang := parent.Symbol(coroutine.SymBang)
		if bang == nil {
			obj, oerr := o.rt.Heap.MakeObject([]string{asName}, []*variant.Variant{value})
			if oerr != nil {
				return o.fail(f, oerr)
			}
			parent.SetSymbol(coroutine.SymBang, obj)
		} else {
			if serr := bang.ObjectSet(asName, value, false); serr != nil {
				return o.fail(f, serr)
			}
		}
	} else if s.Doc != nil {
		coroutine.BindDocumentVariable(s.Doc, asName, value)
	}

	f.SetSymbol(coroutine.SymQuestion, value)
	return true
}

func (o *BindOps) fail(f *coroutine.Frame, err *perr.Error) bool {
	f.SetSymbol(coroutine.SymColon, o.rt.Heap.MakeNull())
	return false
}

func (o *BindOps) SelectChild(s *coroutine.Stack, ctxt any) *vdom.Element { return nil }
