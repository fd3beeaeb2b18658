package element

import (
	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/variant"
	"github.com/purc-go/purc/internal/vdom"
)

// IterateOps implements `iterate` (spec.md §4.G): walks `on` one member per
// round with a LinearIterator, setting `?` (and `$<` unless nosetotail);
// `onlyif` skips a member and `while` ends the loop. `with` is not
// evaluated, and an `iterate` carrying `by` fails without running its body
// (no executor is run).
type IterateOps struct {
	baseOps
	rt *Runtime
}

type iterateCtxt struct {
	source      *variant.Variant
	iter        *variant.LinearIterator
	nosetotail  bool
	bodyRun     bool
	done        bool
}

func (o *IterateOps) AfterPushed(s *coroutine.Stack, el *vdom.Element) bool {
	f := s.Top()
	ctxt := &iterateCtxt{}
	f.Ctxt = ctxt

	_, ctxt.nosetotail = el.Attr("nosetotail")

	if by, ok := el.Attr("by"); ok && by != "" {
		ctxt.done = true
		f.SetSymbol(coroutine.SymColon, o.rt.Heap.MakeNull())
		return false
	}

	on, err := evalAttr(o.rt, f, el, "on")
	if err != nil || on == nil {
		ctxt.done = true
		return false
	}
	ctxt.source = on
	ctxt.iter = variant.NewLinearIterator(on)

	if ctxt.iter.Len() == 0 {
		ctxt.done = true
		return false // nothing to iterate; straight to ON_POPPING
	}

	return o.advance(s, f, el, ctxt)
}

// advance pulls the next element from the iterator, checks `onlyif`/`while`,
// and sets `$?` (and `$<` unless nosetotail) for the upcoming body run.
func (o *IterateOps) advance(s *coroutine.Stack, f *coroutine.Frame, el *vdom.Element, ctxt *iterateCtxt) bool {
	if !ctxt.iter.HasNext() {
		ctxt.done = true
		return false
	}
	val := ctxt.iter.Next()
	f.SetSymbol(coroutine.SymQuestion, val)
	if !ctxt.nosetotail {
		f.SetSymbol(coroutine.SymLess, val)
	}

	if whileExpr, ok := el.Attr("while"); ok {
		res, werr := o.rt.Eval.Eval(whileExpr, f)
		if werr != nil || res == nil || !res.IsTrue() {
			ctxt.done = true
			return false
		}
	}
	if onlyifExpr, ok := el.Attr("onlyif"); ok {
		res, oerr := o.rt.Eval.Eval(onlyifExpr, f)
		if oerr != nil || res == nil || !res.IsTrue() {
			// onlyif failing skips this element but keeps iterating.
			return o.advance(s, f, el, ctxt)
		}
	}

	ctxt.bodyRun = true
	return true
}

func (o *IterateOps) SelectChild(s *coroutine.Stack, ctxt any) *vdom.Element {
	f := s.Top()
	return selectChildSequential(s, f.Element)
}

func (o *IterateOps) OnPopping(s *coroutine.Stack, ctxt any) bool {
	c := ctxt.(*iterateCtxt)
	if c.done || c.iter == nil || !c.iter.HasNext() {
		c.done = true
		return true // stop: no more iterations, pop for real
	}
	f := s.Top()
	f.Element.ResetCursor()
	f.NextStep = coroutine.StepRerun
	return false // stay: RERUN drives the next SELECT_CHILD pass
}

func (o *IterateOps) Rerun(s *coroutine.Stack, ctxt any) bool {
	c := ctxt.(*iterateCtxt)
	f := s.Top()
	return o.advance(s, f, f.Element, c)
}
