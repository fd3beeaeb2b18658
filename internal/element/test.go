package element

import (
	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/variant"
	"github.com/purc-go/purc/internal/vdom"
)

// TestOps implements `test` (spec.md §4.G): evaluates `on`/`with`, then
// walks its `match`/`differ` children letting each try its `for` condition
// against the value. `exclusively`/`excl` stops after the first match that
// succeeds.
type TestOps struct {
	baseOps
	rt *Runtime
}

type testCtxt struct {
	value     *variant.Variant
	matched   bool
	exclusive bool
}

func (o *TestOps) AfterPushed(s *coroutine.Stack, el *vdom.Element) bool {
	f := s.Top()
	ctxt := &testCtxt{}
	f.Ctxt = ctxt

	_, excl1 := el.Attr("exclusively")
	_, excl2 := el.Attr("excl")
	ctxt.exclusive = excl1 || excl2

	if on, err := evalAttr(o.rt, f, el, "on"); err == nil && on != nil {
		ctxt.value = on
	} else if with, werr := evalAttr(o.rt, f, el, "with"); werr == nil && with != nil {
		ctxt.value = with
	} else {
		ctxt.value = o.rt.Heap.MakeUndefined()
	}
	f.SetSymbol(coroutine.SymQuestion, ctxt.value)
	return true
}

func (o *TestOps) SelectChild(s *coroutine.Stack, ctxt any) *vdom.Element {
	c := ctxt.(*testCtxt)
	if c.exclusive && c.matched {
		return nil // exclusive match already fired, skip remaining siblings
	}
	f := s.Top()
	return selectChildSequential(s, f.Element)
}

// MatchOps implements both `match` (positive) and `differ` (negative): each
// evaluates its own `for` against the parent test's current value and only
// runs its body when `for` succeeds (inverted for `differ`).
type MatchOps struct {
	baseOps
	rt     *Runtime
	differ bool
}

type matchCtxt struct {
	succeeded bool
}

func (o *MatchOps) AfterPushed(s *coroutine.Stack, el *vdom.Element) bool {
	f := s.Top()
	ctxt := &matchCtxt{}
	f.Ctxt = ctxt

	parent := s.At(s.Len() - 2)
	var tc *testCtxt
	if parent != nil {
		tc, _ = parent.Ctxt.(*testCtxt)
	}
	var value *variant.Variant
	if tc != nil {
		value = tc.value
	}

	forExpr, ok := el.Attr("for")
	pass := true
	if ok {
		if value != nil {
			f.SetSymbol(coroutine.SymQuestion, value)
		}
		res, err := o.rt.Eval.Eval(forExpr, f)
		if err != nil {
			pass = false
		} else {
			pass = res != nil && res.IsTrue()
		}
	}
	if o.differ {
		pass = !pass
	}
	if !pass {
		return false
	}

	ctxt.succeeded = true
	if tc != nil {
		tc.matched = true
	}
	if parent != nil {
		if value != nil {
			parent.SetSymbol(coroutine.SymQuestion, value)
		}
	}
	f.SetSymbol(coroutine.SymQuestion, value)
	return true
}

func (o *MatchOps) SelectChild(s *coroutine.Stack, ctxt any) *vdom.Element {
	c := ctxt.(*matchCtxt)
	if !c.succeeded {
		return nil
	}
	f := s.Top()
	return selectChildSequential(s, f.Element)
}
