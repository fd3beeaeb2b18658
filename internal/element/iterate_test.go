package element

import (
	"testing"

	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/perr"
	"github.com/purc-go/purc/internal/variant"
	"github.com/purc-go/purc/internal/vdom"
)

// driveIterateUntilStop runs IterateOps' AFTER_PUSHED/RERUN/ON_POPPING
// cycle directly against a childless body, counting how many times the
// loop body would have run.
func driveIterateUntilStop(ops *IterateOps, s *coroutine.Stack, el *vdom.Element) int {
	runs := 0
	if ops.AfterPushed(s, el) {
		runs++
	} else {
		return runs
	}
	for {
		if ops.OnPopping(s, s.Top().Ctxt) {
			return runs
		}
		if !ops.Rerun(s, s.Top().Ctxt) {
			return runs
		}
		runs++
	}
}

// whileCountEval makes `cond` evaluate true for the first `limit` calls,
// then false, so the iterate-with-while scenario of spec.md §8.E can run
// without a real eJSON evaluator.
type whileCountEval struct {
	heap   *variant.Heap
	calls  int
	limit  int
	source *variant.Variant // value of `on`
}

func (w *whileCountEval) Eval(expr string, frame *coroutine.Frame) (*variant.Variant, *perr.Error) {
	switch expr {
	case "cond":
		w.calls++
		return w.heap.MakeBoolean(w.calls <= w.limit), nil
	case "$x":
		return w.source, nil
	}
	return nil, nil
}

func TestIterateWithWhileStopsAtThreeRuns(t *testing.T) {
	eval := newFakeEval()
	rt := newTestRuntime(eval)

	arr := rt.Heap.MakeArray(
		rt.Heap.MakeNumber(0), rt.Heap.MakeNumber(1), rt.Heap.MakeNumber(2),
		rt.Heap.MakeNumber(3), rt.Heap.MakeNumber(4),
	)
	eval.values["$x"] = arr

	rt.Eval = &whileCountEval{heap: rt.Heap, limit: 3, source: arr}
	ops := &IterateOps{rt: rt}

	el := vdom.NewElement("iterate")
	el.Attrs = map[string]string{"on": "$x", "while": "cond"}

	s, _ := pushFrame(rt, el, ops)

	runs := driveIterateUntilStop(ops, s, el)
	if runs != 3 {
		t.Fatalf("expected exactly 3 body runs, got %d", runs)
	}
}

func TestIterateSetsQuestionAndInputEachRound(t *testing.T) {
	eval := newFakeEval()
	rt := newTestRuntime(eval)
	ops := &IterateOps{rt: rt}

	arr := rt.Heap.MakeArray(rt.Heap.MakeNumber(10), rt.Heap.MakeNumber(20))
	eval.values["$x"] = arr

	el := vdom.NewElement("iterate")
	el.Attrs = map[string]string{"on": "$x"}

	s, f := pushFrame(rt, el, ops)

	if !ops.AfterPushed(s, el) {
		t.Fatalf("expected first iteration to proceed")
	}
	if f.Symbol(coroutine.SymQuestion).AsNumber() != 10 {
		t.Fatalf("expected ? == 10 on first round")
	}
	if f.Symbol(coroutine.SymLess).AsNumber() != 10 {
		t.Fatalf("expected $< == 10 on first round without nosetotail")
	}

	if ops.OnPopping(s, f.Ctxt) {
		t.Fatalf("expected OnPopping to stay for a second round")
	}
	if !ops.Rerun(s, f.Ctxt) {
		t.Fatalf("expected second iteration to proceed")
	}
	if f.Symbol(coroutine.SymQuestion).AsNumber() != 20 {
		t.Fatalf("expected ? == 20 on second round")
	}

	if !ops.OnPopping(s, f.Ctxt) {
		t.Fatalf("expected OnPopping to allow the pop once exhausted")
	}
}
