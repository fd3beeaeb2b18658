package element

import (
	"testing"

	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/vdom"
)

func TestReduceWithoutByPassesOnThrough(t *testing.T) {
	eval := newFakeEval()
	rt := newTestRuntime(eval)
	ops := &ReduceOps{rt: rt}

	arr := rt.Heap.MakeArray(rt.Heap.MakeNumber(1), rt.Heap.MakeNumber(2))
	eval.values["$x"] = arr

	el := vdom.NewElement("reduce")
	el.Attrs = map[string]string{"on": "$x"}

	s, f := pushFrame(rt, el, ops)
	if !ops.AfterPushed(s, el) {
		t.Fatalf("expected reduce without by to succeed")
	}
	if f.Symbol(coroutine.SymQuestion) != arr {
		t.Fatalf("expected ? set to the unreduced on value")
	}
}

func TestReduceWithByFailsNotImplemented(t *testing.T) {
	eval := newFakeEval()
	rt := newTestRuntime(eval)
	ops := &ReduceOps{rt: rt}

	arr := rt.Heap.MakeArray(rt.Heap.MakeNumber(1))
	eval.values["$x"] = arr

	el := vdom.NewElement("reduce")
	el.Attrs = map[string]string{"on": "$x", "by": "SUM"}

	s, _ := pushFrame(rt, el, ops)
	if ops.AfterPushed(s, el) {
		t.Fatalf("expected reduce with an unwired executor to fail")
	}
}
