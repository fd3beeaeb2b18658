package element

import (
	"testing"

	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/variant"
	"github.com/purc-go/purc/internal/vdom"
)

func TestEraseAtArrayIndexRemovesOneItem(t *testing.T) {
	eval := newFakeEval()
	rt := newTestRuntime(eval)
	ops := &EraseClearOps{rt: rt, clearOnly: false}

	arr := rt.Heap.MakeArray(rt.Heap.MakeNumber(1), rt.Heap.MakeNumber(2), rt.Heap.MakeNumber(3))
	eval.values["$x"] = arr

	el := vdom.NewElement("erase")
	el.Attrs = map[string]string{"on": "$x", "at": "1"}

	s, f := pushFrame(rt, el, ops)
	if !ops.AfterPushed(s, el) {
		t.Fatalf("expected erase to succeed")
	}
	if arr.ArraySize() != 2 {
		t.Fatalf("expected one item erased, array size now %d", arr.ArraySize())
	}
	if f.Symbol(coroutine.SymQuestion).AsNumber() != 1 {
		t.Fatalf("expected ? to report 1 item erased")
	}
}

func TestClearEmptiesWholeArrayRegardlessOfAt(t *testing.T) {
	eval := newFakeEval()
	rt := newTestRuntime(eval)
	ops := &EraseClearOps{rt: rt, clearOnly: true}

	arr := rt.Heap.MakeArray(rt.Heap.MakeNumber(1), rt.Heap.MakeNumber(2), rt.Heap.MakeNumber(3))
	eval.values["$x"] = arr

	el := vdom.NewElement("clear")
	el.Attrs = map[string]string{"on": "$x"}

	s, f := pushFrame(rt, el, ops)
	if !ops.AfterPushed(s, el) {
		t.Fatalf("expected clear to succeed")
	}
	if arr.ArraySize() != 0 {
		t.Fatalf("expected the array emptied, size %d", arr.ArraySize())
	}
	if f.Symbol(coroutine.SymQuestion).AsNumber() != 3 {
		t.Fatalf("expected ? to report 3 items cleared")
	}
}

func TestEraseAttrRemovesObjectKey(t *testing.T) {
	eval := newFakeEval()
	rt := newTestRuntime(eval)
	ops := &EraseClearOps{rt: rt, clearOnly: false}

	obj, err := rt.Heap.MakeObject(
		[]string{"a", "b"},
		[]*variant.Variant{rt.Heap.MakeNumber(1), rt.Heap.MakeNumber(2)},
	)
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	eval.values["$o"] = obj

	el := vdom.NewElement("erase")
	el.Attrs = map[string]string{"on": "$o", "at": "attr.a"}

	s, _ := pushFrame(rt, el, ops)
	if !ops.AfterPushed(s, el) {
		t.Fatalf("expected erase to succeed")
	}
	if obj.ObjectSize() != 1 {
		t.Fatalf("expected one key erased, object size now %d", obj.ObjectSize())
	}
	if obj.ObjectGet("a") != nil {
		t.Fatalf("expected key a to be gone")
	}
}
