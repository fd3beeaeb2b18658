package element

import (
	"testing"

	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/observer"
	"github.com/purc-go/purc/internal/variant"
	"github.com/purc-go/purc/internal/vdom"
)

func pushFrame(rt *Runtime, el *vdom.Element, ops coroutine.Ops) (*coroutine.Stack, *coroutine.Frame) {
	s := coroutine.NewStack()
	s.CID = 1
	f := coroutine.NewFrame(el, ops)
	s.Push(f)
	return s, f
}

func TestInitSyncWithUniquelyBuildsSet(t *testing.T) {
	eval := newFakeEval()
	rt := newTestRuntime(eval)
	ops := &InitOps{rt: rt}

	arr := rt.Heap.MakeArray(rt.Heap.MakeNumber(1), rt.Heap.MakeNumber(2), rt.Heap.MakeNumber(2))
	eval.values["[1,2,2]"] = arr
	eval.values["\"x\""] = rt.Heap.MakeString("x")

	el := vdom.NewElement("init")
	el.Attrs = map[string]string{"as": "\"x\"", "with": "[1,2,2]", "uniquely": ""}

	s, _ := pushFrame(rt, el, ops)

	if !ops.AfterPushed(s, el) {
		t.Fatalf("expected AfterPushed to succeed")
	}

	got := coroutine.LookupScopeVariable(s, "x")
	if got == nil {
		t.Fatalf("expected x to be bound")
	}
	if got.Kind() != variant.KindSet {
		t.Fatalf("expected a set, got kind %v", got.Kind())
	}
	if got.SetSize() != 2 {
		t.Fatalf("expected duplicate 2 collapsed to size 2, got %d", got.SetSize())
	}
}

func TestInitAsyncFromRegistersObserverAndBindsOnFetcherState(t *testing.T) {
	eval := newFakeEval()
	rt := newTestRuntime(eval)
	fetcher := &fakeFetcher{requestID: "req-1"}
	rt.Fetch = fetcher
	ops := &InitOps{rt: rt}

	eval.values["\"x\""] = rt.Heap.MakeString("x")
	eval.values["\"file:///tmp/a\""] = rt.Heap.MakeString("file:///tmp/a")

	el := vdom.NewElement("init")
	el.Attrs = map[string]string{"as": "\"x\"", "from": "\"file:///tmp/a\"", "async": ""}

	s, _ := pushFrame(rt, el, ops)
	s.Yield = func() {}
	s.Resume = func() {}

	if !ops.AfterPushed(s, el) {
		t.Fatalf("expected AfterPushed to return true while pending")
	}
	if rt.Observers.Count(s.CID) != 1 {
		t.Fatalf("expected one observer registered for the fetch")
	}

	fetcher.result = rt.Heap.MakeNumber(99)
	n := rt.Observers.Dispatch(s.CID, &observer.Message{Observed: "req-1", Type: "FETCHERSTATE", Subtype: "SUCCESS"})
	if n != 1 {
		t.Fatalf("expected the fetch observer to fire, got %d dispatches", n)
	}
	got := coroutine.LookupScopeVariable(s, "x")
	if got == nil || got.AsNumber() != 99 {
		t.Fatalf("expected x bound to the fetch result, got %v", got)
	}
}
