package element

import (
	"testing"

	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/vdom"
)

func TestTestMatchExclusiveStopsAfterFirstSuccess(t *testing.T) {
	eval := newFakeEval()
	rt := newTestRuntime(eval)
	testOps := &TestOps{rt: rt}
	matchOps := &MatchOps{rt: rt}

	eval.values["\"v\""] = rt.Heap.MakeString("v")
	eval.values["true"] = rt.Heap.MakeBoolean(true)
	eval.values["false"] = rt.Heap.MakeBoolean(false)

	testEl := vdom.NewElement("test")
	testEl.Attrs = map[string]string{"on": "\"v\"", "exclusively": ""}
	matchA := vdom.NewElement("match")
	matchA.Attrs = map[string]string{"for": "true"}
	matchB := vdom.NewElement("match")
	matchB.Attrs = map[string]string{"for": "true"}
	testEl.AppendChild(matchA)
	testEl.AppendChild(matchB)

	s, tf := pushFrame(rt, testEl, testOps)
	if !testOps.AfterPushed(s, testEl) {
		t.Fatalf("expected test to succeed")
	}

	// Drive matchA.
	s.Push(coroutine.NewFrame(matchA, matchOps))
	if !matchOps.AfterPushed(s, matchA) {
		t.Fatalf("expected matchA to succeed")
	}
	s.Pop()

	tc := tf.Ctxt.(*testCtxt)
	if !tc.matched {
		t.Fatalf("expected test ctxt to record a match")
	}

	// test's SelectChild should now refuse to select matchB.
	if child := testOps.SelectChild(s, tc); child != nil {
		t.Fatalf("expected exclusive test to stop selecting children, got %v", child)
	}
}

func TestDifferInvertsForCondition(t *testing.T) {
	eval := newFakeEval()
	rt := newTestRuntime(eval)
	testOps := &TestOps{rt: rt}
	differOps := &MatchOps{rt: rt, differ: true}

	eval.values["\"v\""] = rt.Heap.MakeString("v")
	eval.values["false"] = rt.Heap.MakeBoolean(false)

	testEl := vdom.NewElement("test")
	testEl.Attrs = map[string]string{"on": "\"v\""}
	differEl := vdom.NewElement("differ")
	differEl.Attrs = map[string]string{"for": "false"}
	testEl.AppendChild(differEl)

	s, _ := pushFrame(rt, testEl, testOps)
	testOps.AfterPushed(s, testEl)

	s.Push(coroutine.NewFrame(differEl, differOps))
	if !differOps.AfterPushed(s, differEl) {
		t.Fatalf("expected differ to succeed when for evaluates false")
	}
}
