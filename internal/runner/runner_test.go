package runner

import (
	"testing"

	"github.com/purc-go/purc/internal/config"
	"github.com/purc-go/purc/internal/vdom"
)

func TestSpawnDrivesLeafCoroutineToExit(t *testing.T) {
	r := New("test-runner", config.DefaultConfig(), nil)

	doc := vdom.NewDocument()
	root := vdom.NewElement("div")
	co := r.Spawn(nil, doc, root)

	for i := 0; i < 10 && !co.Exited(); i++ {
		r.dispatchOnce(nil)
	}

	if !co.Exited() {
		t.Fatalf("expected leaf coroutine to exit within 10 ticks")
	}
	if r.Coroutine(co.CID) != nil {
		t.Fatalf("expected exited coroutine to be reaped from the runner")
	}
}

func TestSpawnRegistersMultipleCoroutinesForRoundRobin(t *testing.T) {
	r := New("test-runner", config.DefaultConfig(), nil)
	doc := vdom.NewDocument()

	co1 := r.Spawn(nil, doc, vdom.NewElement("div"))
	co2 := r.Spawn(nil, doc, vdom.NewElement("span"))

	if r.Coroutine(co1.CID) == nil || r.Coroutine(co2.CID) == nil {
		t.Fatalf("expected both spawned coroutines to be tracked")
	}

	for i := 0; i < 10 && (!co1.Exited() || !co2.Exited()); i++ {
		r.dispatchOnce(nil)
	}

	if !co1.Exited() || !co2.Exited() {
		t.Fatalf("expected both leaf coroutines to exit")
	}
}

func TestCancelForgetsCoroutineWithoutRunningIt(t *testing.T) {
	r := New("test-runner", config.DefaultConfig(), nil)
	co := r.Spawn(nil, vdom.NewDocument(), vdom.NewElement("div"))

	r.Cancel(co.CID)

	if r.Coroutine(co.CID) != nil {
		t.Fatalf("expected cancelled coroutine to be removed")
	}
}
