package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/purc-go/purc/internal/observer"
	"github.com/purc-go/purc/internal/perr"
	"github.com/purc-go/purc/internal/variant"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "data.json")
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return p
}

func TestManagerFetchAsyncDispatchesSuccessWithDecodedJSON(t *testing.T) {
	path := writeTempFile(t, `{"a":1}`)
	heap := variant.NewHeap()
	reg := observer.NewRegistry()
	m := NewManager(reg, heap)

	reqID, err := m.FetchAsync("file://" + path)
	if err != nil {
		t.Fatalf("FetchAsync failed: %v", err)
	}

	var got *variant.Variant
	done := make(chan struct{})
	reg.RegisterInner(1, reqID, "FETCHERSTATE", func(obs *observer.Observer, msg *observer.Message) int {
		got = msg.Data
		close(done)
		return 0
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for fetch completion")
	}

	if got == nil || got.Kind() != variant.KindObject {
		t.Fatalf("expected decoded JSON object, got %v", got)
	}
	one := got.ObjectGet("a")
	if one == nil || one.AsNumber() != 1 {
		t.Fatalf("expected a=1, got %v", one)
	}

	result := m.FetchResult(reqID)
	if result == nil {
		t.Fatalf("expected FetchResult to return the decoded payload")
	}
}

func TestManagerFetchAsyncMissingFileReportsError(t *testing.T) {
	heap := variant.NewHeap()
	reg := observer.NewRegistry()
	m := NewManager(reg, heap)

	reqID, err := m.FetchAsync("file:///nonexistent/path/missing.json")
	if err != nil {
		t.Fatalf("FetchAsync returned synchronous error: %v", err)
	}

	subtype := ""
	done := make(chan struct{})
	reg.RegisterInner(1, reqID, "FETCHERSTATE", func(obs *observer.Observer, msg *observer.Message) int {
		subtype = msg.Subtype
		close(done)
		return 0
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for fetch completion")
	}

	if subtype != "ERROR" {
		t.Fatalf("expected ERROR subtype, got %q", subtype)
	}
}

func TestManagerCancelReportsUserCancel(t *testing.T) {
	path := writeTempFile(t, `{"big":true}`)
	heap := variant.NewHeap()
	reg := observer.NewRegistry()
	m := NewManager(reg, heap)
	m.RegisterBackend("file", &blockingBackend{})

	reqID, err := m.FetchAsync("file://" + path)
	if err != nil {
		t.Fatalf("FetchAsync failed: %v", err)
	}

	var payload *variant.Variant
	subtype := ""
	done := make(chan struct{})
	reg.RegisterInner(1, reqID, "FETCHERSTATE", func(obs *observer.Observer, msg *observer.Message) int {
		subtype = msg.Subtype
		payload = msg.Data
		close(done)
		return 0
	})

	m.Cancel(reqID)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for cancellation to report")
	}

	if subtype != "ERROR" {
		t.Fatalf("expected ERROR subtype on cancel, got %q", subtype)
	}
	if payload == nil || RespCode(payload.AsNumber()) != RespCodeUserCancel {
		t.Fatalf("expected RespCodeUserCancel payload, got %v", payload)
	}
}

func TestBuildURIResolvesRelativeAgainstBase(t *testing.T) {
	got := BuildURI("https://example.com/app/", "page.html")
	want := "https://example.com/app/page.html"
	if got != want {
		t.Fatalf("BuildURI(%q) = %q, want %q", "page.html", got, want)
	}
}

func TestBuildURIPassesThroughAbsoluteTarget(t *testing.T) {
	got := BuildURI("https://example.com/", "file:///tmp/x")
	if got != "file:///tmp/x" {
		t.Fatalf("expected absolute target to pass through unchanged, got %q", got)
	}
}

// blockingBackend never returns until its context is cancelled, exercising
// Manager.Cancel's plumbing independent of how fast a real file read is.
type blockingBackend struct{}

func (b *blockingBackend) FetchSync(ctx context.Context, req *Request) ([]byte, Header, *perr.Error) {
	<-ctx.Done()
	return nil, Header{}, perr.New(perr.RequestFailed)
}

func (b *blockingBackend) FetchAsync(ctx context.Context, req *Request, progress func(float64)) ([]byte, Header, *perr.Error) {
	<-ctx.Done()
	return nil, Header{}, perr.New(perr.RequestFailed)
}
