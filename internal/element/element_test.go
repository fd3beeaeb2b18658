package element

import (
	"github.com/purc-go/purc/internal/atom"
	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/event"
	"github.com/purc-go/purc/internal/observer"
	"github.com/purc-go/purc/internal/perr"
	"github.com/purc-go/purc/internal/variant"
)

// fakeEval resolves an attribute's raw source text by exact-string lookup
// against a table set up per test, plus the handful of `$?`/`$<` symbol
// reads every handler needs.
type fakeEval struct {
	values map[string]*variant.Variant
	err    map[string]*perr.Error
}

func newFakeEval() *fakeEval {
	return &fakeEval{values: map[string]*variant.Variant{}, err: map[string]*perr.Error{}}
}

func (f *fakeEval) Eval(expr string, frame *coroutine.Frame) (*variant.Variant, *perr.Error) {
	if err, ok := f.err[expr]; ok {
		return nil, err
	}
	switch expr {
	case "$?":
		return frame.Symbol(coroutine.SymQuestion), nil
	case "$<":
		return frame.Symbol(coroutine.SymLess), nil
	}
	if v, ok := f.values[expr]; ok {
		return v, nil
	}
	return nil, nil
}

type fakeFetcher struct {
	requestID string
	result    *variant.Variant
	err       *perr.Error
}

func (f *fakeFetcher) FetchAsync(uri string) (string, *perr.Error) {
	if f.err != nil {
		return "", f.err
	}
	return f.requestID, nil
}

func (f *fakeFetcher) FetchResult(requestID string) *variant.Variant {
	return f.result
}

type fakeRequester struct {
	requestID string
	err       *perr.Error
}

func (f *fakeRequester) SendRequest(target, verb string, payload *variant.Variant) (string, *perr.Error) {
	if f.err != nil {
		return "", f.err
	}
	return f.requestID, nil
}

func newTestRuntime(eval *fakeEval) *Runtime {
	return &Runtime{
		Heap:      variant.NewHeap(),
		Atoms:     atom.NewTable(),
		Eval:      eval,
		Observers: observer.NewRegistry(),
		Events:    event.NewBus(),
	}
}
