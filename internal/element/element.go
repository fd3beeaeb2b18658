// Package element implements the per-HVML-element ops tables dispatched
// by the coroutine package's run_coroutine tick (spec.md §4.D, §4.G). Each
// handler here satisfies coroutine.Ops.
//
// Attribute expression evaluation (the eJSON/VCM expression language) is
// an external collaborator out of scope for this repository, exactly as
// spec.md §1 scopes out the tokenizer; handlers call an injected Evaluator
// to turn an attribute's raw source text into a variant instead of parsing
// eJSON themselves.
package element

import (
	"strings"

	"github.com/purc-go/purc/internal/atom"
	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/event"
	"github.com/purc-go/purc/internal/observer"
	"github.com/purc-go/purc/internal/perr"
	"github.com/purc-go/purc/internal/variant"
	"github.com/purc-go/purc/internal/vdom"
)

// Evaluator turns an attribute's raw source text (an eJSON/VCM expression
// or a plain string) into a variant, in the context of frame (for `$?`,
// `$<`, named variables, etc).
type Evaluator interface {
	Eval(expr string, frame *coroutine.Frame) (*variant.Variant, *perr.Error)
}

// Runtime bundles the shared services every element handler needs: the
// variant heap, the attribute evaluator, and the fetcher/observer/event
// hooks used by the asynchronous elements (`init ... from`, `request`).
type Runtime struct {
	Heap      *variant.Heap
	Atoms     *atom.Table
	Eval      Evaluator
	Fetch     Fetcher
	Requester Requester
	Observers *observer.Registry
	Events    *event.Bus
}

// Fetcher is the subset of component F's API element handlers need: launch
// an async fetch and get back the request id used as the observer key for
// the FETCHERSTATE event that component F posts on completion (spec.md
// §4.F "the handler is invoked ... HEADER, DATA, FINISH; on failure
// exactly once with ERROR").
type Fetcher interface {
	FetchAsync(uri string) (requestID string, err *perr.Error)
	// FetchResult retrieves the decoded payload of a completed request,
	// valid once a FETCHERSTATE:SUCCESS event has fired for requestID.
	FetchResult(requestID string) *variant.Variant
}

// Requester is the subset of component H's API the `request` element
// needs to issue a cross-coroutine or cross-runner request and correlate
// its response via the RESPONSE event (spec.md §4.G `request`).
type Requester interface {
	SendRequest(target, verb string, payload *variant.Variant) (requestID string, err *perr.Error)
}

// baseOps supplies the four-entry-point contract of spec.md §4.G, embedded by
// every concrete element below so each only needs to override what it
// uses; unused entry points fall back to sensible single-pass defaults.
type baseOps struct{}

func (baseOps) SelectChild(s *coroutine.Stack, ctxt any) *vdom.Element { return nil }
func (baseOps) AfterPushed(s *coroutine.Stack, el *vdom.Element) bool  { return true }
func (baseOps) Rerun(s *coroutine.Stack, ctxt any) bool                { return true }
func (baseOps) OnPopping(s *coroutine.Stack, ctxt any) bool            { return true }

// selectChildSequential is the default child-traversal SelectChild shared
// by every element that just runs its markup children in document order
// (spec.md §4.D "select_child ... selects the next sibling").
func selectChildSequential(s *coroutine.Stack, el *vdom.Element) *vdom.Element {
	return el.NextChild()
}

// Registry maps element tag names to their Ops, the table spec.md §4.G
// calls "per-HVML-element ops." Tag lookup is case-insensitive since HVML
// element names are matched via atoms (spec.md §6).
type Registry struct {
	rt   *Runtime
	tags map[string]coroutine.Ops
}

// NewRegistry builds the handler table for every element spec.md §1 and
// §4.G names: init, iterate, test, match, differ, catch, back, return,
// request, reduce, erase, clear, bind, adapt, body, head.
func NewRegistry(rt *Runtime) *Registry {
	r := &Registry{rt: rt, tags: make(map[string]coroutine.Ops)}
	r.tags["init"] = &InitOps{rt: rt}
	r.tags["iterate"] = &IterateOps{rt: rt}
	r.tags["test"] = &TestOps{rt: rt}
	r.tags["match"] = &MatchOps{rt: rt, differ: false}
	r.tags["differ"] = &MatchOps{rt: rt, differ: true}
	r.tags["catch"] = &CatchOps{rt: rt}
	r.tags["back"] = &BackOps{rt: rt}
	r.tags["return"] = &ReturnOps{rt: rt}
	r.tags["request"] = &RequestOps{rt: rt}
	r.tags["reduce"] = &ReduceOps{rt: rt}
	r.tags["erase"] = &EraseClearOps{rt: rt, clearOnly: false}
	r.tags["clear"] = &EraseClearOps{rt: rt, clearOnly: true}
	r.tags["bind"] = &BindOps{rt: rt}
	r.tags["adapt"] = &AdaptOps{rt: rt}
	r.tags["head"] = &HeadBodyOps{rt: rt, mode: ModeHead}
	r.tags["body"] = &HeadBodyOps{rt: rt, mode: ModeBody}
	return r
}

// Resolve implements coroutine.OpsResolver: elements with no specific
// handler (plain markup, e.g. a `div`) get a generic sequential-child Ops
// so the tree still walks.
func (r *Registry) Resolve(el *vdom.Element) coroutine.Ops {
	if ops, ok := r.tags[strings.ToLower(el.Tag)]; ok {
		return ops
	}
	return genericOps{}
}

type genericOps struct{ baseOps }

func (genericOps) SelectChild(s *coroutine.Stack, ctxt any) *vdom.Element {
	f := s.Top()
	return selectChildSequential(s, f.Element)
}

// resolveScopeAnchor implements the `at` scope-selector grammar shared by
// `init` and the back-anchor walk of `back`: `_last`/`_topmost` name the
// current or outermost frame, `_nexttolast` the frame below the top, a
// leading run of `_` is a depth hop of that many frames, `#id` finds an
// element by id anywhere on the stack, and anything else (including "")
// means "the nearest enclosing scope-able frame" (nil anchor).
func resolveScopeAnchor(s *coroutine.Stack, at string) *vdom.Element {
	switch {
	case at == "":
		return nil
	case at == "_last":
		if f := s.Top(); f != nil {
			return f.Element
		}
		return nil
	case at == "_topmost":
		if f := s.At(0); f != nil {
			return f.Element
		}
		return nil
	case at == "_nexttolast":
		if f := s.At(s.Len() - 2); f != nil {
			return f.Element
		}
		return nil
	case len(at) > 0 && at[0] == '#':
		id := at[1:]
		for i := s.Len() - 1; i >= 0; i-- {
			if f := s.At(i); f.Element != nil && f.Element.ID == id {
				return f.Element
			}
		}
		return nil
	case allUnderscores(at):
		depth := len(at)
		idx := s.Len() - 1 - depth
		if f := s.At(idx); f != nil {
			return f.Element
		}
		return nil
	default:
		return nil
	}
}

func allUnderscores(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '_' {
			return false
		}
	}
	return true
}

// evalAttr is a small convenience used by every handler: read a raw
// attribute off el, evaluate it via rt.Eval, and cache the result on
// frame so repeated ticks (e.g. across an async suspend) don't
// re-evaluate.
func evalAttr(rt *Runtime, frame *coroutine.Frame, el *vdom.Element, name string) (*variant.Variant, *perr.Error) {
	if cached := frame.AttrVar(name); cached != nil {
		return cached, nil
	}
	raw, ok := el.Attr(name)
	if !ok {
		return nil, nil
	}
	v, err := rt.Eval.Eval(raw, frame)
	if err != nil {
		return nil, err
	}
	frame.SetAttrVar(name, v)
	return v, nil
}
