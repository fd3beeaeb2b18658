package element

import (
	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/observer"
	"github.com/purc-go/purc/internal/perr"
	"github.com/purc-go/purc/internal/variant"
	"github.com/purc-go/purc/internal/vdom"
)

// InitOps implements `init` (spec.md §4.G): binds a value to a name, with
// source precedence inline content > `with` > `from`.
type InitOps struct {
	baseOps
	rt *Runtime
}

type initCtxt struct {
	asName   string
	value    *variant.Variant
	pending  bool // waiting on an async fetch or sync yield
	complete bool
}

func (o *InitOps) AfterPushed(s *coroutine.Stack, el *vdom.Element) bool {
	f := s.Top()
	ctxt, _ := f.Ctxt.(*initCtxt)
	if ctxt == nil {
		ctxt = &initCtxt{}
		f.Ctxt = ctxt
	}

	asName, aerr := evalAttr(o.rt, f, el, "as")
	if aerr != nil || asName == nil {
		return false
	}
	name, _ := asName.GetStringConst()
	ctxt.asName = name

	if ctxt.pending {
		return true // still waiting on an async completion from a prior tick
	}
	if ctxt.complete {
		return true
	}

	// Source precedence: inline content > with > from.
	if el.Content != "" {
		v, err := o.rt.Eval.Eval(el.Content, f)
		if err != nil {
			return o.fail(f, err)
		}
		return o.bind(s, f, el, v)
	}

	if withVal, err := evalAttr(o.rt, f, el, "with"); err != nil {
		return o.fail(f, err)
	} else if withVal != nil {
		return o.bind(s, f, el, withVal)
	}

	fromURI, err := evalAttr(o.rt, f, el, "from")
	if err != nil {
		return o.fail(f, err)
	}
	if fromURI == nil {
		return o.fail(f, perr.New(perr.ArgumentMissed))
	}
	uri, _ := fromURI.GetStringConst()

	_, isAsync := el.Attr("asynchronously")
	_, isAsync2 := el.Attr("async")
	_, isTemp := el.Attr("temporarily")
	async := (isAsync || isAsync2) && !isTemp

	reqID, ferr := o.rt.Fetch.FetchAsync(uri)
	if ferr != nil {
		return o.fail(f, ferr)
	}

	ctxt.pending = true
	if !async && s.Yield != nil {
		s.Yield()
	}
	o.rt.Observers.RegisterInner(s.CID, reqID, "FETCHERSTATE", func(obs *observer.Observer, msg *observer.Message) int {
		ctxt.pending = false
		ctxt.complete = true
		if !async && s.Resume != nil {
			s.Resume()
		}
		if msg.Subtype == "ERROR" {
			return 1
		}
		result := o.rt.Fetch.FetchResult(reqID)
		o.bind(s, f, el, result)
		return 0
	})
	return true
}

func (o *InitOps) fail(f *coroutine.Frame, err *perr.Error) bool {
	f.SetSymbol(coroutine.SymColon, o.rt.Heap.MakeNull())
	return false
}

func (o *InitOps) bind(s *coroutine.Stack, f *coroutine.Frame, el *vdom.Element, v *variant.Variant) bool {
	if v == nil {
		return false
	}
	ctxt := f.Ctxt.(*initCtxt)
	ctxt.complete = true

	against, _ := el.Attr("against")
	_, uniq1 := el.Attr("uniquely")
	_, uniq2 := el.Attr("uniq")
	_, caseInsens := el.Attr("case(insensitively)")

	final := v
	if uniq1 || uniq2 {
		set := o.rt.Heap.MakeSet(against, caseInsens)
		if v.Kind() == variant.KindArray {
			for _, item := range v.ArrayItems() {
				set.SetAdd(item) // duplicate rejections are intentional per spec.md §4.G
			}
		}
		final = set
	}

	at, _ := el.Attr("at")
	anchor := resolveScopeAnchor(s, at)
	coroutine.BindScopeVariable(s, anchor, ctxt.asName, final)
	f.SetSymbol(coroutine.SymQuestion, final)
	return true
}

func (o *InitOps) SelectChild(s *coroutine.Stack, ctxt any) *vdom.Element { return nil }

func (o *InitOps) OnPopping(s *coroutine.Stack, ctxt any) bool {
	c, _ := ctxt.(*initCtxt)
	return c == nil || !c.pending
}
