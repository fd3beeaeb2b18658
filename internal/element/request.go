package element

import (
	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/observer"
	"github.com/purc-go/purc/internal/perr"
	"github.com/purc-go/purc/internal/vdom"
)

// RequestOps implements `request` (spec.md §4.G): sends a request to
// another coroutine/runner/channel/renderer and, unless `noreturn` or
// `asynchronously` is set, yields until a matching `RESPONSE` event
// arrives.
type RequestOps struct {
	baseOps
	rt *Runtime
}

type requestCtxt struct {
	asName   string
	pending  bool
	complete bool
}

func (o *RequestOps) AfterPushed(s *coroutine.Stack, el *vdom.Element) bool {
	f := s.Top()
	ctxt, _ := f.Ctxt.(*requestCtxt)
	if ctxt == nil {
		ctxt = &requestCtxt{}
		f.Ctxt = ctxt
	}

	if asName, _ := el.Attr("as"); asName != "" {
		ctxt.asName = asName
	} else if atName, _ := el.Attr("at"); atName != "" {
		ctxt.asName = atName
	}

	if ctxt.pending || ctxt.complete {
		return true
	}

	target, terr := evalAttr(o.rt, f, el, "on")
	if terr != nil || target == nil {
		return o.fail(f, perr.New(perr.ArgumentMissed))
	}
	targetStr, _ := target.GetStringConst()

	verb, _ := el.Attr("to")
	payload, perrv := evalAttr(o.rt, f, el, "with")
	if perrv != nil {
		return o.fail(f, perrv)
	}

	_, noreturn := el.Attr("noreturn")
	_, asyncAttr := el.Attr("asynchronously")

	reqID, serr := o.rt.Requester.SendRequest(targetStr, verb, payload)
	if serr != nil {
		return o.fail(f, serr)
	}

	if ctxt.asName != "" {
		reqIDVar := o.rt.Heap.MakeString(reqID)
		at, _ := el.Attr("at")
		anchor := resolveScopeAnchor(s, at)
		coroutine.BindScopeVariable(s, anchor, ctxt.asName, reqIDVar)
	}

	if noreturn {
		ctxt.complete = true
		return true
	}

	ctxt.pending = true
	if !asyncAttr && s.Yield != nil {
		s.Yield()
	}
	o.rt.Observers.RegisterInner(s.CID, reqID, "RESPONSE", func(obs *observer.Observer, msg *observer.Message) int {
		ctxt.pending = false
		ctxt.complete = true
		if !asyncAttr && s.Resume != nil {
			s.Resume()
		}
		f.SetSymbol(coroutine.SymQuestion, msg.Data)
		return 0
	})
	return true
}

func (o *RequestOps) fail(f *coroutine.Frame, err *perr.Error) bool {
	f.SetSymbol(coroutine.SymColon, o.rt.Heap.MakeNull())
	return false
}

func (o *RequestOps) SelectChild(s *coroutine.Stack, ctxt any) *vdom.Element { return nil }

func (o *RequestOps) OnPopping(s *coroutine.Stack, ctxt any) bool {
	c, _ := ctxt.(*requestCtxt)
	return c == nil || !c.pending
}
