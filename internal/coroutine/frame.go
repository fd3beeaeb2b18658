package coroutine

import (
	"github.com/purc-go/purc/internal/variant"
	"github.com/purc-go/purc/internal/vdom"
)

// NextStep is a frame's position in the run_coroutine dispatch cycle
// (spec.md §4.D).
type NextStep uint8

const (
	StepSelectChild NextStep = iota
	StepAfterPushed
	StepRerun
	StepOnPopping
)

func (s NextStep) String() string {
	switch s {
	case StepSelectChild:
		return "SELECT_CHILD"
	case StepAfterPushed:
		return "AFTER_PUSHED"
	case StepRerun:
		return "RERUN"
	case StepOnPopping:
		return "ON_POPPING"
	default:
		return "UNKNOWN"
	}
}

// Ops is the four-function-pointer table every element handler implements
// (spec.md §4.G). ctxt is the frame's private per-element state, created
// when the frame is pushed and owned by that element's handler.
type Ops interface {
	// SelectChild returns the next child element to push a frame for, or
	// nil when this element has no more children to run.
	SelectChild(stack *Stack, ctxt any) *vdom.Element

	// AfterPushed runs right after a frame is pushed for vdomEl. Returning
	// false means the element failed or completed immediately, sending it
	// straight to ON_POPPING instead of SELECT_CHILD.
	AfterPushed(stack *Stack, vdomEl *vdom.Element) bool

	// Rerun re-executes the element body without re-running AfterPushed
	// (used by `iterate`'s looping and `test`'s re-evaluation).
	Rerun(stack *Stack, ctxt any) bool

	// OnPopping decides whether the frame may pop now (true) or must
	// return to SELECT_CHILD (false, "stay").
	OnPopping(stack *Stack, ctxt any) bool
}

// Symbol identifies one of HVML's eight per-frame symbol variables.
type Symbol rune

const (
	SymQuestion Symbol = '?' // current value
	SymLess     Symbol = '<' // input value
	SymAt       Symbol = '@' // current position/context
	SymCaret    Symbol = '^' // frame's own element
	SymPercent  Symbol = '%' // iteration index/count
	SymBang     Symbol = '!' // local named-variable object
	SymColon    Symbol = ':' // error/exception info
	SymEqual    Symbol = '=' // evaluated attribute value
)

// Frame is one stack entry: an element's runtime state while it is being
// dispatched (spec.md §4.D).
type Frame struct {
	Element  *vdom.Element
	Ctxt     any
	Ops      Ops
	NextStep NextStep

	// Pseudo marks a frame pushed via PushPseudo for an observer-handler
	// context; it must not be visible to CSS-selector-style lookups that
	// only want real markup elements.
	Pseudo bool

	symbols   map[Symbol]*variant.Variant
	attrVars  map[string]*variant.Variant
	evalAttrPos int

	// Silently mirrors the `silently` annotation: errors in this frame's
	// evaluation convert to a neutral value instead of an exception.
	Silently bool

	// Destructor runs exactly once when the frame is popped, releasing
	// ctxt's resources (spec.md testable property #4).
	Destructor func()
}

// NewFrame creates a frame for el, ready to begin at AFTER_PUSHED.
func NewFrame(el *vdom.Element, ops Ops) *Frame {
	return &Frame{
		Element:  el,
		Ops:      ops,
		NextStep: StepAfterPushed,
		symbols:  make(map[Symbol]*variant.Variant),
		attrVars: make(map[string]*variant.Variant),
	}
}

// SetSymbol binds a symbol variable on this frame, taking a new reference.
func (f *Frame) SetSymbol(s Symbol, v *variant.Variant) {
	if old, ok := f.symbols[s]; ok {
		old.Unref()
	}
	f.symbols[s] = v.Ref()
}

// Symbol returns the current value of a symbol variable, or nil if unset.
func (f *Frame) Symbol(s Symbol) *variant.Variant {
	return f.symbols[s]
}

// SetAttrVar records the evaluated value of an attribute, by name.
func (f *Frame) SetAttrVar(name string, v *variant.Variant) {
	if old, ok := f.attrVars[name]; ok {
		old.Unref()
	}
	f.attrVars[name] = v.Ref()
}

// AttrVar looks up a previously evaluated attribute value.
func (f *Frame) AttrVar(name string) *variant.Variant {
	return f.attrVars[name]
}

// EvalAttrPos tracks which attribute (by index into the element's
// attribute list) is currently being evaluated, so a suspend/resume
// across async attribute evaluation (e.g. `init`'s `from`) can continue
// where it left off.
func (f *Frame) EvalAttrPos() int      { return f.evalAttrPos }
func (f *Frame) SetEvalAttrPos(p int)  { f.evalAttrPos = p }

// release runs the destructor and unrefs every symbol/attribute variable
// this frame owns, in the order testable property #4 requires: exactly
// once, on pop.
func (f *Frame) release() {
	if f.Destructor != nil {
		f.Destructor()
		f.Destructor = nil
	}
	forgetFrameScope(f)
	for k, v := range f.symbols {
		v.Unref()
		delete(f.symbols, k)
	}
	for k, v := range f.attrVars {
		v.Unref()
		delete(f.attrVars, k)
	}
}
