package variant

// Getter and Setter are the native callable pair backing a dynamic variant
// (spec.md §3 "dynamic: pair (getter, setter) of native callables").
type Getter func(args []*Variant) (*Variant, error)
type Setter func(args []*Variant) (*Variant, error)

type dynamicPayload struct {
	getter Getter
	setter Setter
}

// MakeDynamic creates a dynamic variant over getter/setter. setter may be
// nil for a read-only dynamic value.
func (h *Heap) MakeDynamic(getter Getter, setter Setter) *Variant {
	v := h.newVariant(KindDynamic)
	v.dyn = &dynamicPayload{getter: getter, setter: setter}
	return v
}

// Get invokes the getter with args, for KindDynamic only.
func (v *Variant) Get(args []*Variant) (*Variant, error) {
	return v.dyn.getter(args)
}

// Set invokes the setter with args, for KindDynamic only. A read-only
// dynamic (no setter) returns nil, nil; use HasSetter to tell the cases apart.
func (v *Variant) Set(args []*Variant) (*Variant, error) {
	if v.dyn.setter == nil {
		return nil, nil
	}
	return v.dyn.setter(args)
}

// HasSetter reports whether this dynamic variant can be assigned to.
func (v *Variant) HasSetter() bool {
	return v.kind == KindDynamic && v.dyn.setter != nil
}
