package variant

import "github.com/purc-go/purc/internal/perr"

// tuplePayload is a fixed-size, fixed-order sequence of member variants
// (spec.md §3 "tuple: fixed-size sequence"). Unlike an array, its length
// never changes after creation.
type tuplePayload struct {
	items []*Variant
}

// MakeTuple creates a tuple variant of exactly len(items) members.
func (h *Heap) MakeTuple(items ...*Variant) *Variant {
	v := h.newVariant(KindTuple)
	v.tup = &tuplePayload{items: make([]*Variant, len(items))}
	for i, it := range items {
		v.tup.items[i] = it.Ref()
	}
	return v
}

// TupleSize returns the fixed member count, for KindTuple only.
func (v *Variant) TupleSize() int {
	if v.kind != KindTuple {
		return 0
	}
	return len(v.tup.items)
}

// TupleGet returns the member at idx without transferring ownership, or
// nil if idx is out of range.
func (v *Variant) TupleGet(idx int) *Variant {
	if v.kind != KindTuple || idx < 0 || idx >= len(v.tup.items) {
		return nil
	}
	return v.tup.items[idx]
}

// TupleSet replaces the member at idx in place, taking a new reference to
// val and unreffing the displaced member. Returns INVALID_VALUE if idx is
// out of range, since a tuple cannot grow or shrink.
func (v *Variant) TupleSet(idx int, val *Variant) *perr.Error {
	if v.kind != KindTuple {
		return perr.New(perr.WrongDataType)
	}
	if idx < 0 || idx >= len(v.tup.items) {
		return perr.New(perr.InvalidValue)
	}
	v.tup.items[idx].Unref()
	v.tup.items[idx] = val.Ref()
	return nil
}

// TupleItems returns a read-only snapshot slice of the tuple's members.
func (v *Variant) TupleItems() []*Variant {
	if v.kind != KindTuple {
		return nil
	}
	out := make([]*Variant, len(v.tup.items))
	copy(out, v.tup.items)
	return out
}
