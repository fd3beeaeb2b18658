package variant

import "github.com/purc-go/purc/internal/perr"

type arrayPayload struct {
	items []*Variant
}

// MakeArray creates an array variant over items (each ref'd by the array).
func (h *Heap) MakeArray(items ...*Variant) *Variant {
	v := h.newVariant(KindArray)
	v.arr = &arrayPayload{items: make([]*Variant, 0, len(items))}
	for _, it := range items {
		v.arr.items = append(v.arr.items, it.Ref())
	}
	return v
}

// ArraySize returns the number of elements, for KindArray only.
func (v *Variant) ArraySize() int {
	if v.kind != KindArray {
		return 0
	}
	return len(v.arr.items)
}

// ArrayGet returns the element at idx without transferring ownership, or
// nil if idx is out of range.
func (v *Variant) ArrayGet(idx int) *Variant {
	if v.kind != KindArray || idx < 0 || idx >= len(v.arr.items) {
		return nil
	}
	return v.arr.items[idx]
}

// ArrayAppend appends elem, taking a new reference to it.
func (v *Variant) ArrayAppend(elem *Variant) *perr.Error {
	if v.kind != KindArray {
		return perr.New(perr.WrongDataType)
	}
	v.arr.items = append(v.arr.items, elem.Ref())
	return nil
}

// ArrayRemove removes and unrefs the element at idx.
func (v *Variant) ArrayRemove(idx int) *perr.Error {
	if v.kind != KindArray {
		return perr.New(perr.WrongDataType)
	}
	if idx < 0 || idx >= len(v.arr.items) {
		return perr.New(perr.InvalidValue)
	}
	v.arr.items[idx].Unref()
	v.arr.items = append(v.arr.items[:idx], v.arr.items[idx+1:]...)
	return nil
}

// ArrayClear unrefs and removes all elements.
func (v *Variant) ArrayClear() *perr.Error {
	if v.kind != KindArray {
		return perr.New(perr.WrongDataType)
	}
	for _, e := range v.arr.items {
		e.Unref()
	}
	v.arr.items = v.arr.items[:0]
	return nil
}

// ArrayItems returns a read-only snapshot slice of the array's elements.
func (v *Variant) ArrayItems() []*Variant {
	if v.kind != KindArray {
		return nil
	}
	out := make([]*Variant, len(v.arr.items))
	copy(out, v.arr.items)
	return out
}
