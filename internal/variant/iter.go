package variant

import "github.com/purc-go/purc/internal/perr"

// LinearIterator walks the members of any container variant (array, set,
// tuple, or object) in a single forward pass, without exposing the
// underlying representation. The `iterate` element's default driver and
// `adapt`'s `individually` mode (spec.md §4.D/G) both walk a source value
// this way instead of each re-implementing per-kind traversal.
type LinearIterator struct {
	items []*Variant // snapshot, taken at NewLinearIterator time
	keys  []string   // non-nil only when iterating an object
	pos   int
}

// NewLinearIterator builds an iterator over v's members. Scalars are
// treated as a single-element sequence, matching the "on a scalar, iterate
// runs its body once" rule of spec.md §4.G `iterate`.
func NewLinearIterator(v *Variant) *LinearIterator {
	switch v.Kind() {
	case KindArray:
		return &LinearIterator{items: v.ArrayItems()}
	case KindSet:
		return &LinearIterator{items: v.SetItems()}
	case KindTuple:
		return &LinearIterator{items: v.TupleItems()}
	case KindObject:
		keys := v.ObjectKeys()
		items := make([]*Variant, len(keys))
		for i, k := range keys {
			items[i] = v.ObjectGet(k)
		}
		return &LinearIterator{items: items, keys: keys}
	default:
		return &LinearIterator{items: []*Variant{v}}
	}
}

// Len returns the total number of members in the snapshot.
func (it *LinearIterator) Len() int { return len(it.items) }

// Next advances the cursor and returns the current member, or nil when
// exhausted.
func (it *LinearIterator) Next() *Variant {
	if it.pos >= len(it.items) {
		return nil
	}
	v := it.items[it.pos]
	it.pos++
	return v
}

// HasNext reports whether another call to Next would return a member.
func (it *LinearIterator) HasNext() bool { return it.pos < len(it.items) }

// Key returns the key of the member most recently returned by Next, when
// iterating an object; "" otherwise.
func (it *LinearIterator) Key() string {
	if it.keys == nil || it.pos == 0 || it.pos > len(it.keys) {
		return ""
	}
	return it.keys[it.pos-1]
}

// Reset rewinds the cursor to the start of the snapshot.
func (it *LinearIterator) Reset() { it.pos = 0 }

// CheckUnique scans the iterator's full snapshot and returns
// perr.Duplicated if any two members share the same canonical key. (`init`'s
// `uniquely` attribute does not use it; it builds a set instead.) The
// iterator's cursor is left at the end on return.
func (it *LinearIterator) CheckUnique() *perr.Error {
	seen := make(map[string]struct{}, len(it.items))
	for _, v := range it.items {
		k := canonicalKey(v)
		if _, ok := seen[k]; ok {
			return perr.New(perr.Duplicated)
		}
		seen[k] = struct{}{}
	}
	it.pos = len(it.items)
	return nil
}
