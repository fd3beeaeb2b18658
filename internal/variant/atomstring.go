package variant

import "github.com/purc-go/purc/internal/atom"

// MakeAtomString creates an atom-string variant. The string is looked up
// from tbl lazily via GetStringConst; the variant only stores the atom id.
func (h *Heap) MakeAtomString(tbl *atom.Table, a atom.Atom) *Variant {
	v := h.newVariant(KindAtomString)
	v.atomTable = tbl
	v.atomV = a
	return v
}

// MakeException creates an exception variant: an atom-string that also
// satisfies IsExceptAtom (spec.md §3 "An exception additionally satisfies
// is_except_atom").
func (h *Heap) MakeException(tbl *atom.Table, a atom.Atom) *Variant {
	v := h.newVariant(KindException)
	v.atomTable = tbl
	v.atomV = a
	return v
}

// Atom returns the underlying atom id for KindAtomString/KindException.
func (v *Variant) Atom() atom.Atom {
	return v.atomV
}

// IsExceptAtom reports whether v is an exception variant whose atom was
// interned in the exception bucket.
func (v *Variant) IsExceptAtom() bool {
	return v.kind == KindException && v.atomV.Bucket() == atom.BucketExcept
}
