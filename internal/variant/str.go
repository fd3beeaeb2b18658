package variant

import (
	"unicode/utf8"

	"github.com/purc-go/purc/internal/perr"
)

// StorageMode records how a string/byte-sequence's bytes are held. This is
// metadata only — Go's garbage collector manages the memory regardless —
// but it is preserved because spec.md §3/§4.A distinguishes inline, owned,
// and borrowed-static storage as part of the variant's public contract.
type StorageMode uint8

const (
	StorageInline StorageMode = iota
	StorageOwned
	StorageStatic
)

type stringPayload struct {
	bytes     []byte // for strings: includes a trailing NUL; for byte sequences: exact content
	charCount int    // cached code point count; only meaningful for strings
	mode      StorageMode
}

const smallStringThreshold = 32

func storageModeFor(n int, static bool) StorageMode {
	if static {
		return StorageStatic
	}
	if n <= smallStringThreshold {
		return StorageInline
	}
	return StorageOwned
}

// MakeString creates a string variant without UTF-8 validation.
func (h *Heap) MakeString(s string) *Variant {
	v, _ := h.MakeStringEx([]byte(s), len(s), false)
	return v
}

// MakeStringStatic creates a string variant over a Go string literal,
// recorded as StorageStatic (the caller guarantees it outlives the heap).
func (h *Heap) MakeStringStatic(s string) *Variant {
	v := h.newVariant(KindString)
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	v.str = &stringPayload{bytes: buf, charCount: utf8.RuneCountInString(s), mode: StorageStatic}
	return v
}

// MakeStringEx creates a string variant from bytes[:n]. When checkEncoding
// is true and bytes[:n] is not valid UTF-8, it returns (nil, BadEncoding)
// instead of a variant, per spec.md §4.A.
func (h *Heap) MakeStringEx(bytes []byte, n int, checkEncoding bool) (*Variant, *perr.Error) {
	data := bytes[:n]
	if checkEncoding && !utf8.Valid(data) {
		return nil, perr.New(perr.BadEncoding)
	}
	v := h.newVariant(KindString)
	buf := make([]byte, n+1)
	copy(buf, data)
	v.str = &stringPayload{
		bytes:     buf,
		charCount: utf8.RuneCount(data),
		mode:      storageModeFor(n, false),
	}
	return v, nil
}

// MakeByteSequence creates a byte-sequence variant (no trailing NUL).
func (h *Heap) MakeByteSequence(data []byte) *Variant {
	v := h.newVariant(KindByteSequence)
	buf := make([]byte, len(data))
	copy(buf, data)
	v.str = &stringPayload{bytes: buf, mode: storageModeFor(len(data), false)}
	return v
}

// GetStringConst returns the UTF-8 bytes (without the trailing NUL) and
// their length, for KindString, KindAtomString, and KindException.
func (v *Variant) GetStringConst() (string, int) {
	switch v.kind {
	case KindString:
		n := len(v.str.bytes) - 1
		return string(v.str.bytes[:n]), n
	case KindAtomString, KindException:
		s, _ := v.atomTable.ToString(v.atomV)
		return s, len(s)
	default:
		return "", 0
	}
}

// StringBytes returns the byte length including the trailing NUL, for
// KindString only.
func (v *Variant) StringBytes() int {
	if v.kind != KindString {
		return 0
	}
	return len(v.str.bytes)
}

// StringChars returns the cached code point count, for KindString only.
func (v *Variant) StringChars() int {
	if v.kind != KindString {
		return 0
	}
	return v.str.charCount
}

// StorageMode reports how a string/byte-sequence variant's bytes are held.
func (v *Variant) StorageMode() StorageMode {
	if v.str == nil {
		return StorageInline
	}
	return v.str.mode
}

// GetBytesConst returns the raw bytes for KindByteSequence and, per
// spec.md §4.A "symmetrical to strings", also accepts KindString (without
// its trailing NUL).
func (v *Variant) GetBytesConst() []byte {
	switch v.kind {
	case KindByteSequence:
		return v.str.bytes
	case KindString:
		return v.str.bytes[:len(v.str.bytes)-1]
	default:
		return nil
	}
}

// BytesLength returns len(GetBytesConst()).
func (v *Variant) BytesLength() int {
	return len(v.GetBytesConst())
}
