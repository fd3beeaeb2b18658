// Package variant implements the tagged, reference-counted dynamic value
// described in spec.md §3/§4.A: the polymorphic value every element
// handler reads and writes.
//
// A Variant is always handled through a pointer; Ref/Unref operate on the
// shared refcount embedded in that pointer, recursing into container
// children and invoking native on_release hooks exactly once when the
// count reaches zero (spec.md §3 "Lifecycle").
package variant

import (
	"sync/atomic"

	"github.com/purc-go/purc/internal/atom"
)

// Kind is the tag of the sum type. Dispatch throughout this package is by
// switching on Kind, not by type assertion or reflection.
type Kind uint8

const (
	KindNull Kind = iota
	KindUndefined
	KindBoolean
	KindNumber
	KindLongInt
	KindULongInt
	KindLongDouble
	KindString
	KindAtomString
	KindException
	KindByteSequence
	KindDynamic
	KindNative
	KindArray
	KindObject
	KindSet
	KindTuple
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindUndefined:
		return "undefined"
	case KindBoolean:
		return "boolean"
	case KindNumber:
		return "number"
	case KindLongInt:
		return "longint"
	case KindULongInt:
		return "ulongint"
	case KindLongDouble:
		return "longdouble"
	case KindString:
		return "string"
	case KindAtomString:
		return "atomstring"
	case KindException:
		return "exception"
	case KindByteSequence:
		return "bsequence"
	case KindDynamic:
		return "dynamic"
	case KindNative:
		return "native"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindSet:
		return "set"
	case KindTuple:
		return "tuple"
	default:
		return "unknown"
	}
}

// IsContainer reports whether k holds other variants as children.
func (k Kind) IsContainer() bool {
	switch k {
	case KindArray, KindObject, KindSet, KindTuple:
		return true
	default:
		return false
	}
}

// Variant is the polymorphic value. Always used through a *Variant; the
// zero value is not meaningful on its own (use a Heap constructor).
type Variant struct {
	kind Kind
	rc   int64 // atomic; >=1 while reachable

	heap *Heap // owning heap, for singleton/used-count bookkeeping

	b   bool
	num float64
	i64 int64
	u64 uint64
	ld  LongDouble

	str *stringPayload

	atomTable *atom.Table
	atomV     atom.Atom

	dyn *dynamicPayload
	nat *nativePayload

	arr *arrayPayload
	obj *objectPayload
	set *setPayload
	tup *tuplePayload
}

// LongDouble approximates the C long double as a float64; Go has no wider
// floating point type. Documented limitation, not a silent truncation: all
// arithmetic on this kind is done at float64 precision.
type LongDouble float64

// Kind returns the variant's tag.
func (v *Variant) Kind() Kind { return v.kind }

// RefCount returns the current reference count, mainly for tests.
func (v *Variant) RefCount() int64 { return atomic.LoadInt64(&v.rc) }

// Ref increments the reference count and returns v, per spec.md §4.A.
func (v *Variant) Ref() *Variant {
	if v.isSingleton() {
		atomic.AddInt64(&v.rc, 1)
		return v
	}
	atomic.AddInt64(&v.rc, 1)
	return v
}

// Unref decrements the reference count, releasing v (and recursing into
// any children) when it reaches zero. Singletons never reach zero while
// the owning Heap is alive.
func (v *Variant) Unref() {
	if v.isSingleton() {
		n := atomic.AddInt64(&v.rc, -1)
		if n < 1 {
			// Never let a singleton's count go below the heap's pin.
			atomic.AddInt64(&v.rc, 1)
		}
		return
	}
	n := atomic.AddInt64(&v.rc, -1)
	if n == 0 {
		v.release()
	}
}

func (v *Variant) isSingleton() bool {
	return v.heap != nil && v.heap.isSingleton(v)
}

func (v *Variant) release() {
	switch v.kind {
	case KindArray:
		for _, e := range v.arr.items {
			e.Unref()
		}
	case KindObject:
		for _, k := range v.obj.keys {
			v.obj.m[k].Unref()
		}
	case KindSet:
		for _, e := range v.set.items {
			e.Unref()
		}
	case KindTuple:
		for _, e := range v.tup.items {
			e.Unref()
		}
	case KindNative:
		if v.nat.ops != nil && v.nat.ops.OnRelease != nil {
			v.nat.ops.OnRelease(v.nat.entity)
		}
	}
	if v.heap != nil {
		v.heap.decUsed()
	}
}

// Heap is the per-process (or per-instance) singleton slot plus a
// used-variant counter, matching spec.md §9 "process-wide singletons" and
// testable property #1.
type Heap struct {
	used int64 // atomic

	null      *Variant
	undefined *Variant
	trueV     *Variant
	falseV    *Variant
}

// NewHeap creates a heap with its four singletons pre-allocated.
func NewHeap() *Heap {
	h := &Heap{}
	h.null = &Variant{kind: KindNull, rc: 1, heap: h}
	h.undefined = &Variant{kind: KindUndefined, rc: 1, heap: h}
	h.trueV = &Variant{kind: KindBoolean, b: true, rc: 1, heap: h}
	h.falseV = &Variant{kind: KindBoolean, b: false, rc: 1, heap: h}
	return h
}

func (h *Heap) isSingleton(v *Variant) bool {
	return v == h.null || v == h.undefined || v == h.trueV || v == h.falseV
}

// UsedCount returns the number of live non-singleton variants, the
// quantity exercised by testable property #1.
func (h *Heap) UsedCount() int64 { return atomic.LoadInt64(&h.used) }

func (h *Heap) newVariant(k Kind) *Variant {
	atomic.AddInt64(&h.used, 1)
	return &Variant{kind: k, rc: 1, heap: h}
}

func (h *Heap) decUsed() { atomic.AddInt64(&h.used, -1) }

// MakeNull returns the shared null singleton.
func (h *Heap) MakeNull() *Variant { return h.null.Ref() }

// MakeUndefined returns the shared undefined singleton.
func (h *Heap) MakeUndefined() *Variant { return h.undefined.Ref() }

// MakeBoolean returns the shared true/false singleton.
func (h *Heap) MakeBoolean(b bool) *Variant {
	if b {
		return h.trueV.Ref()
	}
	return h.falseV.Ref()
}

// MakeNumber creates a new double-precision number variant.
func (h *Heap) MakeNumber(n float64) *Variant {
	v := h.newVariant(KindNumber)
	v.num = n
	return v
}

// MakeLongInt creates a new signed 64-bit integer variant.
func (h *Heap) MakeLongInt(n int64) *Variant {
	v := h.newVariant(KindLongInt)
	v.i64 = n
	return v
}

// MakeULongInt creates a new unsigned 64-bit integer variant.
func (h *Heap) MakeULongInt(n uint64) *Variant {
	v := h.newVariant(KindULongInt)
	v.u64 = n
	return v
}

// MakeLongDouble creates a new extended-precision (float64-backed) variant.
func (h *Heap) MakeLongDouble(n LongDouble) *Variant {
	v := h.newVariant(KindLongDouble)
	v.ld = n
	return v
}

// AsBool returns the boolean payload; only meaningful for KindBoolean.
func (v *Variant) AsBool() bool { return v.b }

// AsNumber returns the float64 payload; only meaningful for KindNumber.
func (v *Variant) AsNumber() float64 { return v.num }

// AsLongInt returns the int64 payload; only meaningful for KindLongInt.
func (v *Variant) AsLongInt() int64 { return v.i64 }

// AsULongInt returns the uint64 payload; only meaningful for KindULongInt.
func (v *Variant) AsULongInt() uint64 { return v.u64 }

// AsLongDouble returns the LongDouble payload; only meaningful for
// KindLongDouble.
func (v *Variant) AsLongDouble() LongDouble { return v.ld }

// IsTrue reports whether v is truthy under HVML's coercion rules: null,
// undefined, false, 0, the empty string/byte-sequence, and empty
// containers are false; everything else is true.
func (v *Variant) IsTrue() bool {
	switch v.kind {
	case KindNull, KindUndefined:
		return false
	case KindBoolean:
		return v.b
	case KindNumber:
		return v.num != 0
	case KindLongInt:
		return v.i64 != 0
	case KindULongInt:
		return v.u64 != 0
	case KindLongDouble:
		return v.ld != 0
	case KindString:
		return v.str.charCount != 0
	case KindByteSequence:
		return len(v.str.bytes) != 0
	case KindArray:
		return len(v.arr.items) != 0
	case KindObject:
		return len(v.obj.keys) != 0
	case KindSet:
		return len(v.set.items) != 0
	case KindTuple:
		return len(v.tup.items) != 0
	default:
		return true
	}
}
