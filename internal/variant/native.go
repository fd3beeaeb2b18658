package variant

// NativeFlag is the flags bitmask passed to Cleaner/Eraser, per spec.md §6.
type NativeFlag uint32

const (
	// NativeSilently asks the native entity to suppress user-visible
	// errors and return a neutral value instead, mirroring the
	// `silently` element annotation of spec.md §4.G/§7.
	NativeSilently NativeFlag = 1 << iota
)

// NativeOps is the ops table of a native variant (spec.md §6 "Native
// object ops (ABI, not source layout)"). Every field is optional; a nil
// hook means the entity does not support that operation.
type NativeOps struct {
	// PropertyGetter returns a callable (usually a dynamic variant) bound
	// to entity for the named property, or nil if unsupported.
	PropertyGetter func(entity any, name string) *Variant

	// OnObserve is called when an observer is registered against this
	// native's variant (spec.md §4.E registration). Returning false means
	// this entity rejects observation of (eventName, subName).
	OnObserve func(entity any, eventName, subName string) bool

	// OnForget mirrors OnObserve for observer removal.
	OnForget func(entity any, eventName, subName string) bool

	// OnRelease is called exactly once when the variant's refcount hits
	// zero (spec.md §4.A).
	OnRelease func(entity any)

	// Cleaner clears the entity's logical contents (not the entity
	// itself) and returns a count or boolean result, depending on the
	// entity's convention.
	Cleaner func(entity any, flags NativeFlag) (*Variant, error)

	// Eraser partially erases the entity's contents (e.g. one key) and
	// returns a count or boolean result.
	Eraser func(entity any, flags NativeFlag) (*Variant, error)
}

type nativePayload struct {
	entity any
	ops    *NativeOps
}

// MakeNative creates a native variant pairing entity with ops. ops may be
// nil, in which case the entity supports no operations beyond identity.
func (h *Heap) MakeNative(entity any, ops *NativeOps) *Variant {
	v := h.newVariant(KindNative)
	v.nat = &nativePayload{entity: entity, ops: ops}
	return v
}

// NativeEntity returns the opaque entity pointer for KindNative.
func (v *Variant) NativeEntity() any { return v.nat.entity }

// NativeOps returns the ops table for KindNative (may be nil).
func (v *Variant) NativeOps() *NativeOps { return v.nat.ops }
