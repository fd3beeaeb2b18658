package variant

import "github.com/purc-go/purc/internal/perr"

type objectPayload struct {
	keys []string // insertion order
	m    map[string]*Variant
}

// MakeObject creates an object variant from an ordered list of (key,
// value) pairs. Duplicate keys within kvs keep the last value.
func (h *Heap) MakeObject(keys []string, values []*Variant) (*Variant, *perr.Error) {
	if len(keys) != len(values) {
		return nil, perr.New(perr.InvalidValue)
	}
	v := h.newVariant(KindObject)
	v.obj = &objectPayload{m: make(map[string]*Variant, len(keys))}
	for i, k := range keys {
		if _, exists := v.obj.m[k]; !exists {
			v.obj.keys = append(v.obj.keys, k)
		} else {
			v.obj.m[k].Unref()
		}
		v.obj.m[k] = values[i].Ref()
	}
	return v, nil
}

// ObjectSize returns the number of key/value pairs, for KindObject only.
func (v *Variant) ObjectSize() int {
	if v.kind != KindObject {
		return 0
	}
	return len(v.obj.keys)
}

// ObjectGet returns the value for key without transferring ownership, or
// nil if the key is absent.
func (v *Variant) ObjectGet(key string) *Variant {
	if v.kind != KindObject {
		return nil
	}
	return v.obj.m[key]
}

// ObjectSet inserts or replaces key, taking a new reference to val.
// Returns DUPLICATED if onlyIfAbsent is true and the key already exists.
func (v *Variant) ObjectSet(key string, val *Variant, onlyIfAbsent bool) *perr.Error {
	if v.kind != KindObject {
		return perr.New(perr.WrongDataType)
	}
	if old, ok := v.obj.m[key]; ok {
		if onlyIfAbsent {
			return perr.New(perr.Duplicated)
		}
		old.Unref()
		v.obj.m[key] = val.Ref()
		return nil
	}
	v.obj.keys = append(v.obj.keys, key)
	v.obj.m[key] = val.Ref()
	return nil
}

// ObjectRemove removes and unrefs the value at key.
func (v *Variant) ObjectRemove(key string) *perr.Error {
	if v.kind != KindObject {
		return perr.New(perr.WrongDataType)
	}
	old, ok := v.obj.m[key]
	if !ok {
		return perr.New(perr.EntityNotFound)
	}
	old.Unref()
	delete(v.obj.m, key)
	for i, k := range v.obj.keys {
		if k == key {
			v.obj.keys = append(v.obj.keys[:i], v.obj.keys[i+1:]...)
			break
		}
	}
	return nil
}

// ObjectClear unrefs and removes all key/value pairs.
func (v *Variant) ObjectClear() *perr.Error {
	if v.kind != KindObject {
		return perr.New(perr.WrongDataType)
	}
	for _, k := range v.obj.keys {
		v.obj.m[k].Unref()
	}
	v.obj.keys = v.obj.keys[:0]
	v.obj.m = make(map[string]*Variant)
	return nil
}

// ObjectKeys returns the object's keys in insertion order.
func (v *Variant) ObjectKeys() []string {
	if v.kind != KindObject {
		return nil
	}
	out := make([]string, len(v.obj.keys))
	copy(out, v.obj.keys)
	return out
}
