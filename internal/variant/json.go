package variant

import (
	"encoding/json"

	"github.com/purc-go/purc/internal/perr"
)

// FromJSON decodes data into a variant tree, the representation `init`
// and `request`'s response handling bind into `?` once a fetch or a
// cross-coroutine response carries a JSON payload (spec.md §4.F, §4.G
// `init ... from`). Numbers decode to KindNumber; objects and arrays
// recurse; anything malformed reports BadEncoding rather than panicking.
func (h *Heap) FromJSON(data []byte) (*Variant, *perr.Error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, perr.New(perr.BadEncoding)
	}
	return h.fromAny(raw), nil
}

// ToJSON encodes v back to a JSON document, the inverse of FromJSON. Used
// wherever a variant crosses a process boundary as an opaque blob:
// internal/varstore's Redis-backed runner/session variables and
// internal/checkpoint's Postgres-backed stack snapshots both round-trip
// variant trees through this. Container kinds recurse; Undefined encodes
// as JSON null since there is no JSON undefined; Native and Dynamic
// variants cannot cross a process boundary and report BadEncoding.
func (v *Variant) ToJSON() ([]byte, *perr.Error) {
	val, err := v.toAny()
	if err != nil {
		return nil, err
	}
	data, jerr := json.Marshal(val)
	if jerr != nil {
		return nil, perr.New(perr.BadEncoding)
	}
	return data, nil
}

func (v *Variant) toAny() (any, *perr.Error) {
	switch v.Kind() {
	case KindNull, KindUndefined:
		return nil, nil
	case KindBoolean:
		return v.AsBool(), nil
	case KindNumber:
		return v.AsNumber(), nil
	case KindLongInt:
		return v.AsLongInt(), nil
	case KindULongInt:
		return v.AsULongInt(), nil
	case KindLongDouble:
		return float64(v.AsLongDouble()), nil
	case KindString:
		s, _ := v.GetStringConst()
		return s, nil
	case KindByteSequence:
		return v.GetBytesConst(), nil
	case KindAtomString, KindException:
		if v.atomTable != nil {
			if s, ok := v.atomTable.ToString(v.atomV); ok {
				return s, nil
			}
		}
		return nil, perr.New(perr.BadEncoding)
	case KindArray, KindTuple:
		items := v.containerItems()
		out := make([]any, len(items))
		for i, item := range items {
			av, err := item.toAny()
			if err != nil {
				return nil, err
			}
			out[i] = av
		}
		return out, nil
	case KindSet:
		items := v.SetItems()
		out := make([]any, len(items))
		for i, item := range items {
			av, err := item.toAny()
			if err != nil {
				return nil, err
			}
			out[i] = av
		}
		return out, nil
	case KindObject:
		out := make(map[string]any, v.ObjectSize())
		for _, k := range v.ObjectKeys() {
			av, err := v.ObjectGet(k).toAny()
			if err != nil {
				return nil, err
			}
			out[k] = av
		}
		return out, nil
	default:
		return nil, perr.New(perr.BadEncoding)
	}
}

func (v *Variant) containerItems() []*Variant {
	if v.Kind() == KindTuple {
		return v.TupleItems()
	}
	return v.ArrayItems()
}

func (h *Heap) fromAny(raw any) *Variant {
	switch x := raw.(type) {
	case nil:
		return h.MakeNull()
	case bool:
		return h.MakeBoolean(x)
	case float64:
		return h.MakeNumber(x)
	case string:
		return h.MakeString(x)
	case []any:
		items := make([]*Variant, len(x))
		for i, item := range x {
			items[i] = h.fromAny(item)
		}
		return h.MakeArray(items...)
	case map[string]any:
		keys := make([]string, 0, len(x))
		values := make([]*Variant, 0, len(x))
		for k, v := range x {
			keys = append(keys, k)
			values = append(values, h.fromAny(v))
		}
		obj, err := h.MakeObject(keys, values)
		if err != nil {
			return h.MakeUndefined()
		}
		return obj
	default:
		return h.MakeUndefined()
	}
}
