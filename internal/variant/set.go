package variant

import (
	"fmt"
	"strings"

	"github.com/purc-go/purc/internal/perr"
)

// setPayload is a hash-indexed collection. The uniqueness key is either a
// named sub-field of each member (Against != "") or the whole value
// (Against == ""), optionally compared case-insensitively for string keys.
type setPayload struct {
	against  string
	caseless bool
	items    []*Variant
	index    map[string]int // uniqueness key -> index into items
}

// MakeSet creates a set variant. against names the sub-field used for
// uniqueness ("" means whole-value equality); caseless lowercases string
// keys before comparison. Elements that would duplicate an existing key
// are silently skipped, matching the original init.c behaviour for
// `uniquely` sources.
func (h *Heap) MakeSet(against string, caseless bool, items ...*Variant) *Variant {
	v := h.newVariant(KindSet)
	v.set = &setPayload{against: against, caseless: caseless, index: make(map[string]int)}
	for _, it := range items {
		v.setInsert(it)
	}
	return v
}

func (v *Variant) setKey(elem *Variant) (string, *perr.Error) {
	var target *Variant
	if v.set.against == "" {
		target = elem
	} else {
		if elem.Kind() != KindObject {
			return "", perr.New(perr.WrongDataType)
		}
		target = elem.ObjectGet(v.set.against)
		if target == nil {
			return "", perr.New(perr.EntityNotFound)
		}
	}
	key := canonicalKey(target)
	if v.set.caseless {
		key = strings.ToLower(key)
	}
	return key, nil
}

func (v *Variant) setInsert(elem *Variant) *perr.Error {
	key, perrv := v.setKey(elem)
	if perrv != nil {
		return perrv
	}
	if _, exists := v.set.index[key]; exists {
		return perr.New(perr.Duplicated)
	}
	v.set.index[key] = len(v.set.items)
	v.set.items = append(v.set.items, elem.Ref())
	return nil
}

// SetSize returns the number of members, for KindSet only.
func (v *Variant) SetSize() int {
	if v.kind != KindSet {
		return 0
	}
	return len(v.set.items)
}

// SetAdd inserts elem, returning DUPLICATED if its uniqueness key already
// exists in the set.
func (v *Variant) SetAdd(elem *Variant) *perr.Error {
	if v.kind != KindSet {
		return perr.New(perr.WrongDataType)
	}
	return v.setInsert(elem)
}

// SetContains reports whether an element with elem's uniqueness key is
// already a member.
func (v *Variant) SetContains(elem *Variant) bool {
	if v.kind != KindSet {
		return false
	}
	key, perrv := v.setKey(elem)
	if perrv != nil {
		return false
	}
	_, ok := v.set.index[key]
	return ok
}

// SetItems returns a read-only snapshot slice of the set's members, in
// insertion order.
func (v *Variant) SetItems() []*Variant {
	if v.kind != KindSet {
		return nil
	}
	out := make([]*Variant, len(v.set.items))
	copy(out, v.set.items)
	return out
}

// SetClear unrefs and removes all members.
func (v *Variant) SetClear() *perr.Error {
	if v.kind != KindSet {
		return perr.New(perr.WrongDataType)
	}
	for _, e := range v.set.items {
		e.Unref()
	}
	v.set.items = v.set.items[:0]
	v.set.index = make(map[string]int)
	return nil
}

// canonicalKey produces a deterministic string for whole-value equality.
// It is not meant to be a faithful serialization, only a stable key.
func canonicalKey(v *Variant) string {
	switch v.Kind() {
	case KindNull:
		return "null"
	case KindUndefined:
		return "undefined"
	case KindBoolean:
		return fmt.Sprintf("b:%v", v.AsBool())
	case KindNumber:
		return fmt.Sprintf("n:%v", v.AsNumber())
	case KindLongInt:
		return fmt.Sprintf("i:%v", v.AsLongInt())
	case KindULongInt:
		return fmt.Sprintf("u:%v", v.AsULongInt())
	case KindLongDouble:
		return fmt.Sprintf("d:%v", v.AsLongDouble())
	case KindString:
		s, _ := v.GetStringConst()
		return "s:" + s
	case KindByteSequence:
		return "x:" + string(v.GetBytesConst())
	case KindAtomString, KindException:
		s, _ := v.GetStringConst()
		return "a:" + s
	case KindArray:
		var sb strings.Builder
		sb.WriteString("arr[")
		for _, e := range v.ArrayItems() {
			sb.WriteString(canonicalKey(e))
			sb.WriteByte(',')
		}
		sb.WriteByte(']')
		return sb.String()
	case KindObject:
		var sb strings.Builder
		sb.WriteString("obj{")
		for _, k := range v.ObjectKeys() {
			sb.WriteString(k)
			sb.WriteByte(':')
			sb.WriteString(canonicalKey(v.ObjectGet(k)))
			sb.WriteByte(',')
		}
		sb.WriteByte('}')
		return sb.String()
	case KindSet:
		var sb strings.Builder
		sb.WriteString("set(")
		for _, e := range v.SetItems() {
			sb.WriteString(canonicalKey(e))
			sb.WriteByte(',')
		}
		sb.WriteByte(')')
		return sb.String()
	case KindTuple:
		var sb strings.Builder
		sb.WriteString("tup(")
		for _, e := range v.TupleItems() {
			sb.WriteString(canonicalKey(e))
			sb.WriteByte(',')
		}
		sb.WriteByte(')')
		return sb.String()
	default:
		return fmt.Sprintf("p:%p", v)
	}
}
