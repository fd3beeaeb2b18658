package element

import (
	"strconv"
	"strings"

	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/perr"
	"github.com/purc-go/purc/internal/variant"
	"github.com/purc-go/purc/internal/vdom"
)

// EraseClearOps implements both `erase` and `clear` (spec.md §4.G):
// destructive operations on a container variant named by `on`, narrowed
// by optional `at` (`attr.NAME` for an object key, a bare integer for an
// array index, absent for the whole container). `erase` removes the
// selected item(s); `clear` empties the whole container regardless of
// `at`. Both set `?` to the number of items affected.
type EraseClearOps struct {
	baseOps
	rt        *Runtime
	clearOnly bool
}

func (o *EraseClearOps) AfterPushed(s *coroutine.Stack, el *vdom.Element) bool {
	f := s.Top()

	on, err := evalAttr(o.rt, f, el, "on")
	if err != nil {
		return o.fail(f, err)
	}
	if on == nil {
		return o.fail(f, perr.New(perr.ArgumentMissed))
	}

	at, _ := el.Attr("at")

	var count int
	var operr *perr.Error
	if o.clearOnly || at == "" {
		count, operr = o.clearWhole(on)
	} else {
		count, operr = o.eraseAt(on, at)
	}
	if operr != nil {
		return o.fail(f, operr)
	}

	f.SetSymbol(coroutine.SymQuestion, o.rt.Heap.MakeNumber(float64(count)))
	return true
}

func (o *EraseClearOps) clearWhole(on *variant.Variant) (int, *perr.Error) {
	switch on.Kind() {
	case variant.KindArray:
		n := on.ArraySize()
		if err := on.ArrayClear(); err != nil {
			return 0, err
		}
		return n, nil
	case variant.KindObject:
		n := on.ObjectSize()
		if err := on.ObjectClear(); err != nil {
			return 0, err
		}
		return n, nil
	case variant.KindSet:
		n := on.SetSize()
		if err := on.SetClear(); err != nil {
			return 0, err
		}
		return n, nil
	default:
		return 0, perr.New(perr.WrongDataType)
	}
}

func (o *EraseClearOps) eraseAt(on *variant.Variant, at string) (int, *perr.Error) {
	if strings.HasPrefix(at, "attr.") {
		key := strings.TrimPrefix(at, "attr.")
		if on.Kind() != variant.KindObject {
			return 0, perr.New(perr.WrongDataType)
		}
		if err := on.ObjectRemove(key); err != nil {
			return 0, err
		}
		return 1, nil
	}

	idx, convErr := strconv.Atoi(at)
	if convErr != nil {
		return 0, perr.New(perr.InvalidValue)
	}
	if on.Kind() != variant.KindArray {
		return 0, perr.New(perr.WrongDataType)
	}
	if err := on.ArrayRemove(idx); err != nil {
		return 0, err
	}
	return 1, nil
}

func (o *EraseClearOps) fail(f *coroutine.Frame, err *perr.Error) bool {
	f.SetSymbol(coroutine.SymColon, o.rt.Heap.MakeNull())
	return false
}

func (o *EraseClearOps) SelectChild(s *coroutine.Stack, ctxt any) *vdom.Element { return nil }
