package variant

import (
	"testing"

	"github.com/purc-go/purc/internal/atom"
)

// TestSingletonRefcountNeverUnderflows covers testable property #1
// (spec.md §8): repeatedly ref/unref-ing a singleton never drives its
// count below the heap's permanent pin, and UsedCount only tracks
// non-singleton variants.
func TestSingletonRefcountNeverUnderflows(t *testing.T) {
	h := NewHeap()
	n := h.MakeNull()
	for i := 0; i < 5; i++ {
		n.Ref()
	}
	for i := 0; i < 10; i++ {
		n.Unref()
	}
	if n.RefCount() < 1 {
		t.Fatalf("singleton refcount underflowed: %d", n.RefCount())
	}
	if h.UsedCount() != 0 {
		t.Fatalf("singleton ops should not affect UsedCount, got %d", h.UsedCount())
	}
}

// TestContainerRefcountReleasesChildren is scenario A of spec.md §8: a
// container's children are unref'd exactly once when the container itself
// reaches a zero refcount.
func TestContainerRefcountReleasesChildren(t *testing.T) {
	h := NewHeap()
	child := h.MakeNumber(42)
	arr := h.MakeArray(child)
	child.Unref() // array now holds the only reference

	if got := h.UsedCount(); got != 2 {
		t.Fatalf("expected 2 live variants before release, got %d", got)
	}

	arr.Unref()

	if got := h.UsedCount(); got != 0 {
		t.Fatalf("expected 0 live variants after array release, got %d", got)
	}
}

// TestObjectRefcountReleasesValues mirrors TestContainerRefcountReleasesChildren
// for the object container.
func TestObjectRefcountReleasesValues(t *testing.T) {
	h := NewHeap()
	v := h.MakeString("value")
	obj, perrv := h.MakeObject([]string{"k"}, []*Variant{v})
	if perrv != nil {
		t.Fatalf("MakeObject failed: %v", perrv)
	}
	v.Unref()

	if got := h.UsedCount(); got != 2 {
		t.Fatalf("expected 2 live variants, got %d", got)
	}
	obj.Unref()
	if got := h.UsedCount(); got != 0 {
		t.Fatalf("expected 0 live variants after object release, got %d", got)
	}
}

// TestMakeStringExRejectsInvalidUTF8 is scenario B of spec.md §8: string
// construction with encoding checks enabled rejects invalid UTF-8.
func TestMakeStringExRejectsInvalidUTF8(t *testing.T) {
	h := NewHeap()
	bad := []byte{0xff, 0xfe, 0xfd}
	v, perrv := h.MakeStringEx(bad, len(bad), true)
	if v != nil || perrv == nil {
		t.Fatalf("expected BadEncoding error, got v=%v err=%v", v, perrv)
	}
}

func TestMakeStringExAcceptsValidUTF8(t *testing.T) {
	h := NewHeap()
	s := "héllo, 世界"
	v, perrv := h.MakeStringEx([]byte(s), len(s), true)
	if perrv != nil {
		t.Fatalf("unexpected error: %v", perrv)
	}
	got, n := v.GetStringConst()
	if got != s || n != len(s) {
		t.Fatalf("round trip mismatch: got %q/%d want %q/%d", got, n, s, len(s))
	}
	if v.StringChars() != 9 {
		t.Fatalf("expected 9 runes, got %d", v.StringChars())
	}
}

func TestArrayAppendAndRemove(t *testing.T) {
	h := NewHeap()
	a := h.MakeArray()
	e1 := h.MakeNumber(1)
	e2 := h.MakeNumber(2)
	defer e1.Unref()
	defer e2.Unref()

	if err := a.ArrayAppend(e1); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := a.ArrayAppend(e2); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if a.ArraySize() != 2 {
		t.Fatalf("expected size 2, got %d", a.ArraySize())
	}
	if err := a.ArrayRemove(0); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if got := a.ArrayGet(0); got != e2 {
		t.Fatalf("expected e2 at index 0 after removal")
	}
	a.Unref()
}

func TestObjectSetOnlyIfAbsentRejectsDuplicate(t *testing.T) {
	h := NewHeap()
	obj, _ := h.MakeObject(nil, nil)
	v1 := h.MakeString("first")
	v2 := h.MakeString("second")
	defer v1.Unref()
	defer v2.Unref()

	if err := obj.ObjectSet("k", v1, true); err != nil {
		t.Fatalf("first set should succeed: %v", err)
	}
	if err := obj.ObjectSet("k", v2, true); err == nil || err.Code != 5 {
		t.Fatalf("expected Duplicated error, got %v", err)
	}
	obj.Unref()
}

func TestSetRejectsDuplicateByWholeValue(t *testing.T) {
	h := NewHeap()
	s := h.MakeSet("", false)
	a := h.MakeNumber(1)
	b := h.MakeNumber(1)
	defer a.Unref()
	defer b.Unref()

	if err := s.SetAdd(a); err != nil {
		t.Fatalf("first add should succeed: %v", err)
	}
	if err := s.SetAdd(b); err == nil {
		t.Fatalf("expected duplicate rejection for equal whole values")
	}
	if s.SetSize() != 1 {
		t.Fatalf("expected size 1, got %d", s.SetSize())
	}
	s.Unref()
}

func TestSetAgainstSubfieldUniqueness(t *testing.T) {
	h := NewHeap()
	s := h.MakeSet("id", false)

	mkRecord := func(id, name string) *Variant {
		idv := h.MakeString(id)
		namev := h.MakeString(name)
		defer idv.Unref()
		defer namev.Unref()
		obj, _ := h.MakeObject([]string{"id", "name"}, []*Variant{idv, namev})
		return obj
	}

	r1 := mkRecord("1", "alice")
	r2 := mkRecord("1", "bob") // same id, different name: still a duplicate
	defer r1.Unref()
	defer r2.Unref()

	if err := s.SetAdd(r1); err != nil {
		t.Fatalf("first add should succeed: %v", err)
	}
	if err := s.SetAdd(r2); err == nil {
		t.Fatalf("expected duplicate rejection on shared id field")
	}
	s.Unref()
}

func TestSetCaselessMatchesIgnoringCase(t *testing.T) {
	h := NewHeap()
	s := h.MakeSet("", true)
	a := h.MakeString("Alice")
	b := h.MakeString("alice")
	defer a.Unref()
	defer b.Unref()

	if err := s.SetAdd(a); err != nil {
		t.Fatalf("first add should succeed: %v", err)
	}
	if err := s.SetAdd(b); err == nil {
		t.Fatalf("expected caseless duplicate rejection")
	}
	s.Unref()
}

func TestTupleFixedSizeAndSet(t *testing.T) {
	h := NewHeap()
	e1 := h.MakeNumber(1)
	e2 := h.MakeNumber(2)
	tup := h.MakeTuple(e1, e2)
	e1.Unref()
	e2.Unref()

	if tup.TupleSize() != 2 {
		t.Fatalf("expected size 2, got %d", tup.TupleSize())
	}
	e3 := h.MakeNumber(3)
	defer e3.Unref()
	if err := tup.TupleSet(0, e3); err != nil {
		t.Fatalf("set in range should succeed: %v", err)
	}
	if got := tup.TupleGet(0); got.AsNumber() != 3 {
		t.Fatalf("expected 3 at index 0, got %v", got.AsNumber())
	}
	if err := tup.TupleSet(2, e3); err == nil {
		t.Fatalf("expected out-of-range error")
	}
	tup.Unref()
}

func TestLinearIteratorWalksArrayAndObject(t *testing.T) {
	h := NewHeap()
	e1 := h.MakeNumber(1)
	e2 := h.MakeNumber(2)
	arr := h.MakeArray(e1, e2)
	e1.Unref()
	e2.Unref()
	defer arr.Unref()

	it := NewLinearIterator(arr)
	if it.Len() != 2 {
		t.Fatalf("expected len 2, got %d", it.Len())
	}
	var got []float64
	for it.HasNext() {
		got = append(got, it.Next().AsNumber())
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("unexpected iteration order: %v", got)
	}

	v := h.MakeString("x")
	obj, _ := h.MakeObject([]string{"k"}, []*Variant{v})
	v.Unref()
	defer obj.Unref()

	oit := NewLinearIterator(obj)
	oit.Next()
	if oit.Key() != "k" {
		t.Fatalf("expected key 'k', got %q", oit.Key())
	}
}

func TestLinearIteratorCheckUniqueDetectsDuplicate(t *testing.T) {
	h := NewHeap()
	e1 := h.MakeNumber(1)
	e2 := h.MakeNumber(1)
	arr := h.MakeArray(e1, e2)
	e1.Unref()
	e2.Unref()
	defer arr.Unref()

	it := NewLinearIterator(arr)
	if err := it.CheckUnique(); err == nil {
		t.Fatalf("expected duplicate detection")
	}
}

func TestAtomStringRoundTrip(t *testing.T) {
	tbl := atom.NewTable()
	a, err := tbl.FromString(atom.BucketDefault, "hello")
	if err != nil {
		t.Fatalf("FromString failed: %v", err)
	}
	h := NewHeap()
	v := h.MakeAtomString(tbl, a)
	defer v.Unref()

	s, n := v.GetStringConst()
	if s != "hello" || n != 5 {
		t.Fatalf("got %q/%d, want hello/5", s, n)
	}
	if v.IsExceptAtom() {
		t.Fatalf("atom string over BucketDefault should not be an exception")
	}
}

func TestDynamicGetterSetter(t *testing.T) {
	h := NewHeap()
	var stored *Variant
	dyn := h.MakeDynamic(
		func(args []*Variant) (*Variant, error) { return h.MakeNumber(99), nil },
		func(args []*Variant) (*Variant, error) { stored = args[0]; return nil, nil },
	)
	defer dyn.Unref()

	got, err := dyn.Get(nil)
	if err != nil || got.AsNumber() != 99 {
		t.Fatalf("unexpected getter result: %v %v", got, err)
	}
	n := h.MakeNumber(7)
	defer n.Unref()
	if _, err := dyn.Set([]*Variant{n}); err != nil {
		t.Fatalf("setter failed: %v", err)
	}
	if stored != n {
		t.Fatalf("setter did not receive expected arg")
	}
}
