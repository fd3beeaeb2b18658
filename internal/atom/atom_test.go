package atom

import "testing"

func TestFromStringRoundTrip(t *testing.T) {
	tbl := NewTable()
	a, err := tbl.FromString(BucketDefault, "hello")
	if err != nil {
		t.Fatalf("FromString: %v", err)
	}
	s, ok := tbl.ToString(a)
	if !ok || s != "hello" {
		t.Fatalf("ToString(a) = %q, %v; want hello, true", s, ok)
	}
}

func TestFromStringIdempotent(t *testing.T) {
	tbl := NewTable()
	a1, _ := tbl.FromString(BucketDefault, "k")
	a2, _ := tbl.FromString(BucketDefault, "k")
	if a1 != a2 {
		t.Fatalf("FromString not idempotent: %v != %v", a1, a2)
	}
}

func TestBucketsDoNotCollide(t *testing.T) {
	tbl := NewTable()
	a, _ := tbl.FromString(BucketDefault, "k")
	b, _ := tbl.FromString(BucketUser, "k")
	if a == b {
		t.Fatalf("atoms in different buckets collided: %v == %v", a, b)
	}
	sa, _ := tbl.ToString(a)
	sb, _ := tbl.ToString(b)
	if sa != "k" || sb != "k" {
		t.Fatalf("round trip mismatch: %q %q", sa, sb)
	}
}

func TestRemoveStringInvalidatesAndReissues(t *testing.T) {
	tbl := NewTable()
	a1, _ := tbl.FromString(BucketDefault, "gone")
	if !tbl.RemoveString(BucketDefault, "gone") {
		t.Fatalf("RemoveString returned false")
	}
	if _, ok := tbl.ToString(a1); ok {
		t.Fatalf("ToString succeeded after removal")
	}
	a2, _ := tbl.FromString(BucketDefault, "gone")
	if a1 == a2 {
		t.Fatalf("re-adding removed string reused the old atom")
	}
}

func TestStaticStringAvoidsCopy(t *testing.T) {
	tbl := NewTable()
	const s = "a-static-string"
	a, err := tbl.FromStaticString(BucketRenderer, s)
	if err != nil {
		t.Fatalf("FromStaticString: %v", err)
	}
	if a.Bucket() != BucketRenderer {
		t.Fatalf("bucket mismatch: %v", a.Bucket())
	}
	got, ok := tbl.ToString(a)
	if !ok || got != s {
		t.Fatalf("round trip failed: %q, %v", got, ok)
	}
}

func TestTryStringMiss(t *testing.T) {
	tbl := NewTable()
	if tbl.TryString(BucketDefault, "never-interned").Valid() {
		t.Fatalf("TryString returned a valid atom for an unknown string")
	}
}

func TestZeroAtomInvalid(t *testing.T) {
	var a Atom
	if a.Valid() {
		t.Fatalf("zero Atom reported valid")
	}
}
