package variant

import "testing"

func TestFromJSONThenToJSONRoundTrips(t *testing.T) {
	h := NewHeap()
	raw := []byte(`{"name":"crtn","tags":["a","b"],"count":3,"active":true,"extra":null}`)

	v, err := h.FromJSON(raw)
	if err != nil {
		t.Fatalf("FromJSON failed: %v", err)
	}

	out, terr := v.ToJSON()
	if terr != nil {
		t.Fatalf("ToJSON failed: %v", terr)
	}

	v2, err := h.FromJSON(out)
	if err != nil {
		t.Fatalf("re-parsing ToJSON output failed: %v", err)
	}

	if name, _ := v2.ObjectGet("name").GetStringConst(); name != "crtn" {
		t.Fatalf("expected name to round-trip as crtn, got %q", name)
	}
	if v2.ObjectGet("count").AsNumber() != 3 {
		t.Fatalf("expected count to round-trip as 3, got %v", v2.ObjectGet("count").AsNumber())
	}
	if v2.ObjectGet("tags").ArraySize() != 2 {
		t.Fatalf("expected tags array of length 2, got %d", v2.ObjectGet("tags").ArraySize())
	}
	if !v2.ObjectGet("active").AsBool() {
		t.Fatalf("expected active to round-trip true")
	}
}

func TestToJSONEncodesUndefinedAsNull(t *testing.T) {
	h := NewHeap()
	u := h.MakeUndefined()

	out, err := u.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}
	if string(out) != "null" {
		t.Fatalf("expected undefined to encode as null, got %q", out)
	}
}
