package urlutil

import "testing"

func TestEncodeHostPunycodeASCIIPassthrough(t *testing.T) {
	got, err := EncodeHostPunycode("example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "example.com" {
		t.Fatalf("expected ASCII host unchanged, got %q", got)
	}
}

func TestEncodeDecodeHostPunycodeRoundTrips(t *testing.T) {
	encoded, err := EncodeHostPunycode("bücher.example")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if encoded != "xn--bcher-kva.example" {
		t.Fatalf("unexpected encoding: %q", encoded)
	}
	if !IsPunycodeLabel("xn--bcher-kva") {
		t.Fatalf("expected encoded label to be recognized")
	}

	decoded, err := DecodeHostPunycode(encoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded != "bücher.example" {
		t.Fatalf("DecodeHostPunycode() = %q, want %q", decoded, "bücher.example")
	}
}

func TestIsPunycodeLabel(t *testing.T) {
	if !IsPunycodeLabel("xn--n3h") {
		t.Fatalf("expected xn-- prefix to be recognized")
	}
	if IsPunycodeLabel("example") {
		t.Fatalf("expected plain label to not be recognized as punycode")
	}
}
