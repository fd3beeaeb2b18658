package urlutil

import "testing"

func TestParseHVMLURIRoundTrips(t *testing.T) {
	raw := "hvml+myhost/myapp/myrunner/crtn/mycoroutine"
	u, err := ParseHVMLURI(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Host != "myhost" || u.App != "myapp" || u.Runner != "myrunner" ||
		u.Kind != ResourceCoroutine || u.Name != "mycoroutine" {
		t.Fatalf("unexpected parse result: %+v", u)
	}
	if got := u.String(); got != raw {
		t.Fatalf("String() = %q, want %q", got, raw)
	}
}

func TestParseHVMLURICurrentAndWildcardMarkers(t *testing.T) {
	u, err := ParseHVMLURI("hvml+~/*/~/chan/events")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !u.IsCurrentHost() {
		t.Fatalf("expected current host marker")
	}
	if u.App != WildcardMarker {
		t.Fatalf("expected wildcard app, got %q", u.App)
	}
	if u.Kind != ResourceChannel {
		t.Fatalf("expected chan resource kind")
	}
}

func TestParseHVMLURIRejectsWrongSegmentCount(t *testing.T) {
	if _, err := ParseHVMLURI("hvml+host/app/chan/name"); err == nil {
		t.Fatalf("expected error for missing segment")
	}
}

func TestParseHVMLURIRejectsBadKind(t *testing.T) {
	if _, err := ParseHVMLURI("hvml+host/app/runner/widget/name"); err == nil {
		t.Fatalf("expected error for unknown resource kind")
	}
}

func TestParseHVMLURIRejectsMissingPrefix(t *testing.T) {
	if _, err := ParseHVMLURI("host/app/runner/chan/name"); err == nil {
		t.Fatalf("expected error for missing hvml+ prefix")
	}
}
