package checkpoint

import (
	"testing"
	"time"
)

func TestSaveLoadRoundTrips(t *testing.T) {
	s := NewStore(time.Hour)
	s.Save(42, "runner-1", "AFTER_PUSHED", []byte(`{"x":1}`))

	got := s.Load(42)
	if got == nil {
		t.Fatalf("expected snapshot for cid 42")
	}
	if got.FunctionID != "runner-1" || got.Step != "AFTER_PUSHED" {
		t.Fatalf("unexpected snapshot contents: %+v", got)
	}
}

func TestLoadMissingReturnsNil(t *testing.T) {
	s := NewStore(time.Hour)
	if s.Load(999) != nil {
		t.Fatalf("expected nil for missing cid")
	}
}

func TestLoadExpiredReturnsNil(t *testing.T) {
	s := NewStore(time.Nanosecond)
	s.Save(1, "runner-1", "RERUN", []byte(`{}`))
	time.Sleep(time.Millisecond)

	if s.Load(1) != nil {
		t.Fatalf("expected expired snapshot to be invisible")
	}
}

func TestDeleteRemovesSnapshot(t *testing.T) {
	s := NewStore(time.Hour)
	s.Save(7, "runner-1", "ON_POPPING", []byte(`{}`))
	s.Delete(7)

	if s.Load(7) != nil {
		t.Fatalf("expected snapshot to be gone after delete")
	}
}

func TestListByRunnerFiltersByOwner(t *testing.T) {
	s := NewStore(time.Hour)
	s.Save(1, "runner-a", "SELECT_CHILD", []byte(`{}`))
	s.Save(2, "runner-b", "SELECT_CHILD", []byte(`{}`))
	s.Save(3, "runner-a", "SELECT_CHILD", []byte(`{}`))

	got := s.ListByRunner("runner-a")
	if len(got) != 2 {
		t.Fatalf("expected 2 snapshots for runner-a, got %d", len(got))
	}
}
