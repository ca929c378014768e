package history

import (
	"path/filepath"
	"testing"
)

func TestRecordAndRecent(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "orchestrator", "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	for _, e := range []struct{ kind, name string }{
		{KindApply, "work"},
		{KindLaunch, "work"},
		{KindTask, "npm test"},
	} {
		if err := l.Record(e.kind, e.name, ""); err != nil {
			t.Fatal(err)
		}
	}

	events, err := l.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	// Newest first.
	if events[0].Kind != KindTask || events[2].Kind != KindApply {
		t.Fatalf("unexpected order: %+v", events)
	}
	if events[0].CreatedAt.IsZero() {
		t.Fatal("created_at not parsed")
	}
}

func TestRecentLimit(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	for i := 0; i < 5; i++ {
		if err := l.Record(KindWorkflow, "deploy", ""); err != nil {
			t.Fatal(err)
		}
	}
	events, err := l.Recent(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("limit ignored: got %d events", len(events))
	}
}
