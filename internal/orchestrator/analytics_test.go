package orchestrator

import (
	"context"
	"testing"
)

func TestAnalyticsTrackAndSummarize(t *testing.T) {
	paths := testPaths(t)
	a := NewAnalyticsStore(paths)

	for i := 0; i < 3; i++ {
		if err := a.Track(EventProfileApply, "work"); err != nil {
			t.Fatal(err)
		}
	}
	if err := a.Track(EventLaunch, "work"); err != nil {
		t.Fatal(err)
	}

	doc, err := a.Load()
	if err != nil {
		t.Fatal(err)
	}
	if doc.Counters[EventProfileApply] != 3 || doc.Counters[EventLaunch] != 1 {
		t.Fatalf("counters = %v", doc.Counters)
	}
	if len(doc.Events) != 4 {
		t.Fatalf("event log has %d entries", len(doc.Events))
	}

	// Seed sibling stores and aggregate.
	if _, err := NewSessionManager(paths).Create("work", "", nil); err != nil {
		t.Fatal(err)
	}
	q := NewTaskQueue(paths)
	task, err := q.Add("true", nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := q.Execute(context.Background(), task.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := NewWorkflowStore(paths).Create("w", []Step{{Command: "true"}}, nil); err != nil {
		t.Fatal(err)
	}

	sum, err := Summarize(paths, 2)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Profiles != 2 || sum.Workflows != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.SessionsByState[SessionActive] != 1 || sum.TasksByState[TaskCompleted] != 1 {
		t.Fatalf("state counts = %+v", sum)
	}
	if sum.Counters[EventProfileApply] != 3 {
		t.Fatalf("counters not surfaced: %+v", sum.Counters)
	}
}
