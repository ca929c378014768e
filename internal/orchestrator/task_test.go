package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestTaskLifecycle(t *testing.T) {
	q := NewTaskQueue(testPaths(t))

	task, err := q.Add("echo", []string{"hi"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != TaskQueued {
		t.Fatalf("new task status = %s", task.Status)
	}

	done, err := q.Execute(context.Background(), task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if done.Status != TaskCompleted || done.Result != "hi" {
		t.Fatalf("unexpected result: %+v", done)
	}
	if done.Started == nil || done.Completed == nil {
		t.Fatal("timestamps not recorded")
	}

	// A settled task cannot be executed again: transitions are monotonic.
	if _, err := q.Execute(context.Background(), task.ID); err == nil {
		t.Fatal("re-executing a completed task must fail")
	}
}

func TestTaskFailureIsCaptured(t *testing.T) {
	q := NewTaskQueue(testPaths(t))
	task, err := q.Add("exit 7", nil, "")
	if err != nil {
		t.Fatal(err)
	}

	_, execErr := q.Execute(context.Background(), task.ID)
	if execErr == nil {
		t.Fatal("expected execute error")
	}
	stored, err := q.Get(task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != TaskFailed {
		t.Fatalf("status = %s, want failed", stored.Status)
	}
	if !strings.Contains(stored.Error, "exit code 7") {
		t.Fatalf("error not captured: %q", stored.Error)
	}
	if stored.Status == TaskRunning {
		t.Fatal("task left dangling in running")
	}
}

func TestProcessQueueBatchBoundary(t *testing.T) {
	q := NewTaskQueue(testPaths(t))
	for i := 0; i < 3; i++ {
		if _, err := q.Add("true", nil, ""); err != nil {
			t.Fatal(err)
		}
	}

	results, err := q.ProcessQueue(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	// The batch is exactly the first two tasks; the third stays queued until
	// the next call — no rolling window.
	if len(results) != 2 {
		t.Fatalf("batch size = %d, want 2", len(results))
	}
	queued, _, err := q.List(TaskQueued)
	if err != nil {
		t.Fatal(err)
	}
	if len(queued) != 1 {
		t.Fatalf("%d tasks still queued, want 1", len(queued))
	}

	results, err = q.ProcessQueue(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("second batch size = %d, want 1", len(results))
	}
}

func TestProcessQueueAllSettled(t *testing.T) {
	q := NewTaskQueue(testPaths(t))
	if _, err := q.Add("true", nil, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Add("exit 1", nil, ""); err != nil {
		t.Fatal(err)
	}

	results, err := q.ProcessQueue(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected both outcomes reported, got %d", len(results))
	}
	byStatus := map[string]int{}
	for _, r := range results {
		byStatus[r.Status]++
	}
	if byStatus[TaskCompleted] != 1 || byStatus[TaskFailed] != 1 {
		t.Fatalf("unexpected statuses: %v", byStatus)
	}
}

func TestProcessQueueEmpty(t *testing.T) {
	q := NewTaskQueue(testPaths(t))
	results, err := q.ProcessQueue(context.Background(), 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestTaskGetNotFound(t *testing.T) {
	q := NewTaskQueue(testPaths(t))
	if _, err := q.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
