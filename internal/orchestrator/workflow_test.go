package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ccm/internal/config"
)

func testPaths(t *testing.T) config.Paths {
	t.Helper()
	return config.Paths{Root: t.TempDir()}
}

func TestWorkflowCRUD(t *testing.T) {
	store := NewWorkflowStore(testPaths(t))

	wf, err := store.Create("build-and-test", []Step{{Command: "echo build"}}, map[string]string{"owner": "me"})
	if err != nil {
		t.Fatal(err)
	}
	if wf.ID == "" {
		t.Fatal("workflow id not assigned")
	}

	byName, err := store.Get("Build-And-Test")
	if err != nil || byName.ID != wf.ID {
		t.Fatalf("name lookup failed: %+v %v", byName, err)
	}

	all, warnings, err := store.List()
	if err != nil || len(warnings) != 0 || len(all) != 1 {
		t.Fatalf("list: %d workflows, warnings %v, err %v", len(all), warnings, err)
	}

	if _, err := store.Delete(wf.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(wf.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestWorkflowCreateValidation(t *testing.T) {
	store := NewWorkflowStore(testPaths(t))
	if _, err := store.Create("", []Step{{Command: "x"}}, nil); err == nil {
		t.Fatal("empty name must fail")
	}
	if _, err := store.Create("w", nil, nil); err == nil {
		t.Fatal("no steps must fail")
	}
	if _, err := store.Create("w", []Step{{Command: "  "}}, nil); err == nil {
		t.Fatal("blank step command must fail")
	}
}

func TestExecuteHaltsOnFailure(t *testing.T) {
	store := NewWorkflowStore(testPaths(t))
	wf := Workflow{ID: "w1", Steps: []Step{
		{Command: "echo one"},
		{Command: "exit 3"},
		{Command: "echo three"},
	}}

	run := store.Execute(context.Background(), wf, nil, t.TempDir())
	if run.Status != ExecutionFailed {
		t.Fatalf("status = %s", run.Status)
	}
	// The halted run records exactly two step entries; step 3 never appears.
	if len(run.Steps) != 2 {
		t.Fatalf("expected 2 step entries, got %d", len(run.Steps))
	}
	if !run.Steps[0].Success || run.Steps[1].Success {
		t.Fatalf("unexpected outcomes: %+v", run.Steps)
	}
	if !strings.Contains(run.Steps[1].Error, "exit code 3") {
		t.Fatalf("error should carry the exit code: %q", run.Steps[1].Error)
	}
}

func TestExecuteContinueOnError(t *testing.T) {
	store := NewWorkflowStore(testPaths(t))
	wf := Workflow{ID: "w2", Steps: []Step{
		{Command: "exit 1", ContinueOnError: true},
		{Command: "echo recovered"},
	}}

	run := store.Execute(context.Background(), wf, nil, t.TempDir())
	if run.Status != ExecutionCompleted {
		t.Fatalf("status = %s", run.Status)
	}
	if len(run.Steps) != 2 || run.Steps[0].Success || !run.Steps[1].Success {
		t.Fatalf("unexpected outcomes: %+v", run.Steps)
	}
}

func TestExecuteSubstitutionAndConditions(t *testing.T) {
	store := NewWorkflowStore(testPaths(t))
	wf := Workflow{ID: "w3", Steps: []Step{
		{Command: "echo hello"},
		{Command: "echo {{step1_result}} world", Condition: `"{{step1_result}}" == "hello"`},
		{Command: "echo never", Condition: `"{{step1_result}}" == "other"`},
	}}

	run := store.Execute(context.Background(), wf, nil, t.TempDir())
	if run.Status != ExecutionCompleted {
		t.Fatalf("status = %s: %+v", run.Status, run.Steps)
	}
	if len(run.Steps) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(run.Steps))
	}
	if run.Steps[1].Result != "hello world" {
		t.Fatalf("substitution failed: %q", run.Steps[1].Result)
	}
	if !run.Steps[2].Skipped {
		t.Fatalf("false condition must skip: %+v", run.Steps[2])
	}
}

func TestExecuteConditionErrorSkips(t *testing.T) {
	store := NewWorkflowStore(testPaths(t))
	wf := Workflow{ID: "w4", Steps: []Step{
		{Command: "echo x", Condition: `"unterminated`},
		{Command: "echo y"},
	}}

	run := store.Execute(context.Background(), wf, nil, t.TempDir())
	if run.Status != ExecutionCompleted {
		t.Fatalf("status = %s", run.Status)
	}
	if !run.Steps[0].Skipped || run.Steps[0].SkipReason == "" {
		t.Fatalf("condition error must record a skip: %+v", run.Steps[0])
	}
	if !run.Steps[1].Success {
		t.Fatal("later steps must still run after a skip")
	}
}

func TestExecuteStepTimeout(t *testing.T) {
	store := NewWorkflowStore(testPaths(t))
	wf := Workflow{ID: "w5", Steps: []Step{
		{Command: "sleep 5", TimeoutMS: 100},
	}}

	run := store.Execute(context.Background(), wf, nil, t.TempDir())
	if run.Status != ExecutionFailed {
		t.Fatalf("status = %s", run.Status)
	}
	if !strings.Contains(run.Steps[0].Error, "timed out") {
		t.Fatalf("expected timeout error, got %q", run.Steps[0].Error)
	}
}

func TestExecuteInitialVariables(t *testing.T) {
	store := NewWorkflowStore(testPaths(t))
	wf := Workflow{ID: "w6", Steps: []Step{
		{Command: "echo {{target}}"},
	}}

	run := store.Execute(context.Background(), wf, map[string]string{"target": "prod"}, t.TempDir())
	if run.Steps[0].Result != "prod" {
		t.Fatalf("initial variable not substituted: %q", run.Steps[0].Result)
	}
}
