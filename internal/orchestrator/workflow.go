package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"ccm/internal/config"
	"ccm/internal/debug"
	"ccm/internal/fsutil"
)

// ErrNotFound reports that an orchestrator entity reference did not resolve.
var ErrNotFound = errors.New("not found")

// Step is one shell command in a workflow, with skip/error/timeout policy.
type Step struct {
	Command         string `json:"command"`
	Condition       string `json:"condition,omitempty"`
	ContinueOnError bool   `json:"continueOnError,omitempty"`
	// TimeoutMS bounds the step's child process; 0 means no deadline.
	TimeoutMS int `json:"timeout,omitempty"`
}

// Workflow 一旦执行即不可变；执行产生独立的、不落盘的 Execution
// Workflow documents are immutable once executed; running one produces a
// separate Execution result that is never persisted.
type Workflow struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Steps    []Step            `json:"steps"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Created  time.Time         `json:"created"`
}

type StepResult struct {
	Index      int    `json:"index"`
	Command    string `json:"command"`
	Skipped    bool   `json:"skipped,omitempty"`
	SkipReason string `json:"skipReason,omitempty"`
	Success    bool   `json:"success"`
	Result     string `json:"result,omitempty"`
	Error      string `json:"error,omitempty"`
}

const (
	ExecutionCompleted = "completed"
	ExecutionFailed    = "failed"
)

// Execution is the ordered outcome of one workflow run. A halting failure
// produces no entries for the steps it never reached.
type Execution struct {
	WorkflowID string       `json:"workflowId"`
	Status     string       `json:"status"`
	Steps      []StepResult `json:"steps"`
	StartTime  time.Time    `json:"startTime"`
	EndTime    time.Time    `json:"endTime"`
}

// WorkflowStore keeps one JSON file per workflow.
type WorkflowStore struct {
	paths config.Paths
}

func NewWorkflowStore(paths config.Paths) *WorkflowStore {
	return &WorkflowStore{paths: paths}
}

func (s *WorkflowStore) Create(name string, steps []Step, metadata map[string]string) (Workflow, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Workflow{}, errors.New("workflow name is empty")
	}
	if len(steps) == 0 {
		return Workflow{}, errors.New("workflow needs at least one step")
	}
	for i, st := range steps {
		if strings.TrimSpace(st.Command) == "" {
			return Workflow{}, fmt.Errorf("step %d has an empty command", i+1)
		}
	}
	wf := Workflow{
		ID:       uuid.NewString(),
		Name:     name,
		Steps:    steps,
		Metadata: metadata,
		Created:  time.Now().UTC(),
	}
	if err := os.MkdirAll(s.paths.WorkflowsDir(), 0o755); err != nil {
		return Workflow{}, fmt.Errorf("create workflows dir: %w", err)
	}
	if err := fsutil.WriteJSON(s.path(wf.ID), wf); err != nil {
		return Workflow{}, err
	}
	return wf, nil
}

func (s *WorkflowStore) Get(ref string) (Workflow, error) {
	// Exact id first, then name lookup over the listing.
	var wf Workflow
	if err := fsutil.ReadJSON(s.path(ref), &wf); err == nil {
		return wf, nil
	}
	all, _, err := s.List()
	if err != nil {
		return Workflow{}, err
	}
	for _, w := range all {
		if strings.EqualFold(w.Name, ref) || w.ID == ref {
			return w, nil
		}
	}
	return Workflow{}, fmt.Errorf("workflow %w: %s", ErrNotFound, ref)
}

func (s *WorkflowStore) List() ([]Workflow, []string, error) {
	entries, err := os.ReadDir(s.paths.WorkflowsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("read workflows dir: %w", err)
	}
	var out []Workflow
	var warnings []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		var wf Workflow
		if err := fsutil.ReadJSON(filepath.Join(s.paths.WorkflowsDir(), e.Name()), &wf); err != nil {
			warnings = append(warnings, fmt.Sprintf("skipped %s: %v", e.Name(), err))
			debug.Logf("load workflow %s: %v", e.Name(), err)
			continue
		}
		out = append(out, wf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	return out, warnings, nil
}

func (s *WorkflowStore) Delete(ref string) (Workflow, error) {
	wf, err := s.Get(ref)
	if err != nil {
		return Workflow{}, err
	}
	if err := os.Remove(s.path(wf.ID)); err != nil {
		return Workflow{}, fmt.Errorf("delete workflow %s: %w", wf.ID, err)
	}
	return wf, nil
}

func (s *WorkflowStore) path(id string) string {
	return filepath.Join(s.paths.WorkflowsDir(), id+".json")
}

var placeholderPattern = regexp.MustCompile(`\{\{([a-zA-Z0-9_]+)\}\}`)

// substitute replaces {{key}} placeholders from vars; unknown keys are left
// in place so a missing value is visible in the recorded command.
func substitute(text string, vars map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(m string) string {
		key := m[2 : len(m)-2]
		if v, ok := vars[key]; ok {
			return v
		}
		return m
	})
}

// Execute runs the workflow's steps sequentially. The context accumulates
// strictly forward: each completed step exposes its trimmed output as
// step<N>_result to later conditions and commands. A step whose condition
// is false — or whose condition fails to evaluate — is recorded as skipped,
// not failed. A failing step halts the run unless continueOnError is set.
func (s *WorkflowStore) Execute(ctx context.Context, wf Workflow, vars map[string]string, workDir string) Execution {
	run := Execution{
		WorkflowID: wf.ID,
		Status:     ExecutionCompleted,
		StartTime:  time.Now().UTC(),
	}
	stepVars := map[string]string{}
	for k, v := range vars {
		stepVars[k] = v
	}

	for i, step := range wf.Steps {
		res := StepResult{Index: i + 1}

		if strings.TrimSpace(step.Condition) != "" {
			cond := substitute(step.Condition, stepVars)
			ok, err := EvalCondition(cond)
			if err != nil {
				res.Skipped = true
				res.SkipReason = fmt.Sprintf("condition error: %v", err)
				res.Command = cond
				run.Steps = append(run.Steps, res)
				continue
			}
			if !ok {
				res.Skipped = true
				res.SkipReason = fmt.Sprintf("condition false: %s", cond)
				res.Command = substitute(step.Command, stepVars)
				run.Steps = append(run.Steps, res)
				continue
			}
		}

		command := substitute(step.Command, stepVars)
		res.Command = command
		cmdRes, err := runShell(ctx, command, workDir, nil, time.Duration(step.TimeoutMS)*time.Millisecond)
		switch {
		case err != nil:
			res.Error = err.Error()
		case cmdRes.TimedOut:
			res.Error = fmt.Sprintf("timed out after %dms", step.TimeoutMS)
		case cmdRes.ExitCode != 0:
			res.Error = fmt.Sprintf("exit code %d: %s", cmdRes.ExitCode, strings.TrimSpace(cmdRes.Output))
		default:
			res.Success = true
			res.Result = strings.TrimSpace(cmdRes.Output)
			stepVars[fmt.Sprintf("step%d_result", i+1)] = res.Result
		}
		run.Steps = append(run.Steps, res)

		if !res.Success && !step.ContinueOnError {
			run.Status = ExecutionFailed
			break
		}
	}

	run.EndTime = time.Now().UTC()
	return run
}
