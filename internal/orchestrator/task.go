package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ccm/internal/config"
	"ccm/internal/debug"
	"ccm/internal/fsutil"
)

// Task statuses. Transitions are monotonic: queued → running →
// (completed | failed), never reversed.
const (
	TaskQueued    = "queued"
	TaskRunning   = "running"
	TaskCompleted = "completed"
	TaskFailed    = "failed"
)

// Task is a single queued shell command executed independently of workflows.
type Task struct {
	ID        string     `json:"id"`
	Command   string     `json:"command"`
	Args      []string   `json:"args,omitempty"`
	Cwd       string     `json:"cwd,omitempty"`
	Status    string     `json:"status"`
	Created   time.Time  `json:"created"`
	Started   *time.Time `json:"started,omitempty"`
	Completed *time.Time `json:"completed,omitempty"`
	Result    string     `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// TaskQueue persists one JSON file per task and executes queued tasks in
// fixed-size batches.
type TaskQueue struct {
	paths config.Paths
}

func NewTaskQueue(paths config.Paths) *TaskQueue {
	return &TaskQueue{paths: paths}
}

func (q *TaskQueue) Add(command string, args []string, cwd string) (Task, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return Task{}, errors.New("task command is empty")
	}
	task := Task{
		ID:      uuid.NewString(),
		Command: command,
		Args:    args,
		Cwd:     strings.TrimSpace(cwd),
		Status:  TaskQueued,
		Created: time.Now().UTC(),
	}
	if err := os.MkdirAll(q.paths.TasksDir(), 0o755); err != nil {
		return Task{}, fmt.Errorf("create tasks dir: %w", err)
	}
	if err := q.save(task); err != nil {
		return Task{}, err
	}
	return task, nil
}

func (q *TaskQueue) Get(id string) (Task, error) {
	var task Task
	if err := fsutil.ReadJSON(q.path(id), &task); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Task{}, fmt.Errorf("task %w: %s", ErrNotFound, id)
		}
		return Task{}, err
	}
	return task, nil
}

// List returns tasks in creation order, optionally filtered by status.
func (q *TaskQueue) List(status string) ([]Task, []string, error) {
	entries, err := os.ReadDir(q.paths.TasksDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("read tasks dir: %w", err)
	}
	var out []Task
	var warnings []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		var task Task
		if err := fsutil.ReadJSON(filepath.Join(q.paths.TasksDir(), e.Name()), &task); err != nil {
			warnings = append(warnings, fmt.Sprintf("skipped %s: %v", e.Name(), err))
			debug.Logf("load task %s: %v", e.Name(), err)
			continue
		}
		if status != "" && task.Status != status {
			continue
		}
		out = append(out, task)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	return out, warnings, nil
}

// Execute runs one queued task to completion. Any failure is captured into
// the persisted task's status and error; a task is never left running.
func (q *TaskQueue) Execute(ctx context.Context, id string) (Task, error) {
	task, err := q.Get(id)
	if err != nil {
		return Task{}, err
	}
	if task.Status != TaskQueued {
		return task, fmt.Errorf("task %s is %s, not queued", id, task.Status)
	}

	now := time.Now().UTC()
	task.Status = TaskRunning
	task.Started = &now
	if err := q.save(task); err != nil {
		return Task{}, err
	}

	command := task.Command
	if len(task.Args) > 0 {
		command = command + " " + strings.Join(task.Args, " ")
	}
	res, runErr := runShell(ctx, command, task.Cwd, nil, 0)

	done := time.Now().UTC()
	task.Completed = &done
	switch {
	case runErr != nil:
		task.Status = TaskFailed
		task.Error = runErr.Error()
	case !res.OK():
		task.Status = TaskFailed
		task.Error = fmt.Sprintf("exit code %d: %s", res.ExitCode, strings.TrimSpace(res.Output))
	default:
		task.Status = TaskCompleted
		task.Result = strings.TrimSpace(res.Output)
	}
	if err := q.save(task); err != nil {
		return Task{}, err
	}
	if task.Status == TaskFailed {
		return task, fmt.Errorf("task %s failed: %s", id, task.Error)
	}
	return task, nil
}

// ProcessQueue takes the first n queued tasks by creation order and runs
// them concurrently as a single all-settled batch. It does not keep a
// rolling window: tasks beyond the batch stay queued until the next call.
// Every outcome is reported; a rejected task never poisons its siblings.
func (q *TaskQueue) ProcessQueue(ctx context.Context, n int) ([]Task, error) {
	if n < 1 {
		n = 1
	}
	queued, _, err := q.List(TaskQueued)
	if err != nil {
		return nil, err
	}
	if len(queued) == 0 {
		return nil, nil
	}
	if n > len(queued) {
		n = len(queued)
	}
	batch := queued[:n]

	results := make([]Task, len(batch))
	var g errgroup.Group
	for i, t := range batch {
		g.Go(func() error {
			settled, execErr := q.Execute(ctx, t.ID)
			if execErr != nil && settled.ID == "" {
				// Store-level failure; report it on the task we meant to run.
				settled = t
				settled.Status = TaskFailed
				settled.Error = execErr.Error()
			}
			results[i] = settled
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

func (q *TaskQueue) save(task Task) error {
	return fsutil.WriteJSON(q.path(task.ID), task)
}

func (q *TaskQueue) path(id string) string {
	return filepath.Join(q.paths.TasksDir(), id+".json")
}
