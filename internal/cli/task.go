package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ccm/internal/history"
	"ccm/internal/orchestrator"
)

func newTaskCommand(app *App) *cobra.Command {
	taskCmd := &cobra.Command{
		Use:   "task",
		Short: "Queue and run one-shot shell commands",
	}

	addCmd := &cobra.Command{
		Use:   "add <command...>",
		Short: "Queue a shell command",
		Args:  cobra.MinimumNArgs(1),
		RunE:  app.runTaskAdd,
	}
	addCmd.Flags().String("cwd", "", "Working directory for the task")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE:  app.runTaskList,
	}
	listCmd.Flags().String("status", "", "Only show tasks with this status (queued|running|completed|failed)")

	runCmd := &cobra.Command{
		Use:   "run <id>",
		Short: "Run one queued task immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  app.runTaskRun,
	}

	processCmd := &cobra.Command{
		Use:   "process",
		Short: "Run the next batch of queued tasks",
		Long: `Run the first N queued tasks concurrently as one batch. Tasks beyond the
batch stay queued until the next process call.`,
		RunE: app.runTaskProcess,
	}
	processCmd.Flags().IntP("concurrency", "c", 1, "Batch size")

	taskCmd.AddCommand(addCmd, listCmd, runCmd, processCmd)
	return taskCmd
}

func (a *App) runTaskAdd(cmd *cobra.Command, args []string) error {
	cwd, _ := cmd.Flags().GetString("cwd")
	queue := orchestrator.NewTaskQueue(a.Settings.Paths)
	task, err := queue.Add(args[0], args[1:], cwd)
	if err != nil {
		return err
	}
	printSuccess("✓ queued task %s", task.ID)
	return nil
}

func (a *App) runTaskList(cmd *cobra.Command, args []string) error {
	status, _ := cmd.Flags().GetString("status")
	queue := orchestrator.NewTaskQueue(a.Settings.Paths)
	tasks, warnings, err := queue.List(status)
	if err != nil {
		return err
	}
	printWarnings(warnings)
	if len(tasks) == 0 {
		printMuted("no tasks")
		return nil
	}
	for _, t := range tasks {
		command := t.Command
		if len(t.Args) > 0 {
			command += " " + strings.Join(t.Args, " ")
		}
		fmt.Printf("%s  %-9s  %s\n", mutedStyle.Render(t.ID[:8]), renderTaskStatus(t.Status), command)
	}
	return nil
}

func renderTaskStatus(status string) string {
	switch status {
	case orchestrator.TaskCompleted:
		return successStyle.Render(status)
	case orchestrator.TaskFailed:
		return errorStyle.Render(status)
	default:
		return status
	}
}

// resolveTaskID allows the short id prefix shown by task list.
func resolveTaskID(queue *orchestrator.TaskQueue, ref string) (string, error) {
	tasks, _, err := queue.List("")
	if err != nil {
		return "", err
	}
	var match string
	for _, t := range tasks {
		if t.ID == ref {
			return t.ID, nil
		}
		if strings.HasPrefix(t.ID, ref) {
			if match != "" {
				return "", fmt.Errorf("task id prefix %q is ambiguous", ref)
			}
			match = t.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("task %w: %s", orchestrator.ErrNotFound, ref)
	}
	return match, nil
}

func (a *App) runTaskRun(cmd *cobra.Command, args []string) error {
	queue := orchestrator.NewTaskQueue(a.Settings.Paths)
	id, err := resolveTaskID(queue, args[0])
	if err != nil {
		return err
	}
	_ = orchestrator.NewAnalyticsStore(a.Settings.Paths).Track(orchestrator.EventTaskRun, id)
	task, err := queue.Execute(cmd.Context(), id)
	if task.ID != "" {
		recordEvent(a.Settings.Paths, history.KindTask, task.Command, task.Status)
	}
	if err != nil {
		return err
	}
	printSuccess("✓ task %s completed", task.ID[:8])
	if task.Result != "" {
		fmt.Println(task.Result)
	}
	return nil
}

func (a *App) runTaskProcess(cmd *cobra.Command, args []string) error {
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	queue := orchestrator.NewTaskQueue(a.Settings.Paths)

	results, err := queue.ProcessQueue(cmd.Context(), concurrency)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		printMuted("queue is empty")
		return nil
	}

	failed := 0
	for _, t := range results {
		recordEvent(a.Settings.Paths, history.KindTask, t.Command, t.Status)
		if t.Status == orchestrator.TaskFailed {
			failed++
			printWarn("✗ %s  %s", t.ID[:8], firstLine(t.Error))
		} else {
			printSuccess("✓ %s  %s", t.ID[:8], t.Command)
		}
	}
	remaining, _, err := queue.List(orchestrator.TaskQueued)
	if err == nil && len(remaining) > 0 {
		printMuted("%d task(s) still queued", len(remaining))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d task(s) failed", failed, len(results))
	}
	return nil
}
