package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ccm/internal/history"
	"ccm/internal/orchestrator"
)

func newWorkflowCommand(app *App) *cobra.Command {
	workflowCmd := &cobra.Command{
		Use:   "workflow",
		Short: "Manage and run workflows",
	}

	newCmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Create a workflow",
		Long: `Create a workflow from repeated --step flags or a JSON step file.

The file form allows the full step shape:
  [{"command": "npm test", "condition": "{{step1_result}} == 'ok'",
    "continueOnError": true, "timeout": 60000}]`,
		Args: cobra.ExactArgs(1),
		RunE: app.runWorkflowNew,
	}
	newCmd.Flags().StringArray("step", nil, "Shell command to append as a step (repeatable)")
	newCmd.Flags().String("file", "", "JSON file with the full step list")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List workflows",
		RunE:  app.runWorkflowList,
	}

	runCmd := &cobra.Command{
		Use:   "run <workflow>",
		Short: "Run a workflow",
		Args:  cobra.ExactArgs(1),
		RunE:  app.runWorkflowRun,
	}
	runCmd.Flags().StringArray("var", nil, "Initial context variable key=value (repeatable)")
	runCmd.Flags().String("dir", "", "Working directory for the steps")

	deleteCmd := &cobra.Command{
		Use:   "delete <workflow>",
		Short: "Delete a workflow",
		Args:  cobra.ExactArgs(1),
		RunE:  app.runWorkflowDelete,
	}
	deleteCmd.Flags().BoolP("force", "f", false, "Skip the confirmation prompt")

	workflowCmd.AddCommand(newCmd, listCmd, runCmd, deleteCmd)
	return workflowCmd
}

func (a *App) runWorkflowNew(cmd *cobra.Command, args []string) error {
	stepFlags, _ := cmd.Flags().GetStringArray("step")
	file, _ := cmd.Flags().GetString("file")

	var steps []orchestrator.Step
	switch {
	case file != "" && len(stepFlags) > 0:
		return fmt.Errorf("use either --step or --file, not both")
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read step file: %w", err)
		}
		if err := json.Unmarshal(data, &steps); err != nil {
			return fmt.Errorf("parse step file: %w", err)
		}
	default:
		for _, s := range stepFlags {
			steps = append(steps, orchestrator.Step{Command: s})
		}
	}

	store := orchestrator.NewWorkflowStore(a.Settings.Paths)
	wf, err := store.Create(args[0], steps, nil)
	if err != nil {
		return err
	}
	printSuccess("✓ created workflow %s (%d steps)", wf.Name, len(wf.Steps))
	printMuted("id: %s", wf.ID)
	return nil
}

func (a *App) runWorkflowList(cmd *cobra.Command, args []string) error {
	store := orchestrator.NewWorkflowStore(a.Settings.Paths)
	workflows, warnings, err := store.List()
	if err != nil {
		return err
	}
	printWarnings(warnings)
	if len(workflows) == 0 {
		printMuted("no workflows")
		return nil
	}
	for _, wf := range workflows {
		fmt.Printf("%s  %s\n", titleStyle.Render(wf.Name), mutedStyle.Render(fmt.Sprintf("%d steps · %s", len(wf.Steps), wf.ID)))
	}
	return nil
}

func (a *App) runWorkflowRun(cmd *cobra.Command, args []string) error {
	varFlags, _ := cmd.Flags().GetStringArray("var")
	dir, _ := cmd.Flags().GetString("dir")

	vars, err := parseKeyValues(varFlags)
	if err != nil {
		return err
	}

	store := orchestrator.NewWorkflowStore(a.Settings.Paths)
	wf, err := store.Get(args[0])
	if err != nil {
		return err
	}

	_ = orchestrator.NewAnalyticsStore(a.Settings.Paths).Track(orchestrator.EventWorkflowRun, wf.Name)
	run := store.Execute(cmd.Context(), wf, vars, dir)
	recordEvent(a.Settings.Paths, history.KindWorkflow, wf.Name, run.Status)

	for _, step := range run.Steps {
		switch {
		case step.Skipped:
			printMuted("- step %d skipped: %s", step.Index, step.SkipReason)
		case step.Success:
			printSuccess("✓ step %d: %s", step.Index, step.Command)
			if step.Result != "" {
				printMuted("  %s", firstLine(step.Result))
			}
		default:
			printWarn("✗ step %d: %s", step.Index, step.Command)
			printWarn("  %s", firstLine(step.Error))
		}
	}

	elapsed := run.EndTime.Sub(run.StartTime).Round(10 * time.Millisecond)
	if run.Status == orchestrator.ExecutionFailed {
		return fmt.Errorf("workflow %s failed after %s", wf.Name, elapsed)
	}
	printSuccess("✓ workflow %s completed in %s", wf.Name, elapsed)
	return nil
}

func (a *App) runWorkflowDelete(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	store := orchestrator.NewWorkflowStore(a.Settings.Paths)
	wf, err := store.Get(args[0])
	if err != nil {
		return err
	}
	if !confirm(fmt.Sprintf("Delete workflow %s?", wf.Name), force) {
		printMuted("not deleted")
		return nil
	}
	if _, err := store.Delete(wf.ID); err != nil {
		return err
	}
	printSuccess("✓ deleted workflow %s", wf.Name)
	return nil
}

// parseKeyValues splits repeated key=value flags.
func parseKeyValues(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := map[string]string{}
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid key=value pair %q", p)
		}
		out[strings.TrimSpace(key)] = value
	}
	return out, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
