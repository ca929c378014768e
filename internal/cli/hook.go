package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ccm/internal/history"
	"ccm/internal/orchestrator"
)

func newHookCommand(app *App) *cobra.Command {
	hookCmd := &cobra.Command{
		Use:   "hook",
		Short: "Manage shell scripts bound to named events",
	}

	setCmd := &cobra.Command{
		Use:   "set <event> [script]",
		Short: "Register a script for an event",
		Long: `Register a shell script for an event, replacing any previous one. The
script is given inline, via --file, or read from stdin when neither is set.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: app.runHookSet,
	}
	setCmd.Flags().String("file", "", "Read the script from this file")

	runCmd := &cobra.Command{
		Use:   "run <event>",
		Short: "Run an event's script",
		Args:  cobra.ExactArgs(1),
		RunE:  app.runHookRun,
	}
	runCmd.Flags().StringArray("ctx", nil, "Context value key=value exported as CCM_HOOK_<KEY> (repeatable)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered hook events",
		RunE:  app.runHookList,
	}

	removeCmd := &cobra.Command{
		Use:   "remove <event>",
		Short: "Remove an event's script",
		Args:  cobra.ExactArgs(1),
		RunE:  app.runHookRemove,
	}

	hookCmd.AddCommand(setCmd, runCmd, listCmd, removeCmd)
	return hookCmd
}

func (a *App) runHookSet(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")

	var script string
	switch {
	case file != "" && len(args) == 2:
		return fmt.Errorf("give the script inline or via --file, not both")
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read script file: %w", err)
		}
		script = string(data)
	case len(args) == 2:
		script = args[1]
	default:
		if stdinIsTTY() {
			return fmt.Errorf("no script given; pass it inline, via --file or on stdin")
		}
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read script from stdin: %w", err)
		}
		script = string(data)
	}

	manager := orchestrator.NewHookManager(a.Settings.Paths)
	slug, err := manager.Set(args[0], script)
	if err != nil {
		return err
	}
	printSuccess("✓ hook %s registered", slug)
	return nil
}

func (a *App) runHookRun(cmd *cobra.Command, args []string) error {
	ctxFlags, _ := cmd.Flags().GetStringArray("ctx")
	hookCtx, err := parseKeyValues(ctxFlags)
	if err != nil {
		return err
	}

	manager := orchestrator.NewHookManager(a.Settings.Paths)
	_ = orchestrator.NewAnalyticsStore(a.Settings.Paths).Track(orchestrator.EventHookRun, args[0])

	res, err := manager.Run(cmd.Context(), args[0], hookCtx)
	if res.Output != "" {
		fmt.Print(res.Output)
	}
	if err != nil {
		recordEvent(a.Settings.Paths, history.KindHook, args[0], "failed")
		// A failing hook is reported, never fatal to the process that ran it.
		printWarn("hook %s failed: %v", args[0], err)
		return nil
	}
	recordEvent(a.Settings.Paths, history.KindHook, args[0], "ok")
	printSuccess("✓ hook %s completed in %s", args[0], res.Duration.Round(time.Millisecond))
	return nil
}

func (a *App) runHookList(cmd *cobra.Command, args []string) error {
	manager := orchestrator.NewHookManager(a.Settings.Paths)
	events, err := manager.List()
	if err != nil {
		return err
	}
	if len(events) == 0 {
		printMuted("no hooks")
		return nil
	}
	for _, e := range events {
		fmt.Println("  " + e)
	}
	return nil
}

func (a *App) runHookRemove(cmd *cobra.Command, args []string) error {
	manager := orchestrator.NewHookManager(a.Settings.Paths)
	if err := manager.Remove(args[0]); err != nil {
		return err
	}
	printSuccess("✓ hook %s removed", args[0])
	return nil
}
