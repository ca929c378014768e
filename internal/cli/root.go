// Package cli wires the subcommand tree. Every command receives its stores
// through the App's injected settings; there are no process-wide singletons.
package cli

import (
	"github.com/spf13/cobra"

	"ccm/internal/config"
)

type App struct {
	Settings config.Settings
}

func NewRootCommand(settings config.Settings, version string) *cobra.Command {
	app := &App{Settings: settings}

	rootCmd := &cobra.Command{
		Use:   "ccm",
		Short: "Switch Claude Code profiles and orchestrate local workflows",
		Long: `ccm manages named profiles (API key, base URL, model, MCP servers) for
the Claude Code CLI and launches it with the selected profile applied.

It also offers light orchestration on top: session logs, a task queue,
workflow runs, hooks and project templates - all plain JSON files under
your config root.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Core commands
	useCmd := &cobra.Command{
		Use:   "use [profile]",
		Short: "Apply a profile (interactive picker without an argument)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  app.runUse,
	}

	launchCmd := &cobra.Command{
		Use:   "launch [-- args...]",
		Short: "Apply a profile and start Claude Code with it",
		RunE:  app.runLaunch,
	}
	launchCmd.Flags().StringP("profile", "p", "", "Profile to launch with (index or name)")
	launchCmd.Flags().Bool("skip-permissions", false, "Pass --dangerously-skip-permissions to Claude Code")

	doctorCmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the external tools ccm depends on",
		RunE:  app.runDoctor,
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate statistics over profiles, sessions, tasks and workflows",
		RunE:  app.runStats,
	}

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent applies, launches and runs",
		RunE:  app.runHistory,
	}
	historyCmd.Flags().Int("limit", 20, "Maximum number of events to show")

	rootCmd.AddCommand(
		useCmd,
		launchCmd,
		newProfileCommand(app),
		newMCPCommand(app),
		newSkillCommand(app),
		newWorkflowCommand(app),
		newTaskCommand(app),
		newSessionCommand(app),
		newHookCommand(app),
		newTemplateCommand(app),
		statsCmd,
		historyCmd,
		doctorCmd,
	)
	return rootCmd
}
