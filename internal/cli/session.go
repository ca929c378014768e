package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ccm/internal/orchestrator"
)

func newSessionCommand(app *App) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect and manage launch sessions",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		RunE:  app.runSessionList,
	}
	listCmd.Flags().String("status", "", "Only show sessions with this status (active|completed|killed)")

	endCmd := &cobra.Command{
		Use:   "end <id>",
		Short: "Mark a session completed",
		Args:  cobra.ExactArgs(1),
		RunE:  app.runSessionEnd,
	}

	killCmd := &cobra.Command{
		Use:   "kill <id>",
		Short: "Send SIGTERM to a session's process and mark it killed",
		Args:  cobra.ExactArgs(1),
		RunE:  app.runSessionKill,
	}

	cleanCmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete old non-active sessions",
		RunE:  app.runSessionClean,
	}
	cleanCmd.Flags().Int("days", 7, "Delete non-active sessions older than this many days")

	sessionCmd.AddCommand(listCmd, endCmd, killCmd, cleanCmd)
	return sessionCmd
}

func (a *App) runSessionList(cmd *cobra.Command, args []string) error {
	status, _ := cmd.Flags().GetString("status")
	manager := orchestrator.NewSessionManager(a.Settings.Paths)
	sessions, warnings, err := manager.List(status)
	if err != nil {
		return err
	}
	printWarnings(warnings)
	if len(sessions) == 0 {
		printMuted("no sessions")
		return nil
	}
	for _, s := range sessions {
		line := fmt.Sprintf("%s  %-9s  %s  %s",
			s.ID, renderSessionStatus(s.Status), s.StartTime.Local().Format("2006-01-02 15:04"), s.Profile)
		if s.ProjectPath != "" {
			line += "  " + mutedStyle.Render(s.ProjectPath)
		}
		fmt.Println(line)
	}
	return nil
}

func renderSessionStatus(status string) string {
	switch status {
	case orchestrator.SessionActive:
		return successStyle.Render(status)
	case orchestrator.SessionKilled:
		return errorStyle.Render(status)
	default:
		return status
	}
}

func (a *App) runSessionEnd(cmd *cobra.Command, args []string) error {
	manager := orchestrator.NewSessionManager(a.Settings.Paths)
	s, err := manager.End(args[0])
	if err != nil {
		return err
	}
	printSuccess("✓ session %s marked completed", s.ID)
	return nil
}

func (a *App) runSessionKill(cmd *cobra.Command, args []string) error {
	manager := orchestrator.NewSessionManager(a.Settings.Paths)
	s, err := manager.Kill(args[0])
	if err != nil {
		return err
	}
	printSuccess("✓ session %s killed", s.ID)
	return nil
}

func (a *App) runSessionClean(cmd *cobra.Command, args []string) error {
	days, _ := cmd.Flags().GetInt("days")
	manager := orchestrator.NewSessionManager(a.Settings.Paths)
	start := time.Now()
	removed, err := manager.Clean(days)
	if err != nil {
		return err
	}
	printSuccess("✓ removed %d session(s) in %s", removed, time.Since(start).Round(time.Millisecond))
	return nil
}
