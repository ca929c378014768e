package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ccm/internal/history"
	"ccm/internal/launcher"
	"ccm/internal/orchestrator"
	"ccm/internal/profile"
)

func (a *App) runUse(cmd *cobra.Command, args []string) error {
	store := profile.NewStore(a.Settings.Paths)
	entries, warnings, err := store.LoadAll()
	if err != nil {
		return err
	}
	printWarnings(warnings)
	if len(entries) == 0 {
		return fmt.Errorf("no profiles found; create one with `ccm profile new`")
	}

	var entry profile.Entry
	if len(args) == 1 {
		entry, err = profile.FindByRef(entries, args[0])
		if err != nil {
			return err
		}
	} else {
		if !stdoutIsTTY() || !stdinIsTTY() {
			return fmt.Errorf("no profile given and no terminal for the picker")
		}
		var ok bool
		entry, ok, err = pickProfile(entries)
		if err != nil {
			return err
		}
		if !ok {
			printMuted("no profile selected")
			return nil
		}
	}

	name, err := store.Apply(entry.Filename)
	if err != nil {
		return err
	}
	_ = orchestrator.NewAnalyticsStore(a.Settings.Paths).Track(orchestrator.EventProfileApply, name)
	recordEvent(a.Settings.Paths, history.KindApply, name, entry.Filename)
	printSuccess("✓ applied profile %s", name)
	return nil
}

func (a *App) runLaunch(cmd *cobra.Command, args []string) error {
	ref, _ := cmd.Flags().GetString("profile")
	skipPerms, _ := cmd.Flags().GetBool("skip-permissions")

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}

	l := launcher.New(a.Settings)
	entry, err := l.Resolve(ref, workDir)
	if err != nil {
		return err
	}

	printMuted("launching %s with profile %s", a.Settings.ClaudeBin, entry.Doc.Name)
	_ = orchestrator.NewAnalyticsStore(a.Settings.Paths).Track(orchestrator.EventLaunch, entry.Doc.Name)
	recordEvent(a.Settings.Paths, history.KindLaunch, entry.Doc.Name, entry.Filename)

	code, err := l.Launch(cmd.Context(), entry, launcher.Options{
		SkipPermissions: skipPerms,
		WorkDir:         workDir,
		Args:            args,
	})
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("%s exited with code %d", a.Settings.ClaudeBin, code)
	}
	return nil
}

func (a *App) runDoctor(cmd *cobra.Command, args []string) error {
	checks := launcher.New(a.Settings).Doctor(cmd.Context())
	failed := 0
	for _, c := range checks {
		if c.OK {
			printSuccess("✓ %-20s %s", c.Name, c.Detail)
		} else {
			failed++
			printWarn("✗ %-20s %s", c.Name, c.Detail)
		}
	}
	if failed > 0 {
		printMuted("%d of %d checks failed", failed, len(checks))
	}
	return nil
}

func (a *App) runStats(cmd *cobra.Command, args []string) error {
	store := profile.NewStore(a.Settings.Paths)
	entries, _, err := store.LoadAll()
	if err != nil {
		return err
	}
	summary, err := orchestrator.Summarize(a.Settings.Paths, len(entries))
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render("ccm stats"))
	fmt.Printf("  profiles:  %d\n", summary.Profiles)
	fmt.Printf("  workflows: %d\n", summary.Workflows)
	fmt.Printf("  sessions:  %s\n", formatStateCounts(summary.SessionsByState))
	fmt.Printf("  tasks:     %s\n", formatStateCounts(summary.TasksByState))
	if len(summary.Counters) > 0 {
		fmt.Println("  tracked events:")
		for kind, n := range summary.Counters {
			fmt.Printf("    %-16s %d\n", kind, n)
		}
	}
	return nil
}

func (a *App) runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	log, err := history.Open(a.Settings.Paths.HistoryDB())
	if err != nil {
		return err
	}
	defer log.Close()

	events, err := log.Recent(limit)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		printMuted("no history yet")
		return nil
	}
	for _, e := range events {
		line := fmt.Sprintf("%s  %-9s %s", e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Kind, e.Name)
		if e.Detail != "" {
			line += mutedStyle.Render("  (" + e.Detail + ")")
		}
		fmt.Println(line)
	}
	return nil
}

func formatStateCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "none"
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	out := fmt.Sprintf("%d", total)
	for _, state := range []string{"active", "queued", "running", "completed", "failed", "killed"} {
		if n, ok := counts[state]; ok {
			out += fmt.Sprintf(" (%d %s)", n, state)
		}
	}
	return out
}
