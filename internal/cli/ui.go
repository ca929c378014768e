package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"ccm/internal/config"
	"ccm/internal/debug"
	"ccm/internal/history"
)

// 输出样式 / Output styles shared by every subcommand.
var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

func printSuccess(format string, args ...any) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

func printWarn(format string, args ...any) {
	fmt.Println(warnStyle.Render(fmt.Sprintf(format, args...)))
}

func printMuted(format string, args ...any) {
	fmt.Println(mutedStyle.Render(fmt.Sprintf(format, args...)))
}

// printWarnings reports files skipped by a best-effort listing.
func printWarnings(warnings []string) {
	for _, w := range warnings {
		printWarn("warning: %s", w)
	}
}

func stdinIsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func stdoutIsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// confirm asks a yes/no question on the terminal. force answers yes without
// asking; a non-interactive stdin answers no.
func confirm(prompt string, force bool) bool {
	if force {
		return true
	}
	if !stdinIsTTY() {
		return false
	}
	fmt.Printf("%s [y/N] ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// recordEvent appends to the sqlite history log best-effort. The log is
// informational; a broken database never fails the command that triggered
// the event.
func recordEvent(paths config.Paths, kind, name, detail string) {
	log, err := history.Open(paths.HistoryDB())
	if err != nil {
		debug.Logf("open history: %v", err)
		return
	}
	defer log.Close()
	if err := log.Record(kind, name, detail); err != nil {
		debug.Logf("record history event: %v", err)
	}
}
