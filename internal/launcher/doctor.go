package launcher

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const checkTimeout = 15 * time.Second

// Check is the outcome of one environment probe.
type Check struct {
	Name   string
	OK     bool
	Detail string
}

// Doctor probes the environment the tool depends on: the external binary
// plus the package runners MCP stdio servers launch through. Every probe is
// best-effort; a missing command is a finding, not an error.
func (l *Launcher) Doctor(ctx context.Context) []Check {
	checks := []struct {
		name    string
		command string
		args    []string
	}{
		{l.settings.ClaudeBin, l.settings.ClaudeBin, []string{"--version"}},
		{"node", "node", []string{"--version"}},
		{"npm", "npm", []string{"--version"}},
		{"uvx", "uvx", []string{"--version"}},
	}

	var out []Check
	for _, c := range checks {
		out = append(out, runCheck(ctx, c.name, c.command, c.args...))
	}

	// Outdated global packages are informational only.
	outdated := runCheck(ctx, "npm outdated -g", "npm", "outdated", "-g", "--depth=0")
	if !outdated.OK && outdated.Detail == "" {
		outdated.Detail = "some global packages have newer versions"
	}
	if strings.Contains(outdated.Detail, "executable file not found") {
		outdated.Detail = "npm not installed"
	}
	out = append(out, outdated)
	return out
}

func runCheck(ctx context.Context, name, command string, args ...string) Check {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, command, args...)
	output, err := cmd.CombinedOutput()
	detail := strings.TrimSpace(string(output))
	if i := strings.IndexByte(detail, '\n'); i >= 0 {
		detail = detail[:i]
	}
	if err != nil {
		if detail == "" {
			detail = err.Error()
		}
		return Check{Name: name, OK: false, Detail: detail}
	}
	if detail == "" {
		detail = fmt.Sprintf("%s ok", command)
	}
	return Check{Name: name, OK: true, Detail: detail}
}
