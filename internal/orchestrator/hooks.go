package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ccm/internal/config"
	"ccm/internal/fsutil"
	"ccm/internal/profile"
)

// HookManager stores one shell script per event name and runs them
// synchronously on demand. A failing hook is reported to the caller, never
// escalated to a process-fatal error.
type HookManager struct {
	paths config.Paths
}

func NewHookManager(paths config.Paths) *HookManager {
	return &HookManager{paths: paths}
}

// Set registers the script for an event, replacing any previous one.
func (h *HookManager) Set(event, script string) (string, error) {
	slug := profile.SanitizeName(event)
	if slug == "" {
		return "", errors.New("hook event name is empty")
	}
	if strings.TrimSpace(script) == "" {
		return "", errors.New("hook script is empty")
	}
	if err := os.MkdirAll(h.paths.HooksDir(), 0o755); err != nil {
		return "", fmt.Errorf("create hooks dir: %w", err)
	}
	if !strings.HasPrefix(script, "#!") {
		script = "#!/bin/sh\n" + script
	}
	if !strings.HasSuffix(script, "\n") {
		script += "\n"
	}
	path := h.path(slug)
	if err := fsutil.WriteFileAtomic(path, []byte(script), 0o755); err != nil {
		return "", err
	}
	return slug, nil
}

// List returns the registered event names.
func (h *HookManager) List() ([]string, error) {
	entries, err := os.ReadDir(h.paths.HooksDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read hooks dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sh") {
			continue
		}
		out = append(out, strings.TrimSuffix(e.Name(), ".sh"))
	}
	sort.Strings(out)
	return out, nil
}

func (h *HookManager) Remove(event string) error {
	slug := profile.SanitizeName(event)
	if err := os.Remove(h.path(slug)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("hook %w: %s", ErrNotFound, event)
		}
		return fmt.Errorf("remove hook %s: %w", event, err)
	}
	return nil
}

// Run executes the event's script with the context values spliced into the
// child environment as CCM_HOOK_<KEY>. The returned result carries the
// merged output; a non-zero exit is surfaced as an error the caller reports.
func (h *HookManager) Run(ctx context.Context, event string, hookCtx map[string]string) (CommandResult, error) {
	slug := profile.SanitizeName(event)
	path := h.path(slug)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return CommandResult{}, fmt.Errorf("hook %w: %s", ErrNotFound, event)
		}
		return CommandResult{}, fmt.Errorf("stat hook %s: %w", event, err)
	}

	env := make([]string, 0, len(hookCtx))
	for k, v := range hookCtx {
		key := strings.ToUpper(profile.SanitizeName(k))
		key = strings.ReplaceAll(key, "-", "_")
		env = append(env, "CCM_HOOK_"+key+"="+v)
	}

	res, err := runShell(ctx, shellQuote(path), "", env, 0)
	if err != nil {
		return res, err
	}
	if !res.OK() {
		return res, fmt.Errorf("hook %s exited with code %d", event, res.ExitCode)
	}
	return res, nil
}

func (h *HookManager) path(slug string) string {
	return filepath.Join(h.paths.HooksDir(), slug+".sh")
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
