// Package launcher resolves which profile to use, applies it and runs the
// external coding-assistant binary with the profile's environment, recording
// the invocation as a session.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"ccm/internal/config"
	"ccm/internal/debug"
	"ccm/internal/orchestrator"
	"ccm/internal/profile"
)

type Launcher struct {
	settings config.Settings
	profiles *profile.Store
	sessions *orchestrator.SessionManager
}

func New(settings config.Settings) *Launcher {
	return &Launcher{
		settings: settings,
		profiles: profile.NewStore(settings.Paths),
		sessions: orchestrator.NewSessionManager(settings.Paths),
	}
}

// Resolve picks the profile to launch with: an explicit ref wins, then the
// project pin file in workDir, then the last applied profile.
func (l *Launcher) Resolve(ref, workDir string) (profile.Entry, error) {
	entries, _, err := l.profiles.LoadAll()
	if err != nil {
		return profile.Entry{}, err
	}

	if strings.TrimSpace(ref) != "" {
		return profile.FindByRef(entries, ref)
	}

	if workDir != "" {
		if data, err := os.ReadFile(config.ProjectPinFile(workDir)); err == nil {
			pinned := strings.TrimSpace(string(data))
			if pinned != "" {
				e, err := profile.FindByRef(entries, pinned)
				if err == nil {
					return e, nil
				}
				debug.Logf("project pin %q did not resolve: %v", pinned, err)
			}
		}
	}

	if last, ok := l.profiles.LastProfile(); ok {
		for _, e := range entries {
			if e.Filename == last {
				return e, nil
			}
		}
	}

	return profile.Entry{}, fmt.Errorf("%w: no profile requested, pinned or previously applied", profile.ErrNotFound)
}

// Options control one launch of the external binary.
type Options struct {
	// SkipPermissions passes the external tool's flag that disables its
	// permission prompts.
	SkipPermissions bool
	WorkDir         string
	// Args are forwarded to the external binary verbatim.
	Args []string
}

// Launch applies the profile, spawns the external binary interactively with
// the profile env merged over the inherited environment, and tracks the run
// as a session. The child's exit code is returned; a non-zero exit is not an
// error here.
func (l *Launcher) Launch(ctx context.Context, entry profile.Entry, opts Options) (int, error) {
	displayName, err := l.profiles.Apply(entry.Filename)
	if err != nil {
		return -1, fmt.Errorf("apply profile: %w", err)
	}

	args := opts.Args
	if opts.SkipPermissions {
		args = append([]string{"--dangerously-skip-permissions"}, args...)
	}

	cmd := exec.CommandContext(ctx, l.settings.ClaudeBin, args...)
	cmd.Dir = opts.WorkDir
	cmd.Env = append(os.Environ(), envList(entry.Doc.Env())...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("start %s: %w", l.settings.ClaudeBin, err)
	}

	session, err := l.sessions.Create(displayName, opts.WorkDir, nil)
	if err != nil {
		// The child is already running; losing the session record must not
		// kill the launch.
		debug.Logf("create session: %v", err)
	} else {
		if _, err := l.sessions.Update(session.ID, func(s *orchestrator.Session) {
			s.PID = cmd.Process.Pid
		}); err != nil {
			debug.Logf("record pid: %v", err)
		}
	}

	waitErr := cmd.Wait()
	exitCode := 0
	if waitErr != nil {
		var ee *exec.ExitError
		if errors.As(waitErr, &ee) {
			exitCode = ee.ExitCode()
		} else {
			return -1, fmt.Errorf("wait for %s: %w", l.settings.ClaudeBin, waitErr)
		}
	}

	if session.ID != "" {
		if _, err := l.sessions.End(session.ID); err != nil {
			debug.Logf("end session %s: %v", session.ID, err)
		}
	}
	return exitCode, nil
}

func envList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
