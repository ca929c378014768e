package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"
)

const defaultOutputLimit = 1 << 20

// CommandResult 单条 shell 命令的结构化结果
// CommandResult is the structured outcome of one shell command. The exit
// code is the only structured signal a child gives us; output is merged
// stdout+stderr, capped.
type CommandResult struct {
	ExitCode int
	Output   string
	TimedOut bool
	Duration time.Duration
}

func (r CommandResult) OK() bool { return r.ExitCode == 0 && !r.TimedOut }

// runShell executes command via /bin/sh -lc in dir with extraEnv appended to
// the inherited environment. A non-positive timeout means no deadline.
// Non-zero exit is not an error here; callers decide failure policy.
func runShell(ctx context.Context, command, dir string, extraEnv []string, timeout time.Duration) (CommandResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "/bin/sh", "-lc", command)
	if dir != "" {
		cmd.Dir = dir
	}
	if len(extraEnv) > 0 {
		cmd.Env = append(cmd.Environ(), extraEnv...)
	}

	out := newCappedBuffer(defaultOutputLimit)
	cmd.Stdout = out
	cmd.Stderr = out

	start := time.Now()
	err := cmd.Run()
	res := CommandResult{Output: out.String(), Duration: time.Since(start)}

	if err != nil {
		var ee *exec.ExitError
		switch {
		case errors.As(err, &ee):
			res.ExitCode = ee.ExitCode()
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			res.ExitCode = 124
			res.TimedOut = true
		default:
			return res, fmt.Errorf("run command: %w", err)
		}
	}
	if res.TimedOut || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		if res.ExitCode == 0 {
			res.ExitCode = 124
		}
	}
	return res, nil
}

type cappedBuffer struct {
	max       int
	buf       bytes.Buffer
	truncated bool
}

func newCappedBuffer(max int) *cappedBuffer {
	if max <= 0 {
		max = defaultOutputLimit
	}
	return &cappedBuffer{max: max}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if b.truncated {
		return len(p), nil
	}
	remain := b.max - b.buf.Len()
	if remain <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > remain {
		_, _ = b.buf.Write(p[:remain])
		b.truncated = true
		return len(p), nil
	}
	_, err := b.buf.Write(p)
	return len(p), err
}

func (b *cappedBuffer) String() string {
	if !b.truncated {
		return b.buf.String()
	}
	var out bytes.Buffer
	_, _ = io.Copy(&out, bytes.NewReader(b.buf.Bytes()))
	out.WriteString("\n[output truncated]")
	return out.String()
}
