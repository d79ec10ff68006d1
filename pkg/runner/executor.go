package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/specvital/phpunit-runner/pkg/domain"
)

// ExecResult is the raw outcome of running one RunConfig.
type ExecResult struct {
	ExitCode int
	Output   string
	Duration time.Duration
}

// Executor runs a driver-produced command.
// A non-zero exit status is not an error; errors mean the process could not run.
type Executor interface {
	Execute(ctx context.Context, cfg domain.RunConfig) (ExecResult, error)
}

// ShellExecutor runs the RunConfig command line through the platform shell.
// A config with only Exec and Args is started directly.
type ShellExecutor struct {
	// Dir is the working directory, usually the workspace root.
	Dir string
	// Env is appended to the current process environment.
	Env []string
	// Stream receives output as it is produced.
	Stream io.Writer
}

func (e *ShellExecutor) Execute(ctx context.Context, cfg domain.RunConfig) (ExecResult, error) {
	cmd, err := e.command(ctx, cfg)
	if err != nil {
		return ExecResult{}, err
	}

	var buf bytes.Buffer
	var out io.Writer = &buf
	if e.Stream != nil {
		out = io.MultiWriter(&buf, e.Stream)
	}
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.Dir = e.Dir
	cmd.Env = append(os.Environ(), e.Env...)

	start := time.Now()
	err = cmd.Run()
	result := ExecResult{Output: buf.String(), Duration: time.Since(start)}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		return result, fmt.Errorf("run %q: %w", cfg.Command, err)
	}
	return result, nil
}

func (e *ShellExecutor) command(ctx context.Context, cfg domain.RunConfig) (*exec.Cmd, error) {
	switch {
	case cfg.Command == "" && cfg.Exec != "":
		return exec.CommandContext(ctx, cfg.Exec, cfg.Args...), nil
	case cfg.Command == "":
		return nil, errors.New("empty command")
	case runtime.GOOS == "windows":
		return exec.CommandContext(ctx, "cmd", "/C", cfg.Command), nil
	default:
		return exec.CommandContext(ctx, "sh", "-c", cfg.Command), nil
	}
}
