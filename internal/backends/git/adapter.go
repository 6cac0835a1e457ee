// Package git evaluates ignore rules by delegating to the git binary.
package git

import (
	"bytes"
	"context"
	stderrors "errors"
	"log/slog"
	"os/exec"
	"time"

	"timetrack/internal/errors"
)

// DefaultQueryTimeout is the default timeout for git operations (5000ms)
const DefaultQueryTimeout = 5000 * time.Millisecond

// GitAdapter runs git commands with a timeout.
type GitAdapter struct {
	binary       string
	queryTimeout time.Duration
	logger       *slog.Logger
}

// NewGitAdapter creates a new Git backend adapter. A zero timeout selects
// DefaultQueryTimeout.
func NewGitAdapter(timeout time.Duration, logger *slog.Logger) *GitAdapter {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &GitAdapter{
		binary:       "git",
		queryTimeout: timeout,
		logger:       logger,
	}
}

// IsAvailable checks if git is on PATH
func (g *GitAdapter) IsAvailable() bool {
	_, err := exec.LookPath(g.binary)
	return err == nil
}

// commandResult is the outcome of a git invocation that ran to completion.
type commandResult struct {
	stdout   []byte
	stderr   string
	exitCode int
}

// executeGitCommand runs git in dir, feeding it stdin when non-nil. A non-zero
// exit status is not an error; callers interpret it. Errors mean git could not
// be run or timed out.
func (g *GitAdapter) executeGitCommand(ctx context.Context, dir string, stdin []byte, args ...string) (*commandResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.queryTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, g.binary, args...)
	cmd.Dir = dir
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	g.logger.Debug("Executing git command",
		"args", args,
		"dir", dir,
		"timeout", g.queryTimeout.String(),
	)

	err := cmd.Run()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.Wrap(errors.IgnoreToolUnavailable, "git command timed out", err).
				WithDetails(map[string]interface{}{"args": args, "dir": dir})
		}

		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			return &commandResult{
				stdout:   stdout.Bytes(),
				stderr:   stderr.String(),
				exitCode: exitErr.ExitCode(),
			}, nil
		}

		return nil, errors.Wrap(errors.IgnoreToolUnavailable, "failed to execute git", err).
			WithDetails(map[string]interface{}{"args": args, "dir": dir})
	}

	return &commandResult{stdout: stdout.Bytes(), stderr: stderr.String()}, nil
}
