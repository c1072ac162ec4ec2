package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Git-specific errors for extension checkout operations.
var (
	// ErrPathAlreadyExists indicates the clone destination already exists.
	ErrPathAlreadyExists = errors.New("destination path already exists")

	// ErrNotGitRepo indicates the directory is not a git repository.
	ErrNotGitRepo = errors.New("not a git repository")
)

// Compile-time check that RealExecutor implements GitExecutor.
var _ GitExecutor = (*RealExecutor)(nil)

// RealExecutor implements GitExecutor by executing actual git commands.
type RealExecutor struct{}

// NewRealExecutor creates a new RealExecutor.
func NewRealExecutor() *RealExecutor {
	return &RealExecutor{}
}

// runGit executes a git command in dir and returns stdout and any error.
func (e *RealExecutor) runGit(ctx context.Context, dir string, args ...string) (string, error) {
	//nolint:gosec // G204: args come from controlled sources
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		if stderrStr != "" {
			return "", parseGitError(stderrStr, err)
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}

	return strings.TrimSpace(stdout.String()), nil
}

// parseGitError converts git stderr messages to specific error types.
func parseGitError(stderr string, originalErr error) error {
	stderrLower := strings.ToLower(stderr)

	// Clone destination taken: fatal: destination path '<dir>' already exists
	if strings.Contains(stderrLower, "already exists") {
		return fmt.Errorf("%w: %s", ErrPathAlreadyExists, stderr)
	}

	// Not a git repository
	if strings.Contains(stderrLower, "not a git repository") {
		return fmt.Errorf("%w: %s", ErrNotGitRepo, stderr)
	}

	return fmt.Errorf("git error: %s: %w", stderr, originalErr)
}

// Clone clones url into dir.
func (e *RealExecutor) Clone(ctx context.Context, url, dir string) error {
	_, err := e.runGit(ctx, "", "clone", url, dir)
	return err
}

// Pull fast-forwards the repository at dir.
func (e *RealExecutor) Pull(ctx context.Context, dir string) error {
	_, err := e.runGit(ctx, dir, "pull", "--ff-only")
	return err
}

// IsRepo checks if dir is inside a git repository.
func (e *RealExecutor) IsRepo(dir string) bool {
	_, err := e.runGit(context.Background(), dir, "rev-parse", "--git-dir")
	return err == nil
}

// RemoteURL returns the URL for the origin remote of the repository at dir.
func (e *RealExecutor) RemoteURL(dir string) (string, error) {
	out, err := e.runGit(context.Background(), dir, "config", "--get", "remote.origin.url")
	if err != nil {
		// config --get exits 1 with empty stderr when the key is absent
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", nil
		}
		return "", err
	}
	return out, nil
}
