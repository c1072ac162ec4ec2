package git

import "context"

// GitExecutor defines the interface for git operations on extension
// checkouts. This abstraction allows for easy testing with mock
// implementations.
type GitExecutor interface {
	// Clone clones url into dir, creating dir. Returns
	// ErrPathAlreadyExists if dir already exists.
	Clone(ctx context.Context, url, dir string) error
	// Pull fast-forwards the repository at dir.
	Pull(ctx context.Context, dir string) error
	// IsRepo reports whether dir is inside a git repository.
	IsRepo(dir string) bool
	// RemoteURL returns the URL for the origin remote of the repository
	// at dir. Returns empty string and nil error if the remote doesn't
	// exist.
	RemoteURL(dir string) (string, error)
}
