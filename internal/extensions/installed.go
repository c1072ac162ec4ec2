package extensions

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/easel-dev/easel/internal/git"
	"github.com/easel-dev/easel/internal/log"
	"github.com/easel-dev/easel/internal/paths"
)

// DisabledSuffix marks extensions the package manager turned off by
// renaming their directory.
const DisabledSuffix = ".disabled"

// InstalledScanner discovers extensions present in a package
// installation by walking its custom_nodes directory.
type InstalledScanner struct {
	git git.GitExecutor
}

// NewInstalledScanner builds a scanner using exec for repository lookups.
func NewInstalledScanner(exec git.GitExecutor) *InstalledScanner {
	return &InstalledScanner{git: exec}
}

// Scan lists the extensions installed under packageDir. Returns
// ErrUnsupported when the package has no custom_nodes directory.
func (s *InstalledScanner) Scan(ctx context.Context, packageDir string) ([]InstalledExtension, error) {
	if packageDir == "" {
		return nil, ErrUnsupported
	}

	dir := paths.CustomNodesDir(packageDir)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, dir)
	}
	if err != nil {
		return nil, err
	}

	var out []InstalledExtension
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") || name == "__pycache__" {
			continue
		}

		path := filepath.Join(dir, name)
		inst := InstalledExtension{
			Title:    strings.TrimSuffix(name, DisabledSuffix),
			Paths:    []string{path},
			Disabled: strings.HasSuffix(name, DisabledSuffix),
		}
		if s.git.IsRepo(path) {
			url, err := s.git.RemoteURL(path)
			if err != nil {
				log.Warn(log.CatExt, "failed to read remote url", "path", path, "error", err)
			} else {
				inst.RepositoryURL = url
			}
		}
		out = append(out, inst)
	}

	log.Debug(log.CatExt, "scanned installed extensions", "dir", dir, "count", len(out))
	return out, nil
}
