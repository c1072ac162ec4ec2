package extensions

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeGit implements git.GitExecutor with canned remote URLs.
type fakeGit struct {
	remotes map[string]string // dir -> remote url
}

func (f *fakeGit) Clone(ctx context.Context, url, dir string) error { return nil }
func (f *fakeGit) Pull(ctx context.Context, dir string) error       { return nil }

func (f *fakeGit) IsRepo(dir string) bool {
	_, ok := f.remotes[dir]
	return ok
}

func (f *fakeGit) RemoteURL(dir string) (string, error) {
	return f.remotes[dir], nil
}

func TestInstalledScanner_Scan(t *testing.T) {
	pkg := t.TempDir()
	nodes := filepath.Join(pkg, "custom_nodes")
	require.NoError(t, os.MkdirAll(filepath.Join(nodes, "manager"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(nodes, "upscalers.disabled"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(nodes, "manual-copy"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(nodes, "__pycache__"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(nodes, ".hidden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(nodes, "stray.py"), []byte("pass"), 0o644))

	scanner := NewInstalledScanner(&fakeGit{remotes: map[string]string{
		filepath.Join(nodes, "manager"):            "https://github.com/drdata/manager.git",
		filepath.Join(nodes, "upscalers.disabled"): "https://github.com/lily/upscalers.git",
	}})

	installed, err := scanner.Scan(context.Background(), pkg)
	require.NoError(t, err)
	require.Len(t, installed, 3)

	byTitle := make(map[string]InstalledExtension, len(installed))
	for _, inst := range installed {
		byTitle[inst.Title] = inst
	}

	manager := byTitle["manager"]
	require.Equal(t, "https://github.com/drdata/manager.git", manager.RepositoryURL)
	require.False(t, manager.Disabled)
	require.Equal(t, []string{filepath.Join(nodes, "manager")}, manager.Paths)

	upscalers := byTitle["upscalers"]
	require.True(t, upscalers.Disabled)
	require.Equal(t, "https://github.com/lily/upscalers.git", upscalers.RepositoryURL)

	manual := byTitle["manual-copy"]
	require.Empty(t, manual.RepositoryURL)
}

func TestInstalledScanner_Scan_NoCustomNodesDir(t *testing.T) {
	scanner := NewInstalledScanner(&fakeGit{})

	_, err := scanner.Scan(context.Background(), t.TempDir())
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestInstalledScanner_Scan_EmptyPackageDir(t *testing.T) {
	scanner := NewInstalledScanner(&fakeGit{})

	_, err := scanner.Scan(context.Background(), "")
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestInstalledScanner_Scan_Cancelled(t *testing.T) {
	pkg := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(pkg, "custom_nodes", "one"), 0o755))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scanner := NewInstalledScanner(&fakeGit{})
	_, err := scanner.Scan(ctx, pkg)
	require.ErrorIs(t, err, context.Canceled)
}
