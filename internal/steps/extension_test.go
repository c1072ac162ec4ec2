package steps

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easel-dev/easel/internal/extensions"
)

// recordingGit implements git.GitExecutor and records calls.
type recordingGit struct {
	cloneURL  string
	cloneDir  string
	pulledDir string
	repos     map[string]bool
	err       error
}

func (g *recordingGit) Clone(ctx context.Context, url, dir string) error {
	g.cloneURL, g.cloneDir = url, dir
	return g.err
}

func (g *recordingGit) Pull(ctx context.Context, dir string) error {
	g.pulledDir = dir
	return g.err
}

func (g *recordingGit) IsRepo(dir string) bool { return g.repos[dir] }

func (g *recordingGit) RemoteURL(dir string) (string, error) { return "", nil }

func TestInstallExtension_ClonesIntoTargetDir(t *testing.T) {
	exec := &recordingGit{}
	step := InstallExtension{
		Extension: extensions.Extension{
			Title:       "ComfyUI-Manager",
			Reference:   "https://github.com/ltdrdata/ComfyUI-Manager.git",
			InstallType: "git-clone",
		},
		TargetDir: "/pkg/custom_nodes",
		Git:       exec,
	}

	assert.Equal(t, "Install ComfyUI-Manager", step.Name())
	require.NoError(t, step.Run(context.Background()))
	assert.Equal(t, "https://github.com/ltdrdata/ComfyUI-Manager.git", exec.cloneURL)
	assert.Equal(t, filepath.Join("/pkg/custom_nodes", "ComfyUI-Manager"), exec.cloneDir,
		"checkout directory drops the .git suffix")
}

func TestInstallExtension_RejectsUnsupportedType(t *testing.T) {
	step := InstallExtension{
		Extension: extensions.Extension{Title: "single-file", InstallType: "copy"},
		Git:       &recordingGit{},
	}

	err := step.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `install type "copy" not supported`)
}

func TestInstallExtension_RequiresReference(t *testing.T) {
	step := InstallExtension{
		Extension: extensions.Extension{Title: "broken"},
		Git:       &recordingGit{},
	}
	require.Error(t, step.Run(context.Background()))
}

func TestUninstallExtension_RemovesPaths(t *testing.T) {
	dir := t.TempDir()
	checkout := filepath.Join(dir, "old-extension")
	require.NoError(t, os.MkdirAll(filepath.Join(checkout, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(checkout, "nested", "node.py"), []byte("pass"), 0o644))

	step := UninstallExtension{
		Installed: extensions.InstalledExtension{Title: "old-extension", Paths: []string{checkout}},
	}

	assert.Equal(t, "Uninstall old-extension", step.Name())
	require.NoError(t, step.Run(context.Background()))

	_, err := os.Stat(checkout)
	assert.True(t, os.IsNotExist(err), "checkout should be gone")
}

func TestUninstallExtension_NoPaths(t *testing.T) {
	step := UninstallExtension{Installed: extensions.InstalledExtension{Title: "ghost"}}
	require.Error(t, step.Run(context.Background()))
}

func TestUpdateExtension_PullsCheckout(t *testing.T) {
	checkout := filepath.Join("/pkg/custom_nodes", "manager")
	exec := &recordingGit{repos: map[string]bool{checkout: true}}

	step := UpdateExtension{
		Installed: extensions.InstalledExtension{Title: "manager", Paths: []string{checkout}},
		Git:       exec,
	}

	assert.Equal(t, "Update manager", step.Name())
	require.NoError(t, step.Run(context.Background()))
	assert.Equal(t, checkout, exec.pulledDir)
}

func TestUpdateExtension_RejectsNonRepo(t *testing.T) {
	step := UpdateExtension{
		Installed: extensions.InstalledExtension{Title: "copied", Paths: []string{"/pkg/custom_nodes/copied"}},
		Git:       &recordingGit{},
	}

	err := step.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a git checkout")
}

func TestToggleExtension_DisableAndEnable(t *testing.T) {
	dir := t.TempDir()
	checkout := filepath.Join(dir, "upscalers")
	require.NoError(t, os.MkdirAll(checkout, 0o755))

	disable := ToggleExtension{
		Installed: extensions.InstalledExtension{Title: "upscalers", Paths: []string{checkout}},
	}
	assert.Equal(t, "Disable upscalers", disable.Name())
	require.NoError(t, disable.Run(context.Background()))

	disabled := checkout + extensions.DisabledSuffix
	_, err := os.Stat(disabled)
	require.NoError(t, err, "directory should carry the disabled suffix")

	enable := ToggleExtension{
		Installed: extensions.InstalledExtension{
			Title:    "upscalers",
			Paths:    []string{disabled},
			Disabled: true,
		},
	}
	assert.Equal(t, "Enable upscalers", enable.Name())
	require.NoError(t, enable.Run(context.Background()))

	_, err = os.Stat(checkout)
	require.NoError(t, err, "directory should be back to its enabled name")
}
