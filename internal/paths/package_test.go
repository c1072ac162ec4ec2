package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePackageDir_Empty(t *testing.T) {
	require.Equal(t, "", ResolvePackageDir(""))
}

func TestResolvePackageDir_Root(t *testing.T) {
	dir := filepath.Join("/", "srv", "ComfyUI")
	require.Equal(t, dir, ResolvePackageDir(dir))
}

func TestResolvePackageDir_CustomNodesDir(t *testing.T) {
	dir := filepath.Join("/", "srv", "ComfyUI", "custom_nodes")
	require.Equal(t, filepath.Join("/", "srv", "ComfyUI"), ResolvePackageDir(dir))
}

func TestResolvePackageDir_TrailingSlash(t *testing.T) {
	dir := filepath.Join("/", "srv", "ComfyUI") + string(filepath.Separator)
	require.Equal(t, filepath.Join("/", "srv", "ComfyUI"), ResolvePackageDir(dir))
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	require.Equal(t, home, ExpandHome("~"))
	require.Equal(t, filepath.Join(home, "ComfyUI"), ExpandHome("~/ComfyUI"))
	require.Equal(t, "/abs/path", ExpandHome("/abs/path"))
	require.Equal(t, "relative", ExpandHome("relative"))
}

func TestCustomNodesDir(t *testing.T) {
	require.Equal(t, "", CustomNodesDir(""))
	require.Equal(t,
		filepath.Join("/", "srv", "ComfyUI", "custom_nodes"),
		CustomNodesDir(filepath.Join("/", "srv", "ComfyUI")))
}
