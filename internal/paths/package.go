// Package paths provides path resolution utilities.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolvePackageDir resolves a backend package root from user input.
// It normalizes the input (accepting either the package root or its
// custom_nodes directory) and expands a leading ~.
//
// Input normalization:
//   - "/path/to/ComfyUI" -> "/path/to/ComfyUI"
//   - "/path/to/ComfyUI/custom_nodes" -> "/path/to/ComfyUI"
//   - "~/ComfyUI" -> "$HOME/ComfyUI"
//   - "" -> ""
//
// An empty result means no local installation is configured.
func ResolvePackageDir(path string) string {
	if path == "" {
		return ""
	}
	path = filepath.Clean(ExpandHome(path))

	// Accept the custom_nodes dir itself and step up to the package root
	if filepath.Base(path) == "custom_nodes" {
		return filepath.Dir(path)
	}

	return path
}

// ExpandHome replaces a leading ~ or ~/ with the user's home directory.
// Paths without a leading ~ are returned unchanged, as is the input when
// the home directory cannot be determined.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	// ~user form is not supported
	return path
}

// CustomNodesDir returns the extension installation directory for a
// package root, or "" when no package is configured.
func CustomNodesDir(pkgDir string) string {
	if pkgDir == "" {
		return ""
	}
	return filepath.Join(pkgDir, "custom_nodes")
}
