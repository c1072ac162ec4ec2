// Package extensions manages the catalog of installable custom-node
// extensions: definitions declared by manifest sources, extensions
// present on disk in a package installation, and the reconciliation
// between the two.
package extensions

import "errors"

// ErrUnsupported indicates the package installation has no extensions
// directory.
var ErrUnsupported = errors.New("extensions: package does not support extensions")

// Extension describes an installable extension declared by a manifest.
type Extension struct {
	Author      string
	Title       string
	Reference   string // source repository URL
	Files       []string
	Description string
	InstallType string
}

// Identity returns the cache key for the extension.
func (e Extension) Identity() string {
	return e.Author + e.Title + e.Reference
}

// InstalledExtension describes an extension present in a package
// installation. Definition links it to its manifest entry when
// Synchronize found a match.
type InstalledExtension struct {
	Title         string
	Paths         []string
	RepositoryURL string
	Disabled      bool
	Definition    *Extension
}

// Identity returns the cache key for the installed extension: the first
// file path, else the repository URL, else a derived fallback.
func (e InstalledExtension) Identity() string {
	if len(e.Paths) > 0 && e.Paths[0] != "" {
		return e.Paths[0]
	}
	if e.RepositoryURL != "" {
		return e.RepositoryURL
	}
	return "unknown-" + e.Title
}
