package extensions

import (
	"path"
	"strings"
)

// NormalizeReference canonicalizes a repository reference for matching:
// trailing slash and version-control suffix are stripped so
// "https://x/y.git" and "https://x/y" compare equal.
func NormalizeReference(ref string) string {
	ref = strings.TrimSpace(ref)
	ref = strings.TrimSuffix(ref, "/")
	ref = strings.TrimSuffix(ref, ".git")
	return ref
}

// RepoDirName derives the checkout directory name for a repository
// reference: the last path segment with any ".git" suffix removed.
func RepoDirName(ref string) string {
	return path.Base(NormalizeReference(ref))
}

// Synchronize reconciles installed extensions against the available
// catalog. It is pure: inputs are never mutated and fresh slices are
// returned; the only difference on the returned installed items is the
// Definition cross-reference, attached on a match and detached
// otherwise.
//
// Matching compares each installed extension's repository URL against
// every available extension's file references, both normalized via
// NormalizeReference. When several available extensions declare the
// same file reference, the one with the lexicographically smallest
// Identity wins.
func Synchronize(available []Extension, installed []InstalledExtension) ([]Extension, []InstalledExtension) {
	byRef := make(map[string]Extension)
	for _, ext := range available {
		for _, file := range ext.Files {
			key := NormalizeReference(file)
			if key == "" {
				continue
			}
			if existing, ok := byRef[key]; ok && existing.Identity() <= ext.Identity() {
				continue
			}
			byRef[key] = ext
		}
	}

	outAvailable := make([]Extension, len(available))
	copy(outAvailable, available)

	outInstalled := make([]InstalledExtension, 0, len(installed))
	for _, inst := range installed {
		item := inst
		item.Definition = nil
		if inst.RepositoryURL != "" {
			if ext, ok := byRef[NormalizeReference(inst.RepositoryURL)]; ok {
				def := ext
				item.Definition = &def
			}
		}
		outInstalled = append(outInstalled, item)
	}

	return outAvailable, outInstalled
}
