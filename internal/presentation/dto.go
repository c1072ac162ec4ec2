// Package presentation maps domain types to output DTOs for the headless
// CLI commands.
package presentation

import (
	"github.com/easel-dev/easel/internal/extensions"
)

// ExtensionDTO is the JSON representation of a catalog extension.
type ExtensionDTO struct {
	Title       string `json:"title"`
	Author      string `json:"author,omitempty"`
	Reference   string `json:"reference,omitempty"`
	Description string `json:"description,omitempty"`
	InstallType string `json:"install_type,omitempty"`
	Installed   bool   `json:"installed"`
}

// InstalledDTO is the JSON representation of a locally installed extension.
type InstalledDTO struct {
	Title         string   `json:"title"`
	Paths         []string `json:"paths,omitempty"`
	RepositoryURL string   `json:"repository_url,omitempty"`
	Disabled      bool     `json:"disabled"`
	// Tracked is true when the install matched a catalog entry.
	Tracked bool `json:"tracked"`
}

// FromExtension converts a catalog extension. installed marks entries with a
// matching local install.
func FromExtension(ext extensions.Extension, installed bool) ExtensionDTO {
	return ExtensionDTO{
		Title:       ext.Title,
		Author:      ext.Author,
		Reference:   ext.Reference,
		Description: ext.Description,
		InstallType: ext.InstallType,
		Installed:   installed,
	}
}

// FromCatalog converts a reconciled catalog. Entries whose identity appears
// among the installed extensions' definitions are marked installed.
func FromCatalog(available []extensions.Extension, installed []extensions.InstalledExtension) []ExtensionDTO {
	matched := make(map[string]struct{}, len(installed))
	for _, inst := range installed {
		if inst.Definition != nil {
			matched[inst.Definition.Identity()] = struct{}{}
		}
	}

	dtos := make([]ExtensionDTO, 0, len(available))
	for _, ext := range available {
		_, ok := matched[ext.Identity()]
		dtos = append(dtos, FromExtension(ext, ok))
	}
	return dtos
}

// FromInstalled converts locally installed extensions.
func FromInstalled(installed []extensions.InstalledExtension) []InstalledDTO {
	dtos := make([]InstalledDTO, 0, len(installed))
	for _, inst := range installed {
		dtos = append(dtos, InstalledDTO{
			Title:         inst.Title,
			Paths:         inst.Paths,
			RepositoryURL: inst.RepositoryURL,
			Disabled:      inst.Disabled,
			Tracked:       inst.Definition != nil,
		})
	}
	return dtos
}
