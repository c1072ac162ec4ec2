package presentation

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
)

// Formatter handles output formatting
type Formatter struct {
	writer io.Writer
}

// NewFormatter creates a new formatter
func NewFormatter(writer io.Writer) *Formatter {
	return &Formatter{
		writer: writer,
	}
}

// FormatExtensionsJSON formats catalog extensions as indented JSON.
func (f *Formatter) FormatExtensionsJSON(dtos []ExtensionDTO) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(dtos)
}

// FormatInstalledJSON formats installed extensions as indented JSON.
func (f *Formatter) FormatInstalledJSON(dtos []InstalledDTO) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(dtos)
}

// FormatExtensionsTable formats catalog extensions as an aligned text
// table. Installed entries are marked with an asterisk in the first column.
func (f *Formatter) FormatExtensionsTable(dtos []ExtensionDTO) error {
	w := tabwriter.NewWriter(f.writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, " \tTITLE\tAUTHOR\tREFERENCE")
	for _, d := range dtos {
		mark := ""
		if d.Installed {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", mark, d.Title, d.Author, d.Reference)
	}
	return w.Flush()
}

// FormatInstalledTable formats installed extensions as an aligned text
// table with their tracking state.
func (f *Formatter) FormatInstalledTable(dtos []InstalledDTO) error {
	w := tabwriter.NewWriter(f.writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TITLE\tSTATE\tREPOSITORY")
	for _, d := range dtos {
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.Title, installState(d), d.RepositoryURL)
	}
	return w.Flush()
}

func installState(d InstalledDTO) string {
	switch {
	case d.Disabled:
		return "disabled"
	case !d.Tracked:
		return "untracked"
	default:
		return "ok"
	}
}
