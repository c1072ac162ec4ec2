package extensions

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	ext "github.com/easel-dev/easel/internal/extensions"
	"github.com/easel-dev/easel/internal/keys"
	"github.com/easel-dev/easel/internal/log"
	"github.com/easel-dev/easel/internal/store"
	"github.com/easel-dev/easel/internal/ui/styles"
)

// detailPaneHeight is the total height of the detail pane including its
// border rows.
const detailPaneHeight = 9

// View renders the extensions mode.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	helpView := styles.HelpStyle.Render(m.help.View(keys.Extensions))
	helpHeight := lipgloss.Height(helpView)

	status := m.renderStatusLine()
	statusHeight := lipgloss.Height(status)

	detailHeight := 0
	if m.height >= 24 {
		detailHeight = detailPaneHeight
	}

	listHeight := m.height - helpHeight - statusHeight - detailHeight
	if listHeight < 5 {
		listHeight = 5
	}

	availWidth := m.width / 2
	instWidth := m.width - availWidth

	availPane := styles.RenderWithTitleBorder(
		m.renderAvailableRows(availWidth-4, listHeight-2),
		paneTitle("Available", m.availView),
		availWidth, listHeight,
		m.focus == paneAvailable,
		styles.OverlayTitleColor, styles.BorderHighlightFocusColor)
	instPane := styles.RenderWithTitleBorder(
		m.renderInstalledRows(instWidth-4, listHeight-2),
		paneTitle("Installed", m.instView),
		instWidth, listHeight,
		m.focus == paneInstalled,
		styles.OverlayTitleColor, styles.BorderHighlightFocusColor)

	sections := []string{lipgloss.JoinHorizontal(lipgloss.Top, availPane, instPane)}
	if detailHeight > 0 {
		sections = append(sections, styles.RenderWithTitleBorder(
			m.detail, "Details", m.width, detailHeight,
			false, styles.OverlayTitleColor, styles.BorderHighlightFocusColor))
	}
	sections = append(sections, status, helpView)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// paneTitle shows the row count, or visible/total while a filter is on.
func paneTitle[T store.Keyed](name string, v *store.View[T]) string {
	if v.Filter() != "" {
		return fmt.Sprintf("%s (%d/%d)", name, v.VisibleLen(), v.Len())
	}
	return fmt.Sprintf("%s (%d)", name, v.Len())
}

func (m Model) renderAvailableRows(width, height int) string {
	visible := m.availView.Visible()
	if len(visible) == 0 {
		if m.refreshing {
			return styles.CaptionStyle.Render("Loading catalog...")
		}
		if m.services.Index == nil {
			hint := "No manifest URLs configured.\nAdd extensions.manifest_urls to " + m.configPath()
			return styles.CaptionStyle.Render(wordwrap.String(hint, width))
		}
		return styles.CaptionStyle.Render("No extensions")
	}

	start, end := viewWindow(m.availIdx, len(visible), height)
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		lines = append(lines, m.renderAvailableRow(visible[i], i, width))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderInstalledRows(width, height int) string {
	visible := m.instView.Visible()
	if len(visible) == 0 {
		if m.refreshing {
			return styles.CaptionStyle.Render("Scanning...")
		}
		return styles.CaptionStyle.Render("Nothing installed")
	}

	start, end := viewWindow(m.instIdx, len(visible), height)
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		lines = append(lines, m.renderInstalledRow(visible[i], i, width))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderAvailableRow(sel store.Selectable[ext.Extension], index, width int) string {
	cursor := "  "
	if m.focus == paneAvailable && index == m.availIdx {
		cursor = styles.SelectionIndicatorStyle.Render("> ")
	}
	mark := "[ ] "
	if sel.Selected {
		mark = "[x] "
	}

	label := sel.Item.Title
	if sel.Item.Author != "" {
		label += " · " + sel.Item.Author
	}
	label = truncateRow(label, width-6)

	if _, installed := m.installedIDs[sel.Item.Identity()]; installed {
		label = styles.ExtensionInstalledStyle.Render(label)
	}
	return zone.Mark(makeAvailableZoneID(index), cursor+mark+label)
}

func (m Model) renderInstalledRow(sel store.Selectable[ext.InstalledExtension], index, width int) string {
	cursor := "  "
	if m.focus == paneInstalled && index == m.instIdx {
		cursor = styles.SelectionIndicatorStyle.Render("> ")
	}
	mark := "[ ] "
	if sel.Selected {
		mark = "[x] "
	}

	label := sel.Item.Title
	if sel.Item.Disabled {
		label += " (disabled)"
	}
	label = truncateRow(label, width-6)

	switch {
	case sel.Item.Disabled:
		label = styles.ExtensionDisabledStyle.Render(label)
	case sel.Item.Definition == nil:
		label = styles.ExtensionUntrackedStyle.Render(label)
	default:
		label = styles.ExtensionInstalledStyle.Render(label)
	}
	return zone.Mark(makeInstalledZoneID(index), cursor+mark+label)
}

// configPath returns the config file path or the default location.
func (m Model) configPath() string {
	if m.services.ConfigPath == "" {
		return "~/.config/easel/config.yaml"
	}
	return m.services.ConfigPath
}

// truncateRow fits a row label into width terminal cells.
func truncateRow(s string, width int) string {
	if width < 1 {
		width = 1
	}
	return runewidth.Truncate(s, width, "…")
}

// viewWindow returns the half-open row range keeping the cursor visible.
func viewWindow(cursor, total, height int) (int, int) {
	if height <= 0 || total <= height {
		return 0, total
	}
	start := cursor - height/2
	if start < 0 {
		start = 0
	}
	if start+height > total {
		start = total - height
	}
	return start, start + height
}

func (m Model) renderStatusLine() string {
	var line string
	switch {
	case m.run != nil:
		name := m.run.name
		if name == "" {
			name = "starting"
		}
		line = fmt.Sprintf("%s %d/%d %s · esc to cancel", m.spin.View(), m.run.index, m.run.total, name)
	case m.refreshing:
		line = m.spin.View() + " Refreshing catalog..."
	case m.filtering:
		line = m.filter.View()
	case m.filter.Value() != "":
		line = "filter: " + m.filter.Value() + " (esc clears)"
	default:
		selected := m.availView.SelectedCount() + m.instView.SelectedCount()
		if selected > 0 {
			line = fmt.Sprintf("%d selected", selected)
		} else {
			line = "space selects · i installs · x uninstalls · u updates · t toggles"
		}
	}
	return styles.StatusBarStyle.Width(m.width).Render(line)
}

// renderDetail re-renders the markdown detail for the highlighted row.
// Cached on the model so View stays cheap.
func (m Model) renderDetail() Model {
	src := m.detailSource()
	if src == "" || m.md == nil {
		m.detail = ""
		return m
	}

	out, err := m.md.Render(src)
	if err != nil {
		log.ErrorErr(log.CatUI, "markdown render failed", err)
		m.detail = wordwrap.String(src, m.md.Width())
		return m
	}
	m.detail = strings.TrimRight(out, "\n")
	return m
}

// detailSource builds the markdown for the row under the cursor.
func (m Model) detailSource() string {
	switch m.focus {
	case paneAvailable:
		if sel, ok := m.availView.At(m.availIdx); ok {
			return availableDetail(sel.Item)
		}
	case paneInstalled:
		if sel, ok := m.instView.At(m.instIdx); ok {
			return installedDetail(sel.Item)
		}
	}
	return ""
}

func availableDetail(e ext.Extension) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**", e.Title)
	if e.Author != "" {
		fmt.Fprintf(&b, " by %s", e.Author)
	}
	b.WriteString("\n\n")
	if e.Description != "" {
		b.WriteString(e.Description)
		b.WriteString("\n\n")
	}
	if e.Reference != "" {
		fmt.Fprintf(&b, "<%s>", e.Reference)
	}
	return b.String()
}

func installedDetail(e ext.InstalledExtension) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**", e.Title)
	if e.Disabled {
		b.WriteString(" *(disabled)*")
	}
	b.WriteString("\n\n")
	if e.Definition != nil && e.Definition.Description != "" {
		b.WriteString(e.Definition.Description)
		b.WriteString("\n\n")
	}
	if e.RepositoryURL != "" {
		fmt.Fprintf(&b, "<%s>\n\n", e.RepositoryURL)
	}
	for _, p := range e.Paths {
		fmt.Fprintf(&b, "`%s`\n", p)
	}
	return b.String()
}
