package generate

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rivo/uniseg"

	"github.com/easel-dev/easel/internal/keys"
	"github.com/easel-dev/easel/internal/ui/styles"
)

const formLabelWidth = 14

// View renders the generate mode: parameter form on the left, job
// progress and gallery on the right, help and status underneath.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	helpView := styles.HelpStyle.Render(m.help.View(keys.Generate))
	helpHeight := lipgloss.Height(helpView)

	statusBar := ""
	statusHeight := 0
	if m.showStatusBar {
		statusBar = m.renderStatusBar()
		statusHeight = 1
	}

	panelHeight := m.height - helpHeight - statusHeight
	if panelHeight < 5 {
		panelHeight = 5
	}

	formWidth := m.width * 2 / 5
	if formWidth < 38 {
		formWidth = 38
	}
	if formWidth > 64 {
		formWidth = 64
	}
	if formWidth > m.width {
		formWidth = m.width
	}
	outWidth := m.width - formWidth

	form := styles.RenderWithTitleBorder(
		m.renderForm(formWidth-2), "Parameters", formWidth, panelHeight,
		true, styles.OverlayTitleColor, styles.BorderHighlightFocusColor)

	var body string
	if outWidth >= 20 {
		out := styles.RenderWithTitleBorder(
			m.renderOutput(outWidth-4), "Output", outWidth, panelHeight,
			false, styles.OverlayTitleColor, styles.BorderHighlightFocusColor)
		body = lipgloss.JoinHorizontal(lipgloss.Top, form, out)
	} else {
		body = form
	}

	parts := []string{body, helpView}
	if m.showStatusBar {
		parts = append(parts, statusBar)
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderForm(width int) string {
	fields := m.visibleFields()
	valueWidth := width - formLabelWidth - 3
	if valueWidth < 8 {
		valueWidth = 8
	}

	var b strings.Builder
	for i, f := range fields {
		if i == len(baseFields) {
			b.WriteString("\n")
		}

		cursor := "  "
		label := styles.FormLabelStyle.Render(fmt.Sprintf("%-*s", formLabelWidth, f.label))
		if i == m.cursor {
			cursor = styles.SelectionIndicatorStyle.Render("> ")
			label = styles.FormFocusedLabelStyle.Render(fmt.Sprintf("%-*s", formLabelWidth, f.label))
		}

		var value string
		if m.editing && i == m.cursor {
			value = m.input.View()
		} else {
			value = styles.FormValueStyle.Render(styles.TruncateString(m.fieldValue(f), valueWidth))
		}

		b.WriteString(cursor + label + " " + value + "\n")
	}
	return b.String()
}

func (m Model) renderOutput(width int) string {
	switch {
	case m.job != nil:
		return m.renderJob(width)
	case m.connecting:
		return m.spin.View() + " Connecting..."
	case len(m.results) > 0:
		return m.renderGallery(width)
	default:
		return styles.CaptionStyle.Render("No images yet. Press ctrl+s to generate.")
	}
}

func (m Model) renderJob(width int) string {
	var b strings.Builder
	b.WriteString(m.spin.View() + " Generating...\n\n")

	percent := 0.0
	if m.prog.Max > 0 {
		percent = float64(m.prog.Value) / float64(m.prog.Max)
	}
	bar := m.progress
	bar.Width = width
	b.WriteString(bar.ViewAs(percent) + "\n")
	b.WriteString(fmt.Sprintf("step %d/%d\n", m.prog.Value, m.prog.Max))

	if m.prog.Node != "" {
		b.WriteString(styles.CaptionStyle.Render("node: "+m.prog.Node) + "\n")
	}
	if m.previewCount > 0 {
		b.WriteString(styles.CaptionStyle.Render(fmt.Sprintf("%d preview frames (%s latest)", m.previewCount, formatBytes(m.previewSize))) + "\n")
	}
	b.WriteString("\n" + styles.CaptionStyle.Render("elapsed "+styles.FormatDuration(time.Since(m.jobStart))))
	b.WriteString("\n" + styles.CaptionStyle.Render("esc to cancel"))
	return b.String()
}

func (m Model) renderGallery(width int) string {
	img := m.results[m.resultIdx]

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Image %d of %d\n\n", m.resultIdx+1, len(m.results)))
	b.WriteString(styles.FormValueStyle.Render(truncateCaption(img.Ref.Filename, width)) + "\n")
	b.WriteString(styles.CaptionStyle.Render(truncateCaption(img.Display(), width)) + "\n")
	if len(m.results) > 1 {
		b.WriteString("\n" + styles.CaptionStyle.Render("[ and ] to browse"))
	}
	return b.String()
}

func (m Model) renderStatusBar() string {
	dotStyle := lipgloss.NewStyle().Foreground(styles.StatusErrorColor)
	state := "disconnected"
	switch {
	case m.connecting:
		dotStyle = lipgloss.NewStyle().Foreground(styles.StatusWarningColor)
		state = "connecting"
	case m.connected:
		dotStyle = lipgloss.NewStyle().Foreground(styles.StatusSuccessColor)
		state = "connected"
	}

	parts := []string{dotStyle.Render("●") + " " + state}
	if m.connected && m.stats != nil && m.stats.ComfyUIVersion != "" {
		parts = append(parts, "ComfyUI "+m.stats.ComfyUIVersion)
	}
	if m.connected {
		parts = append(parts, fmt.Sprintf("queue %d running / %d pending", m.queue.Running, m.queue.Pending))
	}
	return styles.StatusBarStyle.Width(m.width).Render(strings.Join(parts, " | "))
}

// truncateCaption trims a caption to the panel width by grapheme
// cluster, so multi-rune characters never get split mid-sequence.
func truncateCaption(s string, maxWidth int) string {
	if maxWidth < 2 || uniseg.StringWidth(s) <= maxWidth {
		return s
	}
	var b strings.Builder
	width := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		w := g.Width()
		if width+w > maxWidth-1 {
			break
		}
		b.WriteString(g.Str())
		width += w
	}
	return b.String() + "…"
}

func formatBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1fMB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fKB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%dB", n)
	}
}
