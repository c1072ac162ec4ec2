package extensions

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	ext "github.com/easel-dev/easel/internal/extensions"
	"github.com/easel-dev/easel/internal/keys"
	"github.com/easel-dev/easel/internal/log"
	"github.com/easel-dev/easel/internal/paths"
	"github.com/easel-dev/easel/internal/steps"
	"github.com/easel-dev/easel/internal/ui/toaster"
)

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.filtering {
		return m.handleFilterKey(msg)
	}

	switch {
	case key.Matches(msg, keys.Extensions.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Extensions.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		return m, nil

	case key.Matches(msg, keys.Extensions.ClearFilter):
		if m.run != nil {
			return m.handleCancelRun()
		}
		if m.filter.Value() != "" {
			return m.clearFilter(), nil
		}
		return m, nil

	case key.Matches(msg, keys.Extensions.Filter):
		m.filtering = true
		m.filter.Focus()
		return m, nil

	case key.Matches(msg, keys.Extensions.Up):
		return m.moveCursor(-1), nil

	case key.Matches(msg, keys.Extensions.Down):
		return m.moveCursor(1), nil

	case key.Matches(msg, keys.Extensions.SwitchPane):
		if m.focus == paneAvailable {
			m.focus = paneInstalled
		} else {
			m.focus = paneAvailable
		}
		return m.renderDetail(), nil

	case key.Matches(msg, keys.Extensions.Select):
		return m.toggleSelection(), nil

	case key.Matches(msg, keys.Extensions.Install):
		return m.handleInstall()

	case key.Matches(msg, keys.Extensions.Uninstall):
		return m.handleUninstall()

	case key.Matches(msg, keys.Extensions.Update):
		return m.handleUpdate()

	case key.Matches(msg, keys.Extensions.Toggle):
		return m.handleToggle()

	case key.Matches(msg, keys.Extensions.Refresh):
		return m.handleRefresh()
	}

	return m, nil
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Extensions.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Extensions.ClearFilter):
		return m.clearFilter(), nil

	case msg.Type == tea.KeyEnter:
		m.filtering = false
		m.filter.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m = m.applyFilter(m.filter.Value())
	return m, cmd
}

// handleMouse moves the cursor to a clicked row.
func (m Model) handleMouse(msg tea.MouseMsg) (Model, tea.Cmd) {
	if msg.Button != tea.MouseButtonLeft || msg.Action != tea.MouseActionRelease {
		return m, nil
	}

	for i := 0; i < m.availView.VisibleLen(); i++ {
		if z := zone.Get(makeAvailableZoneID(i)); z != nil && z.InBounds(msg) {
			m.focus = paneAvailable
			m.availIdx = i
			return m.renderDetail(), nil
		}
	}
	for i := 0; i < m.instView.VisibleLen(); i++ {
		if z := zone.Get(makeInstalledZoneID(i)); z != nil && z.InBounds(msg) {
			m.focus = paneInstalled
			m.instIdx = i
			return m.renderDetail(), nil
		}
	}
	return m, nil
}

// clearFilter drops the query and restores the unfiltered lists.
func (m Model) clearFilter() Model {
	m.filtering = false
	m.filter.Blur()
	m.filter.SetValue("")
	return m.applyFilter("")
}

// applyFilter narrows both panes with the same query.
func (m Model) applyFilter(query string) Model {
	m.availView.SetFilter(query)
	m.instView.SetFilter(query)
	m = m.clampCursors()
	return m.renderDetail()
}

func (m Model) moveCursor(delta int) Model {
	switch m.focus {
	case paneAvailable:
		m.availIdx = wrapIndex(m.availIdx+delta, m.availView.VisibleLen())
	case paneInstalled:
		m.instIdx = wrapIndex(m.instIdx+delta, m.instView.VisibleLen())
	}
	return m.renderDetail()
}

func wrapIndex(idx, n int) int {
	if n == 0 {
		return 0
	}
	return ((idx % n) + n) % n
}

// toggleSelection flips the selection flag on the row under the cursor.
// The selected set reflects the flip within the same Update step.
func (m Model) toggleSelection() Model {
	switch m.focus {
	case paneAvailable:
		if sel, ok := m.availView.At(m.availIdx); ok {
			m.availView.Toggle(sel.Item.Identity())
		}
	case paneInstalled:
		if sel, ok := m.instView.At(m.instIdx); ok {
			m.instView.Toggle(sel.Item.Identity())
		}
	}
	return m
}

// actionBlocked rejects workflow actions while a run is in flight or no
// runner was wired up.
func (m Model) actionBlocked() (bool, tea.Cmd) {
	if m.run != nil {
		return true, showToast("A step run is already in progress", toaster.StyleInfo)
	}
	if m.services.Runner == nil {
		return true, showToast("Step runner not available", toaster.StyleWarn)
	}
	return false, nil
}

// selectedAvailable returns the items an available-pane action targets:
// the selection, or the row under the cursor when nothing is selected.
func (m Model) selectedAvailable() []ext.Extension {
	items := m.availView.SelectedItems()
	if len(items) == 0 && m.focus == paneAvailable {
		if sel, ok := m.availView.At(m.availIdx); ok {
			items = []ext.Extension{sel.Item}
		}
	}
	return items
}

// selectedInstalled is selectedAvailable for the installed pane.
func (m Model) selectedInstalled() []ext.InstalledExtension {
	items := m.instView.SelectedItems()
	if len(items) == 0 && m.focus == paneInstalled {
		if sel, ok := m.instView.At(m.instIdx); ok {
			items = []ext.InstalledExtension{sel.Item}
		}
	}
	return items
}

func (m Model) handleInstall() (Model, tea.Cmd) {
	if blocked, cmd := m.actionBlocked(); blocked {
		return m, cmd
	}
	items := m.selectedAvailable()
	if len(items) == 0 {
		return m, showToast("Nothing selected to install", toaster.StyleInfo)
	}

	targetDir := paths.CustomNodesDir(m.packageDir)
	ss := make([]steps.Step, 0, len(items))
	for _, item := range items {
		ss = append(ss, steps.InstallExtension{Extension: item, TargetDir: targetDir, Git: m.services.Git})
	}
	return m.startRun("Install", ss)
}

func (m Model) handleUninstall() (Model, tea.Cmd) {
	if blocked, cmd := m.actionBlocked(); blocked {
		return m, cmd
	}
	items := m.selectedInstalled()
	if len(items) == 0 {
		return m, showToast("Nothing selected to uninstall", toaster.StyleInfo)
	}

	ss := make([]steps.Step, 0, len(items))
	for _, item := range items {
		ss = append(ss, steps.UninstallExtension{Installed: item})
	}
	return m.startRun("Uninstall", ss)
}

func (m Model) handleUpdate() (Model, tea.Cmd) {
	if blocked, cmd := m.actionBlocked(); blocked {
		return m, cmd
	}
	items := m.selectedInstalled()
	if len(items) == 0 {
		return m, showToast("Nothing selected to update", toaster.StyleInfo)
	}

	ss := make([]steps.Step, 0, len(items))
	for _, item := range items {
		ss = append(ss, steps.UpdateExtension{Installed: item, Git: m.services.Git})
	}
	return m.startRun("Update", ss)
}

func (m Model) handleToggle() (Model, tea.Cmd) {
	if blocked, cmd := m.actionBlocked(); blocked {
		return m, cmd
	}
	items := m.selectedInstalled()
	if len(items) == 0 {
		return m, showToast("Nothing selected to enable or disable", toaster.StyleInfo)
	}

	ss := make([]steps.Step, 0, len(items))
	for _, item := range items {
		ss = append(ss, steps.ToggleExtension{Installed: item})
	}
	return m.startRun("Toggle", ss)
}

func (m Model) handleRefresh() (Model, tea.Cmd) {
	if m.run != nil {
		return m, showToast("A step run is already in progress", toaster.StyleInfo)
	}
	if m.refreshing {
		return m, nil
	}
	if m.services.Index == nil && m.services.Scanner == nil {
		return m, showToast("No catalog sources configured", toaster.StyleWarn)
	}

	if m.services.Index != nil {
		m.services.Index.Invalidate(m.ctx)
	}
	m.refreshing = true
	log.Info(log.CatExt, "refreshing extension catalog")
	return m, tea.Batch(refreshCmd(m.ctx, m.services.Index, m.services.Scanner, m.packageDir), m.spin.Tick)
}

// handleCancelRun stops the runner between steps. The run command
// returns ctx.Err() and delivers runFinishedMsg.
func (m Model) handleCancelRun() (Model, tea.Cmd) {
	if m.runCancel != nil {
		m.runCancel()
	}
	return m, nil
}
