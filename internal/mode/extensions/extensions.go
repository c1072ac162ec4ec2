// Package extensions implements the extension catalog mode controller.
package extensions

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	ext "github.com/easel-dev/easel/internal/extensions"
	"github.com/easel-dev/easel/internal/log"
	"github.com/easel-dev/easel/internal/mode"
	"github.com/easel-dev/easel/internal/paths"
	"github.com/easel-dev/easel/internal/pubsub"
	"github.com/easel-dev/easel/internal/steps"
	"github.com/easel-dev/easel/internal/store"
	"github.com/easel-dev/easel/internal/ui/markdown"
	"github.com/easel-dev/easel/internal/ui/styles"
	"github.com/easel-dev/easel/internal/ui/toaster"
)

// pane identifies which list has focus.
type pane int

const (
	paneAvailable pane = iota
	paneInstalled
)

// Model is the extensions mode state.
type Model struct {
	services mode.Services

	// ctx spans the mode's lifetime and governs the run listener.
	ctx    context.Context
	cancel context.CancelFunc

	// Catalog stores and their selectable projections. Stores are the
	// source of truth, views carry filter and selection state.
	available *store.Store[ext.Extension]
	installed *store.Store[ext.InstalledExtension]
	availView *store.View[ext.Extension]
	instView  *store.View[ext.InstalledExtension]

	// installedIDs marks catalog identities that match an installed
	// extension, rebuilt on every refresh.
	installedIDs map[string]struct{}

	focus    pane
	availIdx int
	instIdx  int

	filtering bool
	filter    textinput.Model

	help     help.Model
	showHelp bool
	spin     spinner.Model

	width  int
	height int

	md     *markdown.Renderer
	detail string

	packageDir string
	refreshing bool

	// In-flight step run. runCtx governs the runner; runCancel stops it
	// between steps.
	run         *runState
	runCtx      context.Context
	runCancel   context.CancelFunc
	runListener *pubsub.ContinuousListener[steps.ProgressEvent]
}

// runState tracks the step run currently executing.
type runState struct {
	index int
	total int
	name  string
}

// New creates a new extensions mode controller.
func New(services mode.Services) Model {
	ctx, cancel := context.WithCancel(context.Background())

	packageDir := ""
	if services.Config != nil {
		packageDir = paths.ResolvePackageDir(services.Config.Package.Dir)
	}

	filter := textinput.New()
	filter.Prompt = "/ "
	filter.Placeholder = "type to filter"

	m := Model{
		services:     services,
		ctx:          ctx,
		cancel:       cancel,
		available:    store.New[ext.Extension](),
		installed:    store.New[ext.InstalledExtension](),
		availView:    store.NewView(availableText),
		instView:     store.NewView(installedText),
		installedIDs: map[string]struct{}{},
		filter:       filter,
		help:         help.New(),
		spin:         spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(lipgloss.NewStyle().Foreground(styles.SpinnerColor))),
		packageDir:   packageDir,
		refreshing:   services.Index != nil || services.Scanner != nil,
	}
	if services.Runner != nil {
		m.runListener = pubsub.NewContinuousListener(ctx, services.Runner.Events())
	}
	return m
}

// availableText is the filter corpus for catalog entries.
func availableText(e ext.Extension) string {
	return e.Title + " " + e.Author + " " + e.Description
}

// installedText is the filter corpus for installed entries.
func installedText(e ext.InstalledExtension) string {
	return e.Title + " " + e.RepositoryURL
}

// Init returns initial commands for the mode.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spin.Tick}
	if m.refreshing {
		cmds = append(cmds, refreshCmd(m.ctx, m.services.Index, m.services.Scanner, m.packageDir))
	}
	if m.runListener != nil {
		cmds = append(cmds, m.runListener.Listen())
	}
	return tea.Batch(cmds...)
}

// SetSize handles terminal resize.
func (m Model) SetSize(width, height int) Model {
	m.width = width
	m.height = height
	m.help.Width = width

	detailWidth := width - 4
	if detailWidth < 20 {
		detailWidth = 20
	}
	style := ""
	if m.services.Config != nil {
		style = m.services.Config.UI.MarkdownStyle
	}
	r, err := markdown.NewWithStyle(detailWidth, style)
	if err != nil {
		log.ErrorErr(log.CatUI, "building markdown renderer failed", err)
	} else {
		m.md = r
	}
	return m.renderDetail()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case refreshedMsg:
		return m.handleRefreshed(msg)

	case pubsub.Event[steps.ProgressEvent]:
		return m.handleRunProgress(msg)

	case runFinishedMsg:
		return m.handleRunFinished(msg)
	}

	return m, nil
}

// Running reports whether a step run is currently executing.
func (m Model) Running() bool {
	return m.run != nil
}

// Close releases the mode's listeners and any in-flight run.
func (m *Model) Close() error {
	if m.runCancel != nil {
		m.runCancel()
	}
	if m.cancel != nil {
		m.cancel()
	}
	return nil
}

// busy reports whether the spinner should keep animating.
func (m Model) busy() bool {
	return m.refreshing || m.run != nil
}

func (m Model) handleRefreshed(msg refreshedMsg) (Model, tea.Cmd) {
	m.refreshing = false

	avail, inst := msg.available, msg.installed
	if !msg.synced {
		// A source that failed keeps its current contents so the other
		// side still refreshes.
		if msg.availableErr != nil {
			avail = m.available.Items()
		}
		if msg.installedErr != nil {
			inst = m.installed.Items()
		}
		avail, inst = ext.Synchronize(avail, inst)
	}

	m.availView.ApplyAll(m.available.Reset(avail))
	m.instView.ApplyAll(m.installed.Reset(inst))
	m = m.rebuildInstalledIDs()
	m = m.clampCursors()
	m = m.renderDetail()

	var cmds []tea.Cmd
	if msg.availableErr != nil {
		log.ErrorErr(log.CatExt, "catalog fetch failed", msg.availableErr)
		cmds = append(cmds, showToast("Catalog fetch failed: "+msg.availableErr.Error(), toaster.StyleError))
	}
	if msg.installedErr != nil {
		if errors.Is(msg.installedErr, ext.ErrUnsupported) {
			log.Warn(log.CatExt, "package has no custom_nodes directory", "dir", m.packageDir)
			cmds = append(cmds, showToast("Package has no custom_nodes directory", toaster.StyleWarn))
		} else {
			log.ErrorErr(log.CatExt, "installed scan failed", msg.installedErr)
			cmds = append(cmds, showToast("Installed scan failed: "+msg.installedErr.Error(), toaster.StyleError))
		}
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleRunProgress(ev pubsub.Event[steps.ProgressEvent]) (Model, tea.Cmd) {
	var cmds []tea.Cmd
	if m.runListener != nil {
		cmds = append(cmds, m.runListener.Listen())
	}
	if m.run != nil {
		m.run.index = ev.Payload.Index
		m.run.total = ev.Payload.Total
		m.run.name = ev.Payload.Name
		if ev.Payload.Done && ev.Payload.Err != nil {
			log.Warn(log.CatExt, "step failed", "step", ev.Payload.Name, "error", ev.Payload.Err)
		}
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleRunFinished(msg runFinishedMsg) (Model, tea.Cmd) {
	m = m.resetRun()

	// Selection is cleared and both caches refresh regardless of the
	// run's outcome.
	m.availView.ClearSelection()
	m.instView.ClearSelection()
	m.refreshing = true
	cmds := []tea.Cmd{
		refreshCmd(m.ctx, m.services.Index, m.services.Scanner, m.packageDir),
		m.spin.Tick,
	}

	switch {
	case msg.err == nil:
		noun := "steps"
		if msg.total == 1 {
			noun = "step"
		}
		log.Info(log.CatExt, "step run finished", "verb", msg.verb, "steps", msg.total)
		cmds = append(cmds, showToast(fmt.Sprintf("%s finished: %d %s completed", msg.verb, msg.total, noun), toaster.StyleSuccess))
	case errors.Is(msg.err, context.Canceled):
		log.Debug(log.CatExt, "step run cancelled", "verb", msg.verb)
		cmds = append(cmds, showToast(msg.verb+" cancelled", toaster.StyleInfo))
	default:
		log.ErrorErr(log.CatExt, "step run failed", msg.err, "verb", msg.verb)
		cmds = append(cmds, showToast(msg.verb+" failed: "+msg.err.Error(), toaster.StyleError))
	}
	return m, tea.Batch(cmds...)
}

// startRun hands the steps to the runner on a cancellable context.
func (m Model) startRun(verb string, ss []steps.Step) (Model, tea.Cmd) {
	ctx, cancel := context.WithCancel(m.ctx)
	m.runCtx = ctx
	m.runCancel = cancel
	m.run = &runState{total: len(ss)}

	log.Info(log.CatExt, "starting step run", "verb", verb, "steps", len(ss))
	return m, tea.Batch(runCmd(ctx, m.services.Runner, verb, ss), m.spin.Tick)
}

// resetRun clears the in-flight run state and releases its context.
func (m Model) resetRun() Model {
	if m.runCancel != nil {
		m.runCancel()
		m.runCancel = nil
	}
	m.run = nil
	m.runCtx = nil
	return m
}

// rebuildInstalledIDs indexes which catalog entries have a matching
// installed extension so the available pane can mark them.
func (m Model) rebuildInstalledIDs() Model {
	ids := make(map[string]struct{})
	for _, inst := range m.installed.Items() {
		if inst.Definition != nil {
			ids[inst.Definition.Identity()] = struct{}{}
		}
	}
	m.installedIDs = ids
	return m
}

func (m Model) clampCursors() Model {
	m.availIdx = clampIndex(m.availIdx, m.availView.VisibleLen())
	m.instIdx = clampIndex(m.instIdx, m.instView.VisibleLen())
	return m
}

func clampIndex(idx, n int) int {
	if n == 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	if idx < 0 {
		return 0
	}
	return idx
}

// Message types

type refreshedMsg struct {
	available    []ext.Extension
	availableErr error
	installed    []ext.InstalledExtension
	installedErr error

	// synced is set when both sources loaded and the command already
	// reconciled them.
	synced bool
}

type runFinishedMsg struct {
	verb  string
	total int
	err   error
}
