// Package app contains the root application model.
package app

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"github.com/easel-dev/easel/internal/comfy"
	"github.com/easel-dev/easel/internal/config"
	ext "github.com/easel-dev/easel/internal/extensions"
	"github.com/easel-dev/easel/internal/git"
	"github.com/easel-dev/easel/internal/history"
	"github.com/easel-dev/easel/internal/keys"
	"github.com/easel-dev/easel/internal/log"
	"github.com/easel-dev/easel/internal/mode"
	"github.com/easel-dev/easel/internal/mode/extensions"
	"github.com/easel-dev/easel/internal/mode/generate"
	"github.com/easel-dev/easel/internal/pubsub"
	"github.com/easel-dev/easel/internal/steps"
	"github.com/easel-dev/easel/internal/ui/logoverlay"
	"github.com/easel-dev/easel/internal/ui/toaster"
	"github.com/easel-dev/easel/internal/watcher"
)

// Model is the root application state.
type Model struct {
	// Mode management
	currentMode mode.AppMode
	generate    generate.Model
	extensions  extensions.Model

	// Extensions mode starts its catalog refresh on first entry.
	extensionsStarted bool

	// Shared services (passed to mode controllers)
	services mode.Services

	// Global state
	width  int
	height int

	// Centralized toaster - owned by app, not individual modes
	toaster toaster.Model

	debugMode  bool
	logOverlay logoverlay.Model
	logCancel  context.CancelFunc
	// logListener feeds the overlay refresh loop. Nil unless debug mode
	// is on and the logger is initialized.
	logListener *log.LogListener

	// File watcher for gallery auto-refresh (pubsub-based)
	watcherHandle   *watcher.Watcher
	watcherCtx      context.Context
	watcherCancel   context.CancelFunc
	watcherListener *pubsub.ContinuousListener[watcher.WatcherEvent]
}

// NewWithConfig creates a new application model with the provided
// configuration. client talks to the inference backend; historyRepo may be
// nil when history is disabled. configPath is the config file location used
// for error messages and future writes. debugMode enables the log overlay
// toggle.
func NewWithConfig(
	client *comfy.Client,
	cfg config.Config,
	historyRepo history.Repository,
	configPath string,
	debugMode bool,
) Model {
	// Initialize the output watcher when the package has an output
	// directory to observe
	var (
		watcherHandle   *watcher.Watcher
		watcherCtx      context.Context
		watcherCancel   context.CancelFunc
		watcherListener *pubsub.ContinuousListener[watcher.WatcherEvent]
	)

	if dir := cfg.Package.OutputDirFor(); dir != "" {
		w, err := watcher.New(watcher.DefaultConfig(dir))
		if err == nil {
			if err := w.Start(); err == nil {
				watcherHandle = w
				watcherCtx, watcherCancel = context.WithCancel(context.Background())
				watcherListener = pubsub.NewContinuousListener(watcherCtx, w.Broker())
			} else {
				// Cleanup on start failure
				_ = w.Stop()
			}
		}
		// Silently ignore watcher init errors - the gallery still
		// refreshes after each finished job without auto-refresh
	}

	gitExec := git.NewRealExecutor()

	var index *ext.Index
	if len(cfg.Extensions.ManifestURLs) > 0 {
		ttl := time.Duration(cfg.Extensions.CacheTTLSeconds) * time.Second
		index = ext.NewIndex(cfg.Extensions.ManifestURLs, ttl)
	}

	var scanner *ext.InstalledScanner
	if cfg.Package.Dir != "" {
		scanner = ext.NewInstalledScanner(gitExec)
	}

	// Create shared services
	services := mode.Services{
		Client:     client,
		Index:      index,
		Scanner:    scanner,
		Git:        gitExec,
		Runner:     steps.NewRunner(),
		History:    historyRepo,
		Config:     &cfg,
		ConfigPath: configPath,
	}

	// Create log overlay; in debug mode subscribe to the log broker so
	// the overlay refreshes while visible
	overlay := logoverlay.New()
	var (
		logListener *log.LogListener
		logCancel   context.CancelFunc
	)
	if debugMode {
		var logCtx context.Context
		logCtx, logCancel = context.WithCancel(context.Background())
		logListener = log.NewListener(logCtx)
	}

	return Model{
		currentMode:     mode.ModeGenerate,
		generate:        generate.New(services),
		extensions:      extensions.New(services),
		services:        services,
		logOverlay:      overlay,
		debugMode:       debugMode,
		logCancel:       logCancel,
		logListener:     logListener,
		watcherHandle:   watcherHandle,
		watcherCtx:      watcherCtx,
		watcherCancel:   watcherCancel,
		watcherListener: watcherListener,
	}
}

// Init implements tea.Model. The application starts in generate mode; the
// extensions mode initializes on first entry.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.generate.Init(),
	}

	// Start watcher listener if available
	if m.watcherListener != nil {
		cmds = append(cmds, m.watcherListener.Listen())
	}

	if m.logListener != nil {
		cmds = append(cmds, m.logListener.Listen())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		m.generate = m.generate.SetSize(msg.Width, msg.Height)
		m.extensions = m.extensions.SetSize(msg.Width, msg.Height)
		m.toaster = m.toaster.SetSize(msg.Width, msg.Height)
		m.logOverlay.SetSize(msg.Width, msg.Height)

		return m, nil

	case log.LogEvent:
		// The overlay reads the shared log buffer; nudge it and re-arm
		m.logOverlay.Refresh()
		if m.logListener != nil {
			return m, m.logListener.Listen()
		}
		return m, nil

	case tea.KeyMsg:
		if m.debugMode && key.Matches(msg, keys.Global.ToggleLogs) {
			m.logOverlay.Toggle()
			return m, nil
		}

		// If the debug log overlay is visible it takes precedence for updates
		if m.logOverlay.Visible() {
			var cmd tea.Cmd
			m.logOverlay, cmd = m.logOverlay.Update(msg)

			return m, cmd
		}

		// Handle global mode switching between Generate and Extensions
		// (Ctrl+Space, which is ctrl+@ in terminals)
		if key.Matches(msg, keys.Global.SwitchMode) {
			return m.switchMode()
		}

	case tea.MouseMsg:
		// Route mouse events to log overlay when visible
		if m.logOverlay.Visible() {
			var cmd tea.Cmd
			m.logOverlay, cmd = m.logOverlay.Update(msg)
			return m, cmd
		}

	case pubsub.Event[watcher.WatcherEvent]:
		switch msg.Payload.Type {
		case watcher.OutputChanged:
			log.Debug(log.CatMode, "Output directory changed, refreshing gallery", "path", msg.Payload.Path)
			var cmd tea.Cmd
			m.generate, cmd = m.generate.HandleOutputChanged()
			return m, tea.Batch(cmd, m.watcherListener.Listen())

		case watcher.WatcherError:
			log.Warn(log.CatWatcher, "Watcher error received", "error", msg.Payload.Err)
			return m, m.watcherListener.Listen()
		}

		// Continue listening for unknown event types
		return m, m.watcherListener.Listen()

	case mode.ShowToastMsg:
		m.toaster = m.toaster.Show(msg.Message, msg.Style)

		return m, toaster.ScheduleDismiss(toaster.DefaultDuration)

	case toaster.DismissMsg:
		m.toaster = m.toaster.Hide()

		return m, nil

	case logoverlay.CloseMsg:
		m.logOverlay.Hide()

		return m, nil
	}

	// Key and mouse input goes to the active mode only. Everything else
	// (listener events, command results) fans out to both modes so a
	// generation or step run keeps progressing across mode switches.
	switch msg.(type) {
	case tea.KeyMsg, tea.MouseMsg:
		var cmd tea.Cmd
		switch m.currentMode {
		case mode.ModeExtensions:
			m.extensions, cmd = m.extensions.Update(msg)
		default:
			m.generate, cmd = m.generate.Update(msg)
		}
		return m, cmd
	}

	var (
		cmds []tea.Cmd
		cmd  tea.Cmd
	)
	m.generate, cmd = m.generate.Update(msg)
	cmds = append(cmds, cmd)
	m.extensions, cmd = m.extensions.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// switchMode toggles between the generate and extensions modes.
func (m Model) switchMode() (tea.Model, tea.Cmd) {
	switch m.currentMode {
	case mode.ModeGenerate:
		log.Info(log.CatMode, "Switching mode", "from", "generate", "to", "extensions")
		m.currentMode = mode.ModeExtensions

		// First entry kicks off the catalog refresh and step listener
		if !m.extensionsStarted {
			m.extensionsStarted = true
			return m, m.extensions.Init()
		}
		return m, nil

	case mode.ModeExtensions:
		log.Info(log.CatMode, "Switching mode", "from", "extensions", "to", "generate")
		m.currentMode = mode.ModeGenerate
		return m, nil
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var view string
	switch m.currentMode {
	case mode.ModeExtensions:
		view = m.extensions.View()
	default:
		view = m.generate.View()
	}

	// Overlay toaster on top of active mode's view
	if m.toaster.Visible() {
		view = m.toaster.Overlay(view, m.width, m.height)
	}

	// Overlay log viewer on top (only in debug mode when visible)
	if m.debugMode && m.logOverlay.Visible() {
		view = m.logOverlay.Overlay(view)
	}

	// Resolve click zones over the final composition
	return zone.Scan(view)
}

// Close releases resources held by the application.
func (m *Model) Close() error {
	// Close mode controllers
	if err := m.generate.Close(); err != nil {
		return err
	}
	if err := m.extensions.Close(); err != nil {
		return err
	}

	// Cancel log subscription context (stops listener)
	if m.logCancel != nil {
		m.logCancel()
	}

	// Cancel watcher subscription context (stops listener)
	if m.watcherCancel != nil {
		m.watcherCancel()
	}

	// Close watcher if we own it
	if m.watcherHandle != nil {
		if err := m.watcherHandle.Stop(); err != nil {
			return err
		}
	}

	return nil
}
