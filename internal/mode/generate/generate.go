// Package generate implements the image generation mode controller.
package generate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.opentelemetry.io/otel/trace"

	"github.com/easel-dev/easel/internal/comfy"
	"github.com/easel-dev/easel/internal/config"
	"github.com/easel-dev/easel/internal/generation"
	"github.com/easel-dev/easel/internal/log"
	"github.com/easel-dev/easel/internal/mode"
	"github.com/easel-dev/easel/internal/pubsub"
	"github.com/easel-dev/easel/internal/ui/styles"
	"github.com/easel-dev/easel/internal/ui/toaster"
)

// Model is the generate mode state.
type Model struct {
	services mode.Services

	// ctx spans the mode's lifetime and governs the status listener.
	ctx    context.Context
	cancel context.CancelFunc

	// Parameter form
	params  generation.Params
	cursor  int
	editing bool
	input   textinput.Model

	help     help.Model
	showHelp bool

	spin     spinner.Model
	progress progress.Model

	width  int
	height int

	// Backend state
	connecting     bool
	connected      bool
	stats          *comfy.SystemStats
	queue          comfy.QueueStatus
	statusListener *pubsub.ContinuousListener[comfy.Status]

	// In-flight job state. jobCtx governs the progress/preview streams
	// and the wait command; jobCancel tears all three down at once.
	job          *comfy.Job
	jobCtx       context.Context
	jobCancel    context.CancelFunc
	jobStart     time.Time
	jobProgress  <-chan pubsub.Event[comfy.Progress]
	jobPreviews  <-chan pubsub.Event[[]byte]
	prog         comfy.Progress
	previewCount int
	previewSize  int

	// Results gallery
	results   []generation.Image
	resultIdx int

	// Choice lists fetched from the backend's object info
	models     []string
	samplers   []string
	schedulers []string

	resolver  *generation.Resolver
	outputDir string

	showStatusBar bool
}

// New creates a new generate mode controller.
func New(services mode.Services) Model {
	ctx, cancel := context.WithCancel(context.Background())

	params := defaultParams(services.Config)

	viewURL := func(comfy.ImageRef) string { return "" }
	if services.Client != nil {
		viewURL = services.Client.ViewURL
	}
	outputDir := ""
	showStatusBar := true
	if services.Config != nil {
		outputDir = services.Config.Package.OutputDirFor()
		showStatusBar = services.Config.UI.ShowStatusBar
	}

	m := Model{
		services:      services,
		ctx:           ctx,
		cancel:        cancel,
		params:        params,
		input:         textinput.New(),
		help:          help.New(),
		spin:          spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(lipgloss.NewStyle().Foreground(styles.SpinnerColor))),
		progress:      progress.New(progress.WithGradient(styles.ProgressGradientStart, styles.ProgressGradientEnd)),
		connecting:    services.Client != nil,
		resolver:      generation.NewResolver(outputDir, viewURL),
		outputDir:     outputDir,
		showStatusBar: showStatusBar,
	}
	if services.Client != nil {
		m.statusListener = pubsub.NewContinuousListener(ctx, services.Client.StatusBroker())
	}
	return m
}

// defaultParams seeds the form from the config's generation section.
func defaultParams(cfg *config.Config) generation.Params {
	p := generation.Params{
		Seed: generation.NewSeed(),
		Hires: generation.HiresParams{
			UpscaleMethod: upscaleMethods[0],
			Scale:         2.0,
			Steps:         12,
			CfgScale:      7.0,
			Denoise:       0.55,
		},
	}
	if cfg == nil {
		return p
	}
	g := cfg.Generation
	p.Model = g.Model
	p.Width = g.Width
	p.Height = g.Height
	p.BatchSize = g.BatchSize
	p.Steps = g.Steps
	p.CfgScale = g.CfgScale
	p.SamplerName = g.SamplerName
	p.Scheduler = g.Scheduler
	p.Denoise = g.Denoise
	p.RandomizeSeed = g.RandomizeSeed
	p.PositivePrompt = g.PositivePrompt
	p.NegativePrompt = g.NegativePrompt
	return p
}

// Init returns initial commands for the mode.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spin.Tick, loadGalleryCmd(m.outputDir)}
	if m.services.Client != nil && !m.services.Client.Connected() {
		cmds = append(cmds, connectCmd(m.ctx, m.services.Client))
	}
	if m.statusListener != nil {
		cmds = append(cmds, m.statusListener.Listen())
	}
	return tea.Batch(cmds...)
}

// SetSize handles terminal resize.
func (m Model) SetSize(width, height int) Model {
	m.width = width
	m.height = height
	m.help.Width = width
	return m
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case connectedMsg:
		return m.handleConnected(msg)

	case choicesLoadedMsg:
		return m.handleChoicesLoaded(msg)

	case queueStatusMsg:
		if msg.err != nil {
			log.Debug(log.CatComfy, "queue status fetch failed", "error", msg.err)
			return m, nil
		}
		m.queue = msg.status
		return m, nil

	case pubsub.Event[comfy.Status]:
		return m.handleStatusEvent(msg)

	case pubsub.Event[comfy.Progress]:
		return m.handleProgressEvent(msg)

	case pubsub.Event[[]byte]:
		return m.handlePreviewEvent(msg)

	case jobQueuedMsg:
		return m.handleJobQueued(msg)

	case jobFinishedMsg:
		return m.handleJobFinished(msg)

	case jobCancelledMsg:
		return m.handleJobCancelled()

	case resultsMsg:
		return m.handleResults(msg)

	case galleryLoadedMsg:
		return m.handleGalleryLoaded(msg)

	case historySavedMsg:
		if msg.err != nil {
			log.ErrorErr(log.CatDB, "saving generation history failed", msg.err)
		}
		return m, nil
	}

	return m, nil
}

// HandleOutputChanged refreshes the gallery after the watcher reports a
// change in the output directory.
func (m Model) HandleOutputChanged() (Model, tea.Cmd) {
	return m, loadGalleryCmd(m.outputDir)
}

// Generating reports whether a job is currently in flight.
func (m Model) Generating() bool {
	return m.job != nil
}

// Close releases the mode's listeners and any in-flight job resources.
func (m *Model) Close() error {
	if m.jobCancel != nil {
		m.jobCancel()
	}
	if m.cancel != nil {
		m.cancel()
	}
	return nil
}

// busy reports whether the spinner should keep animating.
func (m Model) busy() bool {
	return m.connecting || m.job != nil
}

func (m Model) handleConnected(msg connectedMsg) (Model, tea.Cmd) {
	m.connecting = false
	if msg.err != nil {
		m.connected = false
		log.ErrorErr(log.CatComfy, "connect failed", msg.err)
		return m, showToast("Backend unreachable: "+msg.err.Error(), toaster.StyleError)
	}
	m.connected = true
	m.stats = msg.stats
	return m, tea.Batch(
		loadChoicesCmd(m.ctx, m.services.Client),
		queueStatusCmd(m.ctx, m.services.Client),
	)
}

func (m Model) handleChoicesLoaded(msg choicesLoadedMsg) (Model, tea.Cmd) {
	if msg.err != nil {
		log.ErrorErr(log.CatComfy, "loading node choices failed", msg.err)
		return m, showToast("Could not load backend choices: "+msg.err.Error(), toaster.StyleWarn)
	}
	m.models = msg.models
	m.samplers = msg.samplers
	m.schedulers = msg.schedulers

	// Snap unset selections to the first advertised choice.
	if m.params.Model == "" && len(m.models) > 0 {
		m.params.Model = m.models[0]
	}
	if m.params.SamplerName == "" && len(m.samplers) > 0 {
		m.params.SamplerName = m.samplers[0]
	}
	if m.params.Scheduler == "" && len(m.schedulers) > 0 {
		m.params.Scheduler = m.schedulers[0]
	}
	return m, nil
}

func (m Model) handleStatusEvent(ev pubsub.Event[comfy.Status]) (Model, tea.Cmd) {
	wasConnected := m.connected
	m.connected = ev.Payload.Connected

	var cmds []tea.Cmd
	if m.statusListener != nil {
		cmds = append(cmds, m.statusListener.Listen())
	}
	switch {
	case !ev.Payload.Connected && wasConnected:
		log.Warn(log.CatComfy, "backend disconnected")
		cmds = append(cmds, showToast("Backend disconnected", toaster.StyleWarn))
	case ev.Payload.Connected && m.services.Client != nil:
		cmds = append(cmds, queueStatusCmd(m.ctx, m.services.Client))
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleSubmit() (Model, tea.Cmd) {
	if m.editing {
		var cmd tea.Cmd
		m, cmd = m.commitEdit(0)
		if m.editing {
			return m, cmd
		}
	}
	if m.job != nil {
		return m, showToast("A generation is already running", toaster.StyleInfo)
	}
	if m.services.Client == nil || !m.services.Client.Connected() {
		return m, showToast("Backend not connected", toaster.StyleWarn)
	}

	if m.params.RandomizeSeed {
		m.params.Seed = generation.NewSeed()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.jobCtx = ctx
	m.jobCancel = cancel

	log.Info(log.CatGen, "queueing generation",
		"model", m.params.Model,
		"seed", m.params.Seed,
		"size", fmt.Sprintf("%dx%d", m.params.Width, m.params.Height),
		"batch", m.params.BatchSize,
		"hires", m.params.HiresFix)

	return m, tea.Batch(queueCmd(ctx, m.services.Client, m.params), m.spin.Tick)
}

func (m Model) handleJobQueued(msg jobQueuedMsg) (Model, tea.Cmd) {
	if msg.err != nil {
		if m.jobCancel != nil {
			m.jobCancel()
			m.jobCancel = nil
		}
		m.jobCtx = nil
		log.ErrorErr(log.CatGen, "queue prompt failed", msg.err)
		var apiErr *comfy.APIError
		if errors.As(msg.err, &apiErr) {
			return m, showToast("Backend rejected the prompt: "+apiErr.Message, toaster.StyleError)
		}
		return m, showToast("Submit failed: "+msg.err.Error(), toaster.StyleError)
	}

	m.job = msg.job
	m.jobStart = msg.start
	m.prog = comfy.Progress{}
	m.previewCount = 0
	m.previewSize = 0

	// Preview stream first, progress second, matching the order the
	// backend starts emitting them.
	m.jobPreviews = msg.job.Previews(m.jobCtx)
	m.jobProgress = msg.job.Progress(m.jobCtx)

	log.Info(log.CatGen, "job queued", "prompt_id", msg.job.ID(), "number", msg.job.Number())

	cmds := []tea.Cmd{
		pubsub.ListenCmd(m.jobCtx, m.jobPreviews),
		pubsub.ListenCmd(m.jobCtx, m.jobProgress),
		waitCmd(m.jobCtx, msg.job, msg.span, msg.start),
	}
	if m.services.Client != nil {
		cmds = append(cmds, queueStatusCmd(m.ctx, m.services.Client))
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleProgressEvent(ev pubsub.Event[comfy.Progress]) (Model, tea.Cmd) {
	m.prog = ev.Payload
	if m.jobCtx == nil {
		return m, nil
	}
	return m, pubsub.ListenCmd(m.jobCtx, m.jobProgress)
}

func (m Model) handlePreviewEvent(ev pubsub.Event[[]byte]) (Model, tea.Cmd) {
	m.previewCount++
	m.previewSize = len(ev.Payload)
	if m.jobCtx == nil {
		return m, nil
	}
	return m, pubsub.ListenCmd(m.jobCtx, m.jobPreviews)
}

func (m Model) handleJobFinished(msg jobFinishedMsg) (Model, tea.Cmd) {
	m = m.resetJob()

	var cmds []tea.Cmd
	if msg.err != nil {
		log.ErrorErr(log.CatGen, "generation failed", msg.err)
		cmds = append(cmds, showToast("Generation failed: "+msg.err.Error(), toaster.StyleError))
	} else {
		log.Info(log.CatGen, "generation finished",
			"images", countImages(msg.outputs),
			"elapsed", styles.FormatDuration(msg.elapsed))
		cmds = append(cmds, resolveCmd(m.resolver, msg.outputs, msg.elapsed))
	}
	if m.services.Client != nil {
		cmds = append(cmds, queueStatusCmd(m.ctx, m.services.Client))
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleJobCancelled() (Model, tea.Cmd) {
	log.Debug(log.CatGen, "generation cancelled")
	m = m.resetJob()
	if m.services.Client != nil {
		return m, queueStatusCmd(m.ctx, m.services.Client)
	}
	return m, nil
}

// handleCancelJob cancels the in-flight job and fires a best-effort
// backend interrupt. The wait command observes the cancellation and
// delivers jobCancelledMsg, which resets the job state.
func (m Model) handleCancelJob() (Model, tea.Cmd) {
	if m.jobCancel != nil {
		m.jobCancel()
	}
	if m.services.Client != nil {
		interruptBackend(m.services.Client)
	}
	return m, nil
}

func (m Model) handleResults(msg resultsMsg) (Model, tea.Cmd) {
	m.results = msg.images
	m.resultIdx = 0

	n := len(msg.images)
	if n == 0 {
		return m, showToast("Generation produced no images", toaster.StyleWarn)
	}

	noun := "images"
	if n == 1 {
		noun = "image"
	}
	cmds := []tea.Cmd{
		showToast(fmt.Sprintf("Generated %d %s in %s", n, noun, styles.FormatDuration(msg.elapsed)), toaster.StyleSuccess),
	}
	if m.services.History != nil {
		cmds = append(cmds, saveHistoryCmd(m.services.History, m.params, msg.images, msg.elapsed))
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleGalleryLoaded(msg galleryLoadedMsg) (Model, tea.Cmd) {
	if msg.err != nil {
		log.Warn(log.CatGen, "gallery scan failed", "error", msg.err)
		return m, nil
	}
	m.results = msg.images
	if m.resultIdx >= len(m.results) {
		m.resultIdx = 0
	}
	return m, nil
}

// resetJob clears all in-flight job state and releases its streams.
func (m Model) resetJob() Model {
	if m.jobCancel != nil {
		m.jobCancel()
		m.jobCancel = nil
	}
	m.job = nil
	m.jobCtx = nil
	m.jobProgress = nil
	m.jobPreviews = nil
	m.prog = comfy.Progress{}
	m.previewCount = 0
	m.previewSize = 0
	return m
}

// Message types

type connectedMsg struct {
	stats *comfy.SystemStats
	err   error
}

type choicesLoadedMsg struct {
	models     []string
	samplers   []string
	schedulers []string
	err        error
}

type queueStatusMsg struct {
	status comfy.QueueStatus
	err    error
}

type jobQueuedMsg struct {
	job   *comfy.Job
	span  trace.Span
	start time.Time
	err   error
}

type jobFinishedMsg struct {
	outputs comfy.Outputs
	err     error
	elapsed time.Duration
}

type jobCancelledMsg struct{}

type resultsMsg struct {
	images  []generation.Image
	elapsed time.Duration
}

type galleryLoadedMsg struct {
	images []generation.Image
	err    error
}

type historySavedMsg struct {
	err error
}
