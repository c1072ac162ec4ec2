package generate

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easel-dev/easel/internal/comfy"
	"github.com/easel-dev/easel/internal/config"
	"github.com/easel-dev/easel/internal/generation"
	"github.com/easel-dev/easel/internal/mode"
	"github.com/easel-dev/easel/internal/pubsub"
	"github.com/easel-dev/easel/internal/ui/toaster"
)

// createTestModel builds a mode model without a backend connection.
func createTestModel() Model {
	cfg := config.Defaults()
	return New(mode.Services{Config: &cfg})
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

// toastFromCmd executes a command and requires a toast message back.
func toastFromCmd(t *testing.T, cmd tea.Cmd) mode.ShowToastMsg {
	t.Helper()
	require.NotNil(t, cmd, "expected a command")
	msg := cmd()
	toastMsg, ok := msg.(mode.ShowToastMsg)
	require.True(t, ok, "expected ShowToastMsg, got %T", msg)
	return toastMsg
}

func TestNew_SeedsParamsFromConfig(t *testing.T) {
	m := createTestModel()

	assert.Equal(t, 512, m.params.Width)
	assert.Equal(t, 20, m.params.Steps)
	assert.Equal(t, 7.0, m.params.CfgScale)
	assert.Equal(t, 1, m.params.BatchSize)
	assert.GreaterOrEqual(t, m.params.Seed, int64(0), "expected a fresh non-negative seed")
	assert.False(t, m.editing)
	assert.Equal(t, 0, m.cursor)
}

func TestVisibleFields_HiresToggle(t *testing.T) {
	m := createTestModel()

	base := len(m.visibleFields())
	m.params.HiresFix = true
	assert.Equal(t, base+len(hiresFields), len(m.visibleFields()),
		"hires fields should appear when the pass is enabled")
}

func TestHandleKey_FieldNavigationWraps(t *testing.T) {
	m := createTestModel()

	m, _ = m.handleKey(keyMsg("shift+tab"))
	assert.Equal(t, len(m.visibleFields())-1, m.cursor, "expected wrap to last field")

	m, _ = m.handleKey(keyMsg("tab"))
	assert.Equal(t, 0, m.cursor, "expected wrap back to first field")

	m, _ = m.handleKey(keyMsg("j"))
	assert.Equal(t, 1, m.cursor)
	m, _ = m.handleKey(keyMsg("k"))
	assert.Equal(t, 0, m.cursor)
}

func TestCycleChoice_ModelWraps(t *testing.T) {
	m := createTestModel()
	m.models = []string{"a.safetensors", "b.safetensors"}
	m.params.Model = "b.safetensors"
	m.cursor = 0 // Model field

	m, _ = m.handleKey(keyMsg("l"))
	assert.Equal(t, "a.safetensors", m.params.Model, "expected wrap to first model")

	m, _ = m.handleKey(keyMsg("h"))
	assert.Equal(t, "b.safetensors", m.params.Model)
}

func TestCycleChoice_HiresSamplerIncludesInherit(t *testing.T) {
	m := createTestModel()
	m.samplers = []string{"euler", "dpmpp_2m"}
	m.params.HiresFix = true
	m.params.Hires.SamplerName = ""

	f := formField{id: fieldHiresSampler, kind: fieldChoice}
	m = m.cycleChoice(f, 1)
	assert.Equal(t, "euler", m.params.Hires.SamplerName)

	m = m.cycleChoice(f, -1)
	assert.Equal(t, "", m.params.Hires.SamplerName,
		"cycling back should reach the inherit-from-base option")
}

func TestToggleHiresFix_ClampsCursor(t *testing.T) {
	m := createTestModel()
	m.params.HiresFix = true
	m.cursor = len(m.visibleFields()) - 1

	m = m.toggleField(formField{id: fieldHiresFix, kind: fieldBool})

	assert.False(t, m.params.HiresFix)
	assert.Equal(t, len(baseFields)-1, m.cursor, "cursor should clamp to the shrunken list")
}

func TestBeginEdit_SeedsInputWithCurrentValue(t *testing.T) {
	m := createTestModel()
	m.params.Width = 768
	m.cursor = 3 // Width field

	m, _ = m.beginEdit()

	assert.True(t, m.editing)
	assert.Equal(t, "768", m.input.Value())
}

func TestBeginEdit_BoolFieldToggles(t *testing.T) {
	m := createTestModel()
	m.params.RandomizeSeed = false
	m.cursor = 7 // Random seed field

	m, _ = m.beginEdit()

	assert.False(t, m.editing, "bool fields toggle instead of opening the editor")
	assert.True(t, m.params.RandomizeSeed)
}

func TestCommitEdit_ParsesInt(t *testing.T) {
	m := createTestModel()
	m.cursor = 4 // Height field
	m, _ = m.beginEdit()
	m.input.SetValue("1024")

	m, cmd := m.commitEdit(0)

	assert.Nil(t, cmd)
	assert.False(t, m.editing)
	assert.Equal(t, 1024, m.params.Height)
}

func TestCommitEdit_RejectsGarbage(t *testing.T) {
	m := createTestModel()
	m.cursor = 4 // Height field
	m, _ = m.beginEdit()
	m.input.SetValue("not a number")

	m, cmd := m.commitEdit(0)

	assert.True(t, m.editing, "a parse failure keeps the editor open")
	toast := toastFromCmd(t, cmd)
	assert.Equal(t, toaster.StyleError, toast.Style)
	assert.Contains(t, toast.Message, "Height")
}

func TestCommitEdit_SeedParsesInt64(t *testing.T) {
	m := createTestModel()
	m.cursor = 6 // Seed field
	m, _ = m.beginEdit()
	m.input.SetValue("9007199254740993")

	m, cmd := m.commitEdit(0)

	assert.Nil(t, cmd)
	assert.Equal(t, int64(9007199254740993), m.params.Seed)
}

func TestCommitEdit_AdvanceMovesCursor(t *testing.T) {
	m := createTestModel()
	m.cursor = 3 // Width field
	m, _ = m.beginEdit()
	m.input.SetValue("640")

	m, _ = m.commitEdit(1)

	assert.Equal(t, 4, m.cursor)
	assert.Equal(t, 640, m.params.Width)
}

func TestHandleEditingKey_TypingUpdatesInput(t *testing.T) {
	m := createTestModel()
	m.cursor = 1 // Prompt field
	m.params.PositivePrompt = ""
	m, _ = m.beginEdit()

	m, _ = m.handleEditingKey(keyMsg("a"))

	assert.Equal(t, "a", m.input.Value())
	assert.True(t, m.editing)
}

func TestHandleEditingKey_EscCancelsWithoutCommit(t *testing.T) {
	m := createTestModel()
	m.params.Width = 512
	m.cursor = 3
	m, _ = m.beginEdit()
	m.input.SetValue("9999")

	m, _ = m.handleEditingKey(keyMsg("esc"))

	assert.False(t, m.editing)
	assert.Equal(t, 512, m.params.Width, "cancel should discard the edit")
}

func TestHandleSubmit_NotConnectedWarns(t *testing.T) {
	m := createTestModel()

	m, cmd := m.handleSubmit()

	toast := toastFromCmd(t, cmd)
	assert.Equal(t, toaster.StyleWarn, toast.Style)
	assert.Contains(t, toast.Message, "not connected")
	assert.Nil(t, m.job)
}

func TestHandleSubmit_AlreadyRunningInforms(t *testing.T) {
	m := createTestModel()
	m.job = &comfy.Job{}

	m, cmd := m.handleSubmit()

	toast := toastFromCmd(t, cmd)
	assert.Equal(t, toaster.StyleInfo, toast.Style)
}

func TestHandleJobQueued_ErrorTearsDownAndToasts(t *testing.T) {
	m := createTestModel()
	ctx, cancel := context.WithCancel(context.Background())
	m.jobCtx = ctx
	m.jobCancel = cancel

	apiErr := &comfy.APIError{StatusCode: 400, Message: "invalid prompt"}
	m, cmd := m.handleJobQueued(jobQueuedMsg{err: apiErr})

	toast := toastFromCmd(t, cmd)
	assert.Equal(t, toaster.StyleError, toast.Style)
	assert.Contains(t, toast.Message, "invalid prompt")
	assert.Nil(t, m.job)
	assert.Nil(t, m.jobCancel, "the job context should be released")
}

func TestHandleProgressEvent_TracksAndRearms(t *testing.T) {
	m := createTestModel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.jobCtx = ctx

	ev := pubsub.Event[comfy.Progress]{Payload: comfy.Progress{Value: 5, Max: 20, Node: "Sampler"}}
	m, cmd := m.handleProgressEvent(ev)

	assert.Equal(t, 5, m.prog.Value)
	assert.Equal(t, 20, m.prog.Max)
	assert.Equal(t, "Sampler", m.prog.Node)
	assert.NotNil(t, cmd, "the progress stream should be re-armed")
}

func TestHandlePreviewEvent_CountsFrames(t *testing.T) {
	m := createTestModel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.jobCtx = ctx

	m, _ = m.handlePreviewEvent(pubsub.Event[[]byte]{Payload: make([]byte, 2048)})
	m, _ = m.handlePreviewEvent(pubsub.Event[[]byte]{Payload: make([]byte, 4096)})

	assert.Equal(t, 2, m.previewCount)
	assert.Equal(t, 4096, m.previewSize, "the latest frame size should win")
}

func TestHandleJobFinished_ErrorResetsAndToasts(t *testing.T) {
	m := createTestModel()
	ctx, cancel := context.WithCancel(context.Background())
	m.job = &comfy.Job{}
	m.jobCtx = ctx
	m.jobCancel = cancel
	m.prog = comfy.Progress{Value: 5, Max: 20}

	m, cmd := m.handleJobFinished(jobFinishedMsg{err: assert.AnError})

	toast := toastFromCmd(t, cmd)
	assert.Equal(t, toaster.StyleError, toast.Style)
	assert.Nil(t, m.job)
	assert.Zero(t, m.prog.Max, "progress should reset")
}

func TestHandleJobCancelled_SilentReset(t *testing.T) {
	m := createTestModel()
	ctx, cancel := context.WithCancel(context.Background())
	m.job = &comfy.Job{}
	m.jobCtx = ctx
	m.jobCancel = cancel
	m.previewCount = 3

	m, cmd := m.handleJobCancelled()

	assert.Nil(t, cmd, "cancellation resets silently")
	assert.Nil(t, m.job)
	assert.Zero(t, m.previewCount)
}

func TestHandleResults_SetsGalleryAndToasts(t *testing.T) {
	m := createTestModel()
	m.resultIdx = 5

	images := []generation.Image{
		{Path: "/out/grid-a.png"},
		{Path: "/out/a.png"},
		{Path: "/out/b.png"},
	}
	m, cmd := m.handleResults(resultsMsg{images: images, elapsed: 3 * time.Second})

	toast := toastFromCmd(t, cmd)
	assert.Equal(t, toaster.StyleSuccess, toast.Style)
	assert.Contains(t, toast.Message, "3 images")
	assert.Equal(t, 0, m.resultIdx)
	assert.Len(t, m.results, 3)
}

func TestHandleResults_EmptyWarns(t *testing.T) {
	m := createTestModel()

	m, cmd := m.handleResults(resultsMsg{})

	toast := toastFromCmd(t, cmd)
	assert.Equal(t, toaster.StyleWarn, toast.Style)
}

func TestHandleGalleryLoaded_ClampsIndex(t *testing.T) {
	m := createTestModel()
	m.resultIdx = 9

	m, _ = m.handleGalleryLoaded(galleryLoadedMsg{images: []generation.Image{{Path: "/out/a.png"}}})

	assert.Equal(t, 0, m.resultIdx)
	assert.Len(t, m.results, 1)
}

func TestHandleGalleryLoaded_ErrorKeepsResults(t *testing.T) {
	m := createTestModel()
	m.results = []generation.Image{{Path: "/out/a.png"}}

	m, _ = m.handleGalleryLoaded(galleryLoadedMsg{err: assert.AnError})

	assert.Len(t, m.results, 1, "a failed scan should not clear the gallery")
}

func TestStepResult_Wraps(t *testing.T) {
	m := createTestModel()
	m.results = []generation.Image{{Path: "a"}, {Path: "b"}, {Path: "c"}}

	m = m.stepResult(-1)
	assert.Equal(t, 2, m.resultIdx)

	m = m.stepResult(1)
	assert.Equal(t, 0, m.resultIdx)
}

func TestHandleStatusEvent_DisconnectToasts(t *testing.T) {
	m := createTestModel()
	m.connected = true

	m, cmd := m.handleStatusEvent(pubsub.Event[comfy.Status]{Payload: comfy.Status{Connected: false}})

	assert.False(t, m.connected)
	toast := toastFromCmd(t, cmd)
	assert.Equal(t, toaster.StyleWarn, toast.Style)
}

func TestHandleSaveDefaults_WritesGenerationSection(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	cfg := config.Defaults()
	m := New(mode.Services{Config: &cfg, ConfigPath: configPath})
	m.params.SamplerName = "dpmpp_2m"
	m.params.Steps = 32

	_, cmd := m.handleKey(tea.KeyMsg{Type: tea.KeyCtrlW})

	toast := toastFromCmd(t, cmd)
	assert.Equal(t, toaster.StyleSuccess, toast.Style)
	assert.Contains(t, toast.Message, "Defaults saved")

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "sampler_name: dpmpp_2m")
	assert.Contains(t, string(data), "steps: 32")
}

func TestHandleSaveDefaults_NoConfigPathWarns(t *testing.T) {
	m := createTestModel()

	_, cmd := m.handleKey(tea.KeyMsg{Type: tea.KeyCtrlW})

	toast := toastFromCmd(t, cmd)
	assert.Equal(t, toaster.StyleWarn, toast.Style)
}

func TestScanOutputDir_NewestFirstSkippingNonImages(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "older.png")
	newer := filepath.Join(dir, "newer.jpg")
	require.NoError(t, os.WriteFile(older, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(newer, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	now := time.Now()
	require.NoError(t, os.Chtimes(older, now.Add(-time.Hour), now.Add(-time.Hour)))
	require.NoError(t, os.Chtimes(newer, now, now))

	images, err := scanOutputDir(dir)

	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, "newer.jpg", images[0].Ref.Filename)
	assert.Equal(t, "older.png", images[1].Ref.Filename)
	assert.True(t, images[0].Local())
}

func TestScanOutputDir_MissingDirIsEmpty(t *testing.T) {
	images, err := scanOutputDir(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, images)

	images, err = scanOutputDir("")
	require.NoError(t, err)
	assert.Empty(t, images)
}

func TestTruncateCaption_RespectsWidth(t *testing.T) {
	assert.Equal(t, "short", truncateCaption("short", 20))

	got := truncateCaption("a-very-long-image-filename.png", 12)
	assert.LessOrEqual(t, len([]rune(got)), 12)
	assert.Contains(t, got, "…")
}

func TestFieldValue_HiresFallbackLabels(t *testing.T) {
	m := createTestModel()
	m.params.Hires.SamplerName = ""
	m.params.Hires.Scheduler = ""

	assert.Equal(t, "(sampler)", m.fieldValue(formField{id: fieldHiresSampler}))
	assert.Equal(t, "(scheduler)", m.fieldValue(formField{id: fieldHiresScheduler}))

	m.params.Hires.SamplerName = "euler"
	assert.Equal(t, "euler", m.fieldValue(formField{id: fieldHiresSampler}))
}

func TestView_ShowsFormAndOutputPanels(t *testing.T) {
	m := createTestModel().SetSize(110, 40)

	view := m.View()

	assert.Contains(t, view, "Parameters")
	assert.Contains(t, view, "Output")
	assert.Contains(t, view, "Model")
	assert.Contains(t, view, "Sampler")
}

func TestView_GeneratingShowsProgress(t *testing.T) {
	m := createTestModel().SetSize(110, 40)
	m.job = &comfy.Job{}
	m.jobStart = time.Now()
	m.prog = comfy.Progress{Value: 5, Max: 20, Node: "Sampler"}

	view := m.View()

	assert.Contains(t, view, "Generating")
	assert.Contains(t, view, "step 5/20")
}

func TestGenerating(t *testing.T) {
	m := createTestModel()
	assert.False(t, m.Generating())
	m.job = &comfy.Job{}
	assert.True(t, m.Generating())
}

func TestClose_ReleasesContexts(t *testing.T) {
	m := createTestModel()
	ctx, cancel := context.WithCancel(context.Background())
	m.jobCtx = ctx
	m.jobCancel = cancel

	require.NoError(t, m.Close())

	select {
	case <-ctx.Done():
	default:
		t.Fatal("expected the job context to be cancelled on close")
	}
}
