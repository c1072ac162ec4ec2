package generate

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/easel-dev/easel/internal/config"
	"github.com/easel-dev/easel/internal/generation"
	"github.com/easel-dev/easel/internal/keys"
	"github.com/easel-dev/easel/internal/ui/toaster"
)

// handleKey routes key presses. While the inline editor is open most
// keys belong to it.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.editing {
		return m.handleEditingKey(msg)
	}

	switch {
	case key.Matches(msg, keys.Generate.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Generate.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		return m, nil

	case key.Matches(msg, keys.Generate.Submit):
		return m.handleSubmit()

	case key.Matches(msg, keys.Generate.CancelJob):
		if m.job != nil {
			return m.handleCancelJob()
		}
		return m, nil

	case key.Matches(msg, keys.Generate.RandomizeSeed):
		m.params.Seed = generation.NewSeed()
		return m, nil

	case key.Matches(msg, keys.Generate.SaveDefaults):
		return m.handleSaveDefaults()

	case key.Matches(msg, keys.Generate.NextField):
		m.cursor = m.nextField(m.cursor)
		return m, nil

	case key.Matches(msg, keys.Generate.PrevField):
		m.cursor = m.prevField(m.cursor)
		return m, nil

	case key.Matches(msg, keys.Generate.Edit):
		return m.beginEdit()

	case key.Matches(msg, keys.Generate.CyclePrev):
		return m.cycleField(-1), nil

	case key.Matches(msg, keys.Generate.CycleNext):
		return m.cycleField(1), nil

	case key.Matches(msg, keys.Generate.PrevImage):
		return m.stepResult(-1), nil

	case key.Matches(msg, keys.Generate.NextImage):
		return m.stepResult(1), nil
	}

	return m, nil
}

// handleEditingKey drives the inline editor. Tab and shift+tab commit
// and move on, so the form can be filled without leaving edit flow.
func (m Model) handleEditingKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Generate.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Generate.Submit):
		return m.handleSubmit()

	case key.Matches(msg, keys.Generate.Blur):
		return m.cancelEdit(), nil

	case key.Matches(msg, keys.Generate.Edit):
		return m.commitEdit(0)

	case msg.String() == "tab":
		return m.commitEdit(1)

	case msg.String() == "shift+tab":
		return m.commitEdit(-1)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleSaveDefaults writes the current form values to the generation
// section of the config file. The seed is transient and stays out.
func (m Model) handleSaveDefaults() (Model, tea.Cmd) {
	if m.services.ConfigPath == "" {
		return m, showToast("No config file loaded; defaults not saved", toaster.StyleWarn)
	}
	gen := config.GenerationConfig{
		Model:          m.params.Model,
		Width:          m.params.Width,
		Height:         m.params.Height,
		BatchSize:      m.params.BatchSize,
		Steps:          m.params.Steps,
		CfgScale:       m.params.CfgScale,
		SamplerName:    m.params.SamplerName,
		Scheduler:      m.params.Scheduler,
		Denoise:        m.params.Denoise,
		RandomizeSeed:  m.params.RandomizeSeed,
		PositivePrompt: m.params.PositivePrompt,
		NegativePrompt: m.params.NegativePrompt,
	}
	return m, saveDefaultsCmd(m.services.ConfigPath, gen)
}

// stepResult moves the gallery selection with wrap-around.
func (m Model) stepResult(dir int) Model {
	n := len(m.results)
	if n == 0 {
		return m
	}
	m.resultIdx = (m.resultIdx + dir + n) % n
	return m
}
