package generate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/easel-dev/easel/internal/ui/toaster"
)

// fieldKind determines how a form field is edited.
type fieldKind int

const (
	fieldText fieldKind = iota
	fieldInt
	fieldFloat
	fieldBool
	fieldChoice
)

// fieldID names one parameter binding.
type fieldID int

const (
	fieldModel fieldID = iota
	fieldPositive
	fieldNegative
	fieldWidth
	fieldHeight
	fieldBatchSize
	fieldSeed
	fieldRandomizeSeed
	fieldSteps
	fieldCfgScale
	fieldSampler
	fieldScheduler
	fieldDenoise
	fieldHiresFix
	fieldHiresUpscale
	fieldHiresScale
	fieldHiresSteps
	fieldHiresCfg
	fieldHiresSampler
	fieldHiresScheduler
	fieldHiresDenoise
)

type formField struct {
	id    fieldID
	label string
	kind  fieldKind
}

var baseFields = []formField{
	{fieldModel, "Model", fieldChoice},
	{fieldPositive, "Prompt", fieldText},
	{fieldNegative, "Negative", fieldText},
	{fieldWidth, "Width", fieldInt},
	{fieldHeight, "Height", fieldInt},
	{fieldBatchSize, "Batch size", fieldInt},
	{fieldSeed, "Seed", fieldInt},
	{fieldRandomizeSeed, "Random seed", fieldBool},
	{fieldSteps, "Steps", fieldInt},
	{fieldCfgScale, "CFG scale", fieldFloat},
	{fieldSampler, "Sampler", fieldChoice},
	{fieldScheduler, "Scheduler", fieldChoice},
	{fieldDenoise, "Denoise", fieldFloat},
	{fieldHiresFix, "Hires fix", fieldBool},
}

// hiresFields only show while the hires pass is enabled.
var hiresFields = []formField{
	{fieldHiresUpscale, "Upscale", fieldChoice},
	{fieldHiresScale, "Scale", fieldFloat},
	{fieldHiresSteps, "Hires steps", fieldInt},
	{fieldHiresCfg, "Hires CFG", fieldFloat},
	{fieldHiresSampler, "Hires sampler", fieldChoice},
	{fieldHiresScheduler, "Hires sched", fieldChoice},
	{fieldHiresDenoise, "Hires denoise", fieldFloat},
}

// upscaleMethods are the LatentUpscale methods the backend accepts.
var upscaleMethods = []string{"nearest-exact", "bilinear", "area", "bicubic", "bislerp"}

// visibleFields returns the form fields in display order.
func (m Model) visibleFields() []formField {
	if !m.params.HiresFix {
		return baseFields
	}
	fields := make([]formField, 0, len(baseFields)+len(hiresFields))
	fields = append(fields, baseFields...)
	fields = append(fields, hiresFields...)
	return fields
}

func (m Model) currentField() formField {
	fields := m.visibleFields()
	if m.cursor >= len(fields) {
		return fields[len(fields)-1]
	}
	return fields[m.cursor]
}

func (m Model) nextField(i int) int {
	n := len(m.visibleFields())
	return (i + 1) % n
}

func (m Model) prevField(i int) int {
	n := len(m.visibleFields())
	return (i - 1 + n) % n
}

// clampCursor keeps the cursor valid after the field list shrinks.
func (m *Model) clampCursor() {
	if n := len(m.visibleFields()); m.cursor >= n {
		m.cursor = n - 1
	}
}

// fieldValue renders the current value of a field for display. Choice
// fields with inherit-when-empty semantics show their fallback label.
func (m Model) fieldValue(f formField) string {
	switch f.id {
	case fieldModel:
		return m.params.Model
	case fieldPositive:
		return m.params.PositivePrompt
	case fieldNegative:
		return m.params.NegativePrompt
	case fieldWidth:
		return strconv.Itoa(m.params.Width)
	case fieldHeight:
		return strconv.Itoa(m.params.Height)
	case fieldBatchSize:
		return strconv.Itoa(m.params.BatchSize)
	case fieldSeed:
		return strconv.FormatInt(m.params.Seed, 10)
	case fieldRandomizeSeed:
		return checkbox(m.params.RandomizeSeed)
	case fieldSteps:
		return strconv.Itoa(m.params.Steps)
	case fieldCfgScale:
		return formatFloat(m.params.CfgScale)
	case fieldSampler:
		return m.params.SamplerName
	case fieldScheduler:
		return m.params.Scheduler
	case fieldDenoise:
		return formatFloat(m.params.Denoise)
	case fieldHiresFix:
		return checkbox(m.params.HiresFix)
	case fieldHiresUpscale:
		return m.params.Hires.UpscaleMethod
	case fieldHiresScale:
		return formatFloat(m.params.Hires.Scale)
	case fieldHiresSteps:
		return strconv.Itoa(m.params.Hires.Steps)
	case fieldHiresCfg:
		return formatFloat(m.params.Hires.CfgScale)
	case fieldHiresSampler:
		if m.params.Hires.SamplerName == "" {
			return "(sampler)"
		}
		return m.params.Hires.SamplerName
	case fieldHiresScheduler:
		if m.params.Hires.Scheduler == "" {
			return "(scheduler)"
		}
		return m.params.Hires.Scheduler
	case fieldHiresDenoise:
		return formatFloat(m.params.Hires.Denoise)
	}
	return ""
}

// beginEdit opens the inline editor for the focused field. Bool fields
// toggle instead; choice fields cycle with h/l and ignore enter.
func (m Model) beginEdit() (Model, tea.Cmd) {
	f := m.currentField()
	switch f.kind {
	case fieldBool:
		return m.toggleField(f), nil
	case fieldChoice:
		return m, nil
	}

	m.input = textinput.New()
	m.input.Prompt = ""
	m.input.SetValue(m.fieldValue(f))
	m.input.CursorEnd()
	if f.kind == fieldText {
		m.input.Width = 0 // prompts grow with the panel
	} else {
		m.input.Width = 20
	}
	cmd := m.input.Focus()
	m.editing = true
	return m, cmd
}

// commitEdit parses the editor content into the focused field. advance
// moves the cursor afterwards (+1 next, -1 previous, 0 stay). A parse
// failure keeps the editor open and reports the problem.
func (m Model) commitEdit(advance int) (Model, tea.Cmd) {
	f := m.currentField()
	raw := strings.TrimSpace(m.input.Value())
	if err := m.assignField(f, raw); err != nil {
		return m, showToast(err.Error(), toaster.StyleError)
	}
	m.editing = false
	m.input.Blur()
	switch {
	case advance > 0:
		m.cursor = m.nextField(m.cursor)
	case advance < 0:
		m.cursor = m.prevField(m.cursor)
	}
	return m, nil
}

// cancelEdit discards the editor without committing.
func (m Model) cancelEdit() Model {
	m.editing = false
	m.input.Blur()
	return m
}

// assignField parses raw input into the field's parameter.
func (m *Model) assignField(f formField, raw string) error {
	if f.id == fieldSeed {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: not a whole number: %q", f.label, raw)
		}
		m.params.Seed = n
		return nil
	}

	switch f.kind {
	case fieldText:
		m.setString(f.id, raw)
	case fieldInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: not a whole number: %q", f.label, raw)
		}
		m.setInt(f.id, n)
	case fieldFloat:
		x, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("%s: not a number: %q", f.label, raw)
		}
		m.setFloat(f.id, x)
	}
	return nil
}

func (m *Model) setString(id fieldID, v string) {
	switch id {
	case fieldPositive:
		m.params.PositivePrompt = v
	case fieldNegative:
		m.params.NegativePrompt = v
	}
}

func (m *Model) setInt(id fieldID, v int) {
	switch id {
	case fieldWidth:
		m.params.Width = v
	case fieldHeight:
		m.params.Height = v
	case fieldBatchSize:
		m.params.BatchSize = v
	case fieldSteps:
		m.params.Steps = v
	case fieldHiresSteps:
		m.params.Hires.Steps = v
	}
}

func (m *Model) setFloat(id fieldID, v float64) {
	switch id {
	case fieldCfgScale:
		m.params.CfgScale = v
	case fieldDenoise:
		m.params.Denoise = v
	case fieldHiresScale:
		m.params.Hires.Scale = v
	case fieldHiresCfg:
		m.params.Hires.CfgScale = v
	case fieldHiresDenoise:
		m.params.Hires.Denoise = v
	}
}

// toggleField flips a bool field. Turning the hires pass off can shrink
// the field list, so the cursor is clamped.
func (m Model) toggleField(f formField) Model {
	switch f.id {
	case fieldRandomizeSeed:
		m.params.RandomizeSeed = !m.params.RandomizeSeed
	case fieldHiresFix:
		m.params.HiresFix = !m.params.HiresFix
		m.clampCursor()
	}
	return m
}

// cycleField steps a choice field through its options, or toggles a bool
// field. dir is +1 for forward, -1 for backward.
func (m Model) cycleField(dir int) Model {
	f := m.currentField()
	switch f.kind {
	case fieldBool:
		return m.toggleField(f)
	case fieldChoice:
		return m.cycleChoice(f, dir)
	}
	return m
}

func (m Model) cycleChoice(f formField, dir int) Model {
	switch f.id {
	case fieldModel:
		m.params.Model = cycleOption(m.params.Model, m.models, dir, false)
	case fieldSampler:
		m.params.SamplerName = cycleOption(m.params.SamplerName, m.samplers, dir, false)
	case fieldScheduler:
		m.params.Scheduler = cycleOption(m.params.Scheduler, m.schedulers, dir, false)
	case fieldHiresUpscale:
		m.params.Hires.UpscaleMethod = cycleOption(m.params.Hires.UpscaleMethod, upscaleMethods, dir, false)
	case fieldHiresSampler:
		m.params.Hires.SamplerName = cycleOption(m.params.Hires.SamplerName, m.samplers, dir, true)
	case fieldHiresScheduler:
		m.params.Hires.Scheduler = cycleOption(m.params.Hires.Scheduler, m.schedulers, dir, true)
	}
	return m
}

// cycleOption steps through options with wrap-around. With allowEmpty
// the empty string participates as a leading virtual option, used by
// fields that inherit a base value when unset. Unknown current values
// land on the first option.
func cycleOption(current string, options []string, dir int, allowEmpty bool) string {
	if allowEmpty {
		options = append([]string{""}, options...)
	}
	if len(options) == 0 {
		return current
	}
	idx := 0
	for i, opt := range options {
		if opt == current {
			idx = i
			break
		}
	}
	idx = (idx + dir + len(options)) % len(options)
	return options[idx]
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
