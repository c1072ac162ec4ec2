// Package keys contains keybinding definitions.
package keys

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// GlobalMap defines keybindings handled at the application level,
// before the active mode sees the key.
type GlobalMap struct {
	SwitchMode key.Binding
	ToggleLogs key.Binding
}

// GenerateMap defines the keybindings for generate mode.
type GenerateMap struct {
	// Form navigation
	NextField key.Binding
	PrevField key.Binding
	Edit      key.Binding
	Blur      key.Binding
	CyclePrev key.Binding
	CycleNext key.Binding

	// Job control
	Submit        key.Binding
	CancelJob     key.Binding
	RandomizeSeed key.Binding
	SaveDefaults  key.Binding

	// Result gallery
	PrevImage key.Binding
	NextImage key.Binding

	// General
	Help key.Binding
	Quit key.Binding
}

// ExtensionsMap defines the keybindings for extensions mode.
type ExtensionsMap struct {
	// Navigation
	Up         key.Binding
	Down       key.Binding
	SwitchPane key.Binding

	// Filtering
	Filter      key.Binding
	ClearFilter key.Binding

	// Actions
	Select    key.Binding
	Install   key.Binding
	Uninstall key.Binding
	Update    key.Binding
	Toggle    key.Binding
	Refresh   key.Binding

	// General
	Help key.Binding
	Quit key.Binding
}

// Package-level keymaps. ApplyConfig rebinds the configurable entries;
// everything else keeps its default.
var (
	Global     = defaultGlobalMap()
	Generate   = defaultGenerateMap()
	Extensions = defaultExtensionsMap()
)

func defaultGlobalMap() GlobalMap {
	return GlobalMap{
		SwitchMode: key.NewBinding(
			key.WithKeys("ctrl+@"),
			key.WithHelp("^space", "switch mode"),
		),
		ToggleLogs: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "toggle logs"),
		),
	}
}

func defaultGenerateMap() GenerateMap {
	return GenerateMap{
		// Form navigation
		NextField: key.NewBinding(
			key.WithKeys("tab", "j", "down"),
			key.WithHelp("tab/j", "next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab", "k", "up"),
			key.WithHelp("shift+tab/k", "previous field"),
		),
		Edit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "edit field"),
		),
		Blur: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "done editing"),
		),
		CyclePrev: key.NewBinding(
			key.WithKeys("h", "left"),
			key.WithHelp("h/←", "previous option"),
		),
		CycleNext: key.NewBinding(
			key.WithKeys("l", "right"),
			key.WithHelp("l/→", "next option"),
		),

		// Job control
		Submit: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "generate"),
		),
		CancelJob: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel job"),
		),
		RandomizeSeed: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "randomize seed"),
		),
		SaveDefaults: key.NewBinding(
			key.WithKeys("ctrl+w"),
			key.WithHelp("ctrl+w", "save defaults"),
		),

		// Result gallery
		PrevImage: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "previous image"),
		),
		NextImage: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "next image"),
		),

		// General
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

func defaultExtensionsMap() ExtensionsMap {
	return ExtensionsMap{
		// Navigation
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "move down"),
		),
		SwitchPane: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch pane"),
		),

		// Filtering
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		ClearFilter: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear filter"),
		),

		// Actions
		Select: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "select"),
		),
		Install: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "install"),
		),
		Uninstall: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "uninstall"),
		),
		Update: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "update"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "enable/disable"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh catalog"),
		),

		// General
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// ShortHelp returns keybindings for the short help view.
func (k GenerateMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Help, k.Quit}
}

// FullHelp returns keybindings for the full help view.
func (k GenerateMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextField, k.PrevField, k.Edit, k.Blur},             // Form navigation
		{k.CyclePrev, k.CycleNext, k.RandomizeSeed},            // Field values
		{k.Submit, k.CancelJob, k.SaveDefaults},                // Jobs
		{k.PrevImage, k.NextImage},                             // Results
		{Global.SwitchMode, Global.ToggleLogs, k.Help, k.Quit}, // General
	}
}

// ShortHelp returns keybindings for the short help view.
func (k ExtensionsMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Filter, k.Select, k.Install, k.Help, k.Quit}
}

// FullHelp returns keybindings for the full help view.
func (k ExtensionsMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.SwitchPane, k.Filter, k.ClearFilter},  // Navigation
		{k.Select, k.Install, k.Uninstall, k.Update, k.Toggle}, // Actions
		{k.Refresh, Global.SwitchMode, k.Help, k.Quit},         // General
	}
}

// ApplyConfig rebinds the configurable keys from user configuration.
// Empty values leave the defaults in place.
func ApplyConfig(switchModeKey, logOverlayKey string) {
	if switchModeKey != "" {
		term := translateToTerminal(switchModeKey)
		Global.SwitchMode = key.NewBinding(
			key.WithKeys(term),
			key.WithHelp(translateToDisplay(term), "switch mode"),
		)
	}
	if logOverlayKey != "" {
		term := translateToTerminal(logOverlayKey)
		Global.ToggleLogs = key.NewBinding(
			key.WithKeys(term),
			key.WithHelp(translateToDisplay(term), "toggle logs"),
		)
	}
}

// ResetForTesting restores all keymaps to their defaults.
func ResetForTesting() {
	Global = defaultGlobalMap()
	Generate = defaultGenerateMap()
	Extensions = defaultExtensionsMap()
}

// translateToTerminal converts a user-facing key name into the string
// bubbletea reports for it. Terminals send ctrl+space as ctrl+@.
func translateToTerminal(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	switch k {
	case "ctrl+space", "ctrl+ ":
		return "ctrl+@"
	}
	return k
}

// translateToDisplay converts a terminal key string into the name shown
// in help text.
func translateToDisplay(k string) string {
	if k == "ctrl+@" {
		return "ctrl+space"
	}
	return k
}
