// Package mode defines the mode controller interface and shared services.
package mode

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/easel-dev/easel/internal/comfy"
	"github.com/easel-dev/easel/internal/config"
	"github.com/easel-dev/easel/internal/extensions"
	"github.com/easel-dev/easel/internal/git"
	"github.com/easel-dev/easel/internal/history"
	"github.com/easel-dev/easel/internal/steps"
	"github.com/easel-dev/easel/internal/ui/toaster"
)

// AppMode identifies the current application mode.
type AppMode int

const (
	ModeGenerate AppMode = iota
	ModeExtensions
)

// String returns the mode name for logging.
func (m AppMode) String() string {
	switch m {
	case ModeGenerate:
		return "generate"
	case ModeExtensions:
		return "extensions"
	}
	return "unknown"
}

// Controller defines the interface all modes must implement.
type Controller interface {
	// Init returns initial commands for the mode.
	Init() tea.Cmd

	// Update handles messages and returns updated model and commands.
	Update(msg tea.Msg) (Controller, tea.Cmd)

	// View renders the mode's UI.
	View() string

	// SetSize handles terminal resize events.
	SetSize(width, height int) Controller
}

// Services contains shared dependencies injected into mode controllers.
type Services struct {
	// Client talks to the inference backend.
	Client *comfy.Client

	// Index serves the available-extensions catalog.
	Index *extensions.Index

	// Scanner discovers locally installed extensions.
	Scanner *extensions.InstalledScanner

	// Git runs git operations for extension installs and updates.
	Git git.GitExecutor

	// Runner executes extension step sequences.
	Runner *steps.Runner

	// History records completed generations. Nil when history is disabled.
	History history.Repository

	Config     *config.Config
	ConfigPath string
}

// ShowToastMsg requests a toast notification from the app shell.
type ShowToastMsg struct {
	Message string
	Style   toaster.Style
}
