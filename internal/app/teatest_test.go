package app

import (
	"bytes"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/stretchr/testify/require"

	"github.com/easel-dev/easel/internal/mode"
)

// TestApp_ProgramStartupAndQuit drives the full program loop without a
// backend: the generate form must render and ctrl+c must exit cleanly.
func TestApp_ProgramStartupAndQuit(t *testing.T) {
	m := createTestModel()
	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(120, 40))

	teatest.WaitFor(t, tm.Output(), func(bts []byte) bool {
		return bytes.Contains(bts, []byte("Parameters"))
	}, teatest.WithCheckInterval(50*time.Millisecond), teatest.WithDuration(3*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))

	final, ok := tm.FinalModel(t).(Model)
	require.True(t, ok, "final model should be the app model")
	require.Equal(t, mode.ModeGenerate, final.currentMode)
}
