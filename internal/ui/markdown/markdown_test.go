package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	r, err := New(80)
	require.NoError(t, err)
	assert.Equal(t, 80, r.Width())
}

func TestNewWithStyle_Dark(t *testing.T) {
	r, err := NewWithStyle(60, "dark")
	require.NoError(t, err)

	out, err := r.Render("# Title\n\nSome **bold** text.")
	require.NoError(t, err)
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "bold")
}

func TestRender_PlainText(t *testing.T) {
	r, err := NewWithStyle(40, "dark")
	require.NoError(t, err)

	out, err := r.Render("just a sentence")
	require.NoError(t, err)
	assert.Contains(t, out, "just a sentence")
}

func TestRender_List(t *testing.T) {
	r, err := NewWithStyle(40, "dark")
	require.NoError(t, err)

	out, err := r.Render("- one\n- two\n")
	require.NoError(t, err)
	assert.Contains(t, out, "one")
	assert.Contains(t, out, "two")
}
