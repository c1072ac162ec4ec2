package styles

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestPresets_ValidTokens verifies every preset only uses known color tokens
// and well-formed hex values, so ApplyTheme can never fail on a built-in.
func TestPresets_ValidTokens(t *testing.T) {
	for name, preset := range Presets {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, name, preset.Name, "map key should match preset name")
			require.NotEmpty(t, preset.Description)
			require.NotEmpty(t, preset.Colors)

			for token, color := range preset.Colors {
				require.True(t, isValidToken(token), "preset %q has unknown token %q", name, token)
				require.True(t, isValidHexColor(color), "preset %q token %q has invalid color %q", name, token, color)
			}
		})
	}
}

// TestPresets_Apply verifies each built-in preset applies cleanly.
func TestPresets_Apply(t *testing.T) {
	for name := range Presets {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, ApplyTheme(ThemeConfig{Preset: name}))
		})
	}

	// Restore defaults for other tests in the package.
	require.NoError(t, ApplyTheme(ThemeConfig{}))
}

// TestDefaultPreset_CoversAllTokens keeps the default preset complete: every
// token a user can override has a default value to fall back to.
func TestDefaultPreset_CoversAllTokens(t *testing.T) {
	for _, token := range AllTokens() {
		_, ok := DefaultPreset.Colors[token]
		require.True(t, ok, "default preset missing token %q", token)
	}
}
