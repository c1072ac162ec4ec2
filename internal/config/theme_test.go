package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/easel-dev/easel/internal/ui/styles"
)

// TestThemeConfig_WithPreset tests loading a config file with a preset.
func TestThemeConfig_WithPreset(t *testing.T) {
	configYAML := `
theme:
  preset: catppuccin-mocha
`
	cfg := loadConfigFromYAML(t, configYAML)

	require.Equal(t, "catppuccin-mocha", cfg.Theme.Preset)

	// Apply theme and verify colors changed
	themeCfg := styles.ThemeConfig{
		Preset: cfg.Theme.Preset,
		Colors: cfg.Theme.FlattenedColors(),
	}
	err := styles.ApplyTheme(themeCfg)
	require.NoError(t, err)

	// Catppuccin Mocha uses #CDD6F4 for text.primary
	require.Equal(t, "#CDD6F4", styles.TextPrimaryColor.Dark)
}

// TestThemeConfig_WithColorOverridesFromYAML tests that dotted color tokens
// in YAML config files are correctly parsed when using custom viper key delimiter.
func TestThemeConfig_WithColorOverridesFromYAML(t *testing.T) {
	configYAML := `
theme:
  colors:
    text.primary: "#FF0000"
    status.error: "#00FF00"
    selection.indicator: "#0000FF"
`
	cfg := loadConfigFromYAML(t, configYAML)

	colors := cfg.Theme.FlattenedColors()
	require.Equal(t, "#FF0000", colors["text.primary"])
	require.Equal(t, "#00FF00", colors["status.error"])
	require.Equal(t, "#0000FF", colors["selection.indicator"])

	// Apply theme and verify colors applied
	err := styles.ApplyTheme(styles.ThemeConfig{
		Preset: cfg.Theme.Preset,
		Colors: colors,
	})
	require.NoError(t, err)

	require.Equal(t, "#FF0000", styles.TextPrimaryColor.Dark)
	require.Equal(t, "#00FF00", styles.StatusErrorColor.Dark)
	require.Equal(t, "#0000FF", styles.SelectionIndicatorColor.Dark)
}

// TestThemeConfig_NestedColors tests nested YAML color structure.
func TestThemeConfig_NestedColors(t *testing.T) {
	configYAML := `
theme:
  colors:
    text:
      primary: "#FF0000"
    status:
      error: "#00FF00"
`
	cfg := loadConfigFromYAML(t, configYAML)

	colors := cfg.Theme.FlattenedColors()
	require.Equal(t, "#FF0000", colors["text.primary"])
	require.Equal(t, "#00FF00", colors["status.error"])
}

// TestThemeConfig_PresetWithOverrides tests that color overrides take precedence over preset.
func TestThemeConfig_PresetWithOverrides(t *testing.T) {
	cfg := Config{
		Theme: ThemeConfig{
			Preset: "nord",
			Colors: map[string]any{
				"text.primary": "#123456",
			},
		},
	}

	err := styles.ApplyTheme(styles.ThemeConfig{
		Preset: cfg.Theme.Preset,
		Colors: cfg.Theme.FlattenedColors(),
	})
	require.NoError(t, err)

	// Override should take precedence
	require.Equal(t, "#123456", styles.TextPrimaryColor.Dark)
	// Nord's status error should still be applied (#BF616A)
	require.Equal(t, "#BF616A", styles.StatusErrorColor.Dark)
}

// TestThemeConfig_InvalidPreset tests that invalid preset returns error.
func TestThemeConfig_InvalidPreset(t *testing.T) {
	configYAML := `
theme:
  preset: nonexistent-theme
`
	cfg := loadConfigFromYAML(t, configYAML)

	err := styles.ApplyTheme(styles.ThemeConfig{
		Preset: cfg.Theme.Preset,
		Colors: cfg.Theme.FlattenedColors(),
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown theme preset")
}

// TestThemeConfig_EmptyConfig tests that empty theme config applies defaults.
func TestThemeConfig_EmptyConfig(t *testing.T) {
	configYAML := `
backend:
  address: 127.0.0.1:8188
`
	cfg := loadConfigFromYAML(t, configYAML)

	require.Empty(t, cfg.Theme.Preset)
	require.Nil(t, cfg.Theme.Colors)

	err := styles.ApplyTheme(styles.ThemeConfig{
		Preset: cfg.Theme.Preset,
		Colors: cfg.Theme.FlattenedColors(),
	})
	require.NoError(t, err)

	// Default preset should be applied (#CCCCCC for text.primary)
	require.Equal(t, "#CCCCCC", styles.TextPrimaryColor.Dark)
}

// TestThemeConfig_AllPresets tests that all built-in presets load correctly.
func TestThemeConfig_AllPresets(t *testing.T) {
	presets := []string{
		"default",
		"catppuccin-mocha",
		"nord",
	}

	for _, preset := range presets {
		t.Run(preset, func(t *testing.T) {
			configYAML := `
theme:
  preset: ` + preset + `
`
			cfg := loadConfigFromYAML(t, configYAML)

			err := styles.ApplyTheme(styles.ThemeConfig{
				Preset: cfg.Theme.Preset,
				Colors: cfg.Theme.FlattenedColors(),
			})
			require.NoError(t, err, "preset %s should apply without error", preset)
		})
	}
}

// loadConfigFromYAML is a helper to load config from YAML string.
func loadConfigFromYAML(t *testing.T, yaml string) Config {
	t.Helper()

	// Create temp file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	err := os.WriteFile(configPath, []byte(yaml), 0o644)
	require.NoError(t, err)

	// Use custom key delimiter "::" to allow dotted keys like "text.primary"
	// in the theme.colors map without viper treating them as nested paths.
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetConfigFile(configPath)
	err = v.ReadInConfig()
	require.NoError(t, err)

	// Unmarshal to Config struct
	var cfg Config
	err = v.Unmarshal(&cfg)
	require.NoError(t, err)

	return cfg
}
