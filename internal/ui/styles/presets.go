// Package styles contains Lip Gloss style definitions.
package styles

// Preset represents a complete color theme.
type Preset struct {
	Name        string
	Description string
	Colors      map[ColorToken]string
}

// Presets contains all built-in theme presets.
var Presets = map[string]Preset{
	"default":          DefaultPreset,
	"catppuccin-mocha": CatppuccinMochaPreset,
	"nord":             NordPreset,
}

// DefaultPreset is the stock easel color scheme.
// Color values match the AdaptiveColor definitions in styles.go (Dark values).
var DefaultPreset = Preset{
	Name:        "default",
	Description: "Default easel theme",
	Colors: map[ColorToken]string{
		// Text hierarchy
		TokenTextPrimary:     "#CCCCCC",
		TokenTextSecondary:   "#BBBBBB",
		TokenTextMuted:       "#696969",
		TokenTextDescription: "#999999",
		TokenTextPlaceholder: "#777777",

		// Borders
		TokenBorderDefault:   "#696969",
		TokenBorderHighlight: "#54A0FF",

		// Status indicators
		TokenStatusSuccess: "#73F59F",
		TokenStatusWarning: "#FECA57",
		TokenStatusError:   "#FF8787",

		// Selection
		TokenSelectionIndicator: "#FFFFFF",

		// Forms
		TokenFormLabel:      "#8C8C8C",
		TokenFormLabelFocus: "#FFFFFF",

		// Overlays
		TokenOverlayTitle:  "#C9C9C9",
		TokenOverlayBorder: "#8C8C8C",

		// Toast notifications
		TokenToastSuccess: "#73F59F",
		TokenToastError:   "#FF8787",
		TokenToastInfo:    "#54A0FF",
		TokenToastWarn:    "#FECA57",

		// Extension rows
		TokenExtensionInstalled: "#73F59F",
		TokenExtensionDisabled:  "#666666",
		TokenExtensionUntracked: "#FF9F43",

		// Generation progress gradient
		TokenProgressStart: "#54A0FF",
		TokenProgressEnd:   "#73F59F",

		// Misc
		TokenSpinner: "#FFFFFF",
	},
}

// CatppuccinMochaPreset is the Catppuccin Mocha (dark) theme.
// Colors from: https://catppuccin.com/palette
// Mocha flavor - warm, cozy dark theme with pastel colors.
var CatppuccinMochaPreset = Preset{
	Name:        "catppuccin-mocha",
	Description: "Catppuccin Mocha - warm, cozy dark theme",
	Colors: map[ColorToken]string{
		// Text hierarchy
		TokenTextPrimary:     "#CDD6F4", // text
		TokenTextSecondary:   "#BAC2DE", // subtext1
		TokenTextMuted:       "#6C7086", // overlay0
		TokenTextDescription: "#A6ADC8", // subtext0
		TokenTextPlaceholder: "#585B70", // surface2

		// Borders
		TokenBorderDefault:   "#6C7086", // overlay0
		TokenBorderHighlight: "#89B4FA", // blue

		// Status indicators
		TokenStatusSuccess: "#A6E3A1", // green
		TokenStatusWarning: "#F9E2AF", // yellow
		TokenStatusError:   "#F38BA8", // red

		// Selection
		TokenSelectionIndicator: "#CDD6F4", // text

		// Forms
		TokenFormLabel:      "#6C7086", // overlay0
		TokenFormLabelFocus: "#CDD6F4", // text

		// Overlays
		TokenOverlayTitle:  "#CDD6F4", // text
		TokenOverlayBorder: "#6C7086", // overlay0

		// Toast notifications
		TokenToastSuccess: "#A6E3A1", // green
		TokenToastError:   "#F38BA8", // red
		TokenToastInfo:    "#89B4FA", // blue
		TokenToastWarn:    "#F9E2AF", // yellow

		// Extension rows
		TokenExtensionInstalled: "#A6E3A1", // green
		TokenExtensionDisabled:  "#585B70", // surface2
		TokenExtensionUntracked: "#FAB387", // peach

		// Generation progress gradient
		TokenProgressStart: "#89B4FA", // blue
		TokenProgressEnd:   "#A6E3A1", // green

		// Misc
		TokenSpinner: "#CBA6F7", // mauve
	},
}

// NordPreset is the Nord theme.
// Colors from: https://www.nordtheme.com/docs/colors-and-palettes
// Arctic, north-bluish dark theme.
var NordPreset = Preset{
	Name:        "nord",
	Description: "Nord - arctic, north-bluish dark theme",
	Colors: map[ColorToken]string{
		// Text hierarchy
		TokenTextPrimary:     "#ECEFF4", // snow storm 3
		TokenTextSecondary:   "#E5E9F0", // snow storm 2
		TokenTextMuted:       "#4C566A", // polar night 4
		TokenTextDescription: "#D8DEE9", // snow storm 1
		TokenTextPlaceholder: "#4C566A", // polar night 4

		// Borders
		TokenBorderDefault:   "#4C566A", // polar night 4
		TokenBorderHighlight: "#88C0D0", // frost 2

		// Status indicators
		TokenStatusSuccess: "#A3BE8C", // aurora green
		TokenStatusWarning: "#EBCB8B", // aurora yellow
		TokenStatusError:   "#BF616A", // aurora red

		// Selection
		TokenSelectionIndicator: "#ECEFF4", // snow storm 3

		// Forms
		TokenFormLabel:      "#4C566A", // polar night 4
		TokenFormLabelFocus: "#ECEFF4", // snow storm 3

		// Overlays
		TokenOverlayTitle:  "#ECEFF4", // snow storm 3
		TokenOverlayBorder: "#4C566A", // polar night 4

		// Toast notifications
		TokenToastSuccess: "#A3BE8C", // aurora green
		TokenToastError:   "#BF616A", // aurora red
		TokenToastInfo:    "#88C0D0", // frost 2
		TokenToastWarn:    "#EBCB8B", // aurora yellow

		// Extension rows
		TokenExtensionInstalled: "#A3BE8C", // aurora green
		TokenExtensionDisabled:  "#4C566A", // polar night 4
		TokenExtensionUntracked: "#D08770", // aurora orange

		// Generation progress gradient
		TokenProgressStart: "#81A1C1", // frost 3
		TokenProgressEnd:   "#A3BE8C", // aurora green

		// Misc
		TokenSpinner: "#B48EAD", // aurora purple
	},
}
