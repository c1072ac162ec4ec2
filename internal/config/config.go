// Package config provides configuration types and defaults for easel.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/easel-dev/easel/internal/log"
)

// Config holds all configuration options for easel.
type Config struct {
	Backend    BackendConfig    `mapstructure:"backend"`
	Package    PackageConfig    `mapstructure:"package"`
	Generation GenerationConfig `mapstructure:"generation"`
	Extensions ExtensionsConfig `mapstructure:"extensions"`
	History    HistoryConfig    `mapstructure:"history"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	UI         UIConfig         `mapstructure:"ui"`
	Theme      ThemeConfig      `mapstructure:"theme"`
}

// BackendConfig holds connection settings for the inference backend.
type BackendConfig struct {
	// Address is the backend host:port, e.g. "127.0.0.1:8188".
	Address string `mapstructure:"address"`

	// UseTLS switches the HTTP and websocket schemes to https/wss.
	UseTLS bool `mapstructure:"use_tls"`

	// ConnectTimeoutSeconds bounds the initial connectivity check.
	// Default: 5
	ConnectTimeoutSeconds int `mapstructure:"connect_timeout_seconds"`
}

// PackageConfig locates the local backend package installation.
type PackageConfig struct {
	// Dir is the package installation root (the directory containing
	// custom_nodes and output). Empty means no local installation is
	// available; extension management is unsupported in that case.
	Dir string `mapstructure:"dir"`

	// OutputDir overrides the image output directory.
	// Default: <dir>/output
	OutputDir string `mapstructure:"output_dir"`
}

// GenerationConfig holds the default text-to-image parameters loaded into
// the generate form on startup.
type GenerationConfig struct {
	Model          string  `mapstructure:"model"`
	Width          int     `mapstructure:"width"`
	Height         int     `mapstructure:"height"`
	BatchSize      int     `mapstructure:"batch_size"`
	Steps          int     `mapstructure:"steps"`
	CfgScale       float64 `mapstructure:"cfg_scale"`
	SamplerName    string  `mapstructure:"sampler_name"`
	Scheduler      string  `mapstructure:"scheduler"`
	Denoise        float64 `mapstructure:"denoise"`
	RandomizeSeed  bool    `mapstructure:"randomize_seed"`
	PositivePrompt string  `mapstructure:"positive_prompt"`
	NegativePrompt string  `mapstructure:"negative_prompt"`
}

// ExtensionsConfig holds extension catalog settings.
type ExtensionsConfig struct {
	// ManifestURLs are the catalog manifest locations fetched to build
	// the available-extensions list.
	ManifestURLs []string `mapstructure:"manifest_urls"`

	// CacheTTLSeconds controls how long fetched manifests are cached.
	// Default: 300
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds"`
}

// HistoryConfig holds generation history persistence settings.
type HistoryConfig struct {
	// Enabled controls whether completed generations are recorded.
	// Default: true
	Enabled bool `mapstructure:"enabled"`

	// DBPath is the sqlite database location.
	// Default: ~/.easel/history.db
	DBPath string `mapstructure:"db_path"`
}

// TracingConfig holds distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the trace export backend.
	// Options: "none", "file", "stdout", "otlp"
	// Default: "file"
	Exporter string `mapstructure:"exporter"`

	// FilePath is the output file for "file" exporter.
	// Default: ~/.config/easel/traces/traces.jsonl
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the collector endpoint for "otlp" exporter.
	// Default: "localhost:4317"
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate controls trace sampling (0.0 to 1.0).
	// 1.0 = all traces, 0.1 = 10% of traces
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate"`
}

// UIConfig holds user interface configuration options.
type UIConfig struct {
	ShowStatusBar bool   `mapstructure:"show_status_bar"`
	MarkdownStyle string `mapstructure:"markdown_style"` // "dark" (default) or "light"
	VimMode       bool   `mapstructure:"vim_mode"`       // Enable vim keybindings in text input areas

	// SwitchModeKey overrides the mode-switch keybinding, e.g. "ctrl+space".
	// Empty uses the default (ctrl+space).
	SwitchModeKey string `mapstructure:"switch_mode_key"`

	// LogOverlayKey overrides the log overlay toggle keybinding.
	// Empty uses the default (ctrl+x). Only active with --debug.
	LogOverlayKey string `mapstructure:"log_overlay_key"`
}

// ThemeConfig holds all theme customization options.
type ThemeConfig struct {
	// Preset loads a built-in theme as the base (optional).
	// Valid values: "default", "catppuccin-mocha", "nord"
	Preset string `mapstructure:"preset"`

	// Colors allows overriding individual color tokens.
	// Supports both nested YAML structure and dot notation.
	// Example YAML:
	//   colors:
	//     text:
	//       primary: "#FF0000"
	// Or quoted dot notation:
	//   colors:
	//     "text.primary": "#FF0000"
	Colors map[string]any `mapstructure:"colors"`
}

// FlattenedColors returns the Colors map flattened to dot-notation keys.
// This handles both nested YAML structures and already-flat keys.
func (t ThemeConfig) FlattenedColors() map[string]string {
	result := make(map[string]string)
	flattenColors("", t.Colors, result)
	return result
}

// flattenColors recursively flattens a nested map into dot-notation keys.
func flattenColors(prefix string, m map[string]any, result map[string]string) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		switch val := v.(type) {
		case string:
			result[key] = val
		case map[string]any:
			flattenColors(key, val, result)
		case map[any]any:
			// YAML sometimes produces map[any]any instead of map[string]any
			converted := make(map[string]any)
			for mk, mv := range val {
				if strKey, ok := mk.(string); ok {
					converted[strKey] = mv
				}
			}
			flattenColors(key, converted, result)
		}
	}
}

// DefaultManifestURL is the ComfyUI-Manager community node list.
const DefaultManifestURL = "https://raw.githubusercontent.com/ltdrdata/ComfyUI-Manager/main/custom-node-list.json"

// DefaultTracesFilePath returns the default path for trace file export.
// Returns ~/.config/easel/traces/traces.jsonl or empty string if home dir unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "easel", "traces", "traces.jsonl")
}

// DefaultHistoryDBPath returns the default path for the history database.
// Returns ~/.easel/history.db or empty string if home dir unavailable.
func DefaultHistoryDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".easel", "history.db")
}

// OutputDirFor returns the effective output directory for the package:
// the explicit override if set, else <dir>/output, else "".
func (p PackageConfig) OutputDirFor() string {
	if p.OutputDir != "" {
		return p.OutputDir
	}
	if p.Dir != "" {
		return filepath.Join(p.Dir, "output")
	}
	return ""
}

// BaseURL returns the backend HTTP base URL, e.g. "http://127.0.0.1:8188".
func (b BackendConfig) BaseURL() string {
	scheme := "http"
	if b.UseTLS {
		scheme = "https"
	}
	return scheme + "://" + b.Address
}

// WebsocketURL returns the backend websocket URL for the given client ID.
func (b BackendConfig) WebsocketURL(clientID string) string {
	scheme := "ws"
	if b.UseTLS {
		scheme = "wss"
	}
	return scheme + "://" + b.Address + "/ws?clientId=" + url.QueryEscape(clientID)
}

// ValidateBackend checks backend configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateBackend(b BackendConfig) error {
	if b.Address == "" {
		return fmt.Errorf("backend.address is required")
	}
	if strings.Contains(b.Address, "://") {
		return fmt.Errorf("backend.address must be host:port without a scheme, got %q", b.Address)
	}
	if b.ConnectTimeoutSeconds < 0 {
		return fmt.Errorf("backend.connect_timeout_seconds must be >= 0, got %d", b.ConnectTimeoutSeconds)
	}
	return nil
}

// ValidateGeneration checks generation defaults for errors.
// Returns nil if the configuration is valid.
func ValidateGeneration(g GenerationConfig) error {
	if g.Width <= 0 {
		return fmt.Errorf("generation.width must be positive, got %d", g.Width)
	}
	if g.Height <= 0 {
		return fmt.Errorf("generation.height must be positive, got %d", g.Height)
	}
	if g.BatchSize < 1 {
		return fmt.Errorf("generation.batch_size must be >= 1, got %d", g.BatchSize)
	}
	if g.Steps < 1 {
		return fmt.Errorf("generation.steps must be >= 1, got %d", g.Steps)
	}
	if g.CfgScale < 0 {
		return fmt.Errorf("generation.cfg_scale must be >= 0, got %v", g.CfgScale)
	}
	if g.Denoise < 0 || g.Denoise > 1 {
		return fmt.Errorf("generation.denoise must be between 0.0 and 1.0, got %v", g.Denoise)
	}
	return nil
}

// ValidateExtensions checks extension catalog configuration for errors.
// Returns nil if the configuration is valid or empty (will use defaults).
func ValidateExtensions(e ExtensionsConfig) error {
	for i, u := range e.ManifestURLs {
		if strings.TrimSpace(u) == "" {
			return fmt.Errorf("extensions.manifest_urls[%d] is empty", i)
		}
	}
	if e.CacheTTLSeconds < 0 {
		return fmt.Errorf("extensions.cache_ttl_seconds must be >= 0, got %d", e.CacheTTLSeconds)
	}
	return nil
}

// ValidateHistory checks history configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateHistory(h HistoryConfig) error {
	// DBPath must be absolute if set
	if h.DBPath != "" && !filepath.IsAbs(h.DBPath) {
		return fmt.Errorf("history.db_path must be an absolute path, got %q", h.DBPath)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tracing TracingConfig) error {
	// Validate SampleRate is in range [0.0, 1.0]
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	// Validate Exporter is a valid option
	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout", "otlp":
			// Valid
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}

	// Only validate path requirements when tracing is enabled
	if tracing.Enabled {
		// FilePath is required when Exporter is "file"
		if tracing.Exporter == "file" && tracing.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}

		// OTLPEndpoint is required when Exporter is "otlp"
		if tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}

	return nil
}

// Validate checks the whole configuration for errors.
func (c Config) Validate() error {
	if err := ValidateBackend(c.Backend); err != nil {
		return err
	}
	if err := ValidateGeneration(c.Generation); err != nil {
		return err
	}
	if err := ValidateExtensions(c.Extensions); err != nil {
		return err
	}
	if err := ValidateHistory(c.History); err != nil {
		return err
	}
	return ValidateTracing(c.Tracing)
}

// GetManifestURLs returns the configured manifest URLs, or the default
// community list if none configured.
func (c Config) GetManifestURLs() []string {
	if len(c.Extensions.ManifestURLs) > 0 {
		return c.Extensions.ManifestURLs
	}
	return []string{DefaultManifestURL}
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Backend: BackendConfig{
			Address:               "127.0.0.1:8188",
			UseTLS:                false,
			ConnectTimeoutSeconds: 5,
		},
		Generation: GenerationConfig{
			Width:         512,
			Height:        512,
			BatchSize:     1,
			Steps:         20,
			CfgScale:      7.0,
			SamplerName:   "euler",
			Scheduler:     "normal",
			Denoise:       1.0,
			RandomizeSeed: true,
		},
		Extensions: ExtensionsConfig{
			ManifestURLs:    []string{DefaultManifestURL},
			CacheTTLSeconds: 300,
		},
		History: HistoryConfig{
			Enabled: true,
			DBPath:  DefaultHistoryDBPath(),
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			FilePath:     "", // Derived from config dir at runtime
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
		UI: UIConfig{
			ShowStatusBar: true,
			MarkdownStyle: "dark",
			VimMode:       false, // Disabled by default for non-vim users
		},
		Theme: ThemeConfig{
			// Empty preset means the default easel theme
		},
	}
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# Easel Configuration

# Inference backend connection
backend:
  address: 127.0.0.1:8188   # host:port of the backend API
  use_tls: false            # switch to https/wss
  # connect_timeout_seconds: 5

# Local backend package installation (enables extension management
# and local output resolution)
package:
  # dir: ~/ComfyUI
  # output_dir: ~/ComfyUI/output   # default: <dir>/output

# Default text-to-image parameters loaded into the generate form
generation:
  width: 512
  height: 512
  batch_size: 1
  steps: 20
  cfg_scale: 7.0
  sampler_name: euler
  scheduler: normal
  denoise: 1.0
  randomize_seed: true
  # model: sd_xl_base_1.0.safetensors
  # positive_prompt: ""
  # negative_prompt: ""

# Extension catalog settings
extensions:
  # Manifest locations for the available-extensions list.
  # Default: the ComfyUI-Manager community node list.
  # manifest_urls:
  #   - https://raw.githubusercontent.com/ltdrdata/ComfyUI-Manager/main/custom-node-list.json
  cache_ttl_seconds: 300

# Generation history (sqlite)
history:
  enabled: true
  # db_path: ~/.easel/history.db

# UI settings
ui:
  show_status_bar: true   # Show status bar at bottom
  # markdown_style: dark  # Markdown rendering style: "dark" (default) or "light"
  vim_mode: false         # Enable vim keybindings in text input areas
  # switch_mode_key: ctrl+space  # Rebind the mode-switch key
  # log_overlay_key: ctrl+x      # Rebind the log overlay toggle (--debug only)

# Use a preset theme or customize individual colors
theme:
  # Available presets:
  #   default           - Default easel theme
  #   catppuccin-mocha  - Warm, cozy dark theme
  #   nord              - Arctic, north-bluish dark theme
  # preset: default

  # Override individual color tokens (nested or "dot.notation" keys):
  # colors:
  #   text:
  #     primary: "#CDD6F4"
  #   "status.error": "#F38BA8"

# Distributed tracing configuration
# Enables end-to-end visibility into generation job flows
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: file                 # Export backend: none, file, stdout, otlp (default: file)
#   file_path: ~/.config/easel/traces/traces.jsonl  # Output file for file exporter
#   otlp_endpoint: localhost:4317  # OTLP collector endpoint (for otlp exporter)
#   sample_rate: 1.0               # Trace sampling rate 0.0-1.0 (default: 1.0)
#
# Example: Send traces to Jaeger via OTLP
# tracing:
#   enabled: true
#   exporter: otlp
#   otlp_endpoint: jaeger.internal:4317
#   sample_rate: 0.1  # Sample 10% of traces
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	// Create parent directory if needed
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	// Write the template
	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
