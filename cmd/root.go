package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/easel-dev/easel/internal/app"
	"github.com/easel-dev/easel/internal/comfy"
	"github.com/easel-dev/easel/internal/config"
	"github.com/easel-dev/easel/internal/history"
	"github.com/easel-dev/easel/internal/infrastructure/sqlite"
	"github.com/easel-dev/easel/internal/keys"
	"github.com/easel-dev/easel/internal/log"
	"github.com/easel-dev/easel/internal/tracing"
	"github.com/easel-dev/easel/internal/ui/styles"
)

func init() {
	// Force lipgloss/termenv to query terminal background color BEFORE
	// any Bubble Tea program starts. This prevents the terminal's OSC 11
	// response from racing with Bubble Tea's input loop and appearing as
	// garbage text in input fields.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	cfg       config.Config

	// vp uses "::" as the key delimiter so dotted theme color keys such as
	// "text.primary" stay single map keys instead of becoming nested paths.
	vp = viper.NewWithOptions(viper.KeyDelimiter("::"))
)

var rootCmd = &cobra.Command{
	Use:     "easel",
	Short:   "A terminal ui for ComfyUI image generation",
	Long:    `A terminal user interface for a ComfyUI-compatible backend: compose text-to-image prompts, watch sampling progress and previews live, and manage custom node extensions.`,
	Version: version,
	RunE:    runApp,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/easel/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false,
		"enable debug logging and the log overlay toggle")
	rootCmd.Flags().StringP("backend", "b", "",
		"backend address host:port (overrides config)")
}

func initConfig() {
	if cfgFile != "" {
		vp.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .easel/config.yaml (current directory)
		// 2. ~/.config/easel/config.yaml (user config)
		if _, err := os.Stat(".easel/config.yaml"); err == nil {
			vp.SetConfigFile(".easel/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			vp.AddConfigPath(filepath.Join(home, ".config", "easel"))
			vp.SetConfigName("config")
			vp.SetConfigType("yaml")
		}
	}

	if err := vp.ReadInConfig(); err != nil {
		// No config file found anywhere - create a commented default at
		// ~/.config/easel/config.yaml
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if home, homeErr := os.UserHomeDir(); homeErr == nil {
				defaultPath := filepath.Join(home, ".config", "easel", "config.yaml")
				if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
					vp.SetConfigFile(defaultPath)
					_ = vp.ReadInConfig()
				}
			}
			// If write fails, just continue with defaults (no config file)
		}
	}

	// Unmarshal over the defaults so settings absent from the file keep
	// their default values
	cfg = config.Defaults()
	_ = vp.Unmarshal(&cfg)
}

func runApp(cmd *cobra.Command, args []string) error {
	// Initialize logging if debug mode enabled (via flag or env var)
	debug := os.Getenv("EASEL_DEBUG") != "" || debugFlag
	if debug {
		logPath := os.Getenv("EASEL_LOG")
		if logPath == "" {
			logPath = "debug.log"
		}

		cleanup, err := log.InitWithTeaLog(logPath, "easel")
		if err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
		defer cleanup()

		log.Info(log.CatConfig, "Easel starting", "debug", true, "logPath", logPath)
	}

	// Handle --backend flag
	if backendAddr, _ := cmd.Flags().GetString("backend"); backendAddr != "" {
		cfg.Backend.Address = backendAddr
	}

	if err := validateConfig(cfg); err != nil {
		return err
	}

	// Theme and configurable keybindings apply before any rendering
	themeCfg := styles.ThemeConfig{
		Preset: cfg.Theme.Preset,
		Colors: cfg.Theme.FlattenedColors(),
	}
	if err := styles.ApplyTheme(themeCfg); err != nil {
		return fmt.Errorf("invalid theme configuration: %w", err)
	}
	keys.ApplyConfig(cfg.UI.SwitchModeKey, cfg.UI.LogOverlayKey)

	// Tracing provider; spans are no-ops unless enabled
	provider, err := tracing.NewProvider(tracingConfig(cfg.Tracing))
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(ctx)
	}()

	client := comfy.NewClient(comfy.Options{
		Address: cfg.Backend.Address,
		UseTLS:  cfg.Backend.UseTLS,
	})

	// Generation history; a broken database disables recording rather
	// than blocking startup
	var (
		historyRepo history.Repository
		historyDB   *sqlite.DB
	)
	if cfg.History.Enabled {
		dbPath := cfg.History.DBPath
		if dbPath == "" {
			dbPath = config.DefaultHistoryDBPath()
		}
		if dbPath != "" {
			db, dbErr := sqlite.NewDB(dbPath)
			if dbErr != nil {
				log.Warn(log.CatDB, "History disabled: database unavailable", "error", dbErr)
			} else {
				historyDB = db
				historyRepo = db.GenerationRepository()
			}
		}
	}
	if historyDB != nil {
		defer func() { _ = historyDB.Close() }()
	}

	// Store the config file path for error messages
	configFilePath := vp.ConfigFileUsed()

	// Mouse click zones resolve through the global manager
	zone.NewGlobal()

	model := app.NewWithConfig(client, cfg, historyRepo, configFilePath, debug)
	p := tea.NewProgram(
		&model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err = p.Run()

	// Clean up watcher, mode, and client resources
	if closeErr := model.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if closeErr := client.Close(); closeErr != nil && err == nil {
		err = closeErr
	}

	if err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// validateConfig checks every configuration section and reports the first
// problem found.
func validateConfig(c config.Config) error {
	if err := config.ValidateBackend(c.Backend); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := config.ValidateGeneration(c.Generation); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := config.ValidateExtensions(c.Extensions); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := config.ValidateHistory(c.History); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := config.ValidateTracing(c.Tracing); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// tracingConfig maps the user configuration onto the tracing subsystem,
// filling in the default trace file path.
func tracingConfig(tc config.TracingConfig) tracing.Config {
	filePath := tc.FilePath
	if filePath == "" {
		filePath = config.DefaultTracesFilePath()
	}
	return tracing.Config{
		Enabled:      tc.Enabled,
		Exporter:     tc.Exporter,
		FilePath:     filePath,
		OTLPEndpoint: tc.OTLPEndpoint,
		SampleRate:   tc.SampleRate,
		ServiceName:  tracing.DefaultServiceName,
	}
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
