package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/easel-dev/easel/internal/extensions"
	"github.com/easel-dev/easel/internal/git"
	"github.com/easel-dev/easel/internal/paths"
	"github.com/easel-dev/easel/internal/presentation"
)

// catalogTimeout bounds headless manifest fetches and directory scans.
const catalogTimeout = 30 * time.Second

var (
	extInstalled bool
	extJSON      bool
)

var extensionsCmd = &cobra.Command{
	Use:   "extensions",
	Short: "Inspect backend extensions without the TUI",
}

var extensionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog or installed extensions",
	Long: `List extensions from the configured catalog manifests.

The available catalog is fetched and printed with installed entries marked
by an asterisk. Use --installed to list the local custom_nodes directory
instead.

Examples:
  # List the available catalog
  easel extensions list

  # List local installs with their tracking state
  easel extensions list --installed

  # Parse specific fields with jq
  easel extensions list --json | jq '.[].title'
  easel extensions list --installed --json | jq '.[] | select(.disabled)'`,
	RunE: runExtensionsList,
}

var extensionsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch the catalog and reconcile local installs against it",
	Long: `Fetch the configured catalog manifests, scan the package custom_nodes
directory, and match installs to their catalog entries by repository
reference.

Examples:
  # Reconcile and print the installed table
  easel extensions sync

  # Untracked installs as JSON
  easel extensions sync --json | jq '.[] | select(.tracked | not)'`,
	RunE: runExtensionsSync,
}

func init() {
	extensionsListCmd.Flags().BoolVar(&extInstalled, "installed", false, "list locally installed extensions instead of the catalog")
	extensionsListCmd.Flags().BoolVar(&extJSON, "json", false, "output JSON instead of a table")
	extensionsSyncCmd.Flags().BoolVar(&extJSON, "json", false, "output JSON instead of a table")
	extensionsCmd.AddCommand(extensionsListCmd)
	extensionsCmd.AddCommand(extensionsSyncCmd)
	rootCmd.AddCommand(extensionsCmd)
}

func runExtensionsList(_ *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
	defer cancel()

	formatter := presentation.NewFormatter(os.Stdout)

	if extInstalled {
		installed, err := scanInstalledExtensions(ctx)
		if err != nil {
			return err
		}
		// Best-effort reconcile so the tracking state is meaningful
		if available, fetchErr := fetchCatalog(ctx); fetchErr == nil {
			_, installed = extensions.Synchronize(available, installed)
		}

		dtos := presentation.FromInstalled(installed)
		if extJSON {
			return formatter.FormatInstalledJSON(dtos)
		}
		return formatter.FormatInstalledTable(dtos)
	}

	available, err := fetchCatalog(ctx)
	if err != nil {
		return err
	}
	// Best-effort scan so installed entries get their marker
	installed, _ := scanInstalledExtensions(ctx)
	available, installed = extensions.Synchronize(available, installed)

	dtos := presentation.FromCatalog(available, installed)
	if extJSON {
		return formatter.FormatExtensionsJSON(dtos)
	}
	return formatter.FormatExtensionsTable(dtos)
}

func runExtensionsSync(_ *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
	defer cancel()

	available, err := fetchCatalog(ctx)
	if err != nil {
		return err
	}
	installed, err := scanInstalledExtensions(ctx)
	if err != nil {
		return err
	}

	available, installed = extensions.Synchronize(available, installed)

	formatter := presentation.NewFormatter(os.Stdout)
	dtos := presentation.FromInstalled(installed)
	if extJSON {
		return formatter.FormatInstalledJSON(dtos)
	}

	tracked := 0
	for _, d := range dtos {
		if d.Tracked {
			tracked++
		}
	}
	if err := formatter.FormatInstalledTable(dtos); err != nil {
		return err
	}
	fmt.Printf("\n%d catalog entries, %d installed, %d tracked\n", len(available), len(dtos), tracked)
	return nil
}

// fetchCatalog builds a one-shot index from the configuration and fetches
// the available catalog.
func fetchCatalog(ctx context.Context) ([]extensions.Extension, error) {
	if len(cfg.Extensions.ManifestURLs) == 0 {
		return nil, fmt.Errorf("no catalog manifests configured (extensions.manifest_urls)")
	}

	ttl := time.Duration(cfg.Extensions.CacheTTLSeconds) * time.Second
	index := extensions.NewIndex(cfg.Extensions.ManifestURLs, ttl)
	available, err := index.Available(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching catalog: %w", err)
	}
	return available, nil
}

// scanInstalledExtensions scans the configured package's custom_nodes
// directory.
func scanInstalledExtensions(ctx context.Context) ([]extensions.InstalledExtension, error) {
	if cfg.Package.Dir == "" {
		return nil, fmt.Errorf("no package directory configured (package.dir)")
	}

	scanner := extensions.NewInstalledScanner(git.NewRealExecutor())
	installed, err := scanner.Scan(ctx, paths.ResolvePackageDir(cfg.Package.Dir))
	if err != nil {
		return nil, fmt.Errorf("scanning installed extensions: %w", err)
	}
	return installed, nil
}
