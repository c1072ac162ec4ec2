package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/easel-dev/easel/internal/extensions"
	"github.com/easel-dev/easel/internal/git"
)

// InstallExtension clones an extension's repository into the package's
// custom_nodes directory.
type InstallExtension struct {
	Extension extensions.Extension
	TargetDir string // the custom_nodes directory
	Git       git.GitExecutor
}

// Name implements Step.
func (s InstallExtension) Name() string {
	return "Install " + s.Extension.Title
}

// Run implements Step. Only git-clone installs are supported; manifest
// entries with other install types fail with a descriptive error.
func (s InstallExtension) Run(ctx context.Context) error {
	if t := s.Extension.InstallType; t != "" && t != "git-clone" {
		return fmt.Errorf("install type %q not supported", t)
	}
	if s.Extension.Reference == "" {
		return fmt.Errorf("extension %q has no repository reference", s.Extension.Title)
	}

	dest := filepath.Join(s.TargetDir, extensions.RepoDirName(s.Extension.Reference))
	if err := s.Git.Clone(ctx, s.Extension.Reference, dest); err != nil {
		return fmt.Errorf("clone %s: %w", s.Extension.Reference, err)
	}
	return nil
}

// UninstallExtension removes an installed extension's files.
type UninstallExtension struct {
	Installed extensions.InstalledExtension
}

// Name implements Step.
func (s UninstallExtension) Name() string {
	return "Uninstall " + s.Installed.Title
}

// Run implements Step.
func (s UninstallExtension) Run(ctx context.Context) error {
	if len(s.Installed.Paths) == 0 {
		return fmt.Errorf("extension %q has no paths on disk", s.Installed.Title)
	}
	for _, p := range s.Installed.Paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == "" {
			continue
		}
		if err := os.RemoveAll(p); err != nil {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}

// UpdateExtension fast-forwards an installed extension's checkout.
type UpdateExtension struct {
	Installed extensions.InstalledExtension
	Git       git.GitExecutor
}

// Name implements Step.
func (s UpdateExtension) Name() string {
	return "Update " + s.Installed.Title
}

// Run implements Step.
func (s UpdateExtension) Run(ctx context.Context) error {
	if len(s.Installed.Paths) == 0 {
		return fmt.Errorf("extension %q has no paths on disk", s.Installed.Title)
	}
	dir := s.Installed.Paths[0]
	if !s.Git.IsRepo(dir) {
		return fmt.Errorf("%s is not a git checkout", dir)
	}
	if err := s.Git.Pull(ctx, dir); err != nil {
		return fmt.Errorf("pull %s: %w", dir, err)
	}
	return nil
}

// ToggleExtension enables or disables an installed extension by renaming
// its directory with the disabled suffix, the same convention the package
// manager uses.
type ToggleExtension struct {
	Installed extensions.InstalledExtension
}

// Name implements Step.
func (s ToggleExtension) Name() string {
	if s.Installed.Disabled {
		return "Enable " + s.Installed.Title
	}
	return "Disable " + s.Installed.Title
}

// Run implements Step.
func (s ToggleExtension) Run(ctx context.Context) error {
	if len(s.Installed.Paths) == 0 {
		return fmt.Errorf("extension %q has no paths on disk", s.Installed.Title)
	}
	dir := s.Installed.Paths[0]

	var target string
	if s.Installed.Disabled {
		target = strings.TrimSuffix(dir, extensions.DisabledSuffix)
	} else {
		target = dir + extensions.DisabledSuffix
	}
	if target == dir {
		return nil
	}
	if err := os.Rename(dir, target); err != nil {
		return fmt.Errorf("rename %s: %w", dir, err)
	}
	return nil
}
