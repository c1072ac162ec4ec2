package presentation

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easel-dev/easel/internal/extensions"
)

func TestFromCatalog_MarksInstalled(t *testing.T) {
	depth := extensions.Extension{Author: "alice", Title: "DepthMap", Reference: "https://github.com/alice/depthmap"}
	upscale := extensions.Extension{Author: "bob", Title: "Upscaler", Reference: "https://github.com/bob/upscaler"}

	installed := []extensions.InstalledExtension{
		{Title: "depthmap", Paths: []string{"/pkg/custom_nodes/depthmap"}, Definition: &depth},
	}

	dtos := FromCatalog([]extensions.Extension{depth, upscale}, installed)
	require.Len(t, dtos, 2)

	assert.Equal(t, "DepthMap", dtos[0].Title)
	assert.True(t, dtos[0].Installed, "matched entry should be marked installed")
	assert.Equal(t, "Upscaler", dtos[1].Title)
	assert.False(t, dtos[1].Installed)
}

func TestFromCatalog_IgnoresUnmatchedInstalls(t *testing.T) {
	ext := extensions.Extension{Author: "alice", Title: "DepthMap", Reference: "https://github.com/alice/depthmap"}

	// An install without a definition never marks catalog entries.
	installed := []extensions.InstalledExtension{
		{Title: "something-else", Paths: []string{"/pkg/custom_nodes/something-else"}},
	}

	dtos := FromCatalog([]extensions.Extension{ext}, installed)
	require.Len(t, dtos, 1)
	assert.False(t, dtos[0].Installed)
}

func TestFromInstalled_TrackedState(t *testing.T) {
	def := extensions.Extension{Author: "alice", Title: "DepthMap", Reference: "https://github.com/alice/depthmap"}

	dtos := FromInstalled([]extensions.InstalledExtension{
		{Title: "depthmap", RepositoryURL: "https://github.com/alice/depthmap.git", Definition: &def},
		{Title: "local-hack", Paths: []string{"/pkg/custom_nodes/local-hack"}},
	})
	require.Len(t, dtos, 2)

	assert.True(t, dtos[0].Tracked)
	assert.False(t, dtos[1].Tracked)
}

func TestInstallState(t *testing.T) {
	tests := []struct {
		name string
		dto  InstalledDTO
		want string
	}{
		{"disabled wins", InstalledDTO{Disabled: true, Tracked: true}, "disabled"},
		{"untracked", InstalledDTO{Tracked: false}, "untracked"},
		{"tracked and enabled", InstalledDTO{Tracked: true}, "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, installState(tt.dto))
		})
	}
}

func TestFormatExtensionsJSON_RoundTrips(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf)

	in := []ExtensionDTO{
		{Title: "DepthMap", Author: "alice", Reference: "https://github.com/alice/depthmap", Installed: true},
	}
	require.NoError(t, f.FormatExtensionsJSON(in))

	var out []ExtensionDTO
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, in, out)
}

func TestFormatExtensionsTable(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf)

	require.NoError(t, f.FormatExtensionsTable([]ExtensionDTO{
		{Title: "DepthMap", Author: "alice", Reference: "https://github.com/alice/depthmap", Installed: true},
		{Title: "Upscaler", Author: "bob", Reference: "https://github.com/bob/upscaler"},
	}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)

	assert.Contains(t, lines[0], "TITLE")
	assert.Contains(t, lines[0], "AUTHOR")
	assert.True(t, strings.HasPrefix(lines[1], "*"), "installed row should carry the marker")
	assert.Contains(t, lines[1], "DepthMap")
	assert.False(t, strings.HasPrefix(lines[2], "*"))
	assert.Contains(t, lines[2], "Upscaler")
}

func TestFormatInstalledTable(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf)

	require.NoError(t, f.FormatInstalledTable([]InstalledDTO{
		{Title: "depthmap", RepositoryURL: "https://github.com/alice/depthmap.git", Tracked: true},
		{Title: "old-nodes", Disabled: true},
	}))

	out := buf.String()
	assert.Contains(t, out, "STATE")
	assert.Contains(t, out, "ok")
	assert.Contains(t, out, "disabled")
	assert.Contains(t, out, "https://github.com/alice/depthmap.git")
}
