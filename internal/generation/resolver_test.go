package generation

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/easel-dev/easel/internal/comfy"
)

func testViewURL(ref comfy.ImageRef) string {
	return "http://gpu:8188/view?filename=" + ref.Filename
}

func writeTestPNG(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 128, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestResolver_Resolve_PrefersLocalPaths(t *testing.T) {
	dir := t.TempDir()
	writeTestPNG(t, filepath.Join(dir, "a.png"))

	r := NewResolver(dir, testViewURL)
	images := r.Resolve(comfy.Outputs{
		OutputNodeName: {
			{Filename: "a.png", Type: "output"},
			{Filename: "missing.png", Type: "output"},
		},
	})

	require.Len(t, images, 2)
	require.Equal(t, filepath.Join(dir, "a.png"), images[0].Path)
	require.True(t, images[0].Local())
	require.Empty(t, images[1].Path)
	require.False(t, images[1].Local())
	require.Equal(t, "http://gpu:8188/view?filename=missing.png", images[1].URL)
	require.Equal(t, images[1].URL, images[1].Display())
}

func TestResolver_Resolve_Subfolder(t *testing.T) {
	dir := t.TempDir()
	writeTestPNG(t, filepath.Join(dir, "batch", "a.png"))

	r := NewResolver(dir, testViewURL)
	images := r.Resolve(comfy.Outputs{
		OutputNodeName: {{Filename: "a.png", Subfolder: "batch", Type: "output"}},
	})

	require.Len(t, images, 1)
	require.Equal(t, filepath.Join(dir, "batch", "a.png"), images[0].Path)
}

func TestResolver_Resolve_NoOutputDir(t *testing.T) {
	r := NewResolver("", testViewURL)
	images := r.Resolve(comfy.Outputs{
		OutputNodeName: {{Filename: "a.png", Type: "output"}},
	})

	require.Len(t, images, 1)
	require.False(t, images[0].Local())
	require.Equal(t, "http://gpu:8188/view?filename=a.png", images[0].Display())
}

func TestResolver_Resolve_IgnoresOtherNodes(t *testing.T) {
	r := NewResolver("", testViewURL)
	images := r.Resolve(comfy.Outputs{
		"PreviewImage": {{Filename: "preview.png", Type: "temp"}},
	})
	require.Empty(t, images)
}

func TestResolver_Finalize_PrependsGrid(t *testing.T) {
	dir := t.TempDir()
	writeTestPNG(t, filepath.Join(dir, "a.png"))
	writeTestPNG(t, filepath.Join(dir, "b.png"))

	r := NewResolver(dir, testViewURL)
	images := r.Resolve(comfy.Outputs{
		OutputNodeName: {
			{Filename: "a.png", Type: "output"},
			{Filename: "b.png", Type: "output"},
		},
	})

	final := r.Finalize(images)
	require.Len(t, final, 3)
	require.Equal(t, "grid-b.png", final[0].Ref.Filename)
	require.Equal(t, filepath.Join(dir, "grid-b.png"), final[0].Path)
	require.FileExists(t, final[0].Path)
	require.Equal(t, "a.png", final[1].Ref.Filename)
	require.Equal(t, "b.png", final[2].Ref.Filename)
}

func TestResolver_Finalize_SingleImageUnchanged(t *testing.T) {
	dir := t.TempDir()
	writeTestPNG(t, filepath.Join(dir, "a.png"))

	r := NewResolver(dir, testViewURL)
	images := r.Resolve(comfy.Outputs{
		OutputNodeName: {{Filename: "a.png", Type: "output"}},
	})

	final := r.Finalize(images)
	require.Equal(t, images, final)
	require.NoFileExists(t, filepath.Join(dir, "grid-a.png"))
}

func TestResolver_Finalize_RemoteOutputsSkipGrid(t *testing.T) {
	r := NewResolver("", testViewURL)
	images := []Image{
		{Ref: comfy.ImageRef{Filename: "a.png"}, URL: "http://gpu:8188/view?filename=a.png"},
		{Ref: comfy.ImageRef{Filename: "b.png"}, URL: "http://gpu:8188/view?filename=b.png"},
	}
	require.Equal(t, images, r.Finalize(images))
}

func TestResolver_Finalize_CompositeFailureUnchanged(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))
	writeTestPNG(t, filepath.Join(dir, "good.png"))

	r := NewResolver(dir, testViewURL)
	images := []Image{
		{Ref: comfy.ImageRef{Filename: "bad.png"}, Path: bad},
		{Ref: comfy.ImageRef{Filename: "good.png"}, Path: filepath.Join(dir, "good.png")},
	}
	require.Equal(t, images, r.Finalize(images))
}
