package generation

import (
	"os"
	"path/filepath"

	"github.com/easel-dev/easel/internal/comfy"
	"github.com/easel-dev/easel/internal/imaging"
	"github.com/easel-dev/easel/internal/log"
)

// Image is one produced output image and where it can be read from.
// Path is set when the backend's output directory is reachable on the
// local filesystem, URL always points at the backend's view endpoint.
type Image struct {
	Ref  comfy.ImageRef
	Path string
	URL  string
}

// Local reports whether the image resolved to a local file.
func (img Image) Local() bool { return img.Path != "" }

// Display returns the preferred location for showing the image.
func (img Image) Display() string {
	if img.Path != "" {
		return img.Path
	}
	return img.URL
}

// Resolver turns backend image references into local paths or view URLs.
type Resolver struct {
	outputDir string
	viewURL   func(comfy.ImageRef) string
}

// NewResolver builds a resolver. outputDir may be empty when the backend
// runs on another machine, in which case every image resolves to a URL.
func NewResolver(outputDir string, viewURL func(comfy.ImageRef) string) *Resolver {
	return &Resolver{outputDir: outputDir, viewURL: viewURL}
}

// Resolve maps the save node's output references to images, preferring
// local paths when the file exists under the output directory.
func (r *Resolver) Resolve(outputs comfy.Outputs) []Image {
	refs := outputs[OutputNodeName]
	images := make([]Image, 0, len(refs))
	for _, ref := range refs {
		img := Image{Ref: ref}
		if r.viewURL != nil {
			img.URL = r.viewURL(ref)
		}
		if r.outputDir != "" {
			path := filepath.Join(r.outputDir, filepath.FromSlash(ref.Subfolder), ref.Filename)
			if _, err := os.Stat(path); err == nil {
				img.Path = path
			}
		}
		images = append(images, img)
	}
	return images
}

// Finalize composites multi-image batches into a grid file and returns
// the grid image followed by the originals in their original order.
// Single images, remote-only results, and compositing failures return
// the input unchanged.
func (r *Resolver) Finalize(images []Image) []Image {
	if len(images) < 2 {
		return images
	}
	for _, img := range images {
		if !img.Local() {
			log.Debug(log.CatGen, "skipping grid, not all outputs are local")
			return images
		}
	}

	paths := make([]string, 0, len(images))
	for _, img := range images {
		paths = append(paths, img.Path)
	}

	last := images[len(images)-1]
	gridName := "grid-" + last.Ref.Filename
	gridPath := filepath.Join(r.outputDir, gridName)
	if err := imaging.WriteGrid(gridPath, paths); err != nil {
		log.ErrorErr(log.CatGen, "grid compositing failed", err, "path", gridPath)
		return images
	}
	log.Info(log.CatGen, "composited grid", "path", gridPath, "images", len(images))

	grid := Image{
		Ref:  comfy.ImageRef{Filename: gridName, Type: "output"},
		Path: gridPath,
	}
	return append([]Image{grid}, images...)
}
