// Package imaging composites batches of generated images into a single
// grid image. Only the formats the backend emits (PNG, JPEG) are
// supported.
package imaging

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"math"
	"os"

	_ "image/jpeg" // backends can be configured to emit JPEG
)

// Columns returns the column count for laying n images out in a
// row-major, near-square grid.
func Columns(n int) int {
	if n <= 0 {
		return 0
	}
	return int(math.Ceil(math.Sqrt(float64(n))))
}

// ReadImage decodes the image file at path.
func ReadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("imaging: decode %s: %w", path, err)
	}
	return img, nil
}

// Grid composites images into a single row-major grid. Cells are sized
// to the largest image, smaller images are drawn at their cell's origin.
func Grid(images []image.Image) *image.RGBA {
	if len(images) == 0 {
		return image.NewRGBA(image.Rectangle{})
	}
	cols := Columns(len(images))
	rows := (len(images) + cols - 1) / cols

	var cellW, cellH int
	for _, img := range images {
		b := img.Bounds()
		if b.Dx() > cellW {
			cellW = b.Dx()
		}
		if b.Dy() > cellH {
			cellH = b.Dy()
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, cols*cellW, rows*cellH))
	for i, img := range images {
		origin := image.Pt((i%cols)*cellW, (i/cols)*cellH)
		cell := image.Rectangle{Min: origin, Max: origin.Add(img.Bounds().Size())}
		draw.Draw(dst, cell, img, img.Bounds().Min, draw.Src)
	}
	return dst
}

// WriteGrid decodes the images at paths, composites them, and writes the
// result as PNG to dst.
func WriteGrid(dst string, paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("imaging: no images to composite")
	}
	images := make([]image.Image, 0, len(paths))
	for _, p := range paths {
		img, err := ReadImage(p)
		if err != nil {
			return err
		}
		images = append(images, img)
	}

	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := png.Encode(f, Grid(images)); err != nil {
		f.Close()
		return fmt.Errorf("imaging: encode %s: %w", dst, err)
	}
	return f.Close()
}
