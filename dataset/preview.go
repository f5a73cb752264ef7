package dataset

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// Image reconstructs a single split entry as a standard 32x32 RGBA image.
func (s *Split) Image(i int) (image.Image, error) {
	if i < 0 || i >= s.Len() {
		return nil, errors.Errorf("image index %d out of range for %d images", i, s.Len())
	}

	data := s.Images.Data().([]float32)
	base := i * pixelBytes

	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			off := base + (y*Width+x)*Channels
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(data[off]*255 + 0.5),
				G: uint8(data[off+1]*255 + 0.5),
				B: uint8(data[off+2]*255 + 0.5),
				A: 255,
			})
		}
	}
	return img, nil
}

// SampleGrid renders the first rows*cols images of the split as one preview
// image, each thumbnail upscaled by the given factor. Mirrors the
// look-at-the-data step that precedes a benchmark run.
func (s *Split) SampleGrid(rows, cols, scale int) (image.Image, error) {
	if rows <= 0 || cols <= 0 || scale <= 0 {
		return nil, errors.Errorf("invalid grid %dx%d at scale %d", rows, cols, scale)
	}
	if rows*cols > s.Len() {
		return nil, errors.Errorf("grid needs %d images, split has %d", rows*cols, s.Len())
	}

	cell := Width * scale
	grid := image.NewRGBA(image.Rect(0, 0, cols*cell, rows*cell))

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			thumb, err := s.Image(r*cols + c)
			if err != nil {
				return nil, err
			}
			scaled := resize.Resize(uint(cell), uint(cell), thumb, resize.NearestNeighbor)
			dst := image.Rect(c*cell, r*cell, (c+1)*cell, (r+1)*cell)
			draw.Draw(grid, dst, scaled, image.Point{}, draw.Src)
		}
	}
	return grid, nil
}

// WriteSampleGrid renders a sample grid and writes it as a PNG file.
func (s *Split) WriteSampleGrid(path string, rows, cols, scale int) error {
	grid, err := s.SampleGrid(rows, cols, scale)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating preview file")
	}
	defer f.Close()

	return errors.Wrap(png.Encode(f, grid), "encoding preview")
}
