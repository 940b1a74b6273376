package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/airbusgeo/telluric/internal/telluric"
)

// Image converts a visualization (3 UINT8 bands: red, green, blue) to an image.
// Masked pixels are transparent.
func (r *Raster) Image() (*image.NRGBA, error) {
	if r.format.DType != telluric.DTypeUINT8 {
		return nil, telluric.NewValidationError("Image: UINT8 raster expected, got %s (use Visualize first)", r.format.DType.String())
	}
	in := make([][]float64, len(RGBBands))
	for i, name := range RGBBands {
		b, err := r.Band(name)
		if err != nil {
			return nil, fmt.Errorf("Image.%w", err)
		}
		in[i] = b
	}
	img := image.NewNRGBA(image.Rect(0, 0, r.width, r.height))
	for i := 0; i < r.width*r.height; i++ {
		if r.Masked(i) {
			continue
		}
		img.SetNRGBA(i%r.width, i/r.width, color.NRGBA{R: uint8(in[0][i]), G: uint8(in[1][i]), B: uint8(in[2][i]), A: 255})
	}
	return img, nil
}

// EncodePNG writes the visualization as a PNG
func (r *Raster) EncodePNG(w io.Writer) error {
	img, err := r.Image()
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("EncodePNG: %w", err)
	}
	return nil
}

// PNGAsBytes returns the byte representation of the visualization as a PNG
func (r *Raster) PNGAsBytes() ([]byte, error) {
	b := bytes.Buffer{}
	if err := r.EncodePNG(&b); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
