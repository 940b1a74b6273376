package raster

import (
	"context"
	"fmt"
	"image/color"
	"strings"

	"github.com/airbusgeo/telluric/internal/telluric"
)

// Views
const (
	ColormapPrefix = "cm-"
	ViewTrueColor  = "TrueColor"
)

// paletteSize is the number of colors of the palettes used to render colormaps
const paletteSize = 256

// RGBBands are the band names of a visualization
var RGBBands = []string{"red", "green", "blue"}

// Visualize renders the raster as a 3-bands UINT8 raster (red, green, blue) using the view:
//   - "cm-<palette>" maps a single-band raster through the palette (see telluric.GetPalette)
//   - "TrueColor" stretches the red, green and blue bands
//
// Values are clipped to [vmin, vmax]. Masked pixels stay masked (nodata=0).
// Returns ValidationError, EntityNotFound
func (r *Raster) Visualize(ctx context.Context, view string, vmin, vmax float64) (*Raster, error) {
	rg := telluric.Range{Min: vmin, Max: vmax}
	if err := rg.Validate(); err != nil {
		return nil, fmt.Errorf("Visualize.%w", err)
	}
	switch {
	case strings.HasPrefix(view, ColormapPrefix):
		palette, err := telluric.GetPalette(strings.TrimPrefix(view, ColormapPrefix))
		if err != nil {
			return nil, fmt.Errorf("Visualize.%w", err)
		}
		return r.colormap(ctx, palette, rg)
	case view == ViewTrueColor:
		return r.trueColor(ctx, rg)
	}
	return nil, telluric.NewEntityNotFound("View", view, "")
}

func (r *Raster) rgbFormat() telluric.DataFormat {
	return telluric.DataFormat{DType: telluric.DTypeUINT8, NoData: 0}
}

func (r *Raster) newRGBBands() [][]float64 {
	bands := make([][]float64, len(RGBBands))
	for i := range bands {
		bands[i] = make([]float64, r.width*r.height)
	}
	return bands
}

func (r *Raster) colormap(ctx context.Context, palette telluric.Palette, rg telluric.Range) (*Raster, error) {
	if r.NBands() != 1 {
		return nil, telluric.NewValidationError("colormap %s requires a single-band raster (got %d bands: %v)", palette.Name, r.NBands(), r.bandNames)
	}
	colors := palette.PaletteN(paletteSize)
	pix := r.bands[0]
	out := r.newRGBBands()
	err := ForEachChunk(ctx, len(pix), func(start, end int) error {
		for i := start; i < end; i++ {
			if r.Masked(i) {
				continue
			}
			c := colors[paletteIndex(rg, pix[i])].(color.RGBA)
			// 0 is nodata: valid pixels are at least 1
			out[0][i], out[1][i], out[2][i] = valid(c.R), valid(c.G), valid(c.B)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Visualize.%w", err)
	}
	return r.derive(append([]string(nil), RGBBands...), out, r.Mask(), r.rgbFormat()), nil
}

func (r *Raster) trueColor(ctx context.Context, rg telluric.Range) (*Raster, error) {
	in := make([][]float64, len(RGBBands))
	for i, name := range RGBBands {
		b, err := r.Band(name)
		if err != nil {
			return nil, fmt.Errorf("Visualize.%s.%w", ViewTrueColor, err)
		}
		in[i] = b
	}
	out := r.newRGBBands()
	err := ForEachChunk(ctx, r.width*r.height, func(start, end int) error {
		for i := start; i < end; i++ {
			if r.Masked(i) {
				continue
			}
			for b := range in {
				out[b][i] = valid(uint8(rg.ScaleTo(in[b][i], telluric.Range{Min: 0, Max: 255}) + 0.5))
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Visualize.%w", err)
	}
	return r.derive(append([]string(nil), RGBBands...), out, r.Mask(), r.rgbFormat()), nil
}

// paletteIndex maps v to [0, paletteSize)
func paletteIndex(rg telluric.Range, v float64) int {
	idx := int(rg.Normalize(v)*(paletteSize-1) + 0.5)
	if idx < 0 {
		return 0
	}
	if idx >= paletteSize {
		return paletteSize - 1
	}
	return idx
}

func valid(v uint8) float64 {
	if v == 0 {
		return 1
	}
	return float64(v)
}
