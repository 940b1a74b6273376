package product

import (
	"context"
	"fmt"

	"github.com/airbusgeo/telluric/internal/raster"
	"github.com/airbusgeo/telluric/internal/telluric"
)

// ParamBand is the parameter of SingleBand: the name of the band to extract
const ParamBand = "band"

type singleBand struct{}

func (singleBand) Metadata() Metadata {
	return Metadata{
		Name:        "SingleBand",
		Description: "A single band of the raster, selected with the parameter " + ParamBand,
		DefaultView: raster.ColormapPrefix + "gray",
	}
}

// Apply extracts the band in.Params[ParamBand]. The range of the result is the range of its valid values.
// Returns MissingParameter, EntityNotFound
func (g singleBand) Apply(ctx context.Context, in Input) (*Result, error) {
	meta := g.Metadata()
	band, ok := in.Params[ParamBand]
	if !ok || band == "" {
		return nil, telluric.NewMissingParameter(meta.Name, ParamBand)
	}
	r, err := in.Raster.Subset(band)
	if err != nil {
		return nil, err
	}
	res := newResult(meta, r)
	rg, err := r.ValueRange()
	if err != nil {
		// No valid pixel
		rg = telluric.Range{Min: 0, Max: 1}
		if !r.DType().IsFloatingPointFormat() {
			rg = r.DType().Range()
		}
	}
	res.Min, res.Max = rg.Min, rg.Max
	return res, nil
}

type trueColor struct{}

func (trueColor) Metadata() Metadata {
	return Metadata{
		Name:        "TrueColor",
		Description: "Natural color composite of the red, green and blue bands",
		Roles:       []Role{RoleRed, RoleGreen, RoleBlue},
		OutputBands: append([]string(nil), raster.RGBBands...),
		DefaultView: raster.ViewTrueColor,
	}
}

// Apply composes the bands playing the red, green and blue roles (averaged if several bands play a role).
// The range of the result is [0, 255] for UINT8 rasters, the range of the valid values otherwise.
func (g trueColor) Apply(ctx context.Context, in Input) (*Result, error) {
	meta := g.Metadata()
	values, err := roleValues(ctx, in, meta.Roles)
	if err != nil {
		return nil, err
	}
	dtype := in.Raster.DType()
	if !dtype.IsFloatingPointFormat() {
		for i := range values {
			values[i] = clamped(values[i], dtype)
		}
	}
	r, err := raster.New(meta.OutputBands, in.Raster.Width(), in.Raster.Height(), values,
		raster.WithMask(in.Raster.Mask()), raster.WithDType(dtype), raster.WithNoData(in.Raster.NoData()),
		raster.WithTransform(in.Raster.Transform()), raster.WithCRS(in.Raster.CRS()))
	if err != nil {
		return nil, fmt.Errorf("%s.%w", meta.Name, err)
	}
	res := newResult(meta, r)
	rg := telluric.Range{Min: 0, Max: 255}
	if dtype != telluric.DTypeUINT8 {
		if rg, err = r.ValueRange(); err != nil {
			rg = telluric.Range{Min: 0, Max: 1}
		}
	}
	res.Min, res.Max = rg.Min, rg.Max
	return res, nil
}

func clamped(pix []float64, dtype telluric.DType) []float64 {
	out := make([]float64, len(pix))
	for i, v := range pix {
		out[i] = dtype.Clamp(v)
	}
	return out
}
