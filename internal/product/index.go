package product

import (
	"context"
	"fmt"
	"math"

	"github.com/airbusgeo/telluric/internal/raster"
	"github.com/airbusgeo/telluric/internal/telluric"
)

// Formula computes the value of an index from the values of its roles (in Metadata.Roles order).
// ok=false masks the pixel (e.g. division by zero).
type Formula func(v []float64) (res float64, ok bool)

// IndexGenerator computes a single-band FLOAT32 spectral index, pixel by pixel.
// A pixel is masked if it is masked in the input or if the formula is not defined.
type IndexGenerator struct {
	meta    Metadata
	formula Formula
}

// NewIndexGenerator creates a spectral index named name, computed by formula from the roles
func NewIndexGenerator(meta Metadata, formula Formula) (*IndexGenerator, error) {
	if meta.Name == "" {
		return nil, telluric.NewValidationError("index: empty name")
	}
	if len(meta.Roles) == 0 {
		return nil, telluric.NewValidationError("index %s: at least one role is required", meta.Name)
	}
	for _, role := range meta.Roles {
		if _, ok := role.Window(); !ok {
			return nil, telluric.NewEntityNotFound("Role", string(role), "")
		}
	}
	if err := (telluric.Range{Min: meta.Min, Max: meta.Max}).Validate(); err != nil {
		return nil, fmt.Errorf("index %s.%w", meta.Name, err)
	}
	if formula == nil {
		return nil, telluric.NewValidationError("index %s: no formula", meta.Name)
	}
	if len(meta.OutputBands) == 0 {
		meta.OutputBands = []string{meta.Name}
	}
	if meta.DefaultView == "" {
		meta.DefaultView = raster.ColormapPrefix + "jet"
	}
	return &IndexGenerator{meta: meta, formula: formula}, nil
}

func (g *IndexGenerator) Metadata() Metadata {
	return g.meta
}

func (g *IndexGenerator) Apply(ctx context.Context, in Input) (*Result, error) {
	values, err := roleValues(ctx, in, g.meta.Roles)
	if err != nil {
		return nil, err
	}
	r := in.Raster
	n := r.Width() * r.Height()
	out := make([]float64, n)
	mask := make([]bool, n)
	err = raster.ForEachChunk(ctx, n, func(start, end int) error {
		v := make([]float64, len(values))
		for i := start; i < end; i++ {
			if r.Masked(i) {
				mask[i] = true
				continue
			}
			for k := range values {
				v[k] = values[k][i]
			}
			res, ok := g.formula(v)
			if !ok || math.IsNaN(res) || math.IsInf(res, 0) {
				mask[i] = true
				continue
			}
			out[i] = float64(float32(res))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i := range out {
		if mask[i] {
			out[i] = math.NaN()
		}
	}
	pr, err := r.Derive(g.meta.OutputBands[:1], [][]float64{out}, mask, telluric.DTypeFLOAT32)
	if err != nil {
		return nil, err
	}
	return newResult(g.meta, pr), nil
}

// normalizedDifference returns (a-b)/(a+b)
func normalizedDifference(a, b float64) (float64, bool) {
	if a+b == 0 {
		return 0, false
	}
	return (a - b) / (a + b), true
}

// chromatic returns the chromatic coordinates of (r, g, b)
func chromatic(r, g, b float64) (float64, float64, float64, bool) {
	s := r + g + b
	if s == 0 {
		return 0, 0, 0, false
	}
	return r / s, g / s, b / s, true
}

func mustIndex(meta Metadata, formula Formula) *IndexGenerator {
	g, err := NewIndexGenerator(meta, formula)
	if err != nil {
		panic(err)
	}
	return g
}

func builtinIndices() []Generator {
	return []Generator{
		mustIndex(Metadata{
			Name:        "ndvi",
			Description: "Normalized Difference Vegetation Index",
			Roles:       []Role{RoleNIR, RoleRed},
			Min:         -1,
			Max:         1,
			DefaultView: raster.ColormapPrefix + "RdYlGn",
		}, func(v []float64) (float64, bool) {
			return normalizedDifference(v[0], v[1])
		}),
		mustIndex(Metadata{
			Name:        "evi2",
			Description: "Two-band Enhanced Vegetation Index",
			Roles:       []Role{RoleNIR, RoleRed},
			Min:         -1,
			Max:         1,
			DefaultView: raster.ColormapPrefix + "RdYlGn",
		}, func(v []float64) (float64, bool) {
			d := v[0] + 2.4*v[1] + 1
			if d == 0 {
				return 0, false
			}
			return 2.5 * (v[0] - v[1]) / d, true
		}),
		mustIndex(Metadata{
			Name:        "endvi",
			Description: "Enhanced Normalized Difference Vegetation Index",
			Roles:       []Role{RoleNIR, RoleGreen, RoleBlue},
			Min:         -1,
			Max:         1,
			DefaultView: raster.ColormapPrefix + "RdYlGn",
		}, func(v []float64) (float64, bool) {
			return normalizedDifference(v[0]+v[1], 2*v[2])
		}),
		mustIndex(Metadata{
			Name:        "exg",
			Description: "Excess Green Index",
			Roles:       []Role{RoleRed, RoleGreen, RoleBlue},
			Min:         -1,
			Max:         2,
			DefaultView: raster.ColormapPrefix + "jet",
		}, func(v []float64) (float64, bool) {
			r, g, b, ok := chromatic(v[0], v[1], v[2])
			return 2*g - r - b, ok
		}),
		mustIndex(Metadata{
			Name:        "exr",
			Description: "Excess Red Index",
			Roles:       []Role{RoleRed, RoleGreen, RoleBlue},
			Min:         -1,
			Max:         1.4,
			DefaultView: raster.ColormapPrefix + "jet",
		}, func(v []float64) (float64, bool) {
			r, g, _, ok := chromatic(v[0], v[1], v[2])
			return 1.4*r - g, ok
		}),
		mustIndex(Metadata{
			Name:        "exb",
			Description: "Excess Blue Index",
			Roles:       []Role{RoleRed, RoleGreen, RoleBlue},
			Min:         -1,
			Max:         1.4,
			DefaultView: raster.ColormapPrefix + "jet",
		}, func(v []float64) (float64, bool) {
			_, g, b, ok := chromatic(v[0], v[1], v[2])
			return 1.4*b - g, ok
		}),
		mustIndex(Metadata{
			Name:        "ndwi",
			Description: "Normalized Difference Water Index",
			Roles:       []Role{RoleGreen, RoleNIR},
			Min:         -1,
			Max:         1,
			DefaultView: raster.ColormapPrefix + "RdBu",
		}, func(v []float64) (float64, bool) {
			return normalizedDifference(v[0], v[1])
		}),
		mustIndex(Metadata{
			Name:        "ndre",
			Description: "Normalized Difference Red Edge",
			Roles:       []Role{RoleNIR, RoleRedEdge},
			Min:         -1,
			Max:         1,
			DefaultView: raster.ColormapPrefix + "RdYlGn",
		}, func(v []float64) (float64, bool) {
			return normalizedDifference(v[0], v[1])
		}),
	}
}
