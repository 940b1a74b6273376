// Package product computes products (spectral indices, band selections, composites)
// from the bands of a raster, according to the spectral roles these bands can play.
package product

import (
	"context"
	"fmt"

	"github.com/airbusgeo/telluric/internal/raster"
	"github.com/airbusgeo/telluric/internal/telluric"
)

// Metadata describes a product
type Metadata struct {
	Name        string
	Description string
	Roles       []Role   // Roles required by the product
	OutputBands []string // Names of the bands of the product (empty if they depend on the input)
	Min, Max    float64  // Range of the values (ignored if the range depends on the input)
	Unit        string
	DefaultView string
}

// Params are the product-specific parameters
type Params map[string]string

// Input of a generator
type Input struct {
	Raster   *raster.Raster
	Matching Matching
	Info     telluric.SensorBandsInfo
	Params   Params
}

// Result is a product with its metadata
type Result struct {
	Raster      *raster.Raster
	Name        string
	Description string
	DefaultView string
	Min, Max    float64
	Unit        string
	OutputBands []string
}

// Range returns the range of values of the product
func (r *Result) Range() telluric.Range {
	return telluric.Range{Min: r.Min, Max: r.Max}
}

// Generator computes a product
type Generator interface {
	Metadata() Metadata
	// Apply computes the product. in.Matching contains the bands playing each role of Metadata().Roles
	Apply(ctx context.Context, in Input) (*Result, error)
}

// newResult creates a result with the metadata and the range of the generator
func newResult(meta Metadata, r *raster.Raster) *Result {
	return &Result{
		Raster:      r,
		Name:        meta.Name,
		Description: meta.Description,
		DefaultView: meta.DefaultView,
		Min:         meta.Min,
		Max:         meta.Max,
		Unit:        meta.Unit,
		OutputBands: r.BandNames(),
	}
}

// roleValues returns, for each role, the pixels of the band playing the role,
// or the mean of the bands if several bands play the role
func roleValues(ctx context.Context, in Input, roles []Role) ([][]float64, error) {
	values := make([][]float64, len(roles))
	for i, role := range roles {
		bands := in.Matching[role]
		if len(bands) == 0 {
			return nil, telluric.NewValidationError("no band for role %s", role)
		}
		if len(bands) == 1 {
			b, err := in.Raster.Band(bands[0])
			if err != nil {
				return nil, fmt.Errorf("role %s.%w", role, err)
			}
			values[i] = b
			continue
		}
		pixels := make([][]float64, len(bands))
		for j, name := range bands {
			b, err := in.Raster.Band(name)
			if err != nil {
				return nil, fmt.Errorf("role %s.%w", role, err)
			}
			pixels[j] = b
		}
		mean := make([]float64, len(pixels[0]))
		err := raster.ForEachChunk(ctx, len(mean), func(start, end int) error {
			for p := start; p < end; p++ {
				var sum float64
				for _, b := range pixels {
					sum += b[p]
				}
				mean[p] = sum / float64(len(pixels))
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		values[i] = mean
	}
	return values, nil
}
