package raster

import (
	"fmt"
	"math"

	"github.com/airbusgeo/telluric/internal/telluric"
)

// Statistics on the valid pixels of a given band.
type Statistics struct {
	Min, Max, Mean, Std float64
	Count               int
}

// Statistics computes the statistics of the band, ignoring the masked pixels and the infinite values
// Returns EntityNotFound if the band does not exist, ValidationError if there is no valid pixel
func (r *Raster) Statistics(band string) (Statistics, error) {
	pix, err := r.Band(band)
	if err != nil {
		return Statistics{}, fmt.Errorf("Statistics.%w", err)
	}
	s := Statistics{Min: math.Inf(1), Max: math.Inf(-1)}
	var sum, sum2 float64
	for i, v := range pix {
		if r.Masked(i) || math.IsInf(v, 0) {
			continue
		}
		s.Count++
		sum += v
		sum2 += v * v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	if s.Count == 0 {
		return Statistics{}, telluric.NewValidationError("Statistics: band %s has no valid finite pixel", band)
	}
	s.Mean = sum / float64(s.Count)
	s.Std = math.Sqrt(math.Max(sum2/float64(s.Count)-s.Mean*s.Mean, 0))
	return s, nil
}

// ValueRange returns the range of the valid values of all the bands.
// If the raster has a single value, the range is [v, v+1]
func (r *Raster) ValueRange() (telluric.Range, error) {
	rg := telluric.Range{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, name := range r.bandNames {
		s, err := r.Statistics(name)
		if err != nil {
			return telluric.Range{}, err
		}
		rg.Min, rg.Max = math.Min(rg.Min, s.Min), math.Max(rg.Max, s.Max)
	}
	if rg.Min == rg.Max {
		rg.Max = rg.Min + 1
	}
	return rg, nil
}
