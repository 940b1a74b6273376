package telluric

import (
	"fmt"
	"math"

	"github.com/airbusgeo/telluric/internal/utils"
)

// Range of values
type Range struct {
	Min, Max float64
}

func (r Range) Interval() float64 {
	return r.Max - r.Min
}

// Validate checks that min and max are finite and min is strictly lower than max
func (r Range) Validate() error {
	if !isFinite(r.Min) || !isFinite(r.Max) || r.Min >= r.Max {
		return NewValidationError("invalid range %s: min must be strictly lower than max", r.String())
	}
	return nil
}

// Contains returns true if v is in [Min, Max]
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Center returns the middle of the range
func (r Range) Center() float64 {
	return (r.Min + r.Max) / 2
}

// Normalize maps v from [Min, Max] to [0, 1], clipping the values out of range.
// NaN is mapped to 0.
func (r Range) Normalize(v float64) float64 {
	f := (v - r.Min) / r.Interval()
	if math.IsNaN(f) {
		return 0
	}
	return math.Min(math.Max(f, 0), 1)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ScaleTo maps v linearly from r to rext, clipping the values out of rext
// ve = RangeExt.Min + (RangeExt.Max - RangeExt.Min) * (v - Range.Min)/(Range.Max - Range.Min)
func (r Range) ScaleTo(v float64, rext Range) float64 {
	return rext.Min + rext.Interval()*r.Normalize(v)
}

func (r Range) String() string {
	return fmt.Sprintf("[%s -> %s]", utils.F64ToS(r.Min), utils.F64ToS(r.Max))
}

// DataFormat describes the internal format of a raster
type DataFormat struct {
	DType  DType
	NoData float64
}

// NoDataDefined returns True if the user has defined a NoData value.
// When NoData is not defined, its value is NaN, whatever the DataType
func (df DataFormat) NoDataDefined() bool {
	return !math.IsNaN(df.NoData)
}

// Validate checks that the nodata value is supported by the datatype
func (df DataFormat) Validate() error {
	if df.DType == DTypeUNDEFINED {
		return NewValidationError("undefined datatype")
	}
	if df.NoDataDefined() && !df.DType.Range().Contains(df.NoData) {
		return NewValidationError("noData value (%s) is not supported by the data type (%s). If nodata is not defined, set it to NaN", utils.F64ToS(df.NoData), df.DType.String())
	}
	return nil
}

func (df DataFormat) Equals(df2 DataFormat) bool {
	return df.DType == df2.DType &&
		(df.NoData == df2.NoData || (math.IsNaN(df.NoData) && math.IsNaN(df2.NoData)))
}

func (df DataFormat) String() string {
	return fmt.Sprintf("(%s, nodata:%s)", df.DType.String(), utils.F64ToS(df.NoData))
}
