package raster

import (
	"fmt"
	"math"

	"github.com/airbusgeo/telluric/internal/telluric"
	"github.com/airbusgeo/telluric/internal/utils"
	"github.com/airbusgeo/telluric/internal/utils/affine"
)

// Raster is an in-memory multiband image with named bands.
// Pixels are stored as float64 whatever the DType, band by band, row-major.
// All the bands share the same validity mask.
// A Raster is never modified once created: every operation returns a new raster.
type Raster struct {
	bandNames     []string
	width, height int
	bands         [][]float64
	mask          []bool // true if the pixel is nodata. nil if all the pixels are valid
	format        telluric.DataFormat
	transform     *affine.Affine
	crs           string
}

// Option configures a new Raster
type Option func(r *Raster)

// WithMask sets the nodata mask (true for invalid pixels). The slice is copied.
func WithMask(mask []bool) Option {
	return func(r *Raster) {
		if mask != nil {
			r.mask = append([]bool(nil), mask...)
		}
	}
}

// WithNoData sets the nodata value. Pixels equal to nodata are masked.
func WithNoData(nodata float64) Option {
	return func(r *Raster) {
		r.format.NoData = nodata
	}
}

// WithDType sets the datatype of the raster (default: FLOAT64)
func WithDType(dtype telluric.DType) Option {
	return func(r *Raster) {
		r.format.DType = dtype
	}
}

// WithTransform sets the pixel to CRS transform (default: identity)
func WithTransform(a *affine.Affine) Option {
	return func(r *Raster) {
		if a != nil {
			t := *a
			r.transform = &t
		}
	}
}

// WithCRS sets the coordinate reference system as WKT
func WithCRS(wkt string) Option {
	return func(r *Raster) {
		r.crs = wkt
	}
}

// New creates a raster from the pixels of each band (len(bands[i]) = width*height).
// The pixels are copied.
// Returns ValidationError
func New(bandNames []string, width, height int, bands [][]float64, opts ...Option) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, telluric.NewValidationError("invalid raster size %dx%d", width, height)
	}
	if len(bandNames) == 0 {
		return nil, telluric.NewValidationError("a raster must have at least one band")
	}
	if len(bandNames) != len(bands) {
		return nil, telluric.NewValidationError("%d band names for %d bands", len(bandNames), len(bands))
	}
	names := utils.NewStringSet()
	for i, name := range bandNames {
		if name == "" {
			return nil, telluric.NewValidationError("band %d has no name", i)
		}
		if names.Exists(name) {
			return nil, telluric.NewValidationError("duplicated band name: %s", name)
		}
		names.Push(name)
		if len(bands[i]) != width*height {
			return nil, telluric.NewValidationError("band %s: %d pixels expected, got %d", name, width*height, len(bands[i]))
		}
	}
	r := &Raster{
		bandNames: append([]string(nil), bandNames...),
		width:     width,
		height:    height,
		bands:     make([][]float64, len(bands)),
		format:    telluric.DataFormat{DType: telluric.DTypeFLOAT64, NoData: math.NaN()},
		transform: affine.Identity(),
	}
	for i := range bands {
		r.bands[i] = append([]float64(nil), bands[i]...)
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.format.Validate(); err != nil {
		return nil, err
	}
	if r.mask != nil && len(r.mask) != width*height {
		return nil, telluric.NewValidationError("mask: %d pixels expected, got %d", width*height, len(r.mask))
	}
	r.maskNoData()
	return r, nil
}

// maskNoData masks the pixels equal to nodata (or NaN) in any band
func (r *Raster) maskNoData() {
	for _, band := range r.bands {
		for i, v := range band {
			if math.IsNaN(v) || (r.format.NoDataDefined() && v == r.format.NoData) {
				if r.mask == nil {
					r.mask = make([]bool, r.width*r.height)
				}
				r.mask[i] = true
			}
		}
	}
}

// derive creates a raster with the same geometry as r, taking the ownership of bands and mask
func (r *Raster) derive(bandNames []string, bands [][]float64, mask []bool, format telluric.DataFormat) *Raster {
	return &Raster{
		bandNames: bandNames,
		width:     r.width,
		height:    r.height,
		bands:     bands,
		mask:      mask,
		format:    format,
		transform: r.transform,
		crs:       r.crs,
	}
}

// Derive creates a new raster with the geometry (size, transform, crs) of r and the given pixels.
// The pixels are copied.
func (r *Raster) Derive(bandNames []string, bands [][]float64, mask []bool, dtype telluric.DType) (*Raster, error) {
	return New(bandNames, r.width, r.height, bands, WithMask(mask), WithDType(dtype), WithTransform(r.transform), WithCRS(r.crs))
}

// BandNames returns the ordered names of the bands
func (r *Raster) BandNames() []string {
	return append([]string(nil), r.bandNames...)
}

// NBands returns the number of bands
func (r *Raster) NBands() int {
	return len(r.bands)
}

// Width returns the number of columns
func (r *Raster) Width() int {
	return r.width
}

// Height returns the number of rows
func (r *Raster) Height() int {
	return r.height
}

// DType returns the datatype of the pixels
func (r *Raster) DType() telluric.DType {
	return r.format.DType
}

// NoData returns the nodata value (NaN if not defined)
func (r *Raster) NoData() float64 {
	return r.format.NoData
}

// Transform returns a copy of the pixel to CRS transform
func (r *Raster) Transform() *affine.Affine {
	t := *r.transform
	return &t
}

// CRS returns the WKT of the coordinate reference system (empty if unknown)
func (r *Raster) CRS() string {
	return r.crs
}

// BandIndex returns the index of the band or -1
func (r *Raster) BandIndex(name string) int {
	return utils.IndexOf(r.bandNames, name)
}

// Band returns the pixels of the band. The returned slice must not be modified.
// Returns EntityNotFound
func (r *Raster) Band(name string) ([]float64, error) {
	i := r.BandIndex(name)
	if i < 0 {
		return nil, telluric.NewEntityNotFound("Band", name, "")
	}
	return r.bands[i], nil
}

// Masked returns true if the pixel i (row-major index) is nodata
func (r *Raster) Masked(i int) bool {
	return r.mask != nil && r.mask[i]
}

// Mask returns a copy of the nodata mask (nil if all the pixels are valid)
func (r *Raster) Mask() []bool {
	if r.mask == nil {
		return nil
	}
	return append([]bool(nil), r.mask...)
}

// ValidPixels returns the number of pixels that are not masked
func (r *Raster) ValidPixels() int {
	n := r.width * r.height
	for _, m := range r.mask {
		if m {
			n--
		}
	}
	return n
}

// Subset returns a raster with the given bands, in the given order
// Returns EntityNotFound
func (r *Raster) Subset(bandNames ...string) (*Raster, error) {
	if len(bandNames) == 0 {
		return nil, telluric.NewValidationError("Subset: no band requested")
	}
	bands := make([][]float64, len(bandNames))
	for i, name := range bandNames {
		b, err := r.Band(name)
		if err != nil {
			return nil, fmt.Errorf("Subset.%w", err)
		}
		bands[i] = b
	}
	return New(bandNames, r.width, r.height, bands, WithMask(r.mask), WithDType(r.format.DType), WithNoData(r.format.NoData), WithTransform(r.transform), WithCRS(r.crs))
}

func (r *Raster) String() string {
	return fmt.Sprintf("Raster(%dx%d, bands:%v, %s)", r.width, r.height, r.bandNames, r.format.String())
}
