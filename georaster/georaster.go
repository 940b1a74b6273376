// Package georaster is the entrypoint of telluric: rasters with named bands, on which
// products (spectral indices...) can be computed and visualized.
//
//	r, _ := georaster.Open(ctx, "scene.tif")
//	ctx = georaster.NewContext(ctx, georaster.ContextWithSensorBandsInfo(info))
//	for _, name := range r.GetProducts(nil) { ... }
//	ndvi, _ := r.Apply(ctx, "ndvi")
//	rgb, _ := ndvi.Visualize(ctx, "cm-jet", -1, 1)
package georaster

import (
	"context"
	"fmt"

	"github.com/airbusgeo/telluric/internal/config"
	"github.com/airbusgeo/telluric/internal/product"
	"github.com/airbusgeo/telluric/internal/raster"
	"github.com/airbusgeo/telluric/internal/telluric"
)

type (
	SensorBandsInfo = telluric.SensorBandsInfo
	BandInfo        = telluric.BandInfo
	DType           = telluric.DType
	RasterOption    = raster.Option
	ContextOption   = config.Option
)

// DataTypes
const (
	UINT8   = telluric.DTypeUINT8
	UINT16  = telluric.DTypeUINT16
	UINT32  = telluric.DTypeUINT32
	INT16   = telluric.DTypeINT16
	INT32   = telluric.DTypeINT32
	FLOAT32 = telluric.DTypeFLOAT32
	FLOAT64 = telluric.DTypeFLOAT64
)

// Raster options
var (
	WithMask      = raster.WithMask
	WithNoData    = raster.WithNoData
	WithDType     = raster.WithDType
	WithTransform = raster.WithTransform
	WithCRS       = raster.WithCRS
)

// Telluric context options
var (
	ContextWithSensorBandsInfo = config.WithSensorBandsInfo
	ContextWithGDALConfig      = config.WithGDALConfig
)

// ParseSensorBandsInfo loads a sensor bands info from YAML or JSON
var ParseSensorBandsInfo = telluric.ParseSensorBandsInfo

// GeoRaster is a raster with named bands
type GeoRaster struct {
	*raster.Raster
}

// New creates a GeoRaster from the pixels of its bands (see raster.New)
func New(bandNames []string, width, height int, bands [][]float64, opts ...RasterOption) (*GeoRaster, error) {
	r, err := raster.New(bandNames, width, height, bands, opts...)
	if err != nil {
		return nil, err
	}
	return &GeoRaster{Raster: r}, nil
}

// Open reads a GeoRaster from any GDAL-readable uri
func Open(ctx context.Context, uri string) (*GeoRaster, error) {
	r, err := raster.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	return &GeoRaster{Raster: r}, nil
}

// GetMatchings returns the sorted names of the products that can be computed from the bands
func GetMatchings(bandNames []string, info SensorBandsInfo) []string {
	return product.GetMatchings(bandNames, info)
}

// NewContext returns a context whose telluric context is modified by opts.
// Operations called with this context use its defaults (e.g. sensor bands info).
func NewContext(ctx context.Context, opts ...ContextOption) context.Context {
	return config.With(ctx, opts...)
}

// TelluricContext runs fn with a telluric context modified by opts
func TelluricContext(ctx context.Context, fn func(ctx context.Context) error, opts ...ContextOption) error {
	return config.Scoped(ctx, fn, opts...)
}

// SetDefaultContext modifies the process-wide telluric context and returns a function restoring the previous one
func SetDefaultContext(opts ...ContextOption) (restore func()) {
	return config.SetDefault(opts...)
}

// GetProducts returns the sorted names of the products that can be computed from the bands of the raster.
// It is equal to GetMatchings(g.BandNames(), info)
func (g *GeoRaster) GetProducts(info SensorBandsInfo) []string {
	return GetMatchings(g.BandNames(), info)
}

// ApplyOption configures Apply
type ApplyOption func(o *applyOptions)

type applyOptions struct {
	info   SensorBandsInfo
	params product.Params
}

// WithSensorBandsInfo provides the sensor bands info (default: the one of the telluric context)
func WithSensorBandsInfo(info SensorBandsInfo) ApplyOption {
	return func(o *applyOptions) {
		o.info = info
	}
}

// WithParam sets a product parameter
func WithParam(key, value string) ApplyOption {
	return func(o *applyOptions) {
		if o.params == nil {
			o.params = product.Params{}
		}
		o.params[key] = value
	}
}

// WithBand sets the band extracted by the SingleBand product
func WithBand(band string) ApplyOption {
	return WithParam(product.ParamBand, band)
}

// Product is the result of a product with its metadata
type Product struct {
	Raster      *GeoRaster
	Name        string
	Description string
	DefaultView string
	Min, Max    float64
	Unit        string
	OutputBands []string
}

// ApplyWithMetadata computes the product and returns it with its metadata
// Returns EntityNotFound, EntityValidationError, MissingSensorBandsInfo, MissingParameter
func (g *GeoRaster) ApplyWithMetadata(ctx context.Context, productName string, opts ...ApplyOption) (*Product, error) {
	o := applyOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	res, err := product.Apply(ctx, productName, g.Raster, o.info, o.params)
	if err != nil {
		return nil, err
	}
	return &Product{
		Raster:      &GeoRaster{Raster: res.Raster},
		Name:        res.Name,
		Description: res.Description,
		DefaultView: res.DefaultView,
		Min:         res.Min,
		Max:         res.Max,
		Unit:        res.Unit,
		OutputBands: res.OutputBands,
	}, nil
}

// Apply computes the product
// Returns EntityNotFound, EntityValidationError, MissingSensorBandsInfo, MissingParameter
func (g *GeoRaster) Apply(ctx context.Context, productName string, opts ...ApplyOption) (*GeoRaster, error) {
	p, err := g.ApplyWithMetadata(ctx, productName, opts...)
	if err != nil {
		return nil, err
	}
	return p.Raster, nil
}

// Visualize renders the raster as a red, green, blue UINT8 raster.
// view is "cm-<palette>" (single-band raster) or "TrueColor".
func (g *GeoRaster) Visualize(ctx context.Context, view string, vmin, vmax float64) (*GeoRaster, error) {
	r, err := g.Raster.Visualize(ctx, view, vmin, vmax)
	if err != nil {
		return nil, err
	}
	return &GeoRaster{Raster: r}, nil
}

// VisualizeDefault renders the product with its default view and range
func (p *Product) VisualizeDefault(ctx context.Context) (*GeoRaster, error) {
	v, err := p.Raster.Visualize(ctx, p.DefaultView, p.Min, p.Max)
	if err != nil {
		return nil, fmt.Errorf("%s.%w", p.Name, err)
	}
	return v, nil
}
