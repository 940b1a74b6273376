package raster

import (
	"context"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/airbusgeo/godal"
	"github.com/airbusgeo/telluric/internal/config"
	"github.com/airbusgeo/telluric/internal/log"
	"github.com/airbusgeo/telluric/internal/telluric"
	"github.com/airbusgeo/telluric/internal/utils"
	"github.com/airbusgeo/telluric/internal/utils/affine"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrLogger drops the GDAL warnings and returns the errors
var ErrLogger = godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
	if ec <= godal.CE_Warning {
		return nil
	}
	return fmt.Errorf("GDAL %d: %s", code, msg)
})

// Supported output formats
const (
	FormatGTiff = "GTiff"
	FormatPNG   = "PNG"
)

// DefaultBandName returns the name of the i-th band (0-based) when the dataset does not describe it
func DefaultBandName(i int) string {
	return "band_" + strconv.Itoa(i+1)
}

// Open reads the raster from a GDAL-readable uri (local file, /vsigs/, /vsis3/...).
// The GDAL config options of the telluric context are used.
// Band names are the band descriptions (or DefaultBandName)
func Open(ctx context.Context, uri string) (*Raster, error) {
	opts := []godal.OpenOption{ErrLogger}
	if cfg := config.GDALConfigOptions(ctx); len(cfg) > 0 {
		opts = append(opts, godal.ConfigOption(cfg...))
	}
	ds, err := godal.Open(uri, opts...)
	if err != nil {
		return nil, fmt.Errorf("Open[%s]: %w", uri, err)
	}
	defer ds.Close()
	r, err := FromDataset(ctx, ds)
	if err != nil {
		return nil, fmt.Errorf("Open[%s].%w", uri, err)
	}
	log.Logger(ctx).Debug("raster opened", zap.String("uri", uri), zap.Stringer("raster", r))
	return r, nil
}

// FromDataset reads all the pixels of the dataset
func FromDataset(ctx context.Context, ds *godal.Dataset) (*Raster, error) {
	structure := ds.Structure()
	if structure.NBands == 0 {
		return nil, telluric.NewValidationError("dataset has no band")
	}
	width, height := structure.SizeX, structure.SizeY
	bandNames := make([]string, structure.NBands)
	bands := make([][]float64, structure.NBands)
	nodata := math.NaN()
	for i, band := range ds.Bands() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if bandNames[i] = strings.TrimSpace(band.Description()); bandNames[i] == "" {
			bandNames[i] = DefaultBandName(i)
		}
		bands[i] = make([]float64, width*height)
		if err := band.Read(0, 0, bands[i], width, height, ErrLogger); err != nil {
			return nil, fmt.Errorf("read band %d: %w", i+1, err)
		}
		if nd, ok := band.NoData(); ok && i == 0 {
			nodata = nd
		}
	}
	dtype := telluric.DTypeFromGDal(ds.Bands()[0].Structure().DataType)
	if dtype == telluric.DTypeUNDEFINED {
		dtype = telluric.DTypeFLOAT64
	}
	opts := []Option{WithDType(dtype), WithNoData(nodata), WithCRS(ds.Projection())}
	if gt, err := ds.GeoTransform(ErrLogger); err == nil {
		opts = append(opts, WithTransform(affine.FromGeoTransform(gt)))
	}
	return New(bandNames, width, height, bands, opts...)
}

// ToDataset creates an in-memory GDAL dataset with the pixels, the band names, the nodata and the geometry.
// Masked pixels are written as nodata. The caller is responsible for closing the dataset.
func (r *Raster) ToDataset() (*godal.Dataset, error) {
	if r.format.DType == telluric.DTypeINT8 || r.format.DType == telluric.DTypeUNDEFINED {
		return nil, telluric.NewValidationError("ToDataset: unsupported dtype %s", r.format.DType.String())
	}
	ds, err := godal.Create(godal.Memory, "", r.NBands(), r.format.DType.ToGDAL(), r.width, r.height, ErrLogger)
	if err != nil {
		return nil, fmt.Errorf("ToDataset: %w", err)
	}
	if err := r.fillDataset(ds); err != nil {
		ds.Close()
		return nil, fmt.Errorf("ToDataset.%w", err)
	}
	return ds, nil
}

func (r *Raster) fillDataset(ds *godal.Dataset) error {
	if err := ds.SetGeoTransform(r.transform.GeoTransform(), ErrLogger); err != nil {
		return fmt.Errorf("SetGeoTransform: %w", err)
	}
	if r.crs != "" {
		if err := ds.SetProjection(r.crs, ErrLogger); err != nil {
			return fmt.Errorf("SetProjection: %w", err)
		}
	}
	nodata, hasNoData := r.outputNoData()
	buf := make([]float64, r.width*r.height)
	for i, band := range ds.Bands() {
		for p, v := range r.bands[i] {
			if r.Masked(p) {
				buf[p] = nodata
			} else {
				buf[p] = r.format.DType.Clamp(v)
			}
		}
		if err := band.Write(0, 0, buf, r.width, r.height, ErrLogger); err != nil {
			return fmt.Errorf("write band %s: %w", r.bandNames[i], err)
		}
		if err := band.SetDescription(r.bandNames[i], ErrLogger); err != nil {
			return fmt.Errorf("SetDescription: %w", err)
		}
		if hasNoData {
			if err := band.SetNoData(nodata, ErrLogger); err != nil {
				return fmt.Errorf("SetNoData: %w", err)
			}
		}
	}
	return nil
}

// outputNoData returns the value written in the masked pixels
func (r *Raster) outputNoData() (float64, bool) {
	if r.format.NoDataDefined() {
		return r.format.NoData, true
	}
	if r.mask == nil {
		return math.NaN(), false
	}
	if r.format.DType.IsFloatingPointFormat() {
		return math.NaN(), true
	}
	return r.format.DType.Range().Min, true
}

// Save writes the raster to path using the GDAL driver format (FormatGTiff or FormatPNG).
// PNG is only supported for UINT8 and UINT16 rasters.
func (r *Raster) Save(ctx context.Context, path, format string) error {
	switch format {
	case FormatGTiff:
	case FormatPNG:
		if r.format.DType != telluric.DTypeUINT8 && r.format.DType != telluric.DTypeUINT16 {
			return telluric.NewValidationError("Save: PNG requires UINT8 or UINT16 pixels (got %s)", r.format.DType.String())
		}
	default:
		return telluric.NewEntityNotFound("Format", format, "")
	}
	src, err := r.ToDataset()
	if err != nil {
		return fmt.Errorf("Save.%w", err)
	}
	defer src.Close()
	options := []string{"-of", format}
	if format == FormatGTiff {
		options = append(options, "-co", "TILED=YES", "-co", "COMPRESS=ZSTD")
	}
	out, err := src.Translate(path, options, ErrLogger)
	if err != nil {
		return fmt.Errorf("Save[%s]: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("Save[%s]: %w", path, err)
	}
	log.Logger(ctx).Debug("raster saved", zap.String("path", path), zap.String("format", format))
	return nil
}

// AsBytes returns the raster encoded in the given format (see Save)
func (r *Raster) AsBytes(ctx context.Context, format string) (b []byte, err error) {
	ext := ".tif"
	if format == FormatPNG {
		ext = ".png"
	}
	virtualname := filepath.Join("/vsimem", uuid.New().String()+ext)
	if err := r.Save(ctx, virtualname, format); err != nil {
		return nil, fmt.Errorf("AsBytes.%w", err)
	}
	defer func() {
		err = utils.MergeErrors(true, err, godal.VSIUnlink(virtualname))
	}()
	vsiFile, err := godal.VSIOpen(virtualname)
	if err != nil {
		return nil, fmt.Errorf("AsBytes: %w", err)
	}
	defer vsiFile.Close()
	if b, err = io.ReadAll(vsiFile); err != nil {
		return nil, fmt.Errorf("AsBytes: %w", err)
	}
	return b, nil
}
