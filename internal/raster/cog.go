package raster

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/airbusgeo/cogger"
	"github.com/airbusgeo/godal"
	"github.com/airbusgeo/telluric/internal/log"
	"github.com/airbusgeo/telluric/internal/telluric"
	"github.com/airbusgeo/telluric/internal/utils"
	"github.com/google/tiff"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Compression of a COG
type Compression int

const (
	CompressionNO Compression = iota
	CompressionLOSSLESS
	CompressionLOSSY
)

// NoOverview disables the overviews
const NoOverview = -1

// COGParams configures the creation of a Cloud Optimized GeoTIFF
type COGParams struct {
	BlockSize        int // default: 256
	Compression      Compression
	OverviewsMinSize int    // 0: default (256), NoOverview: no overviews
	Resampling       string // GDAL resampling of the overviews (default: "average")
}

func (p COGParams) withDefaults() COGParams {
	if p.BlockSize <= 0 {
		p.BlockSize = 256
	}
	if p.OverviewsMinSize == 0 {
		p.OverviewsMinSize = 256
	}
	if p.Resampling == "" {
		p.Resampling = "average"
	}
	return p
}

func (p COGParams) translateOptions(dtype telluric.DType, width, height int) []string {
	options := []string{
		"-of", "GTiff",
		"-co", "TILED=YES",
		"-co", "BLOCKXSIZE=" + strconv.Itoa(p.BlockSize),
		"-co", "BLOCKYSIZE=" + strconv.Itoa(p.BlockSize),
		"-co", "NUM_THREADS=ALL_CPUS",
		"-co", "SPARSE_OK=TRUE",
	}
	if dtype.IsFloatingPointFormat() {
		switch p.Compression {
		case CompressionLOSSY:
			options = append(options, "-co", "COMPRESS=LERC_ZSTD", "-co", "MAX_Z_ERROR=0.01")
		case CompressionLOSSLESS:
			options = append(options, "-co", "COMPRESS=LERC_ZSTD", "-co", "MAX_Z_ERROR=0")
		}
	} else {
		switch p.Compression {
		case CompressionLOSSY:
			options = append(options, "-co", "COMPRESS=LERC", "-co", "MAX_Z_ERROR=0.01")
		case CompressionLOSSLESS:
			options = append(options, "-co", "COMPRESS=ZSTD", "-co", "PREDICTOR=2")
		}
	}
	if width*height >= 10000*10000 {
		options = append(options, "-co", "BIGTIFF=YES")
	}
	return options
}

// SaveCOG writes the raster as a Cloud Optimized GeoTIFF: tiled, with overviews and
// with the IFDs at the beginning of the file.
func (r *Raster) SaveCOG(ctx context.Context, path string, params COGParams) error {
	params = params.withDefaults()
	src, err := r.ToDataset()
	if err != nil {
		return fmt.Errorf("SaveCOG.%w", err)
	}
	defer src.Close()

	tmpPath := filepath.Join("/vsimem", fmt.Sprintf("cog_without_overviews_%s.tif", uuid.New().String()))
	ds, err := src.Translate(tmpPath, params.translateOptions(r.format.DType, r.width, r.height), ErrLogger)
	if err != nil {
		return fmt.Errorf("SaveCOG: failed to translate: %w", err)
	}
	defer godal.VSIUnlink(tmpPath)

	if params.OverviewsMinSize != NoOverview {
		if err := ds.BuildOverviews(godal.Resampling(resampling(params.Resampling)), godal.MinSize(params.OverviewsMinSize), ErrLogger); err != nil {
			ds.Close()
			return fmt.Errorf("SaveCOG: failed to build overviews: %w", err)
		}
	}
	if err := ds.Close(); err != nil {
		return fmt.Errorf("SaveCOG: failed to close tiff file: %w", err)
	}

	if err := rewriteTiff(tmpPath, path); err != nil {
		return fmt.Errorf("SaveCOG: failed to rewrite COG file: %w", err)
	}
	log.Logger(ctx).Debug("cog saved", zap.String("path", path), zap.Int("blocksize", params.BlockSize))
	return nil
}

func resampling(name string) godal.ResamplingAlg {
	switch name {
	case "near", "nearest":
		return godal.Nearest
	case "bilinear":
		return godal.Bilinear
	case "cubic":
		return godal.Cubic
	case "cubicspline":
		return godal.CubicSpline
	case "lanczos":
		return godal.Lanczos
	case "mode":
		return godal.Mode
	}
	return godal.Average
}

func rewriteTiff(src, dest string) error {
	fd, err := godal.VSIOpen(src)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer fd.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create cog: %w", err)
	}
	if err := cogger.Rewrite(out, tiff.NewReadAtReadSeeker(fd)); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// ValidateCOG checks that the file is a valid Cloud Optimized GeoTIFF
// (see https://github.com/rouault/cog_validator/blob/master/validate_cloud_optimized_geotiff.py)
// Returns all the issues found
func ValidateCOG(path string) error {
	ds, err := godal.Open(path, godal.Drivers("GTiff"), ErrLogger)
	if err != nil {
		return err
	}
	defer ds.Close()

	band := ds.Bands()[0]
	structure := band.Structure()
	overviews := band.Overviews()

	if structure.SizeX > 512 || structure.SizeY > 512 {
		if (structure.BlockSizeX == structure.SizeX && structure.BlockSizeX > 1024) || (structure.BlockSizeY == structure.SizeY && structure.BlockSizeY > 1024) {
			err = utils.MergeErrors(true, err, fmt.Errorf("file is greater than 1024xHeight or Widthx1024, but is not tiled"))
		}
	}

	levels := append([]godal.Band{band}, overviews...)
	ifdOffsets := []int{}
	for i, b := range levels {
		if i > 0 {
			prev := levels[i-1].Structure()
			if s := b.Structure(); s.SizeX > prev.SizeX || s.SizeY > prev.SizeY {
				err = utils.MergeErrors(true, err, fmt.Errorf("overview of index %d has larger dimension than its previous level", i-1))
			}
		}
		offset, e := strconv.Atoi(b.Metadata("IFD_OFFSET", godal.Domain("TIFF")))
		if e != nil {
			err = utils.MergeErrors(true, err, e)
			continue
		}
		if len(ifdOffsets) > 0 && offset < ifdOffsets[len(ifdOffsets)-1] {
			err = utils.MergeErrors(true, err, fmt.Errorf("the IFD of overview of index %d (at byte %d) is before the IFD of the previous level (at byte %d)", i-1, offset, ifdOffsets[len(ifdOffsets)-1]))
		}
		ifdOffsets = append(ifdOffsets, offset)
	}

	dataOffsets := []int{firstBlockOffset(band)}
	for _, ovr := range overviews {
		dataOffsets = append(dataOffsets, firstBlockOffset(ovr))
	}
	if last := dataOffsets[len(dataOffsets)-1]; len(ifdOffsets) > 0 && last > 0 && last < ifdOffsets[len(ifdOffsets)-1] {
		err = utils.MergeErrors(true, err, fmt.Errorf("the first block of the smallest level should be after its IFD"))
	}
	if len(dataOffsets) >= 2 && dataOffsets[0] > 0 && dataOffsets[0] < dataOffsets[1] {
		err = utils.MergeErrors(true, err, fmt.Errorf("the first block of the main resolution should be after the blocks of the overviews"))
	}
	return err
}

func firstBlockOffset(band godal.Band) int {
	s := band.Structure()
	for y := 0; y < (s.SizeY+s.BlockSizeY-1)/s.BlockSizeY; y++ {
		for x := 0; x < (s.SizeX+s.BlockSizeX-1)/s.BlockSizeX; x++ {
			if offset := band.Metadata(fmt.Sprintf("BLOCK_OFFSET_%d_%d", x, y), godal.Domain("TIFF")); offset != "" {
				i, err := strconv.Atoi(offset)
				if err != nil {
					return -1
				}
				return i
			}
		}
	}
	return -1
}
