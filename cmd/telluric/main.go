package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/airbusgeo/telluric/cmd"
	"github.com/airbusgeo/telluric/georaster"
	"github.com/airbusgeo/telluric/interface/storage"
	"github.com/airbusgeo/telluric/interface/storage/uri"
	"github.com/airbusgeo/telluric/internal/config"
	"github.com/airbusgeo/telluric/internal/log"
	"github.com/airbusgeo/telluric/internal/raster"
	"github.com/airbusgeo/telluric/internal/telluric"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	app := cli.NewApp()
	app.Name = "telluric"
	app.Usage = "compute and visualize products (spectral indices...) of multispectral rasters"
	app.Flags = append(cmd.GDALConfigFlags(),
		cli.StringFlag{Name: "log-format", Value: log.FormatConsole, Usage: "json or console"},
		cli.StringSliceFlag{Name: "gdal-config", Usage: "GDAL config option KEY=VALUE (repeatable)"},
	)
	app.Before = func(c *cli.Context) error {
		if err := log.SetFormat(c.String("log-format")); err != nil {
			return err
		}
		// the defaults are kept for the lifetime of the process: restore funcs are not needed
		if _, err := config.LoadEnv(); err != nil {
			return err
		}
		for _, kv := range c.StringSlice("gdal-config") {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("gdal-config: expecting KEY=VALUE, got %s", kv)
			}
			_ = config.SetDefault(config.WithGDALConfig(k, v))
		}
		return cmd.InitGDAL(ctx, cmd.NewGDALConfig(c))
	}
	app.After = func(c *cli.Context) error {
		log.Sync()
		return nil
	}

	sensorFlag := cli.StringFlag{Name: "sensor", Usage: "sensor bands info (yaml or json, local path or gs:// uri). Default: $" + config.EnvSensorBandsInfo}
	productFlag := cli.StringFlag{Name: "product", Required: true, Usage: "name of the product (see products)"}
	bandFlag := cli.StringFlag{Name: "band", Usage: "band extracted by the SingleBand product"}
	overwriteFlag := cli.BoolFlag{Name: "overwrite", Usage: "replace the output if it already exists"}
	storageClassFlag := cli.StringFlag{Name: "storage-class", Usage: "storage class of the output (gs:// only)"}

	app.Commands = []cli.Command{
		{
			Name:      "products",
			Usage:     "list the products that can be computed from the raster",
			ArgsUsage: "<raster>",
			Flags:     []cli.Flag{sensorFlag},
			Action: func(c *cli.Context) error {
				return products(ctx, c)
			},
		},
		{
			Name:      "apply",
			Usage:     "compute a product and save it as a GeoTIFF",
			ArgsUsage: "<raster> <output>",
			Flags: []cli.Flag{sensorFlag, productFlag, bandFlag, overwriteFlag, storageClassFlag,
				cli.BoolFlag{Name: "cog", Usage: "save as a Cloud Optimized GeoTIFF"},
				cli.IntFlag{Name: "block-size", Value: 256, Usage: "block size of the COG (--cog)"},
			},
			Action: func(c *cli.Context) error {
				return apply(ctx, c)
			},
		},
		{
			Name:      "visualize",
			Usage:     "compute a product and render it as a RGB image (png or tif)",
			ArgsUsage: "<raster> <output>",
			Flags: []cli.Flag{sensorFlag, productFlag, bandFlag, overwriteFlag, storageClassFlag,
				cli.StringFlag{Name: "view", Usage: "cm-<palette> or TrueColor (default: the view of the product)"},
				cli.Float64Flag{Name: "vmin", Usage: "value mapped to the first color (default: the min of the product)"},
				cli.Float64Flag{Name: "vmax", Usage: "value mapped to the last color (default: the max of the product)"},
			},
			Action: func(c *cli.Context) error {
				return visualize(ctx, c)
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Logger(ctx).Fatal("telluric", zap.Error(err))
	}
}

// withSensor returns a context holding the sensor bands info of the --sensor flag, if set
func withSensor(ctx context.Context, c *cli.Context) (context.Context, error) {
	path := c.String("sensor")
	if path == "" {
		return ctx, nil
	}
	u, err := uri.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("sensor: %w", err)
	}
	data, err := u.Download(ctx)
	if err != nil {
		return nil, fmt.Errorf("sensor[%s]: %w", path, err)
	}
	info, err := georaster.ParseSensorBandsInfo(data)
	if err != nil {
		return nil, fmt.Errorf("sensor[%s].%w", path, err)
	}
	return georaster.NewContext(ctx, georaster.ContextWithSensorBandsInfo(info)), nil
}

func open(ctx context.Context, c *cli.Context, nargs int) (*georaster.GeoRaster, error) {
	if c.NArg() != nargs {
		return nil, fmt.Errorf("%s: expecting %d arguments, got %d", c.Command.Name, nargs, c.NArg())
	}
	u, err := uri.Parse(c.Args().Get(0))
	if err != nil {
		return nil, err
	}
	if u.Protocol() != "gs" || c.GlobalBool(cmd.WithGCS) {
		return georaster.Open(ctx, u.GDALPath())
	}

	// without the gcs handler, the raster is downloaded: it is fully loaded in memory anyway
	tmp, err := os.MkdirTemp("", "telluric")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmp)
	local := filepath.Join(tmp, u.FileName())
	if err := u.DownloadToFile(ctx, local); err != nil {
		return nil, fmt.Errorf("download[%s]: %w", u.String(), err)
	}
	return georaster.Open(ctx, local)
}

func products(ctx context.Context, c *cli.Context) error {
	ctx, err := withSensor(ctx, c)
	if err != nil {
		return err
	}
	r, err := open(ctx, c, 1)
	if err != nil {
		return err
	}
	info, err := optionalSensorBandsInfo(ctx)
	if err != nil {
		return err
	}
	for _, name := range r.GetProducts(info) {
		fmt.Println(name)
	}
	return nil
}

// optionalSensorBandsInfo returns the sensor bands info of the context, or nil if there is none:
// the bands are then matched by name
func optionalSensorBandsInfo(ctx context.Context) (georaster.SensorBandsInfo, error) {
	info, err := config.SensorBandsInfo(ctx)
	if telluric.IsError(err, telluric.MissingSensorBandsInfo) {
		return nil, nil
	}
	return info, err
}

func applyOptions(c *cli.Context) []georaster.ApplyOption {
	var opts []georaster.ApplyOption
	if band := c.String("band"); band != "" {
		opts = append(opts, georaster.WithBand(band))
	}
	return opts
}

func apply(ctx context.Context, c *cli.Context) error {
	ctx, err := withSensor(ctx, c)
	if err != nil {
		return err
	}
	r, err := open(ctx, c, 2)
	if err != nil {
		return err
	}
	ctx = log.With(ctx, "product", c.String("product"))
	res, err := r.Apply(ctx, c.String("product"), applyOptions(c)...)
	if err != nil {
		return err
	}
	return save(ctx, c, func(path string) error {
		if c.Bool("cog") {
			return res.SaveCOG(ctx, path, raster.COGParams{BlockSize: c.Int("block-size")})
		}
		return res.Save(ctx, path, raster.FormatGTiff)
	})
}

func visualize(ctx context.Context, c *cli.Context) error {
	ctx, err := withSensor(ctx, c)
	if err != nil {
		return err
	}
	r, err := open(ctx, c, 2)
	if err != nil {
		return err
	}
	ctx = log.With(ctx, "product", c.String("product"))
	p, err := r.ApplyWithMetadata(ctx, c.String("product"), applyOptions(c)...)
	if err != nil {
		return err
	}
	view, vmin, vmax := p.DefaultView, p.Min, p.Max
	if c.IsSet("view") {
		view = c.String("view")
	}
	if c.IsSet("vmin") {
		vmin = c.Float64("vmin")
	}
	if c.IsSet("vmax") {
		vmax = c.Float64("vmax")
	}
	rgb, err := p.Raster.Visualize(ctx, view, vmin, vmax)
	if err != nil {
		return err
	}
	format := raster.FormatGTiff
	if strings.EqualFold(filepath.Ext(c.Args().Get(1)), ".png") {
		format = raster.FormatPNG
	}
	return save(ctx, c, func(path string) error {
		return rgb.Save(ctx, path, format)
	})
}

// save calls write with a local path and uploads the file if the output (second argument) is a remote uri.
// An existing output is only replaced with --overwrite.
func save(ctx context.Context, c *cli.Context, write func(path string) error) error {
	output := c.Args().Get(1)
	u, err := uri.Parse(output)
	if err != nil {
		return err
	}
	exist, err := u.Exist(ctx)
	if err != nil {
		return fmt.Errorf("save[%s]: %w", output, err)
	}
	if exist {
		if !c.Bool("overwrite") {
			return fmt.Errorf("save[%s]: output already exists (use --overwrite)", output)
		}
		if err := u.Delete(ctx, storage.IgnoreNotFound()); err != nil {
			return fmt.Errorf("save[%s]: %w", output, err)
		}
	}
	if u.IsLocal() {
		return write(u.GDALPath())
	}

	tmp, err := os.MkdirTemp("", "telluric")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)
	local := filepath.Join(tmp, u.FileName())
	if err := write(local); err != nil {
		return err
	}
	f, err := os.Open(local)
	if err != nil {
		return err
	}
	options := []storage.Option{storage.ContentType("image/tiff")}
	if strings.EqualFold(filepath.Ext(local), ".png") {
		options[0] = storage.ContentType("image/png")
	}
	if class := c.String("storage-class"); class != "" {
		options = append(options, storage.StorageClass(class))
	}
	if err := u.UploadFile(ctx, f, options...); err != nil {
		return fmt.Errorf("upload[%s]: %w", output, err)
	}
	attrs, err := u.GetAttrs(ctx)
	if err != nil {
		return fmt.Errorf("upload[%s]: %w", output, err)
	}
	log.Logger(ctx).Info("uploaded", zap.String("uri", output), zap.Int64("size", attrs.Size), zap.String("storageClass", attrs.StorageClass))
	return nil
}
