package georaster_test

import (
	"context"
	"sync"

	"github.com/airbusgeo/telluric/georaster"
	"github.com/airbusgeo/telluric/internal/telluric"

	. "github.com/onsi/ginkgo"
	"github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
)

var rgb = []string{"red", "green", "blue"}

var rasters = []table.TableEntry{
	table.Entry("multispectral 8 bits", multiRaster8b),
	table.Entry("multispectral 16 bits", multiRaster16b),
	table.Entry("hyperspectral", hyperRaster),
	table.Entry("hyperspectral with nodata", hyperRasterWithNoData),
	table.Entry("multispectral with nodata", multiRasterWithNoData),
}

var _ = Describe("GeoRaster", func() {
	ctx := context.Background()

	table.DescribeTable("GetProducts should return the matchings of its bands",
		func(newRaster func() *georaster.GeoRaster) {
			r := newRaster()
			Expect(r.GetProducts(sensorBandsInfo())).To(Equal(georaster.GetMatchings(r.BandNames(), sensorBandsInfo())))
			Expect(r.GetProducts(sensorBandsInfo())).To(ContainElements("SingleBand", "ndvi"))
		},
		rasters...,
	)

	table.DescribeTable("Apply should compute every available product",
		func(newRaster func() *georaster.GeoRaster) {
			r := newRaster()
			for _, name := range r.GetProducts(sensorBandsInfo()) {
				opts := []georaster.ApplyOption{georaster.WithSensorBandsInfo(sensorBandsInfo())}
				if name == "SingleBand" {
					opts = append(opts, georaster.WithBand(r.BandNames()[0]))
				}
				p, err := r.Apply(ctx, name, opts...)
				Expect(err).To(BeNil(), name)
				Expect(p).NotTo(BeNil(), name)
				Expect(p.Width()).To(Equal(r.Width()))
				Expect(p.Transform()).To(Equal(r.Transform()))
				Expect(p.CRS()).To(Equal(r.CRS()))
			}
		},
		rasters...,
	)

	table.DescribeTable("ndvi should be visualized with a colormap",
		func(newRaster func() *georaster.GeoRaster) {
			p, err := newRaster().Apply(ctx, "ndvi", georaster.WithSensorBandsInfo(sensorBandsInfo()))
			Expect(err).To(BeNil())
			v, err := p.Visualize(ctx, "cm-jet", -1, 1)
			Expect(err).To(BeNil())
			Expect(v.BandNames()).To(Equal(rgb))
			Expect(v.DType()).To(Equal(georaster.UINT8))
		},
		rasters...,
	)

	table.DescribeTable("ndvi should be visualized with its default view",
		func(newRaster func() *georaster.GeoRaster) {
			p, err := newRaster().ApplyWithMetadata(ctx, "ndvi", georaster.WithSensorBandsInfo(sensorBandsInfo()))
			Expect(err).To(BeNil())
			Expect(p.Name).To(Equal("ndvi"))
			v, err := p.Raster.Visualize(ctx, p.DefaultView, p.Min, p.Max)
			Expect(err).To(BeNil())
			Expect(v.BandNames()).To(Equal(rgb))

			v, err = p.VisualizeDefault(ctx)
			Expect(err).To(BeNil())
			Expect(v.BandNames()).To(Equal(rgb))
		},
		rasters...,
	)

	table.DescribeTable("the telluric context should provide the sensor bands info",
		func(newRaster func() *georaster.GeoRaster) {
			err := georaster.TelluricContext(ctx, func(ctx context.Context) error {
				p, err := newRaster().Apply(ctx, "ndvi")
				if err != nil {
					return err
				}
				v, err := p.Visualize(ctx, "cm-jet", -1, 1)
				if err != nil {
					return err
				}
				Expect(v.BandNames()).To(Equal(rgb))
				return nil
			}, georaster.ContextWithSensorBandsInfo(sensorBandsInfo()))
			Expect(err).To(BeNil())
		},
		rasters...,
	)

	table.DescribeTable("the telluric context should give the same products as an explicit sensor bands info",
		func(newRaster func() *georaster.GeoRaster) {
			r := newRaster()
			explicit := sensorBandsInfo()
			err := georaster.TelluricContext(ctx, func(ctx context.Context) error {
				for _, name := range r.GetProducts(explicit) {
					fromContext, err := r.Apply(ctx, name, georaster.WithBand(r.BandNames()[0]))
					Expect(err).To(BeNil(), name)
					fromArg, err := r.Apply(ctx, name, georaster.WithBand(r.BandNames()[0]), georaster.WithSensorBandsInfo(explicit))
					Expect(err).To(BeNil(), name)

					Expect(fromContext.BandNames()).To(Equal(fromArg.BandNames()), name)
					Expect(fromContext.Mask()).To(Equal(fromArg.Mask()), name)
					for _, band := range fromArg.BandNames() {
						Expect(validPixels(fromContext, band)).To(Equal(validPixels(fromArg, band)), name)
					}
				}
				return nil
			}, georaster.ContextWithSensorBandsInfo(explicit))
			Expect(err).To(BeNil())
		},
		rasters...,
	)

	table.DescribeTable("every default view should be rendered",
		func(newRaster func() *georaster.GeoRaster) {
			r := newRaster()
			ctx := georaster.NewContext(ctx, georaster.ContextWithSensorBandsInfo(sensorBandsInfo()))
			for _, name := range r.GetProducts(sensorBandsInfo()) {
				p, err := r.ApplyWithMetadata(ctx, name, georaster.WithBand(r.BandNames()[0]))
				Expect(err).To(BeNil(), name)
				v, err := p.VisualizeDefault(ctx)
				Expect(err).To(BeNil(), name)
				Expect(v.BandNames()).To(Equal(rgb), name)
			}
		},
		rasters...,
	)

	Context("without sensor bands info", func() {
		It("should fail outside of a telluric context", func() {
			_, err := multiRaster8b().Apply(ctx, "ndvi")
			Expect(telluric.IsError(err, telluric.MissingSensorBandsInfo)).To(BeTrue())
		})

		It("should restore the outer context when leaving the telluric context", func() {
			err := georaster.TelluricContext(ctx, func(ctx context.Context) error {
				_, err := multiRaster8b().Apply(ctx, "ndvi")
				return err
			}, georaster.ContextWithSensorBandsInfo(sensorBandsInfo()))
			Expect(err).To(BeNil())
			_, err = multiRaster8b().Apply(ctx, "ndvi")
			Expect(telluric.IsError(err, telluric.MissingSensorBandsInfo)).To(BeTrue())
		})

		It("should use the process-wide default", func() {
			restore := georaster.SetDefaultContext(georaster.ContextWithSensorBandsInfo(sensorBandsInfo()))
			_, err := multiRaster8b().Apply(ctx, "ndvi")
			restore()
			Expect(err).To(BeNil())
		})

		It("should prefer the explicit sensor bands info", func() {
			ctx := georaster.NewContext(ctx, georaster.ContextWithSensorBandsInfo(georaster.SensorBandsInfo{"B1": {Min: 1500, Max: 1600}}))
			r := hyperRaster()
			_, err := r.Apply(ctx, "ndvi")
			Expect(telluric.IsError(err, telluric.EntityValidationError)).To(BeTrue())
			_, err = r.Apply(ctx, "ndvi", georaster.WithSensorBandsInfo(sensorBandsInfo()))
			Expect(err).To(BeNil())
		})
	})

	Context("concurrent telluric contexts", func() {
		It("should not interfere", func() {
			wg := sync.WaitGroup{}
			errs := make([]error, 20)
			for i := range errs {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					info := sensorBandsInfo()
					if i%2 == 1 {
						info = georaster.SensorBandsInfo{"HC_1600": {Min: 1550, Max: 1650}}
					}
					_, errs[i] = hyperRaster().Apply(georaster.NewContext(ctx, georaster.ContextWithSensorBandsInfo(info)), "ndvi")
				}(i)
			}
			wg.Wait()
			for i, err := range errs {
				if i%2 == 0 {
					Expect(err).To(BeNil())
				} else {
					Expect(telluric.IsError(err, telluric.EntityValidationError)).To(BeTrue())
				}
			}
		})
	})

	Context("SingleBand without band", func() {
		It("should return MissingParameter", func() {
			_, err := multiRaster8b().Apply(ctx, "SingleBand", georaster.WithSensorBandsInfo(sensorBandsInfo()))
			Expect(telluric.IsError(err, telluric.MissingParameter)).To(BeTrue())
		})
	})

	Context("an unknown product", func() {
		It("should return EntityNotFound", func() {
			_, err := multiRaster8b().Apply(ctx, "ndsi", georaster.WithSensorBandsInfo(sensorBandsInfo()))
			Expect(telluric.IsError(err, telluric.EntityNotFound)).To(BeTrue())
		})
	})
})

// validPixels returns the pixels of the band, masked pixels being set to 0 (NaN is not comparable)
func validPixels(r *georaster.GeoRaster, band string) []float64 {
	pix, err := r.Band(band)
	Expect(err).To(BeNil())
	out := make([]float64, len(pix))
	for i, v := range pix {
		if !r.Masked(i) {
			out[i] = v
		}
	}
	return out
}
