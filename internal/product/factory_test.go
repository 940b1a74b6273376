package product_test

import (
	"context"
	"math"

	"github.com/airbusgeo/telluric/internal/config"
	"github.com/airbusgeo/telluric/internal/product"
	"github.com/airbusgeo/telluric/internal/raster"
	"github.com/airbusgeo/telluric/internal/telluric"

	. "github.com/onsi/ginkgo"
	"github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
)

var _ = Describe("GetMatchings", func() {
	table.DescribeTable("should return the sorted products computable from the bands",
		func(bandNames []string, info telluric.SensorBandsInfo, expected []string) {
			Expect(product.GetMatchings(bandNames, info)).To(Equal(expected))
		},
		table.Entry("multispectral", []string{"B1", "B2", "B3", "B4"}, sensorBandsInfo,
			[]string{"SingleBand", "TrueColor", "endvi", "evi2", "exb", "exg", "exr", "ndvi", "ndwi"}),
		table.Entry("hyperspectral", hyperRaster().BandNames(), sensorBandsInfo,
			[]string{"SingleBand", "TrueColor", "endvi", "evi2", "exb", "exg", "exr", "ndre", "ndvi", "ndwi"}),
		table.Entry("band names are roles", []string{"Red", "nir"}, nil,
			[]string{"SingleBand", "evi2", "ndvi"}),
		table.Entry("unknown bands", []string{"B1", "SWIR"}, telluric.SensorBandsInfo{"SWIR": {Min: 1550, Max: 1750}},
			[]string{"SingleBand"}),
		table.Entry("no band", []string{}, sensorBandsInfo, []string{}),
	)

	It("should be deterministic", func() {
		first := product.GetMatchings(hyperRaster().BandNames(), sensorBandsInfo)
		for i := 0; i < 10; i++ {
			Expect(product.GetMatchings(hyperRaster().BandNames(), sensorBandsInfo)).To(Equal(first))
		}
	})
})

var _ = Describe("Match", func() {
	It("should find all the bands playing a role", func() {
		m, ok := product.Match([]product.Role{product.RoleRed, product.RoleNIR}, hyperRaster().BandNames(), sensorBandsInfo)
		Expect(ok).To(BeTrue())
		Expect(m[product.RoleRed]).To(Equal([]string{"HC_650", "HC_660"}))
		Expect(m[product.RoleNIR]).To(Equal([]string{"HC_850", "HC_870"}))
		Expect(m.Roles()).To(Equal([]product.Role{product.RoleNIR, product.RoleRed}))
	})
	It("should fail if a role is missing", func() {
		_, ok := product.Match([]product.Role{product.RoleRedEdge}, []string{"B1", "B2"}, sensorBandsInfo)
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("Apply", func() {
	var (
		ctx         = context.Background()
		r           *raster.Raster
		info        telluric.SensorBandsInfo
		params      product.Params
		name        string
		result      *product.Result
		returnedErr error
	)

	BeforeEach(func() {
		r = multiRaster()
		info = sensorBandsInfo
		params = nil
	})

	JustBeforeEach(func() {
		result, returnedErr = product.Apply(ctx, name, r, info, params)
	})

	pixels := func() []float64 {
		b, err := result.Raster.Band(result.OutputBands[0])
		Expect(err).To(BeNil())
		return b
	}

	Context("ndvi on a multispectral raster", func() {
		BeforeEach(func() {
			name = "ndvi"
		})
		It("should compute the index", func() {
			Expect(returnedErr).To(BeNil())
			Expect(result.Name).To(Equal("ndvi"))
			Expect(result.OutputBands).To(Equal([]string{"ndvi"}))
			Expect(result.Raster.DType()).To(Equal(telluric.DTypeFLOAT32))
			Expect(result.DefaultView).To(Equal("cm-RdYlGn"))
			Expect(result.Range()).To(Equal(telluric.Range{Min: -1, Max: 1}))
			p := pixels()
			Expect(p[0]).To(BeNumerically("~", 0.5, 1e-6))
			Expect(p[1]).To(BeNumerically("~", 0, 1e-6))
			Expect(p[3]).To(BeNumerically("~", 1.0/3, 1e-6))
		})
		It("should mask the pixels where the denominator is zero", func() {
			Expect(result.Raster.Mask()).To(Equal([]bool{false, false, true, false}))
			Expect(math.IsNaN(pixels()[2])).To(BeTrue())
		})
	})

	Context("ndvi on a hyperspectral raster", func() {
		BeforeEach(func() {
			name = "NDVI"
			r = hyperRaster()
		})
		It("should average the bands playing the same role", func() {
			Expect(returnedErr).To(BeNil())
			p := pixels()
			Expect(p[0]).To(BeNumerically("~", 0.5, 1e-6))
			Expect(p[1]).To(BeNumerically("~", 1.0/3, 1e-6))
		})
	})

	Context("on a raster with nodata", func() {
		BeforeEach(func() {
			name = "ndvi"
			r = mustRaster([]string{"red", "nir"}, 3, 1, [][]float64{{0, 10, 20}, {30, 0, 40}}, raster.WithDType(telluric.DTypeUINT16), raster.WithNoData(0))
		})
		It("should propagate the mask", func() {
			Expect(returnedErr).To(BeNil())
			Expect(result.Raster.Mask()).To(Equal([]bool{true, true, false}))
			Expect(result.Raster.ValidPixels()).To(Equal(1))
		})
	})

	Context("other indices", func() {
		It("should compute evi2", func() {
			res, err := product.Apply(ctx, "evi2", multiRaster(), sensorBandsInfo, nil)
			Expect(err).To(BeNil())
			b, _ := res.Raster.Band("evi2")
			Expect(b[0]).To(BeNumerically("~", 150.0/163, 1e-6))
		})
		It("should compute exg in chromatic coordinates", func() {
			res, err := product.Apply(ctx, "exg", multiRaster(), sensorBandsInfo, nil)
			Expect(err).To(BeNil())
			b, _ := res.Raster.Band("exg")
			Expect(b[0]).To(BeNumerically("~", 0, 1e-6))
			Expect(res.Raster.Masked(2)).To(BeTrue())
		})
		It("should compute ndwi", func() {
			res, err := product.Apply(ctx, "ndwi", multiRaster(), sensorBandsInfo, nil)
			Expect(err).To(BeNil())
			b, _ := res.Raster.Band("ndwi")
			Expect(b[0]).To(BeNumerically("~", -70.0/110, 1e-6))
		})
		It("should compute ndre", func() {
			res, err := product.Apply(ctx, "ndre", hyperRaster(), sensorBandsInfo, nil)
			Expect(err).To(BeNil())
			b, _ := res.Raster.Band("ndre")
			Expect(b[0]).To(BeNumerically("~", 200.0/1000, 1e-6))
		})
	})

	Context("SingleBand", func() {
		BeforeEach(func() {
			name = "SingleBand"
		})
		Context("with a band", func() {
			BeforeEach(func() {
				params = product.Params{product.ParamBand: "B4"}
			})
			It("should extract the band", func() {
				Expect(returnedErr).To(BeNil())
				Expect(result.OutputBands).To(Equal([]string{"B4"}))
				Expect(result.Raster.DType()).To(Equal(telluric.DTypeUINT8))
				Expect(result.DefaultView).To(Equal("cm-gray"))
				Expect(result.Range()).To(Equal(telluric.Range{Min: 0, Max: 240}))
			})
		})
		Context("without band", func() {
			It("should return MissingParameter", func() {
				Expect(telluric.IsError(returnedErr, telluric.MissingParameter)).To(BeTrue())
			})
		})
		Context("with an unknown band", func() {
			BeforeEach(func() {
				params = product.Params{product.ParamBand: "B12"}
			})
			It("should return EntityNotFound", func() {
				Expect(telluric.IsError(returnedErr, telluric.EntityNotFound)).To(BeTrue())
			})
		})
		Context("with infinite values", func() {
			BeforeEach(func() {
				var err error
				r, err = raster.New([]string{"red"}, 2, 1, [][]float64{{0.5, math.Inf(1)}})
				Expect(err).To(BeNil())
				params = product.Params{product.ParamBand: "red"}
			})
			It("should ignore them in the range", func() {
				Expect(returnedErr).To(BeNil())
				Expect(result.Range()).To(Equal(telluric.Range{Min: 0.5, Max: 1.5}))
			})
			It("should be rendered with the default view", func() {
				v, err := result.Raster.Visualize(ctx, result.DefaultView, result.Min, result.Max)
				Expect(err).To(BeNil())
				red, _ := v.Band("red")
				Expect(red).To(Equal([]float64{1, 255}))
			})
		})
	})

	Context("TrueColor", func() {
		BeforeEach(func() {
			name = "TrueColor"
		})
		It("should compose the red, green and blue bands", func() {
			Expect(returnedErr).To(BeNil())
			Expect(result.OutputBands).To(Equal(raster.RGBBands))
			Expect(result.DefaultView).To(Equal(raster.ViewTrueColor))
			Expect(result.Range()).To(Equal(telluric.Range{Min: 0, Max: 255}))
			red, _ := result.Raster.Band("red")
			Expect(red).To(Equal([]float64{30, 60, 0, 120}))
		})
	})

	Context("an unknown product", func() {
		BeforeEach(func() {
			name = "ndsi"
		})
		It("should return EntityNotFound", func() {
			Expect(telluric.IsError(returnedErr, telluric.EntityNotFound)).To(BeTrue())
		})
	})

	Context("a product that does not match the raster", func() {
		BeforeEach(func() {
			name = "ndre"
		})
		It("should return a ValidationError", func() {
			Expect(telluric.IsError(returnedErr, telluric.EntityValidationError)).To(BeTrue())
		})
	})

	Context("without sensor bands info", func() {
		BeforeEach(func() {
			name = "ndvi"
			info = nil
		})
		It("should return MissingSensorBandsInfo", func() {
			Expect(telluric.IsError(returnedErr, telluric.MissingSensorBandsInfo)).To(BeTrue())
		})

		Context("with a telluric context", func() {
			var restore func()
			BeforeEach(func() {
				restore = config.SetDefault(config.WithSensorBandsInfo(sensorBandsInfo))
			})
			AfterEach(func() {
				restore()
			})
			It("should use the sensor bands info of the context", func() {
				Expect(returnedErr).To(BeNil())
				Expect(result.Name).To(Equal("ndvi"))
			})
		})
	})

	Context("cancelled", func() {
		It("should return the context error", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := product.Apply(cctx, "ndvi", multiRaster(), sensorBandsInfo, nil)
			Expect(err).To(MatchError(context.Canceled))
		})
	})
})

var _ = Describe("Factory", func() {
	It("should register a new index", func() {
		f, err := product.NewFactory(product.Builtins()...)
		Expect(err).To(BeNil())
		g, err := product.NewIndexGenerator(product.Metadata{
			Name:  "rvi",
			Roles: []product.Role{product.RoleNIR, product.RoleRed},
			Min:   0,
			Max:   30,
		}, func(v []float64) (float64, bool) {
			return v[0] / v[1], v[1] != 0
		})
		Expect(err).To(BeNil())
		Expect(f.Register(g)).To(BeNil())
		Expect(f.Names()).To(ContainElement("rvi"))
		Expect(product.Default.Names()).NotTo(ContainElement("rvi"))

		res, err := f.Apply(context.Background(), "rvi", multiRaster(), sensorBandsInfo, nil)
		Expect(err).To(BeNil())
		Expect(res.DefaultView).To(Equal("cm-jet"))
		b, _ := res.Raster.Band("rvi")
		Expect(b[0]).To(BeNumerically("~", 3, 1e-6))
	})

	It("should refuse duplicated products", func() {
		f, err := product.NewFactory(product.Builtins()...)
		Expect(err).To(BeNil())
		g, _ := product.Default.Get("ndvi")
		Expect(telluric.IsError(f.Register(g), telluric.EntityValidationError)).To(BeTrue())
	})

	It("should refuse invalid indices", func() {
		_, err := product.NewIndexGenerator(product.Metadata{Name: "bad", Roles: []product.Role{"swir"}, Min: 0, Max: 1}, func(v []float64) (float64, bool) { return 0, true })
		Expect(telluric.IsError(err, telluric.EntityNotFound)).To(BeTrue())
		_, err = product.NewIndexGenerator(product.Metadata{Name: "bad", Roles: []product.Role{product.RoleRed}, Min: 1, Max: 0}, func(v []float64) (float64, bool) { return 0, true })
		Expect(telluric.IsError(err, telluric.EntityValidationError)).To(BeTrue())
	})

	It("should list the builtin products", func() {
		Expect(product.Default.Names()).To(Equal([]string{"SingleBand", "TrueColor", "endvi", "evi2", "exb", "exg", "exr", "ndre", "ndvi", "ndwi"}))
	})
})
