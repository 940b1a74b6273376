package raster_test

import (
	"context"
	"math"
	"os"
	"path/filepath"

	"github.com/airbusgeo/godal"
	"github.com/airbusgeo/telluric/internal/config"
	"github.com/airbusgeo/telluric/internal/raster"
	"github.com/airbusgeo/telluric/internal/telluric"
	"github.com/airbusgeo/telluric/internal/utils/affine"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("GDAL I/O", func() {
	var (
		ctx     = context.Background()
		workDir string
		source  *raster.Raster
	)

	BeforeEach(func() {
		var err error
		workDir, err = os.MkdirTemp("", "telluric-raster")
		Expect(err).To(BeNil())
		pix := make([][]float64, 2)
		for b := range pix {
			pix[b] = make([]float64, 600*400)
			for i := range pix[b] {
				pix[b][i] = float64((i % 1000) * (b + 1))
			}
		}
		source, err = raster.New([]string{"red", "nir"}, 600, 400, pix,
			raster.WithDType(telluric.DTypeUINT16), raster.WithNoData(0),
			raster.WithTransform(affine.NewAffine(500000, 10, 0, 4800000, 0, -10)))
		Expect(err).To(BeNil())
	})

	AfterEach(func() {
		os.RemoveAll(workDir)
	})

	Context("saving and opening a GTiff", func() {
		var (
			reopened    *raster.Raster
			returnedErr error
		)
		JustBeforeEach(func() {
			path := filepath.Join(workDir, "out.tif")
			Expect(source.Save(ctx, path, raster.FormatGTiff)).To(BeNil())
			reopened, returnedErr = raster.Open(config.With(ctx, config.WithGDALConfig("GDAL_CACHEMAX", "64")), path)
		})

		It("should not return an error", func() {
			Expect(returnedErr).To(BeNil())
		})
		It("should keep the band names, the datatype and the geometry", func() {
			Expect(reopened.BandNames()).To(Equal([]string{"red", "nir"}))
			Expect(reopened.DType()).To(Equal(telluric.DTypeUINT16))
			Expect(reopened.NoData()).To(Equal(0.0))
			Expect(reopened.Transform()).To(Equal(source.Transform()))
			Expect(reopened.Width()).To(Equal(600))
			Expect(reopened.Height()).To(Equal(400))
		})
		It("should keep the pixels and the mask", func() {
			for _, name := range source.BandNames() {
				want, _ := source.Band(name)
				got, _ := reopened.Band(name)
				Expect(got).To(Equal(want))
			}
			Expect(reopened.Mask()).To(Equal(source.Mask()))
		})
	})

	Context("opening a dataset without band descriptions", func() {
		It("should name the bands by index", func() {
			path := filepath.Join(workDir, "nodesc.tif")
			ds, err := godal.Create(godal.GTiff, path, 2, godal.Float32, 4, 4)
			Expect(err).To(BeNil())
			Expect(ds.Close()).To(BeNil())

			r, err := raster.Open(ctx, path)
			Expect(err).To(BeNil())
			Expect(r.BandNames()).To(Equal([]string{"band_1", "band_2"}))
			Expect(r.DType()).To(Equal(telluric.DTypeFLOAT32))
			Expect(math.IsNaN(r.NoData())).To(BeTrue())
		})
	})

	Context("opening a file that does not exist", func() {
		It("should return an error", func() {
			_, err := raster.Open(ctx, filepath.Join(workDir, "notfound.tif"))
			Expect(err).NotTo(BeNil())
		})
	})

	Context("saving a visualization as PNG", func() {
		It("should encode a png", func() {
			r, err := source.Subset("red")
			Expect(err).To(BeNil())
			v, err := r.Visualize(ctx, "cm-viridis", 0, 999)
			Expect(err).To(BeNil())
			b, err := v.AsBytes(ctx, raster.FormatPNG)
			Expect(err).To(BeNil())
			Expect(b[:4]).To(Equal([]byte{0x89, 'P', 'N', 'G'}))
		})
		It("should refuse float pixels", func() {
			r, err := source.Derive([]string{"ndvi"}, [][]float64{make([]float64, 600*400)}, nil, telluric.DTypeFLOAT32)
			Expect(err).To(BeNil())
			err = r.Save(ctx, filepath.Join(workDir, "out.png"), raster.FormatPNG)
			Expect(telluric.IsError(err, telluric.EntityValidationError)).To(BeTrue())
		})
	})

	Context("saving a COG", func() {
		var (
			path        string
			params      raster.COGParams
			returnedErr error
		)
		BeforeEach(func() {
			path = filepath.Join(workDir, "cog.tif")
			params = raster.COGParams{Compression: raster.CompressionLOSSLESS, OverviewsMinSize: 64}
		})
		JustBeforeEach(func() {
			returnedErr = source.SaveCOG(ctx, path, params)
		})

		It("should create a valid COG", func() {
			Expect(returnedErr).To(BeNil())
			Expect(raster.ValidateCOG(path)).To(BeNil())
		})
		It("should create the overviews", func() {
			ds, err := godal.Open(path)
			Expect(err).To(BeNil())
			defer ds.Close()
			Expect(ds.Bands()[0].Overviews()).NotTo(BeEmpty())
		})
		It("should be readable", func() {
			r, err := raster.Open(ctx, path)
			Expect(err).To(BeNil())
			Expect(r.BandNames()).To(Equal(source.BandNames()))
			got, _ := r.Band("nir")
			want, _ := source.Band("nir")
			Expect(got).To(Equal(want))
		})

		Context("without overviews", func() {
			BeforeEach(func() {
				params.OverviewsMinSize = raster.NoOverview
			})
			It("should create a valid COG without overview", func() {
				Expect(returnedErr).To(BeNil())
				Expect(raster.ValidateCOG(path)).To(BeNil())
				ds, err := godal.Open(path)
				Expect(err).To(BeNil())
				defer ds.Close()
				Expect(ds.Bands()[0].Overviews()).To(BeEmpty())
			})
		})
	})
})
