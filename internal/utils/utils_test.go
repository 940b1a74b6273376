package utils_test

import (
	"fmt"
	"regexp"

	"github.com/airbusgeo/telluric/internal/utils"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Temporary error", func() {
	var err error

	Describe("Temporary", func() {
		JustBeforeEach(func() {
			err = fmt.Errorf("temporary err :%w", utils.MakeTemporary(fmt.Errorf("Temporary")))
		})

		It("it should return a temporary error", func() {
			Expect(utils.Temporary(err)).To(BeTrue())
		})
	})

	Describe("Permanent", func() {
		JustBeforeEach(func() {
			err = fmt.Errorf("permanent err :%v", utils.MakeTemporary(fmt.Errorf("Temporary")))
		})

		It("it should return a permanent error", func() {
			Expect(utils.Temporary(err)).To(BeFalse())
		})
	})
})

var _ = Describe("Merge error", func() {
	var err error

	var tmpErr = utils.MakeTemporary(fmt.Errorf("Temporary"))
	var fatalErr = fmt.Errorf("Fatal")

	Describe("nil then err", func() {
		JustBeforeEach(func() {
			err = utils.MergeErrors(false, nil, fatalErr)
		})

		It("it should return the error", func() {
			Expect(err).To(Equal(fatalErr))
		})
	})

	Describe("Temporary then fatal, priority to temporary", func() {
		JustBeforeEach(func() {
			err = utils.MergeErrors(false, tmpErr, fatalErr)
		})

		It("it should return a temporary error", func() {
			Expect(utils.Temporary(err)).To(BeTrue())
		})
	})

	Describe("Temporary then fatal then nil, priority to temporary", func() {
		JustBeforeEach(func() {
			err = utils.MergeErrors(false, tmpErr, fatalErr, nil)
		})

		It("it should return nil", func() {
			Expect(err).To(BeNil())
		})
	})

	Describe("Fatal then temporary then nil, priority to fatal", func() {
		JustBeforeEach(func() {
			err = utils.MergeErrors(true, fatalErr, tmpErr, nil)
		})

		It("it should return a permanent error", func() {
			Expect(utils.Temporary(err)).To(BeFalse())
			Expect(err.Error()).To(ContainSubstring("Fatal"))
			Expect(err.Error()).To(ContainSubstring("Temporary"))
		})
	})
})

var _ = Describe("Chunks", func() {
	It("should cover the whole interval", func() {
		chunks := utils.Chunks(10, 3)
		Expect(chunks).To(Equal([][2]int{{0, 3}, {3, 6}, {6, 10}}))
	})

	It("should not create more chunks than elements", func() {
		Expect(utils.Chunks(2, 8)).To(Equal([][2]int{{0, 1}, {1, 2}}))
	})
})

var _ = Describe("StringSet", func() {
	It("should deduplicate and sort", func() {
		ss := utils.NewStringSet("nir", "red", "nir")
		Expect(ss.Exists("red")).To(BeTrue())
		Expect(ss.Exists("blue")).To(BeFalse())
		Expect(ss.Sorted()).To(Equal([]string{"nir", "red"}))
	})
})

var _ = Describe("FindRegexGroups", func() {
	reg := regexp.MustCompile("^(?P<Protocol>.+)://(?P<Path>.*)$")

	It("should return the named groups", func() {
		groups, err := utils.FindRegexGroups(reg, "gs://bucket/ndvi.tif")
		Expect(err).NotTo(HaveOccurred())
		Expect(groups).To(Equal(map[string]string{"Protocol": "gs", "Path": "bucket/ndvi.tif"}))
	})

	It("should fail when the value does not match", func() {
		_, err := utils.FindRegexGroups(reg, "/tmp/ndvi.tif")
		Expect(err).To(HaveOccurred())
	})
})
