// Package affine handles 2D affine transformations, following GDAL affine convention
package affine

import "math/big"

// Affine follows the GDAL transform convention:
// Xgeo = a[0] + Xpix*a[1] + Ypix*a[2]
// Ygeo = a[3] + Xpix*a[4] + Ypix*a[5]
type Affine [6]float64

func NewAffine(a, b, c, d, e, f float64) *Affine {
	res := Affine([6]float64{a, b, c, d, e, f})
	return &res
}

// Identity returns the identity transform (pixel coordinates = geo coordinates)
func Identity() *Affine {
	return NewAffine(0, 1, 0, 0, 0, 1)
}

// FromGeoTransform creates an affine from a GDAL geotransform
func FromGeoTransform(gt [6]float64) *Affine {
	res := Affine(gt)
	return &res
}

// GeoTransform returns the GDAL geotransform
func (a *Affine) GeoTransform() [6]float64 {
	return [6]float64(*a)
}

// Translation creates a translation transform from (offx, offy)
func Translation(offx, offy float64) *Affine {
	return NewAffine(offx, 1.0, 0, offy, 0, 1.0)
}

// Scale creates a scale transform from (scalex, scaley)
func Scale(scalex, scaley float64) *Affine {
	return NewAffine(0, scalex, 0, 0, 0, scaley)
}

// Rx returns the X resolution
func (a *Affine) Rx() float64 {
	return a[1]
}

// Ry returns the Y resolution
func (a *Affine) Ry() float64 {
	return a[5]
}

// IsInvertible returns true if the transformation is invertible
func (a *Affine) IsInvertible() bool {
	return a[1]*a[5] != a[2]*a[4]
}

// Inverse creates the inverse of the affine transform.
// Inverse panics if it is not inversible
func (a *Affine) Inverse() *Affine {
	if !a.IsInvertible() {
		panic("affine: transform is not invertible")
	}
	idet := 1.0 / (a[1]*a[5] - a[2]*a[4])
	res := Affine([6]float64{0, a[5] * idet, -a[2] * idet, 0, -a[4] * idet, a[1] * idet})
	res[0], res[3] = res.Transform(-a[0], -a[3])
	return &res
}

const prec = 128

// highPrecisionTransform returns o + sx*x + sy*y, computed such as
// highPrecisionTransform(sx, x+1, sy, y+1, o) = highPrecisionTransform(sx, x, sy, y, o) + highPrecisionTransform(sx, 1, sy, 1, 0)
func highPrecisionTransform(sx, x, sy, y, o float64) float64 {
	sX := big.NewFloat(sx).SetPrec(prec)
	sY := big.NewFloat(sy).SetPrec(prec)
	X := big.NewFloat(x).SetPrec(prec)
	Y := big.NewFloat(y).SetPrec(prec)
	O := big.NewFloat(o).SetPrec(prec)
	r, _ := O.Add(O, sX.Mul(sX, X)).Add(O, sY.Mul(sY, Y)).Float64()
	return r
}

// Multiply merges the two affines transforms into one (b is applied first).
func (a *Affine) Multiply(b *Affine) *Affine {
	return NewAffine(
		highPrecisionTransform(a[1], b[0], a[2], b[3], a[0]),
		highPrecisionTransform(a[1], b[1], a[2], b[4], 0),
		highPrecisionTransform(a[1], b[2], a[2], b[5], 0),
		highPrecisionTransform(a[4], b[0], a[5], b[3], a[3]),
		highPrecisionTransform(a[4], b[1], a[5], b[4], 0),
		highPrecisionTransform(a[4], b[2], a[5], b[5], 0),
	)
}

// Transform applies the affine transform to the point (x, y)
func (a *Affine) Transform(x float64, y float64) (float64, float64) {
	return highPrecisionTransform(a[1], x, a[2], y, a[0]), highPrecisionTransform(a[4], x, a[5], y, a[3])
}

// Corners returns the geo coordinates of the four corners of a width x height image,
// clockwise from the upper-left pixel corner
func (a *Affine) Corners(width, height int) [4][2]float64 {
	w, h := float64(width), float64(height)
	var c [4][2]float64
	for i, p := range [4][2]float64{{0, 0}, {w, 0}, {w, h}, {0, h}} {
		c[i][0], c[i][1] = a.Transform(p[0], p[1])
	}
	return c
}
