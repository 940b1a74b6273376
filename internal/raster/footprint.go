package raster

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// Footprint returns the extent of the raster in its CRS, as a closed polygon
// (corners: top-left, top-right, bottom-right, bottom-left)
func (r *Raster) Footprint() *geom.Polygon {
	corners := r.transform.Corners(r.width, r.height)
	flatCoords := make([]float64, 0, 10)
	for _, c := range corners {
		flatCoords = append(flatCoords, c[0], c[1])
	}
	flatCoords = append(flatCoords, corners[0][0], corners[0][1])
	return geom.NewPolygonFlat(geom.XY, flatCoords, []int{len(flatCoords)})
}

// Bounds returns the bounding box of the footprint
func (r *Raster) Bounds() *geom.Bounds {
	return r.Footprint().Bounds()
}

// FootprintWKT returns the footprint as Well-Known Text
func (r *Raster) FootprintWKT() (string, error) {
	return wkt.Marshal(r.Footprint())
}
