package geospatial

import (
	"math"

	"github.com/samirrijal/osmmap/internal/core/domain"
)

const (
	tileSize = 256.0
	// Web Mercator stops here; beyond it y runs to infinity.
	maxMercatorLat = 85.05112878
)

// FitZoom returns the highest whole zoom at which b fits in a width x height
// pixel window of Web Mercator tiles, capped to [minZoom, maxZoom]. Boxes
// that cross the antimeridian (west > east) are measured across it.
func FitZoom(b domain.Bounds, width, height, minZoom, maxZoom int) int {
	lonSpan := b.MaxLon - b.MinLon
	if lonSpan < 0 {
		lonSpan += 360
	}
	lonFrac := lonSpan / 360
	latFrac := (mercatorY(b.MaxLat) - mercatorY(b.MinLat)) / (2 * math.Pi)

	z := float64(maxZoom)
	if lonFrac > 0 {
		z = math.Min(z, math.Log2(float64(width)/tileSize/lonFrac))
	}
	if latFrac > 0 {
		z = math.Min(z, math.Log2(float64(height)/tileSize/latFrac))
	}
	z = math.Floor(z)
	if z < float64(minZoom) {
		return minZoom
	}
	return int(z)
}

func mercatorY(lat float64) float64 {
	lat = math.Max(-maxMercatorLat, math.Min(maxMercatorLat, lat))
	return math.Log(math.Tan(math.Pi/4 + toRad(lat)/2))
}
