package geospatial

import (
	"math"

	"github.com/samirrijal/osmmap/internal/core/domain"
)

const earthRadiusKm = 6371.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// Distance is Haversine over domain points.
func Distance(a, b domain.GeoPoint) float64 {
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

// PathLength sums the great-circle legs of a polyline, in meters.
func PathLength(points []domain.GeoPoint) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total
}

// Extent returns the smallest box holding every point.
func Extent(points []domain.GeoPoint) domain.Bounds {
	if len(points) == 0 {
		return domain.Bounds{}
	}
	b := domain.Bounds{
		MinLat: points[0].Lat, MinLon: points[0].Lon,
		MaxLat: points[0].Lat, MaxLon: points[0].Lon,
	}
	for _, p := range points[1:] {
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MinLon = math.Min(b.MinLon, p.Lon)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
		b.MaxLon = math.Max(b.MaxLon, p.Lon)
	}
	return b
}

// BoundingBox returns a bounding box around a point with the given radius in meters.
// The result is clamped to valid coordinates.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := radiusMeters / 111320.0
	lonDelta := radiusMeters / (111320.0 * math.Cos(toRad(lat)))

	minLat, maxLat = math.Max(lat-latDelta, -90), math.Min(lat+latDelta, 90)
	minLon, maxLon = math.Max(lon-lonDelta, -180), math.Min(lon+lonDelta, 180)
	return minLat, minLon, maxLat, maxLon
}

// Contains reports whether p lies inside b (edges included).
func Contains(b domain.Bounds, p domain.GeoPoint) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
