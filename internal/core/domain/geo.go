package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// GeoPoint represents a geographic coordinate (WGS 84).
// On the wire it is a [lat, lon] pair, the order Leaflet expects.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate reports whether the point lies on the globe.
func (p GeoPoint) Validate(field string) error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || p.Lat < -90 || p.Lat > 90 {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("latitude %v out of range [-90, 90]", p.Lat)}
	}
	if math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) || p.Lon < -180 || p.Lon > 180 {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("longitude %v out of range [-180, 180]", p.Lon)}
	}
	return nil
}

func (p GeoPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.Lat, p.Lon})
}

// UnmarshalJSON accepts either [lat, lon] or {"lat": .., "lon": ..}.
func (p *GeoPoint) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("coordinate must be [lat, lon], got %d values", len(pair))
		}
		p.Lat, p.Lon = pair[0], pair[1]
		return nil
	}
	var obj struct {
		Lat *float64 `json:"lat"`
		Lon *float64 `json:"lon"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("coordinate must be [lat, lon]: %w", err)
	}
	if obj.Lat == nil || obj.Lon == nil {
		return fmt.Errorf("coordinate object needs lat and lon")
	}
	p.Lat, p.Lon = *obj.Lat, *obj.Lon
	return nil
}

// Bounds represents a geographic bounding box.
// On the wire it is [[south, west], [north, east]].
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

func (b Bounds) SouthWest() GeoPoint { return GeoPoint{Lat: b.MinLat, Lon: b.MinLon} }
func (b Bounds) NorthEast() GeoPoint { return GeoPoint{Lat: b.MaxLat, Lon: b.MaxLon} }

// Center returns the midpoint of the box. Boxes crossing the antimeridian
// (west > east) are centred across it.
func (b Bounds) Center() GeoPoint {
	lon := (b.MinLon + b.MaxLon) / 2
	if b.MinLon > b.MaxLon {
		lon += 180
		if lon > 180 {
			lon -= 360
		}
	}
	return GeoPoint{Lat: (b.MinLat + b.MaxLat) / 2, Lon: lon}
}

// Validate checks both corners and that south is not above north.
func (b Bounds) Validate(field string) error {
	if err := b.SouthWest().Validate(field + ".south_west"); err != nil {
		return err
	}
	if err := b.NorthEast().Validate(field + ".north_east"); err != nil {
		return err
	}
	if b.MinLat > b.MaxLat {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("south %v is above north %v", b.MinLat, b.MaxLat)}
	}
	return nil
}

func (b Bounds) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]GeoPoint{b.SouthWest(), b.NorthEast()})
}

func (b *Bounds) UnmarshalJSON(data []byte) error {
	var corners []GeoPoint
	if err := json.Unmarshal(data, &corners); err != nil {
		return fmt.Errorf("bounds must be [[south, west], [north, east]]: %w", err)
	}
	if len(corners) != 2 {
		return fmt.Errorf("bounds must have 2 corners, got %d", len(corners))
	}
	b.MinLat, b.MinLon = corners[0].Lat, corners[0].Lon
	b.MaxLat, b.MaxLon = corners[1].Lat, corners[1].Lon
	return nil
}

// ValidatePath checks every vertex of a line or polygon.
func ValidatePath(field string, points []GeoPoint, minPoints int) error {
	if len(points) < minPoints {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("need at least %d points, got %d", minPoints, len(points))}
	}
	for i, p := range points {
		if err := p.Validate(fmt.Sprintf("%s[%d]", field, i)); err != nil {
			return err
		}
	}
	return nil
}
