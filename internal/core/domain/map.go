package domain

import "time"

// Zoom range accepted by the viewer's tile layer.
const (
	MinZoom = 0
	MaxZoom = 19
)

// DefaultView is what a fresh map shows before anyone sets a view.
func DefaultView() MapView {
	return MapView{
		Center: GeoPoint{Lat: 0, Lon: 0},
		Zoom:   2,
		Bounds: &Bounds{MinLat: -85, MinLon: -180, MaxLat: 85, MaxLon: 180},
	}
}

// MapView is the camera: centre, zoom and optionally the visible box.
// FitBounds asks viewers to fit Bounds to their own window; Zoom is then
// only the estimate for a typical window.
type MapView struct {
	Center    GeoPoint `json:"center"`
	Zoom      int      `json:"zoom"`
	Bounds    *Bounds  `json:"bounds,omitempty"`
	FitBounds bool     `json:"fit_bounds,omitempty"`
}

// ViewUpdate carries the fields a set_map_view call supplied.
type ViewUpdate struct {
	Center *GeoPoint `json:"center,omitempty"`
	Zoom   *int      `json:"zoom,omitempty"`
	Bounds *Bounds   `json:"bounds,omitempty"`
}

// TitleStyle holds CSS values applied to the title overlay.
type TitleStyle struct {
	Color           string `json:"color,omitempty"`
	FontSize        string `json:"font_size,omitempty"`
	BackgroundColor string `json:"background_color,omitempty"`
}

type MapTitle struct {
	Text  string     `json:"text"`
	Style TitleStyle `json:"style"`
}

type Marker struct {
	ID        string    `json:"id"`
	Position  GeoPoint  `json:"position"`
	Label     string    `json:"label,omitempty"`
	Tooltip   string    `json:"tooltip,omitempty"`
	OpenPopup bool      `json:"open_popup,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MarkerInput is an add_map_marker request before an id is assigned.
type MarkerInput struct {
	Position  GeoPoint
	Label     string
	Tooltip   string
	OpenPopup bool
}

// LineStyle maps onto Leaflet path options. Nil fields use the viewer's defaults.
type LineStyle struct {
	Color     string   `json:"color,omitempty"`
	Weight    *int     `json:"weight,omitempty"`
	Opacity   *float64 `json:"opacity,omitempty"`
	DashArray string   `json:"dash_array,omitempty"`
	FitBounds bool     `json:"fit_bounds,omitempty"`
}

type Line struct {
	ID           string     `json:"id"`
	Points       []GeoPoint `json:"points"`
	Style        LineStyle  `json:"style"`
	LengthMeters float64    `json:"length_m"`
	Extent       Bounds     `json:"extent"`
	CreatedAt    time.Time  `json:"created_at"`
}

type PolygonStyle struct {
	Color       string   `json:"color,omitempty"`
	FillColor   string   `json:"fill_color,omitempty"`
	FillOpacity *float64 `json:"fill_opacity,omitempty"`
	Weight      *int     `json:"weight,omitempty"`
	FitBounds   bool     `json:"fit_bounds,omitempty"`
}

// Polygon is a single closed ring: the last point repeats the first.
type Polygon struct {
	ID              string       `json:"id"`
	Points          []GeoPoint   `json:"points"`
	Style           PolygonStyle `json:"style"`
	PerimeterMeters float64      `json:"perimeter_m"`
	Extent          Bounds       `json:"extent"`
	CreatedAt       time.Time    `json:"created_at"`
}

// Snapshot is the complete map state at sequence Seq.
type Snapshot struct {
	Seq      uint64    `json:"seq"`
	View     MapView   `json:"view"`
	Title    MapTitle  `json:"title"`
	Markers  []Marker  `json:"markers"`
	Lines    []Line    `json:"lines"`
	Polygons []Polygon `json:"polygons"`
}

// EventType distinguishes the first message on a push channel from the rest.
type EventType string

const (
	EventSnapshot EventType = "snapshot"
	EventDelta    EventType = "delta"
)

// DeltaKind names what a delta changed.
type DeltaKind string

const (
	KindView    DeltaKind = "view_changed"
	KindTitle   DeltaKind = "title_changed"
	KindMarker  DeltaKind = "marker_added"
	KindLine    DeltaKind = "line_added"
	KindPolygon DeltaKind = "polygon_added"
)

// Event is one message on a push channel. Seq is the position in the single
// global broadcast order; a snapshot carries the seq it reflects.
type Event struct {
	Type   EventType `json:"type"`
	Seq    uint64    `json:"seq"`
	Kind   DeltaKind `json:"kind,omitempty"`
	Viewer uint64    `json:"viewer,omitempty"`
	Time   time.Time `json:"time"`
	Data   any       `json:"data"`
}

// ViewerInfo describes one push-channel connection.
type ViewerInfo struct {
	ID          uint64    `json:"id"`
	Transport   string    `json:"transport"`
	RemoteAddr  string    `json:"remote_addr,omitempty"`
	ConnectedAt time.Time `json:"connected_at"`
}
