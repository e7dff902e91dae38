package domain

// FeatureKind names one of the osm2pgsql geometry tables.
type FeatureKind string

const (
	FeaturePoint   FeatureKind = "point"
	FeatureLine    FeatureKind = "line"
	FeaturePolygon FeatureKind = "polygon"
)

// FeatureKinds is every searchable kind, in search order.
var FeatureKinds = []FeatureKind{FeaturePoint, FeatureLine, FeaturePolygon}

// Table is the osm2pgsql table holding features of this kind.
func (k FeatureKind) Table() string {
	return "planet_osm_" + string(k)
}

// ParseFeatureKinds validates caller-supplied kinds and drops repeats.
// An empty list means every kind.
func ParseFeatureKinds(field string, kinds []string) ([]FeatureKind, error) {
	if len(kinds) == 0 {
		return append([]FeatureKind(nil), FeatureKinds...), nil
	}
	seen := make(map[FeatureKind]bool, len(kinds))
	out := make([]FeatureKind, 0, len(kinds))
	for _, k := range kinds {
		kind := FeatureKind(k)
		switch kind {
		case FeaturePoint, FeatureLine, FeaturePolygon:
		default:
			return nil, Invalid(field, "unknown feature type %q, choose from point, line, polygon", k)
		}
		if !seen[kind] {
			seen[kind] = true
			out = append(out, kind)
		}
	}
	return out, nil
}

// Feature is one OSM object found by a search. Category is the first of
// highway, amenity, building, natural, waterway or landuse that is set,
// as "key: value", or "other".
type Feature struct {
	OSMID          int64       `json:"osm_id"`
	Name           string      `json:"name"`
	Category       string      `json:"feature_type"`
	GeometryType   FeatureKind `json:"geometry_type"`
	Centroid       GeoPoint    `json:"centroid"`
	DistanceMeters *float64    `json:"distance_m,omitempty"`
}

// NearQuery selects features within RadiusMeters of Center. Columns are
// equality filters on osm2pgsql columns; Tags filter the hstore tags column.
type NearQuery struct {
	Center       GeoPoint
	RadiusMeters float64
	Columns      map[string]string
	Tags         map[string]string
}

// FeatureResult is what the feature search tools return.
type FeatureResult struct {
	Features  []Feature `json:"features"`
	Count     int       `json:"count"`
	Truncated bool      `json:"truncated,omitempty"`
}
