package domain_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/samirrijal/osmmap/internal/core/domain"
)

func TestGeoPoint_Validate(t *testing.T) {
	cases := []struct {
		p  domain.GeoPoint
		ok bool
	}{
		{domain.GeoPoint{Lat: 48.85, Lon: 2.35}, true},
		{domain.GeoPoint{Lat: 90, Lon: 180}, true},
		{domain.GeoPoint{Lat: -90, Lon: -180}, true},
		{domain.GeoPoint{Lat: 90.0001, Lon: 0}, false},
		{domain.GeoPoint{Lat: 0, Lon: 181}, false},
		{domain.GeoPoint{Lat: math.NaN(), Lon: 0}, false},
		{domain.GeoPoint{Lat: 0, Lon: math.Inf(1)}, false},
	}
	for _, tc := range cases {
		err := tc.p.Validate("coordinates")
		if tc.ok && err != nil {
			t.Errorf("%v: unexpected error %v", tc.p, err)
		}
		if !tc.ok && !errors.Is(err, domain.ErrValidation) {
			t.Errorf("%v: expected validation error, got %v", tc.p, err)
		}
	}
}

func TestGeoPoint_JSON(t *testing.T) {
	data, err := json.Marshal(domain.GeoPoint{Lat: 48.85, Lon: 2.35})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "[48.85,2.35]" {
		t.Errorf("expected [lat,lon], got %s", data)
	}

	var p domain.GeoPoint
	if err := json.Unmarshal([]byte(`{"lat": 1.5, "lon": -2}`), &p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Lat != 1.5 || p.Lon != -2 {
		t.Errorf("unexpected point %+v", p)
	}

	if err := json.Unmarshal([]byte(`[1, 2, 3]`), &p); err == nil {
		t.Error("expected error for 3-element coordinate")
	}
}

func TestBounds_JSONAndCenter(t *testing.T) {
	var b domain.Bounds
	if err := json.Unmarshal([]byte(`[[40, -5], [44, 3]]`), &b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.MinLat != 40 || b.MinLon != -5 || b.MaxLat != 44 || b.MaxLon != 3 {
		t.Errorf("unexpected bounds %+v", b)
	}
	if c := b.Center(); c.Lat != 42 || c.Lon != -1 {
		t.Errorf("unexpected centre %+v", c)
	}

	data, _ := json.Marshal(b)
	if string(data) != "[[40,-5],[44,3]]" {
		t.Errorf("unexpected encoding %s", data)
	}

	antimeridian := domain.Bounds{MinLat: -10, MinLon: 170, MaxLat: 10, MaxLon: -170}
	if c := antimeridian.Center(); c.Lon != 180 && c.Lon != -180 {
		t.Errorf("expected centre on the antimeridian, got %+v", c)
	}
}

func TestValidatePath(t *testing.T) {
	pts := []domain.GeoPoint{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 200}}
	err := domain.ValidatePath("points", pts, 2)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "points[1]" {
		t.Errorf("expected field points[1], got %s", verr.Field)
	}
}

func TestRow_MarshalKeepsColumnOrder(t *testing.T) {
	row := domain.Row{Columns: []string{"osm_id", "name", "amenity"}, Values: []any{int64(7), "Café", nil}}
	data, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"osm_id":7,"name":"Café","amenity":null}` {
		t.Errorf("unexpected encoding %s", data)
	}
}

func TestRow_MarshalRenamesDuplicateColumns(t *testing.T) {
	// SELECT 1 AS a, 2 AS a, 3 AS a_2, 4, 5
	row := domain.Row{
		Columns: []string{"a", "a", "a_2", "?column?", "?column?"},
		Values:  []any{1, 2, 3, 4, 5},
	}
	data, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"a":1,"a_3":2,"a_2":3,"?column?":4,"?column?_2":5}` {
		t.Errorf("unexpected encoding %s", data)
	}

	var decoded map[string]int
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 5 {
		t.Errorf("expected every value to survive decoding, got %v", decoded)
	}
}

func TestExecutionError_KeepsDriverMessage(t *testing.T) {
	cause := errors.New("canceling statement due to statement timeout")
	err := error(&domain.ExecutionError{Err: cause})
	if err.Error() != cause.Error() {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, domain.ErrExecution) || !errors.Is(err, cause) {
		t.Error("expected error to match ErrExecution and its cause")
	}
}
