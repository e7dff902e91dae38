package postgres

import (
	"encoding/hex"
	"encoding/json"
	"math"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

const eiffelEWKB = "0101000020E6100000CDCCCCCCCCCC0240CDCCCCCCCC6C4840"

func TestGeometryText_HexEWKB(t *testing.T) {
	got, ok := geometryText(eiffelEWKB)
	if !ok {
		t.Fatal("expected hex EWKB to decode")
	}
	if got != "SRID=4326;POINT(2.35 48.85)" {
		t.Errorf("unexpected EWKT %q", got)
	}
}

func TestGeometryText_RawEWKB(t *testing.T) {
	raw, _ := hex.DecodeString("0102000020E61000000200000000000000000000000000000000000000000000000000F03F000000000000F03F")
	got, ok := geometryText(raw)
	if !ok {
		t.Fatal("expected raw EWKB to decode")
	}
	if !strings.HasPrefix(got, "SRID=4326;LINESTRING(") {
		t.Errorf("unexpected EWKT %q", got)
	}
}

func TestGeometryText_NotGeometry(t *testing.T) {
	if _, ok := geometryText("Eiffel Tower"); ok {
		t.Error("plain text must not decode as geometry")
	}
	if _, ok := geometryText(42); ok {
		t.Error("ints must not decode as geometry")
	}
}

func TestTextSafe(t *testing.T) {
	id := [16]byte{0x12, 0x3e, 0x45, 0x67, 0xe8, 0x9b, 0x12, 0xd3, 0xa4, 0x56, 0x42, 0x66, 0x14, 0x17, 0x40, 0x00}
	ts := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

	cases := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"int", int32(1), int32(1)},
		{"string", "amenity", "amenity"},
		{"bytes", []byte{0xde, 0xad, 0xbe, 0xef}, "3q2+7w=="},
		{"uuid", id, "123e4567-e89b-12d3-a456-426614174000"},
		{"time", ts, "2024-05-01T12:30:00Z"},
		{"nan", math.NaN(), "NaN"},
		{"inf", math.Inf(-1), "-Inf"},
		{"float", 2.5, 2.5},
		{"numeric nan", pgtype.Numeric{NaN: true, Valid: true}, "NaN"},
		{"numeric null", pgtype.Numeric{}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := textSafe(tc.in); got != tc.want {
				t.Errorf("got %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestTextSafe_NumericKeepsPrecision(t *testing.T) {
	n := pgtype.Numeric{Int: big.NewInt(123456789012345678), Exp: -4, Valid: true}
	got := textSafe(n)
	data, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "12345678901234.5678" {
		t.Errorf("unexpected encoding %s", data)
	}
}

func TestTextSafe_Nested(t *testing.T) {
	got := textSafe([]any{[]byte("hi"), math.Inf(1), map[string]any{"b": []byte{1}}})
	data, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("nested value must encode: %v", err)
	}
	if string(data) != `["aGk=","+Inf",{"b":"AQ=="}]` {
		t.Errorf("unexpected encoding %s", data)
	}
}

func TestSplitTableName(t *testing.T) {
	if s, n := splitTableName("planet_osm_point"); s != "public" || n != "planet_osm_point" {
		t.Errorf("got %s.%s", s, n)
	}
	if s, n := splitTableName("osm.ways"); s != "osm" || n != "ways" {
		t.Errorf("got %s.%s", s, n)
	}
}
