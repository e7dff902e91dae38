package postgres

import (
	"database/sql/driver"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/paulmach/orb/encoding/ewkb"
	"github.com/paulmach/orb/encoding/wkt"
)

// geometryText renders PostGIS EWKB, hex or raw, as EWKT. ok is false when
// the value does not decode.
func geometryText(v any) (string, bool) {
	var raw []byte
	switch g := v.(type) {
	case string:
		b, err := hex.DecodeString(g)
		if err != nil {
			return "", false
		}
		raw = b
	case []byte:
		raw = g
	default:
		return "", false
	}

	geom, srid, err := ewkb.Unmarshal(raw)
	if err != nil {
		return "", false
	}
	text := wkt.MarshalString(geom)
	if srid != 0 {
		text = "SRID=" + strconv.Itoa(srid) + ";" + text
	}
	return text, true
}

// textSafe turns a decoded column value into something that encodes to
// JSON without loss of meaning.
func textSafe(v any) any {
	switch x := v.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return x
	case float32:
		return safeFloat(float64(x), 32)
	case float64:
		return safeFloat(x, 64)
	case []byte:
		return base64.StdEncoding.EncodeToString(x)
	case [16]byte:
		return uuid.UUID(x).String()
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case pgtype.Numeric:
		return numericText(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = textSafe(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = textSafe(e)
		}
		return out
	case driver.Valuer:
		dv, err := x.Value()
		if err != nil {
			return fmt.Sprint(x)
		}
		if _, again := dv.(driver.Valuer); again {
			return fmt.Sprint(dv)
		}
		return textSafe(dv)
	case fmt.Stringer:
		return x.String()
	}
	if _, err := json.Marshal(v); err == nil {
		return v
	}
	return fmt.Sprint(v)
}

func safeFloat(f float64, bits int) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, bits)
	}
	return f
}

func numericText(n pgtype.Numeric) any {
	switch {
	case !n.Valid:
		return nil
	case n.NaN:
		return "NaN"
	case n.InfinityModifier == pgtype.Infinity:
		return "Infinity"
	case n.InfinityModifier == pgtype.NegativeInfinity:
		return "-Infinity"
	}
	b, err := n.MarshalJSON()
	if err != nil {
		return fmt.Sprint(n)
	}
	return json.Number(b)
}
