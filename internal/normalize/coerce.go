package normalize

import (
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// CoerceFloat converts a raw scalar to a float64. It accepts native numeric
// types, numeric strings (surrounding whitespace tolerated) and booleans.
// The second return value reports whether the conversion produced a usable
// number; non-finite results count as failures.
func CoerceFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return finite(x)
	case float32:
		return finite(float64(x))
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return finite(f)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return finite(f)
	default:
		return 0, false
	}
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// coerceString renders a raw scalar as a string token. A present-but-null
// value becomes the literal token "none", the same token a stringified null
// produces; the fitted encoder treats it like any other unseen category.
func coerceString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return "none"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return strings.Trim(string(b), `"`)
	}
}
