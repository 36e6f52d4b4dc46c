// Package jsonsafe rewrites arbitrary result structures into values that
// survive JSON encoding. The reconciliation and inference stages produce
// platform-native numerics, non-finite floats and timestamps; this package is
// the single choke point that maps them to portable equivalents before a
// response is written.
package jsonsafe

import (
	"math"
	"reflect"
	"time"

	"github.com/goccy/go-json"
)

// Clean returns a JSON-safe copy of v. It is total: any input yields a
// result, never an error. Maps and sequences are rebuilt with every element
// cleaned, integral numerics become plain ints, non-finite floats become
// nil, timestamps become ISO-8601 strings, and anything else passes through
// unchanged. Clean is idempotent.
func Clean(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = Clean(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Clean(e)
		}
		return out
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	case float32:
		return Clean(float64(x))
	case *float64:
		if x == nil {
			return nil
		}
		return Clean(*x)
	case int:
		return x
	case int8, int16, int32, int64, uint, uint8, uint16, uint32:
		return int(reflect.ValueOf(x).Convert(reflect.TypeOf(int64(0))).Int())
	case uint64:
		if x > math.MaxInt64 {
			return float64(x)
		}
		return int(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return int(i)
		}
		if f, err := x.Float64(); err == nil {
			return Clean(f)
		}
		return x.String()
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case string, bool:
		return x
	default:
		return cleanReflect(v)
	}
}

// cleanReflect handles map and slice shapes that are not the common concrete
// types, keeping Clean total over any container the callers hand it.
func cleanReflect(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key, ok := iter.Key().Interface().(string)
			if !ok {
				continue
			}
			out[key] = Clean(iter.Value().Interface())
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = Clean(rv.Index(i).Interface())
		}
		return out
	case reflect.Ptr:
		if rv.IsNil() {
			return nil
		}
		return Clean(rv.Elem().Interface())
	default:
		return v
	}
}
