// Package conflict implements divergence detection between local records
// and their external counterparts, persistence of detected conflicts, and
// application of resolutions (manual or automatic) back onto the local
// record.
package conflict

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// wrapperKeys are the single-key object shapes the external system uses to
// carry scalars (e.g. {"text": "..."}). Both the detector and the resolver
// unwrap through this one function so the two sides always compare and
// apply the same canonical representation.
var wrapperKeys = []string{"text", "value"}

// NormalizeValue reduces an external or local value to a comparable scalar:
// nested single-key wrapper objects are unwrapped (recursively), strings are
// whitespace trimmed, json.Number becomes float64. Anything else is
// returned as is.
func NormalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]interface{}:
		if len(t) == 1 {
			for _, k := range wrapperKeys {
				if inner, ok := t[k]; ok {
					return NormalizeValue(inner)
				}
			}
		}
		return t
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return v
	}
}

// NormalizedString renders a normalized value in its canonical string form.
// nil and the empty string intentionally collapse to the same form: a NULL
// local column and an absent external field are not a divergence.
func NormalizedString(v interface{}) string {
	switch t := NormalizeValue(v).(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// ValuesEqual compares two values after normalization
func ValuesEqual(a, b interface{}) bool {
	return NormalizedString(a) == NormalizedString(b)
}

// DriverValue converts a normalized value into something suitable for a
// text column bind parameter. Non scalar leftovers are JSON encoded rather
// than fmt formatted so they round trip.
func DriverValue(v interface{}) interface{} {
	n := NormalizeValue(v)
	switch n.(type) {
	case nil:
		return nil
	case string, bool, float64, int, int64:
		return NormalizedString(n)
	default:
		if b, err := json.Marshal(n); err == nil {
			return string(b)
		}
		return NormalizedString(n)
	}
}
