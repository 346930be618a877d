package patterns

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// floatEpsilon is the tolerance for numeric reproduction checks. Math
// patterns compute with float64, so exact bit equality is too strict.
const floatEpsilon = 1e-6

// valuesEqual reports whether a candidate rule's computed value reproduces
// the observed output value. Numbers compare numerically regardless of
// int/float representation; everything else compares structurally.
func valuesEqual(a, b interface{}) bool {
	fa, aok := toFloat(a)
	fb, bok := toFloat(b)
	if aok && bok {
		return floatsEqual(fa, fb)
	}
	if aok != bok {
		return false
	}
	return reflect.DeepEqual(a, b)
}

func floatsEqual(a, b float64) bool {
	if a == b {
		return true
	}
	diff := math.Abs(a - b)
	if diff <= floatEpsilon {
		return true
	}
	// Relative tolerance for large magnitudes
	scale := math.Max(math.Abs(a), math.Abs(b))
	return diff <= floatEpsilon*scale
}

// toFloat converts any numeric value to float64. Booleans and strings are
// not numbers here; string-to-number is the type-conversion detector's job.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// toString renders a scalar the way the generated extractor would when
// converting to string: integral floats print without a decimal point.
func toString(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case bool:
		return strconv.FormatBool(s), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case float64:
		if s == math.Trunc(s) && math.Abs(s) < 1e15 {
			return strconv.FormatInt(int64(s), 10), true
		}
		return strconv.FormatFloat(s, 'g', -1, 64), true
	default:
		return "", false
	}
}

// valueKey serializes a scalar into a deterministic map key for value
// mapping tables. Keys carry a type tag so the int 1 and the string "1"
// stay distinct; numeric representations still unify because JSON
// decoding turns every number into float64.
func valueKey(v interface{}) string {
	if f, ok := toFloat(v); ok {
		if f == math.Trunc(f) {
			return "n:" + strconv.FormatInt(int64(f), 10)
		}
		return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
	}
	if b, ok := v.(bool); ok {
		return "b:" + strconv.FormatBool(b)
	}
	return "s:" + fmt.Sprintf("%v", v)
}

// isScalar reports whether the value is neither a list nor a dict.
func isScalar(v interface{}) bool {
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		return false
	default:
		return true
	}
}
