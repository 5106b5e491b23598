package validation

import (
	"encoding/json"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

// Values here come from JSON decoded with UseNumber, so numbers arrive as
// json.Number and keep their exact digits.

// MaxSafeInteger is the largest integer a double represents exactly. Plain
// integer fields are limited to it so every caller sees the same value.
const MaxSafeInteger int64 = 1<<53 - 1

var bigIntString = regexp.MustCompile(`^[1-9]+[0-9]*[LlNn]?$`)

// IsNull reports whether v is absent or JSON null
func IsNull(v any) bool {
	return v == nil
}

// String returns v when it is a non-empty string
func String(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// Integer returns v when it is a number holding an integer no larger in
// magnitude than MaxSafeInteger. "5.0" and "5e2" are integers.
func Integer(v any) (int64, bool) {
	n, ok := integral(v)
	if !ok || !n.IsInt64() {
		return 0, false
	}
	i := n.Int64()
	if i > MaxSafeInteger || i < -MaxSafeInteger {
		return 0, false
	}
	return i, true
}

// IsBigInt reports whether v is a number holding an integer of any size.
// Strings never qualify, even when numeric.
func IsBigInt(v any) bool {
	_, ok := integral(v)
	return ok
}

// ToBigInt64 coerces v to a signed 64-bit integer. Numbers must be integral
// and in range. Strings must be at most 100 characters of digits without a
// leading zero or sign, optionally suffixed by one of "LlNn".
func ToBigInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case string:
		if len(t) > 100 || !bigIntString.MatchString(t) {
			return 0, false
		}
		t = strings.TrimRight(t, "LlNn")
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		n, ok := integral(v)
		if !ok || !n.IsInt64() {
			return 0, false
		}
		return n.Int64(), true
	}
}

// Truthy mirrors boolean coercion of a loosely typed JSON value
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err != nil || (f != 0 && !math.IsNaN(f))
	case float64:
		return t != 0 && !math.IsNaN(t)
	case int64:
		return t != 0
	case int:
		return t != 0
	default:
		return true
	}
}

// integral returns the exact integer value of a numeric v
func integral(v any) (*big.Int, bool) {
	switch t := v.(type) {
	case json.Number:
		if n, ok := new(big.Int).SetString(string(t), 10); ok {
			return n, true
		}
		// fractions and exponents are doubles, only exact below MaxSafeInteger
		f, err := t.Float64()
		if err != nil {
			return nil, false
		}
		return integral(f)
	case int64:
		return big.NewInt(t), true
	case int:
		return big.NewInt(int64(t)), true
	case float64:
		if math.IsInf(t, 0) || math.IsNaN(t) || t != math.Trunc(t) || math.Abs(t) > float64(MaxSafeInteger) {
			return nil, false
		}
		return big.NewInt(int64(t)), true
	}
	return nil, false
}
