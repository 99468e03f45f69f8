package etl

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// ── Coercion ───────────────────────────────────────────────
// Source values arrive as whatever the decoder produced: json.Number,
// float64 from a driver, []byte from a SQL scan, plain strings from CSV.

// ToFloat converts a scalar to a finite float64.
// Strings are trimmed first; NaN and ±Inf count as failures.
func ToFloat(v any) (float64, error) {
	switch n := v.(type) {
	case nil:
		return 0, fmt.Errorf("cannot convert nil to float")
	case string:
		v = strings.TrimSpace(n)
	case []byte:
		v = strings.TrimSpace(string(n))
	case json.Number:
		v = n.String()
	}

	if s, ok := v.(string); ok && s == "" {
		return 0, fmt.Errorf("cannot convert empty string to float")
	}

	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite value %v", v)
	}
	return f, nil
}

// ScalarString renders a scalar as text. Objects and arrays are not scalars
// and return ok=false; so does nil.
func ScalarString(v any) (string, bool) {
	switch s := v.(type) {
	case nil:
		return "", false
	case string:
		return s, true
	case []byte:
		return string(s), true
	case json.Number:
		return s.String(), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32), true
	case []any, map[string]any, *Object:
		return "", false
	}

	str, err := cast.ToStringE(v)
	if err != nil {
		return "", false
	}
	return str, true
}

// Truncate cuts s to at most n characters (code points, not bytes).
func Truncate(s string, n int) string {
	if n < 0 || len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
