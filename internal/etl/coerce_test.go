package etl

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToFloat(t *testing.T) {
	ok := []struct {
		in   any
		want float64
	}{
		{json.Number("28.6430"), 28.643},
		{" 77.21 ", 77.21},
		{[]byte("19"), 19},
		{42, 42},
		{int64(-7), -7},
		{float32(1.5), 1.5},
		{3.25, 3.25},
	}
	for _, tt := range ok {
		got, err := ToFloat(tt.in)
		require.NoError(t, err, "%#v", tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, "%#v", tt.in)
	}

	for _, in := range []any{nil, "", "  ", "north", math.NaN(), math.Inf(1), "NaN", []any{1.0}, map[string]any{}} {
		_, err := ToFloat(in)
		assert.Error(t, err, "%#v", in)
	}
}

func TestScalarString(t *testing.T) {
	ok := []struct {
		in   any
		want string
	}{
		{"NDLS", "NDLS"},
		{json.Number("012"), "012"},
		{12345.0, "12345"},
		{0.5, "0.5"},
		{int64(9), "9"},
		{true, "true"},
		{[]byte("x"), "x"},
	}
	for _, tt := range ok {
		got, isScalar := ScalarString(tt.in)
		assert.True(t, isScalar, "%#v", tt.in)
		assert.Equal(t, tt.want, got)
	}

	for _, in := range []any{nil, []any{"a"}, map[string]any{"a": 1}, NewObject()} {
		_, isScalar := ScalarString(in)
		assert.False(t, isScalar, "%#v", in)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "", Truncate("abc", 0))
	assert.Equal(t, "नई", Truncate("नई दिल्ली", 2))
	assert.Equal(t, "ü", Truncate("üü", 1))
	assert.Equal(t, "abc", Truncate("abc", -1))
}
