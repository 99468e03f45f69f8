package etl

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func rec(kv ...any) Record {
	data := map[string]any{}
	for i := 0; i+1 < len(kv); i += 2 {
		data[kv[i].(string)] = kv[i+1]
	}
	return Record{Data: data}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		rec        Record
		candidates []string
		want       any
	}{
		{"first candidate", rec("code", "NDLS", "station_code", "XXX"), []string{"code", "station_code"}, "NDLS"},
		{"second candidate", rec("station_code", "BCT"), []string{"code", "station_code"}, "BCT"},
		{"null is absent", rec("code", nil, "station_code", "MAS"), []string{"code", "station_code"}, "MAS"},
		{"default", rec("other", 1), []string{"code", "station_code"}, "dflt"},
		{"empty record", Record{}, []string{"code"}, "dflt"},
		{"case and space folded", rec(" Station_Code ", "HWH"), []string{"code", "station_code"}, "HWH"},
		{"exact beats folded", rec("CODE", "folded", "station_code", "exact"), []string{"code", "station_code"}, "exact"},
		{"non-string kept as is", rec("lat", json.Number("28.6")), []string{"lat"}, json.Number("28.6")},
		{"blank string still present", rec("code", ""), []string{"code"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.rec, tt.candidates, "dflt"))
		})
	}
}

func TestResolveString(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want string
	}{
		{"string", rec("name", "New Delhi"), "New Delhi"},
		{"blank falls through", rec("name", "  ", "station_name", "Mumbai"), "Mumbai"},
		{"number rendered", rec("name", json.Number("12345")), "12345"},
		{"float rendered", rec("name", 12.0), "12"},
		{"object is absent", rec("name", map[string]any{"en": "x"}), "Unknown"},
		{"list is absent", rec("name", []any{"a"}), "Unknown"},
		{"missing", rec(), "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveString(tt.rec, []string{"name", "station_name"}, "Unknown"))
		})
	}
}

func TestResolve_FoldedCollisionIsDeterministic(t *testing.T) {
	r := rec("Code", "A", "CODE", "B")
	for i := 0; i < 20; i++ {
		// Sorted order visits "CODE" before "Code".
		assert.Equal(t, "B", Resolve(r, []string{"code"}, nil))
	}
}

func TestNewColumnMap(t *testing.T) {
	rules := []ColumnRule{
		{Field: "code", Contains: []string{"code"}},
		{Field: "name", Contains: []string{"name"}},
		{Field: "city", Contains: []string{"city", "state"}},
		{Field: "lat", Contains: []string{"lat"}},
		{Field: "lng", Contains: []string{"lng", "lon"}},
	}

	m := NewColumnMap([]string{"Station Code", "Station Name", "State", "Latitude", "Longitude", "Zone"}, rules)
	assert.Equal(t, []string{"code", "name", "city", "lat", "lng"}, m.Resolved())

	i, ok := m.column("city")
	assert.True(t, ok)
	assert.Equal(t, 2, i)

	r := m.Project([]any{"NDLS", "New Delhi", "Delhi", "28.64", "77.21", "NR"})
	assert.Equal(t, map[string]any{
		"code": "NDLS", "name": "New Delhi", "city": "Delhi", "lat": "28.64", "lng": "77.21",
	}, r.Data)
}

func TestNewColumnMap_SubstringPrecedence(t *testing.T) {
	rules := []ColumnRule{{Field: "city", Contains: []string{"city", "state"}}}
	m := NewColumnMap([]string{"state", "city"}, rules)
	i, _ := m.column("city")
	assert.Equal(t, 1, i, "earlier substring wins over earlier column")
}

func TestNewColumnMap_ColumnNotReused(t *testing.T) {
	rules := []ColumnRule{
		{Field: "number", Contains: []string{"number"}},
		{Field: "name", Contains: []string{"name", "number"}},
	}
	m := NewColumnMap([]string{"train_number"}, rules)
	assert.Equal(t, []string{"number"}, m.Resolved())
	_, ok := m.column("name")
	assert.False(t, ok)
}

func TestColumnMap_ProjectShortRow(t *testing.T) {
	m := NewColumnMap([]string{"code", "name"}, []ColumnRule{
		{Field: "code", Contains: []string{"code"}},
		{Field: "name", Contains: []string{"name"}},
	})
	assert.Equal(t, map[string]any{"code": "NDLS"}, m.Project([]any{"NDLS"}).Data)
}
