package seed

import (
	"strings"

	"railseed/internal/domain"
	"railseed/internal/etl"
)

// MaxNameLength bounds station and train names.
const MaxNameLength = 100

const (
	defaultName = "Unknown"
	defaultCity = "India"
)

// Accepted source names per canonical station field, in precedence order.
var (
	stationCodeKeys = []string{"code", "station_code"}
	stationNameKeys = []string{"name", "station_name"}
	stationCityKeys = []string{"city", "state"}
	stationLatKeys  = []string{"lat", "latitude"}
	stationLngKeys  = []string{"lng", "longitude"}
)

// StationColumns is the substring vocabulary for tabular station sources.
// Projected rows are keyed by the canonical names, which are also the first
// candidates of the record mapper.
var StationColumns = []etl.ColumnRule{
	{Field: "code", Contains: []string{"code"}},
	{Field: "name", Contains: []string{"name"}},
	{Field: "city", Contains: []string{"city", "state"}},
	{Field: "lat", Contains: []string{"lat"}},
	{Field: "lng", Contains: []string{"lng", "lon"}},
}

// MapStation turns a loose record into a canonical station. It reports
// false when the record has no usable station code.
func MapStation(rec etl.Record) (domain.Station, bool) {
	code := naturalKey(rec, stationCodeKeys)
	if code == "" {
		return domain.Station{}, false
	}

	lat, lng := position(rec)
	return domain.Station{
		ID:        domain.StationID(code),
		Name:      etl.Truncate(etl.ResolveString(rec, stationNameKeys, defaultName), MaxNameLength),
		Code:      code,
		City:      etl.ResolveString(rec, stationCityKeys, defaultCity),
		Latitude:  lat,
		Longitude: lng,
	}, true
}

// position coerces latitude and longitude together: if either is present
// but not numeric, both fall back to zero.
func position(rec etl.Record) (lat, lng float64) {
	lat, errLat := etl.ToFloat(etl.Resolve(rec, stationLatKeys, 0.0))
	lng, errLng := etl.ToFloat(etl.Resolve(rec, stationLngKeys, 0.0))
	if errLat != nil || errLng != nil {
		return 0, 0
	}
	return lat, lng
}

// naturalKey resolves a key field and trims it. Non-scalar values (nested
// objects or lists) never qualify as keys.
func naturalKey(rec etl.Record, keys []string) string {
	return strings.TrimSpace(etl.ResolveString(rec, keys, ""))
}
