package domain

// StationIDPrefix is prepended to a station code to form its id.
const StationIDPrefix = "st_"

// Station is the canonical station row.
type Station struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Code      string  `json:"code"`
	City      string  `json:"city"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// StationID derives the surrogate id from the natural key.
func StationID(code string) string { return StationIDPrefix + code }

// StationCode is the natural key accessor used for deduplication.
func StationCode(s Station) string { return s.Code }
