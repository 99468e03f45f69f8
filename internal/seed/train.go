package seed

import (
	"slices"

	"railseed/internal/domain"
	"railseed/internal/etl"
)

var (
	trainNumberKeys = []string{"number", "train_number"}
	trainNameKeys   = []string{"name", "train_name"}
	trainTypeKeys   = []string{"type", "train_type"}
)

// TrainColumns is the substring vocabulary for tabular train sources.
var TrainColumns = []etl.ColumnRule{
	{Field: "number", Contains: []string{"number"}},
	{Field: "name", Contains: []string{"name"}},
	{Field: "type", Contains: []string{"type"}},
}

// TrainDefaults are the values every seeded train gets for fields the
// source datasets do not carry.
type TrainDefaults struct {
	Type       string   `yaml:"type"`
	TotalSeats int      `yaml:"total_seats"`
	Amenities  []string `yaml:"amenities"`
	Active     bool     `yaml:"active"`
}

// DefaultTrainDefaults returns the stock defaults.
func DefaultTrainDefaults() TrainDefaults {
	return TrainDefaults{
		Type:       "express",
		TotalSeats: 1000,
		Amenities:  []string{"General"},
		Active:     true,
	}
}

// TrainMapper maps loose records to canonical trains.
type TrainMapper struct {
	Defaults TrainDefaults
}

// Map turns a loose record into a canonical train. It reports false when
// the record has no usable train number.
func (m TrainMapper) Map(rec etl.Record) (domain.Train, bool) {
	number := naturalKey(rec, trainNumberKeys)
	if number == "" {
		return domain.Train{}, false
	}

	typ := m.Defaults.Type
	if typ == "" {
		typ = "express"
	}
	return domain.Train{
		ID:         domain.TrainID(number),
		Name:       etl.Truncate(etl.ResolveString(rec, trainNameKeys, defaultName), MaxNameLength),
		Number:     number,
		Type:       etl.ResolveString(rec, trainTypeKeys, typ),
		TotalSeats: m.Defaults.TotalSeats,
		Amenities:  slices.Clone(m.Defaults.Amenities),
		Active:     m.Defaults.Active,
	}, true
}
