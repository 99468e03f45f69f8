package domain

// TrainIDPrefix is prepended to a train number to form its id.
const TrainIDPrefix = "tr_"

// Train is the canonical train row.
type Train struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Number     string   `json:"number"`
	Type       string   `json:"type"`
	TotalSeats int      `json:"totalSeats"`
	Amenities  []string `json:"amenities"`
	Active     bool     `json:"active"`
}

// TrainID derives the surrogate id from the natural key.
func TrainID(number string) string { return TrainIDPrefix + number }

// TrainNumber is the natural key accessor used for deduplication.
func TrainNumber(t Train) string { return t.Number }
