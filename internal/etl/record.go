package etl

// ── Record ─────────────────────────────────────────────────
// Common intermediate data format.
// Sources emit an Input (a document or a table); the normalizer and the
// column projection turn either into Records, which the mappers consume.

// Record is a single loosely-typed row flowing through the pipeline.
// Keys follow whatever naming convention the source used.
type Record struct {
	Data map[string]any `json:"data"`
}

// Table is a row/column dataset such as a CSV file or a query result.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Input is what a collaborator hands to the pipeline for one entity kind.
// Exactly one of Document or Table is expected to be set; a nil Input
// means "no data for this kind".
type Input struct {
	Label    string `json:"label"`
	Document any    `json:"document,omitempty"`
	Table    *Table `json:"table,omitempty"`
}

// IsEmpty reports whether the input carries nothing to load.
func (in *Input) IsEmpty() bool {
	return in == nil || (in.Document == nil && in.Table == nil)
}
