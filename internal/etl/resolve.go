package etl

import (
	"slices"
	"strings"

	"github.com/samber/lo"
)

// ── Field Resolver ─────────────────────────────────────────
// Sources disagree on naming ("code" vs "station_code" vs "Station Code ").
// Callers pass an ordered list of accepted names instead of branching per
// field.

// Resolve returns the value of the first candidate key that is present and
// non-null in rec, or def when none is. Exact key matches are tried for every
// candidate before falling back to a case- and whitespace-insensitive match.
func Resolve(rec Record, candidates []string, def any) any {
	if v, ok := lookup(rec, candidates, func(any) bool { return true }); ok {
		return v
	}
	return def
}

// ResolveString is Resolve for text fields: values that are not scalars or
// whose text is blank are treated as absent.
func ResolveString(rec Record, candidates []string, def string) string {
	v, ok := lookup(rec, candidates, func(v any) bool {
		s, ok := ScalarString(v)
		return ok && strings.TrimSpace(s) != ""
	})
	if !ok {
		return def
	}
	s, _ := ScalarString(v)
	return s
}

func lookup(rec Record, candidates []string, accept func(any) bool) (any, bool) {
	if len(rec.Data) == 0 {
		return nil, false
	}
	for _, name := range candidates {
		if v, ok := rec.Data[name]; ok && v != nil && accept(v) {
			return v, true
		}
	}

	// Folded pass. Keys are visited in sorted order so that two variants
	// folding to the same name resolve the same way on every run.
	folded := make(map[string][]string, len(rec.Data))
	for _, k := range sortedKeys(rec.Data) {
		fk := foldKey(k)
		folded[fk] = append(folded[fk], k)
	}
	for _, name := range candidates {
		for _, k := range folded[foldKey(name)] {
			if v := rec.Data[k]; v != nil && accept(v) {
				return v, true
			}
		}
	}
	return nil, false
}

func sortedKeys(m map[string]any) []string {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}

func foldKey(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}

// ── Tabular column resolution ──────────────────────────────

// ColumnRule declares which table columns can supply a canonical field.
// A column matches when its lower-cased name contains any of Contains.
type ColumnRule struct {
	Field    string
	Contains []string
}

// ColumnMap is the per-table mapping from canonical field name to column
// index. It is built once per table and passed along with the rows.
type ColumnMap struct {
	fields  []string
	indexes map[string]int
}

// NewColumnMap resolves rules against columns in rule order. Within a rule,
// substrings are tried in order and the first matching column wins. A column
// claimed by an earlier rule is not reused, so one column never feeds two
// fields.
func NewColumnMap(columns []string, rules []ColumnRule) ColumnMap {
	m := ColumnMap{indexes: make(map[string]int, len(rules))}
	claimed := make(map[int]bool, len(columns))
	for _, rule := range rules {
		m.fields = append(m.fields, rule.Field)
	match:
		for _, needle := range rule.Contains {
			needle = strings.ToLower(needle)
			for i, col := range columns {
				if claimed[i] {
					continue
				}
				if strings.Contains(strings.ToLower(col), needle) {
					m.indexes[rule.Field] = i
					claimed[i] = true
					break match
				}
			}
		}
	}
	return m
}

// column returns the column index resolved for field.
func (m ColumnMap) column(field string) (int, bool) {
	i, ok := m.indexes[field]
	return i, ok
}

// Resolved returns the canonical fields that found a column, in rule order.
func (m ColumnMap) Resolved() []string {
	var out []string
	for _, f := range m.fields {
		if _, ok := m.indexes[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Project turns a table row into a Record keyed by canonical field names.
// Short rows simply leave the missing fields out.
func (m ColumnMap) Project(row []any) Record {
	data := make(map[string]any, len(m.indexes))
	for field, i := range m.indexes {
		if i < len(row) {
			data[field] = row[i]
		}
	}
	return Record{Data: data}
}
