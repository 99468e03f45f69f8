package etl

// ── Batch ──────────────────────────────────────────────────
// Accumulates mapped entities for one bulk write, dropping repeats of a
// natural key already seen in the run. First occurrence wins and insertion
// order is preserved so load statements are reproducible.

// Batch collects values of one entity kind keyed by their natural key.
type Batch[T any] struct {
	key        func(T) string
	seen       map[string]struct{}
	items      []T
	duplicates int
}

// NewBatch returns an empty batch that identifies values by key.
func NewBatch[T any](key func(T) string) *Batch[T] {
	return &Batch[T]{key: key, seen: make(map[string]struct{})}
}

// Add appends v unless its key was already seen. It reports whether v was
// accepted; a rejection is counted, not an error.
func (b *Batch[T]) Add(v T) bool {
	k := b.key(v)
	if _, dup := b.seen[k]; dup {
		b.duplicates++
		return false
	}
	b.seen[k] = struct{}{}
	b.items = append(b.items, v)
	return true
}

// Items returns the accepted values in insertion order.
func (b *Batch[T]) Items() []T { return b.items }

// Len is the number of accepted values.
func (b *Batch[T]) Len() int { return len(b.items) }

// Duplicates is the number of values dropped because their key repeated.
func (b *Batch[T]) Duplicates() int { return b.duplicates }
