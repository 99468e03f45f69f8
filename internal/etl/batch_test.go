package etl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type keyed struct {
	key string
	n   int
}

func TestBatch_FirstWins(t *testing.T) {
	b := NewBatch(func(k keyed) string { return k.key })

	assert.True(t, b.Add(keyed{"12345", 1}))
	assert.True(t, b.Add(keyed{"22222", 2}))
	assert.False(t, b.Add(keyed{"12345", 3}))
	assert.True(t, b.Add(keyed{"ndls", 4}))
	assert.True(t, b.Add(keyed{"NDLS", 5}), "keys are case-sensitive")

	assert.Equal(t, []keyed{{"12345", 1}, {"22222", 2}, {"ndls", 4}, {"NDLS", 5}}, b.Items())
	assert.Equal(t, 4, b.Len())
	assert.Equal(t, 1, b.Duplicates())
}
