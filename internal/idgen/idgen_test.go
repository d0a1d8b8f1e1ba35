package idgen

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsUniqueV7(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := New()
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true

		parsed, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(7), parsed.Version())
	}
}

func TestSequential(t *testing.T) {
	gen := Sequential("id")
	assert.Equal(t, "id-1", gen())
	assert.Equal(t, "id-2", gen())

	other := Sequential("x")
	assert.Equal(t, "x-1", other())
}
