package storage

import (
	"testing"
	"time"

	"github.com/semaphoric/vecmig/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheEntrySerialization_RoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	entry := &core.CacheEntry{
		ContentHash: core.HashContent("some normalized chunk text"),
		Vector:      []float32{0.25, -0.5, 0.125, 1.0},
		TokenCount:  7,
		CreatedAt:   now,
		LastUsed:    now.Add(time.Minute),
	}

	data := MarshalCacheEntry(entry)
	got, err := UnmarshalCacheEntry(data)
	require.NoError(t, err)

	assert.Equal(t, entry.ContentHash, got.ContentHash)
	assert.Equal(t, entry.Vector, got.Vector)
	assert.Equal(t, entry.TokenCount, got.TokenCount)
	assert.True(t, entry.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, entry.LastUsed.Equal(got.LastUsed))
	assert.Equal(t, 4, got.Dimension())
}

func TestUnmarshalCacheEntry_Corrupt(t *testing.T) {
	_, err := UnmarshalCacheEntry([]byte{0xff, 0x01})
	assert.Error(t, err)
}
