package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSet(t *testing.T) {
	ctx := context.Background()
	m, err := NewMemory(8)
	require.NoError(t, err)

	_, ok, err := m.Get(ctx, "foo.eth")
	require.NoError(t, err)
	assert.False(t, ok)

	val := []byte("0x1234")
	require.NoError(t, m.Set(ctx, "foo.eth", val, 0))
	val[0] = 'X'

	got, ok, err := m.Get(ctx, "foo.eth")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("0x1234"), got, "stored value must not alias the caller's slice")
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	m, err := NewMemory(8)
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))

	now = now.Add(59 * time.Second)
	_, ok, _ := m.Get(ctx, "k")
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok, _ = m.Get(ctx, "k")
	assert.False(t, ok)
	assert.Zero(t, m.Len())
}

func TestMemory_Eviction(t *testing.T) {
	ctx := context.Background()
	m, err := NewMemory(2)
	require.NoError(t, err)

	require.NoError(t, m.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, m.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, m.Set(ctx, "c", []byte("3"), 0))

	_, ok, _ := m.Get(ctx, "a")
	assert.False(t, ok, "least recently used entry should be evicted")
	assert.Equal(t, 2, m.Len())
}

func TestNewMemory_InvalidSize(t *testing.T) {
	_, err := NewMemory(0)
	assert.Error(t, err)
}
