//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestRedis_GetSet(t *testing.T) {
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	testcontainers.CleanupContainer(t, container)

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := DialRedis(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	r := NewRedis(client, "ensname:test:")
	require.NoError(t, r.Health(ctx))

	_, ok, err := r.Get(ctx, "foo.eth")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Set(ctx, "foo.eth", []byte("0xabc"), time.Minute))

	got, ok, err := r.Get(ctx, "foo.eth")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("0xabc"), got)

	ttl, err := client.TTL(ctx, "ensname:test:foo.eth").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
