package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ensname/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, ":9090", cfg.GRPCAddr)
	assert.Empty(t, cfg.RPCURL)
	assert.Equal(t, 10.0, cfg.RPCRate)
	assert.Equal(t, 20, cfg.RPCBurst)
	assert.Equal(t, "0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e", cfg.RegistryAddress)
	assert.Equal(t, "eth", cfg.TLD)
	assert.Equal(t, domain.DefaultReservedWords(), cfg.ReservedWords)
	assert.Equal(t, []string{"url", "avatar", "description", "com.twitter", "com.github"}, cfg.TextKeys)
	assert.Equal(t, "memory", cfg.CacheBackend)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Empty(t, cfg.WatchNames)
	assert.Equal(t, 15*time.Minute, cfg.UpdateInterval)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("ENSNAME_HTTP_ADDR", ":8181")
	t.Setenv("ENSNAME_RPC_URL", "https://rpc.example.org")
	t.Setenv("ENSNAME_RESERVED_WORDS", "eth, admin ,,root")
	t.Setenv("ENSNAME_WATCH_NAMES", "vitalik.eth,nick.eth")
	t.Setenv("ENSNAME_UPDATE_INTERVAL", "1h")
	t.Setenv("ENSNAME_CACHE_BACKEND", "redis")
	t.Setenv("ENSNAME_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("ENSNAME_ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8181", cfg.HTTPAddr)
	assert.Equal(t, "https://rpc.example.org", cfg.RPCURL)
	assert.Equal(t, []string{"eth", "admin", "root"}, cfg.ReservedWords)
	assert.Equal(t, []string{"vitalik.eth", "nick.eth"}, cfg.WatchNames)
	assert.Equal(t, time.Hour, cfg.UpdateInterval)
	assert.Equal(t, "redis", cfg.CacheBackend)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_ReservedWordsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reserved:\n  - dao\n  - wallet\n"), 0o600))
	t.Setenv("ENSNAME_RESERVED_WORDS_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"dao", "wallet"}, cfg.ReservedWords)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "interval too small", key: "ENSNAME_UPDATE_INTERVAL", val: "10s"},
		{name: "interval too large", key: "ENSNAME_UPDATE_INTERVAL", val: "48h"},
		{name: "interval malformed", key: "ENSNAME_UPDATE_INTERVAL", val: "soon"},
		{name: "cache ttl malformed", key: "ENSNAME_CACHE_TTL", val: "5"},
		{name: "unknown backend", key: "ENSNAME_CACHE_BACKEND", val: "memcached"},
		{name: "redis without url", key: "ENSNAME_CACHE_BACKEND", val: "redis"},
		{name: "bad registry", key: "ENSNAME_REGISTRY_ADDRESS", val: "0x1234"},
		{name: "bad env", key: "ENSNAME_ENV", val: "staging"},
		{name: "missing policy", key: "ENSNAME_RESERVED_WORDS_FILE", val: "/nonexistent/policy.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestStringList(t *testing.T) {
	assert.Nil(t, stringList(nil))
	assert.Equal(t, []string{}, stringList(""))
	assert.Equal(t, []string{"a", "b"}, stringList(" a, b ,"))
	assert.Equal(t, []string{"a", "1"}, stringList([]any{"a", 1}))
}
