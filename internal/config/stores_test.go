package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessionkeeper/internal/storage"
)

func TestOpenStoresFile(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Storage.StateDir = t.TempDir()

	stores, err := cfg.OpenStores(t.Context(), "work")
	require.NoError(t, err)
	defer stores.Close()

	require.NoError(t, stores.Tab.Set(t.Context(), "k", []byte("v")))
	_, err = os.Stat(filepath.Join(cfg.Storage.StateDir, "tabs", "work", "k.json"))
	assert.NoError(t, err)

	require.NoError(t, stores.Shared.Set(t.Context(), "k", []byte("v")))
	_, err = os.Stat(filepath.Join(cfg.Storage.StateDir, "shared", "k.json"))
	assert.NoError(t, err)
}

func TestOpenStoresMemoryShared(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Storage.StateDir = t.TempDir()
	cfg.Storage.Shared = SharedBackendMemory

	stores, err := cfg.OpenStores(t.Context(), "default")
	require.NoError(t, err)
	defer stores.Close()

	_, ok := stores.Shared.(*storage.MemoryStore)
	assert.True(t, ok)
}

func TestOpenStoresRejectsBadTab(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Storage.StateDir = t.TempDir()

	_, err := cfg.OpenStores(t.Context(), "../escape")
	assert.Error(t, err)
}

func TestOpenStoresRedisUnreachable(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Storage.StateDir = t.TempDir()
	cfg.Storage.Shared = SharedBackendRedis
	cfg.Storage.Redis.Address = "127.0.0.1:1"

	_, err := cfg.OpenStores(t.Context(), "default")
	assert.Error(t, err)
}
