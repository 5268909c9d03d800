package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "/ipc", cfg.Server.Path)
	assert.Equal(t, 30*time.Second, cfg.Dispatch.InvokeTimeout)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, "tunebridge", cfg.Storage.MongoDB.Database)
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tunebridge.yaml")
	content := `
server:
  listen: "0.0.0.0:9000"
dispatch:
  invoke_timeout: 2s
logging:
  level: debug
storage:
  driver: mongodb
  mongodb:
    uri: mongodb://db.internal:27017
    database: player
    connect_timeout: 3s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Listen)
	assert.Equal(t, "/ipc", cfg.Server.Path, "unset keys keep their defaults")
	assert.Equal(t, 2*time.Second, cfg.Dispatch.InvokeTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, StorageMongoDB, cfg.Storage.Driver)
	assert.Equal(t, "mongodb://db.internal:27017", cfg.Storage.MongoDB.URI)
	assert.Equal(t, "player", cfg.Storage.MongoDB.Database)
	assert.Equal(t, 3*time.Second, cfg.Storage.MongoDB.ConnectTimeout)
	assert.Equal(t, 5*time.Second, cfg.Storage.MongoDB.PingTimeout)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParse_EmptyDocument(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestParse_UnknownKey(t *testing.T) {
	_, err := Parse([]byte("server:\n  listn: \":1\"\n"))
	assert.Error(t, err)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad driver", "storage:\n  driver: sqlite\n"},
		{"relative path", "server:\n  path: ipc\n"},
		{"negative timeout", "dispatch:\n  invoke_timeout: -1s\n"},
		{"empty listen", "server:\n  listen: \"\"\n"},
		{"unknown log format", "logging:\n  format: xml\n"},
		{"mongo without uri", "storage:\n  driver: mongodb\n  mongodb:\n    uri: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestConfig_MarshalRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dispatch.InvokeTimeout = 1500 * time.Millisecond

	data, err := cfg.Marshal()
	require.NoError(t, err)

	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}
