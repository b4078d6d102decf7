package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultHost, cfg.Server.Host)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, DefaultShutdownTimeout, cfg.Server.ShutdownTimeout)
	assert.Equal(t, DefaultEmbeddingProvider, cfg.Embedding.Provider)
	assert.Equal(t, DefaultEmbeddingTimeout, cfg.Embedding.Timeout)
	assert.Equal(t, DefaultCacheSize, cfg.Embedding.CacheSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.NotEmpty(t, cfg.Database.Path)
	assert.False(t, cfg.Sync.Token.IsSet())
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 0.0.0.0
  http_port: 9000
  shutdown_timeout: 3s
database:
  path: /tmp/pb.db
embedding:
  provider: OpenAI
  api_key: sk-test
  timeout: 2s
  rate_limit: 5
sync:
  token: sync-secret
log:
  level: debug
  format: console
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr())
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "/tmp/pb.db", cfg.Database.Path)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey.Value())
	assert.Equal(t, 2*time.Second, cfg.Embedding.Timeout)
	assert.Equal(t, 5.0, cfg.Embedding.RateLimit)
	assert.Equal(t, "sync-secret", cfg.Sync.Token.Value())
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  http_port: 9000\n")
	t.Setenv("POSTBOARD_SERVER_HTTP_PORT", "9100")
	t.Setenv("POSTBOARD_EMBEDDING_PROVIDER", "local")
	t.Setenv("POSTBOARD_EMBEDDING_CACHE_SIZE", "42")
	t.Setenv("POSTBOARD_SYNC_TOKEN", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "local", cfg.Embedding.Provider)
	assert.Equal(t, 42, cfg.Embedding.CacheSize)
	assert.Equal(t, "from-env", cfg.Sync.Token.Value())
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad port", content: "server:\n  http_port: 70000\n"},
		{name: "unknown provider", content: "embedding:\n  provider: word2vec\n"},
		{name: "bad log format", content: "log:\n  format: xml\n"},
		{name: "negative rate", content: "embedding:\n  rate_limit: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsDirectory(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "server.http_port", envKey("POSTBOARD_SERVER_HTTP_PORT"))
	assert.Equal(t, "embedding.api_key", envKey("POSTBOARD_EMBEDDING_API_KEY"))
	assert.Equal(t, "debug", envKey("POSTBOARD_DEBUG"))
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "data", "pb.db"), expandHome("~/data/pb.db"))
	assert.Equal(t, "/abs/pb.db", expandHome("/abs/pb.db"))
}

func TestSecretRedaction(t *testing.T) {
	s := Secret("hunter2")
	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.Equal(t, "Secret([REDACTED])", fmt.Sprintf("%#v", s))
	assert.Equal(t, "hunter2", s.Value())

	out, err := json.Marshal(EmbeddingConfig{APIKey: s})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "hunter2")

	assert.Equal(t, "", Secret("").String())
}

func TestDefaultValidates(t *testing.T) {
	assert.NoError(t, Default().Validate())
}
