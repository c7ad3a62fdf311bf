package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) lookupFunc {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 90*time.Second, cfg.Workflow.TurnTimeout)
	assert.Equal(t, 10, cfg.Workflow.HistoryWindow)
	assert.Equal(t, 3, cfg.Workflow.TopK)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := applyEnv(&cfg, env(map[string]string{
		"PORT":                          "8080",
		"FRONTEND_ORIGIN":               "https://nova.example",
		"AZURE_OPENAI_API_KEY":          "k1",
		"AZURE_OPENAI_ENDPOINT":         "https://r.openai.azure.com",
		"AZURE_SEARCH_API_KEY":          "k2",
		"AZURE_SEARCH_INDEX_LEGAL":      "legal",
		"AZURE_SEARCH_INDEX_FINANCIAL":  "fin",
		"NOVA_STORE":                    "sqlite",
		"NOVA_TURN_TIMEOUT":             "45s",
		"NOVA_DOCUMENT_TTL":             "4",
		"NOVA_ENCRYPTION_FALLBACK_KEYS": "a, b,,c",
		"NOVA_MASK_PII":                 "true",
		"DEBUG":                         "True",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "https://nova.example", cfg.Server.FrontendOrigin)
	assert.Equal(t, "k1", cfg.Generation.APIKey)
	assert.Equal(t, "k2", cfg.Retrieval.APIKey)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, 45*time.Second, cfg.Workflow.TurnTimeout)
	assert.Equal(t, 4, cfg.Workflow.DocumentTTL)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Store.FallbackKeys)
	assert.True(t, cfg.Store.MaskPII)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestApplyEnv_PrefersFirstName(t *testing.T) {
	cfg := Default()
	require.NoError(t, applyEnv(&cfg, env(map[string]string{
		"AZURE_OPENAI_KEY":     "legacy",
		"AZURE_OPENAI_API_KEY": "newer",
		"NOVA_ADDR":            "127.0.0.1:9000",
		"PORT":                 "1",
	})))
	assert.Equal(t, "legacy", cfg.Generation.APIKey)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
}

func TestApplyEnv_Malformed(t *testing.T) {
	cfg := Default()
	err := applyEnv(&cfg, env(map[string]string{
		"NOVA_TOP_K":        "three",
		"NOVA_TURN_TIMEOUT": "soon",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOVA_TOP_K")
	assert.Contains(t, err.Error(), "NOVA_TURN_TIMEOUT")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Store.Backend = "tape"
	assert.ErrorContains(t, cfg.Validate(), "Backend")

	cfg = Default()
	cfg.Store.DistributedLock = true
	assert.ErrorContains(t, cfg.Validate(), "distributed_lock")

	cfg = Default()
	cfg.Retry.Multiplier = 0.5
	assert.Error(t, cfg.Validate())
}

func TestRequireServices(t *testing.T) {
	cfg := Default()
	err := cfg.RequireServices()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AZURE_OPENAI_ENDPOINT")

	cfg.Generation.APIKey = "k"
	cfg.Generation.Endpoint = "https://x"
	cfg.Retrieval.Backend = "sqlite"
	assert.NoError(t, cfg.RequireServices())
}

func TestLoad_YAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nova.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":7000"
store:
  backend: file
  path: /tmp/nova
workflow:
  turn_timeout: 30s
  history_window: 4
retry:
  max_attempts: 5
`), 0o600))

	t.Setenv("NOVA_HISTORY_WINDOW", "2")
	t.Chdir(dir)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "file", cfg.Store.Backend)
	assert.Equal(t, 30*time.Second, cfg.Workflow.TurnTimeout)
	assert.Equal(t, 2, cfg.Workflow.HistoryWindow, "environment wins over the file")
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 3, cfg.Workflow.TopK, "unset keys keep defaults")
}

func TestLoad_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
