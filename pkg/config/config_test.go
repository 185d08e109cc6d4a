package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"SCM_BASE_URL", "SCM_TOKEN", "SCM_SSL_VERIFY", "SCM_CA_BUNDLE_PATH", "SCM_TIMEOUT_SECONDS",
		"LLM_PROVIDER", "LLM_ENDPOINT", "LLM_API_KEY", "LLM_MODEL", "LLM_TIMEOUT_SECONDS",
		"WEBHOOK_SECRET",
		"NOTIFIER_ENDPOINT", "NOTIFIER_FROM_ADDRESS", "NOTIFIER_OPT_OUT",
		"STORE_URL", "STORE_MAX_OPEN_CONNS", "STORE_MAX_IDLE_CONNS", "STORE_CONN_MAX_LIFETIME_SECONDS",
		"QUEUE_CAPACITY", "QUEUE_WORKER_COUNT", "SERVER_SHUTDOWN_GRACE_SECONDS",
		"SERVER_HOST", "SERVER_BIND_PORT", "LOG_LEVEL", "LOG_FORMAT",
	}
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func baseValidEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SCM_BASE_URL", "https://scm.example.com")
	t.Setenv("SCM_TOKEN", "tok-123")
	t.Setenv("LLM_API_KEY", "sk-abc")
	t.Setenv("NOTIFIER_ENDPOINT", "https://mail.example.com/send")
	t.Setenv("NOTIFIER_FROM_ADDRESS", "reviews@example.com")
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	require.Error(t, err)

	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
	assert.True(t, cfgErr.HasErrors())

	fields := make(map[string]bool)
	for _, f := range cfgErr.Fields {
		fields[f.Field] = true
	}
	assert.True(t, fields["scm.base_url"])
	assert.True(t, fields["scm.token"])
	assert.True(t, fields["llm.api_key"])
	assert.True(t, fields["notifier.endpoint"])
	assert.True(t, fields["notifier.from_address"])
}

func TestLoad_ValidMinimalConfig(t *testing.T) {
	clearEnv(t)
	baseValidEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "https://scm.example.com", cfg.SCM.BaseURL)
	assert.True(t, cfg.SCM.SSLVerify)
	assert.Equal(t, LLMProviderHostedChat, cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 128, cfg.Queue.Capacity)
	assert.Equal(t, 4, cfg.Queue.WorkerCount)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_NotifierOptOutSkipsEndpointRequirement(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCM_BASE_URL", "https://scm.example.com")
	t.Setenv("SCM_TOKEN", "tok-123")
	t.Setenv("LLM_API_KEY", "sk-abc")
	t.Setenv("NOTIFIER_OPT_OUT", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Notifier.OptOut)
}

func TestLoad_InvalidLLMProvider(t *testing.T) {
	clearEnv(t)
	baseValidEnv(t)
	t.Setenv("LLM_PROVIDER", "carrier_pigeon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm.provider")
}

func TestLoad_StoreIdleExceedsOpenConns(t *testing.T) {
	clearEnv(t)
	baseValidEnv(t)
	t.Setenv("STORE_MAX_OPEN_CONNS", "5")
	t.Setenv("STORE_MAX_IDLE_CONNS", "10")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.max_idle_conns")
}
