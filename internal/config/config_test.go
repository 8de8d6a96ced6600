package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	for _, env := range []string{
		"AIDA_SIGNING_KEY", "AIDA_DATA_DIR", "AIDA_LLM_PROVIDER", "AIDA_LLM_MODEL",
		"AIDA_LLM_MAX_TOKENS", "AIDA_LLM_TEMPERATURE", "AIDA_WEBHOOK_FUNCTIONS",
		"AIDA_AUDIT_RETENTION_YEARS", "AIDA_SESSION_RETENTION_YEARS", "AIDA_API_KEYS",
		"AIDA_OPENAI_API_KEY", "OPENAI_API_KEY", "AIDA_RATE_LIMIT_PER_MINUTE",
	} {
		t.Setenv(env, "")
	}
	viper.Reset()
	SetDefaults()
}

func TestLoad_Defaults(t *testing.T) {
	resetViper(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultLLMProvider, cfg.LLMProvider)
	assert.Equal(t, DefaultLLMModel, cfg.LLMModel)
	assert.Equal(t, DefaultMaxTokens, cfg.MaxTokens)
	assert.InDelta(t, DefaultTemperature, cfg.Temperature, 1e-9)
	assert.Equal(t, []string{DefaultWebhookFunction}, cfg.WebhookFunctions)
	assert.Equal(t, DefaultRetentionSchedule, cfg.RetentionSchedule)
	assert.Equal(t, 7, cfg.AuditRetentionYears)
	assert.Equal(t, 3, cfg.SessionRetentionYears)
	assert.True(t, cfg.UsingDefaultSigningKey())
	assert.GreaterOrEqual(t, len(cfg.SigningKey), 32)
	assert.Empty(t, cfg.APIKeys)
}

func TestLoad_ExplicitSigningKey(t *testing.T) {
	resetViper(t)
	t.Setenv("AIDA_SIGNING_KEY", "my-signing-key-at-least-32-chars!")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "my-signing-key-at-least-32-chars!", cfg.SigningKey)
	assert.False(t, cfg.UsingDefaultSigningKey())
}

func TestLoad_InvalidSigningKeyLength(t *testing.T) {
	resetViper(t)
	t.Setenv("AIDA_SIGNING_KEY", "short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signing_key must be at least 32 bytes")
}

func TestLoad_InvalidProvider(t *testing.T) {
	resetViper(t)
	t.Setenv("AIDA_LLM_PROVIDER", "bedrock")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm_provider")
}

func TestLoad_ProviderIsNormalised(t *testing.T) {
	resetViper(t)
	t.Setenv("AIDA_LLM_PROVIDER", " Anthropic ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.LLMProvider)
}

func TestLoad_InvalidTemperature(t *testing.T) {
	resetViper(t)
	t.Setenv("AIDA_LLM_TEMPERATURE", "3.5")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm_temperature")
}

func TestLoad_InvalidRetentionYears(t *testing.T) {
	resetViper(t)
	t.Setenv("AIDA_AUDIT_RETENTION_YEARS", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retention years")
}

func TestLoad_CustomDataDirAndPaths(t *testing.T) {
	resetViper(t)
	dir := t.TempDir()
	t.Setenv("AIDA_DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, filepath.Join(dir, "audit.db"), cfg.AuditDBPath())
	assert.Equal(t, filepath.Join(dir, "sessions.db"), cfg.SessionDBPath())
	assert.Equal(t, filepath.Join(dir, "documents.db"), cfg.DocumentDBPath())
}

func TestLoad_OpenAIKeyFallsBackToSDKEnv(t *testing.T) {
	resetViper(t)
	t.Setenv("OPENAI_API_KEY", "sk-from-sdk-env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-from-sdk-env", cfg.OpenAIAPIKey)
}

func TestLoad_WebhookFunctionsList(t *testing.T) {
	resetViper(t)
	t.Setenv("AIDA_WEBHOOK_FUNCTIONS", "answerQuestion, askPolicy ,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"answerQuestion", "askPolicy"}, cfg.WebhookFunctions)
}

func TestEnsureDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", ".aida")
	cfg := &Config{DataDir: dir}
	require.NoError(t, cfg.EnsureDataDir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestParseAPIKeys(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]string
	}{
		{"empty", "", map[string]string{}},
		{"single", "k1:teacher-1", map[string]string{"k1": "teacher-1"}},
		{"multiple with spaces", " k1 : u1 , k2:u2 ", map[string]string{"k1": "u1", "k2": "u2"}},
		{"key without user skipped", "k1,k2:u2", map[string]string{"k2": "u2"}},
		{"empty user skipped", "k1:", map[string]string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAPIKeys(tt.raw))
		})
	}
}

func TestValidateSigningKey_Hex(t *testing.T) {
	hexKey := "a1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718293a4b5c6d7e8f90"
	assert.NoError(t, validateSigningKey(hexKey))
	assert.Error(t, validateSigningKey("abc"))
}
