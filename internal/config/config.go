// Package config holds OPERATOR-LEVEL configuration for an AIDA installation.
//
// Everything here is set by whoever deploys the service: data directory,
// audit signing key, language-generation provider settings, prompt override
// file, webhook function names, retention schedule and the API key table
// used to resolve authenticated callers. Values come from env vars (AIDA_*)
// or a config file (aida.config.yaml), merged by Viper.
//
// Retention windows are legal requirements. They are configurable only so
// tests and staging installs can shorten them; production installs keep the
// defaults.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Viper keys. Each maps to an env var with the AIDA_ prefix
// (e.g. "llm_provider" -> AIDA_LLM_PROVIDER) and to a YAML field in
// aida.config.yaml.
const (
	KeyDataDir               = "data_dir"
	KeySigningKey            = "signing_key"
	KeyLLMProvider           = "llm_provider"
	KeyLLMModel              = "llm_model"
	KeyOpenAIAPIKey          = "openai_api_key"
	KeyOpenAIBaseURL         = "openai_base_url"
	KeyAnthropicAPIKey       = "anthropic_api_key"
	KeyOllamaBaseURL         = "ollama_base_url"
	KeyMaxTokens             = "llm_max_tokens"
	KeyTemperature           = "llm_temperature"
	KeyPromptsFile           = "prompts_file"
	KeyWebhookFunctions      = "webhook_functions"
	KeyRetentionSchedule     = "retention_schedule"
	KeyAuditRetentionYears   = "audit_retention_years"
	KeySessionRetentionYears = "session_retention_years"
	KeyAPIKeys               = "api_keys"
	KeyRateLimitPerMinute    = "rate_limit_per_minute"
)

// Defaults that do NOT involve key material.
const (
	DefaultLLMProvider           = "openai"
	DefaultLLMModel              = "gpt-4o-mini"
	DefaultOllamaURL             = "http://localhost:11434"
	DefaultMaxTokens             = 300
	DefaultTemperature           = 0.7
	DefaultWebhookFunction       = "answerQuestion"
	DefaultRetentionSchedule     = "0 3 * * *"
	DefaultAuditRetentionYears   = 7
	DefaultSessionRetentionYears = 3
	DefaultRateLimitPerMinute    = 30
)

// Config holds resolved operator-level configuration for an AIDA process.
type Config struct {
	DataDir    string // Base directory for SQLite databases (~/.aida)
	SigningKey string // HMAC-SHA256 key for audit entry signing (>=32 bytes)

	LLMProvider     string // "openai", "anthropic" or "ollama"
	LLMModel        string
	OpenAIAPIKey    string
	OpenAIBaseURL   string // empty = api.openai.com
	AnthropicAPIKey string
	OllamaBaseURL   string
	MaxTokens       int
	Temperature     float64

	PromptsFile      string   // optional YAML override for prompt templates
	WebhookFunctions []string // function-call names answered by the orchestrator

	RetentionSchedule     string // 5-field cron expression
	AuditRetentionYears   int
	SessionRetentionYears int

	APIKeys            map[string]string // API key -> user ID
	RateLimitPerMinute int               // per-user query limit; 0 disables

	usingDefaultSigningKey bool
}

// UsingDefaultSigningKey returns true if the audit signing key was derived (not set explicitly).
func (c *Config) UsingDefaultSigningKey() bool {
	return c.usingDefaultSigningKey
}

// AuditDBPath returns the full path to the audit log SQLite database.
func (c *Config) AuditDBPath() string {
	return filepath.Join(c.DataDir, "audit.db")
}

// SessionDBPath returns the full path to the feedback session SQLite database.
func (c *Config) SessionDBPath() string {
	return filepath.Join(c.DataDir, "sessions.db")
}

// DocumentDBPath returns the full path to the retrieval index SQLite database.
func (c *Config) DocumentDBPath() string {
	return filepath.Join(c.DataDir, "documents.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o700)
}

// WarnIfDefaultKeys logs a warning when the signing key is not explicitly set.
func (c *Config) WarnIfDefaultKeys() {
	if c.usingDefaultSigningKey {
		log.Warn().Msg("Using generated default AIDA_SIGNING_KEY; set via env var or config file for production")
	}
}

func init() {
	SetDefaults()
}

// SetDefaults registers the env prefix, env aliases and defaults on the global Viper instance.
func SetDefaults() {
	viper.SetEnvPrefix("AIDA")
	viper.AutomaticEnv()
	// Provider SDK conventions are honoured as fallbacks for quick local runs.
	_ = viper.BindEnv(KeyOpenAIAPIKey, "AIDA_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = viper.BindEnv(KeyAnthropicAPIKey, "AIDA_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	viper.SetDefault(KeyLLMProvider, DefaultLLMProvider)
	viper.SetDefault(KeyLLMModel, DefaultLLMModel)
	viper.SetDefault(KeyOllamaBaseURL, DefaultOllamaURL)
	viper.SetDefault(KeyMaxTokens, DefaultMaxTokens)
	viper.SetDefault(KeyTemperature, DefaultTemperature)
	viper.SetDefault(KeyWebhookFunctions, DefaultWebhookFunction)
	viper.SetDefault(KeyRetentionSchedule, DefaultRetentionSchedule)
	viper.SetDefault(KeyAuditRetentionYears, DefaultAuditRetentionYears)
	viper.SetDefault(KeySessionRetentionYears, DefaultSessionRetentionYears)
	viper.SetDefault(KeyRateLimitPerMinute, DefaultRateLimitPerMinute)
}

// Load reads configuration from Viper (which merges env vars, config
// file, and defaults) and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{
		DataDir:               resolveDataDir(),
		SigningKey:            viper.GetString(KeySigningKey),
		LLMProvider:           strings.ToLower(strings.TrimSpace(viper.GetString(KeyLLMProvider))),
		LLMModel:              viper.GetString(KeyLLMModel),
		OpenAIAPIKey:          viper.GetString(KeyOpenAIAPIKey),
		OpenAIBaseURL:         viper.GetString(KeyOpenAIBaseURL),
		AnthropicAPIKey:       viper.GetString(KeyAnthropicAPIKey),
		OllamaBaseURL:         viper.GetString(KeyOllamaBaseURL),
		MaxTokens:             viper.GetInt(KeyMaxTokens),
		Temperature:           viper.GetFloat64(KeyTemperature),
		PromptsFile:           viper.GetString(KeyPromptsFile),
		WebhookFunctions:      splitList(viper.GetString(KeyWebhookFunctions)),
		RetentionSchedule:     viper.GetString(KeyRetentionSchedule),
		AuditRetentionYears:   viper.GetInt(KeyAuditRetentionYears),
		SessionRetentionYears: viper.GetInt(KeySessionRetentionYears),
		APIKeys:               ParseAPIKeys(viper.GetString(KeyAPIKeys)),
		RateLimitPerMinute:    viper.GetInt(KeyRateLimitPerMinute),
	}

	if cfg.SigningKey == "" {
		cfg.SigningKey = deriveDefaultKey(cfg.DataDir, "audit-signing")
		cfg.usingDefaultSigningKey = true
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ParseAPIKeys returns a map of key -> user ID from a comma-separated list
// of "key:user" entries. Entries without a user are skipped: every
// authenticated caller must resolve to a user for the audit trail.
func ParseAPIKeys(raw string) map[string]string {
	m := make(map[string]string)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		idx := strings.Index(part, ":")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(part[:idx])
		user := strings.TrimSpace(part[idx+1:])
		if key == "" || user == "" {
			continue
		}
		m[key] = user
	}
	return m
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func resolveDataDir() string {
	if dir := viper.GetString(KeyDataDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".aida"
	}
	return filepath.Join(home, ".aida")
}

// deriveDefaultKey produces a deterministic 32-byte fallback key from the
// data directory path and a salt. NOT cryptographically strong; it exists so
// a fresh install signs audit entries with a per-machine key out of the box.
func deriveDefaultKey(dataDir, salt string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("aida:%s:%s", dataDir, salt)))
	return hex.EncodeToString(h[:])
}

func (c *Config) validate() error {
	if err := validateSigningKey(c.SigningKey); err != nil {
		return err
	}
	switch c.LLMProvider {
	case "openai", "anthropic", "ollama":
	default:
		return fmt.Errorf("llm_provider must be one of openai, anthropic, ollama (got %q)", c.LLMProvider)
	}
	if strings.TrimSpace(c.LLMModel) == "" {
		return fmt.Errorf("llm_model must not be empty")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("llm_max_tokens must be positive")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("llm_temperature must be between 0 and 2")
	}
	if len(c.WebhookFunctions) == 0 {
		return fmt.Errorf("webhook_functions must name at least one function")
	}
	if c.AuditRetentionYears <= 0 || c.SessionRetentionYears <= 0 {
		return fmt.Errorf("retention years must be positive")
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("rate_limit_per_minute must not be negative")
	}
	return nil
}

// validateSigningKey accepts either >=32 raw bytes or >=64 hex characters (decoded length >=32 for HMAC-SHA256).
func validateSigningKey(key string) error {
	n := len(key)
	if n >= 64 && n%2 == 0 {
		if decoded, err := hex.DecodeString(key); err == nil && len(decoded) >= 32 {
			return nil
		}
	}
	if n >= 32 {
		return nil
	}
	return fmt.Errorf("signing_key must be at least 32 bytes or 64+ hex characters (got %d); set AIDA_SIGNING_KEY", n)
}
