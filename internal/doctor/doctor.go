// Package doctor provides preflight checks for an AIDA installation.
// Used by `aida doctor`.
package doctor

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Lokie-ree/aida-sub001/internal/assistant"
	"github.com/Lokie-ree/aida-sub001/internal/audit"
	"github.com/Lokie-ree/aida-sub001/internal/config"
	"github.com/Lokie-ree/aida-sub001/internal/llm"
	"github.com/Lokie-ree/aida-sub001/internal/retrieval"
	"github.com/Lokie-ree/aida-sub001/internal/session"
)

// Check statuses, worst last.
const (
	StatusPass = "pass"
	StatusWarn = "warn"
	StatusFail = "fail"
)

// CheckResult is a single doctor check outcome.
type CheckResult struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Status   string `json:"status"`
	Message  string `json:"message"`
	Fix      string `json:"fix,omitempty"`
}

// Summary tallies pass/warn/fail counts.
type Summary struct {
	Pass int `json:"pass"`
	Warn int `json:"warn"`
	Fail int `json:"fail"`
}

// Report is the complete doctor output.
type Report struct {
	Status  string        `json:"status"` // worst of all checks
	Checks  []CheckResult `json:"checks"`
	Summary Summary       `json:"summary"`
}

// Options controls which checks run.
type Options struct {
	SkipUpstream bool // skip provider connectivity (CI/offline)
}

// Run executes all checks and returns a report.
func Run(ctx context.Context, opts Options) *Report {
	report := &Report{}

	cfg, err := config.Load()
	if err != nil {
		report.Checks = []CheckResult{{
			Name: "config_load", Category: "config", Status: StatusFail,
			Message: fmt.Sprintf("Cannot load config: %v", err),
			Fix:     "Check AIDA_* env vars and aida.config.yaml",
		}}
		report.tally()
		return report
	}

	report.Checks = append(report.Checks,
		checkDataDir(cfg),
		checkSigningKey(cfg),
		checkProvider(cfg),
		checkPrompts(cfg),
		checkSchedule(cfg),
		checkAPIKeys(cfg),
	)
	report.Checks = append(report.Checks, checkStores(ctx, cfg)...)
	if !opts.SkipUpstream {
		if r, ok := checkUpstream(ctx, cfg); ok {
			report.Checks = append(report.Checks, r)
		}
	}
	report.tally()
	return report
}

func (r *Report) tally() {
	r.Summary = Summary{}
	for _, c := range r.Checks {
		switch c.Status {
		case StatusPass:
			r.Summary.Pass++
		case StatusWarn:
			r.Summary.Warn++
		case StatusFail:
			r.Summary.Fail++
		}
	}
	r.Status = StatusPass
	if r.Summary.Warn > 0 {
		r.Status = StatusWarn
	}
	if r.Summary.Fail > 0 {
		r.Status = StatusFail
	}
}

func checkDataDir(cfg *config.Config) CheckResult {
	if err := cfg.EnsureDataDir(); err != nil {
		return CheckResult{
			Name: "data_dir_writable", Category: "config", Status: StatusFail,
			Message: fmt.Sprintf("%s: %v", cfg.DataDir, err),
			Fix:     "Ensure directory exists and is writable",
		}
	}
	testFile := filepath.Join(cfg.DataDir, ".doctor-write-test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return CheckResult{
			Name: "data_dir_writable", Category: "config", Status: StatusFail,
			Message: fmt.Sprintf("%s not writable: %v", cfg.DataDir, err),
		}
	}
	_ = os.Remove(testFile)
	return CheckResult{
		Name: "data_dir_writable", Category: "config", Status: StatusPass,
		Message: fmt.Sprintf("%s (writable)", cfg.DataDir),
	}
}

func checkSigningKey(cfg *config.Config) CheckResult {
	if cfg.UsingDefaultSigningKey() {
		return CheckResult{
			Name: "signing_key", Category: "config", Status: StatusWarn,
			Message: "Using generated default", Fix: "Set AIDA_SIGNING_KEY for production",
		}
	}
	return CheckResult{Name: "signing_key", Category: "config", Status: StatusPass, Message: "Configured"}
}

func checkProvider(cfg *config.Config) CheckResult {
	_, err := llm.NewProvider(cfg.LLMProvider, llm.ProviderOptions{
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		OpenAIBaseURL:   cfg.OpenAIBaseURL,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		OllamaBaseURL:   cfg.OllamaBaseURL,
	})
	if err != nil {
		fix := "Set AIDA_LLM_PROVIDER to openai, anthropic or ollama"
		if llm.ProviderUsesAPIKey(cfg.LLMProvider) {
			fix = fmt.Sprintf("Set AIDA_%s_API_KEY", strings.ToUpper(cfg.LLMProvider))
		}
		return CheckResult{
			Name: "llm_provider", Category: "config", Status: StatusFail,
			Message: err.Error(), Fix: fix,
		}
	}
	return CheckResult{
		Name: "llm_provider", Category: "config", Status: StatusPass,
		Message: fmt.Sprintf("%s (model %s)", cfg.LLMProvider, cfg.LLMModel),
	}
}

func checkPrompts(cfg *config.Config) CheckResult {
	if cfg.PromptsFile == "" {
		return CheckResult{Name: "prompts", Category: "config", Status: StatusPass, Message: "built-in defaults"}
	}
	if _, err := assistant.LoadPrompts(cfg.PromptsFile); err != nil {
		return CheckResult{
			Name: "prompts", Category: "config", Status: StatusFail,
			Message: err.Error(), Fix: "Fix or unset AIDA_PROMPTS_FILE",
		}
	}
	return CheckResult{Name: "prompts", Category: "config", Status: StatusPass, Message: cfg.PromptsFile}
}

func checkSchedule(cfg *config.Config) CheckResult {
	if _, err := cron.ParseStandard(cfg.RetentionSchedule); err != nil {
		return CheckResult{
			Name: "retention_schedule", Category: "config", Status: StatusFail,
			Message: fmt.Sprintf("%q: %v", cfg.RetentionSchedule, err),
			Fix:     "Use a 5-field cron expression, e.g. \"0 3 * * *\"",
		}
	}
	return CheckResult{
		Name: "retention_schedule", Category: "config", Status: StatusPass,
		Message: fmt.Sprintf("%s (audit %dy, sessions %dy)", cfg.RetentionSchedule, cfg.AuditRetentionYears, cfg.SessionRetentionYears),
	}
}

func checkAPIKeys(cfg *config.Config) CheckResult {
	if len(cfg.APIKeys) == 0 {
		return CheckResult{
			Name: "api_keys", Category: "config", Status: StatusWarn,
			Message: "No API keys configured; authenticated endpoints will return 401",
			Fix:     "Set AIDA_API_KEYS=key:user[,key:user]",
		}
	}
	return CheckResult{
		Name: "api_keys", Category: "config", Status: StatusPass,
		Message: fmt.Sprintf("%d key(s)", len(cfg.APIKeys)),
	}
}

func checkStores(ctx context.Context, cfg *config.Config) []CheckResult {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var results []CheckResult

	if store, err := audit.NewStore(cfg.AuditDBPath(), cfg.SigningKey); err != nil {
		results = append(results, CheckResult{Name: "audit_db", Category: "storage", Status: StatusFail, Message: err.Error()})
	} else {
		n, countErr := store.Count(ctx)
		_ = store.Close()
		results = append(results, countResult("audit_db", cfg.AuditDBPath(), n, countErr))
	}

	if store, err := session.NewStore(cfg.SessionDBPath()); err != nil {
		results = append(results, CheckResult{Name: "session_db", Category: "storage", Status: StatusFail, Message: err.Error()})
	} else {
		n, countErr := store.Count(ctx)
		_ = store.Close()
		results = append(results, countResult("session_db", cfg.SessionDBPath(), n, countErr))
	}

	index, err := retrieval.NewIndex(cfg.DocumentDBPath())
	if err != nil {
		return append(results, CheckResult{Name: "document_index", Category: "storage", Status: StatusFail, Message: err.Error()})
	}
	defer index.Close()
	n, countErr := index.Count(ctx)
	r := countResult("document_index", cfg.DocumentDBPath(), n, countErr)
	if r.Status == StatusPass && n == 0 {
		r.Status = StatusWarn
		r.Fix = "Add district documents with 'aida documents add'"
	}
	results = append(results, r)
	if !index.FullTextEnabled() {
		results = append(results, CheckResult{
			Name: "document_fts5", Category: "storage", Status: StatusWarn,
			Message: "SQLite build lacks FTS5; search uses LIKE matching",
			Fix:     "Build with -tags sqlite_fts5",
		})
	}
	return results
}

func countResult(name, path string, n int, err error) CheckResult {
	if err != nil {
		return CheckResult{Name: name, Category: "storage", Status: StatusFail, Message: err.Error()}
	}
	return CheckResult{
		Name: name, Category: "storage", Status: StatusPass,
		Message: fmt.Sprintf("%s (%d records)", path, n),
	}
}

// checkUpstream probes the provider's base URL. Providers on their default
// public endpoint are skipped.
func checkUpstream(ctx context.Context, cfg *config.Config) (CheckResult, bool) {
	var target string
	switch cfg.LLMProvider {
	case "ollama":
		target = cfg.OllamaBaseURL
	case "openai":
		if cfg.OpenAIBaseURL == "" {
			return CheckResult{}, false
		}
		target = llm.NormalizeOpenAIBaseURL(cfg.OpenAIBaseURL) + "/models"
	default:
		return CheckResult{}, false
	}

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return CheckResult{
			Name: "llm_upstream", Category: "upstream", Status: StatusFail,
			Message: fmt.Sprintf("Invalid URL: %v", err),
		}, true
	}
	start := time.Now()
	resp, err := client.Do(req) //nolint:gosec // URL from operator config
	latency := time.Since(start)
	if err != nil {
		return CheckResult{
			Name: "llm_upstream", Category: "upstream", Status: StatusFail,
			Message: fmt.Sprintf("Connection failed: %v", err),
			Fix:     "Check network connectivity and provider base URL",
		}, true
	}
	resp.Body.Close()

	status := StatusPass
	if resp.StatusCode >= 500 || latency > 2*time.Second {
		status = StatusWarn
	}
	return CheckResult{
		Name: "llm_upstream", Category: "upstream", Status: status,
		Message: fmt.Sprintf("%s: %d in %dms", target, resp.StatusCode, latency.Milliseconds()),
	}, true
}
