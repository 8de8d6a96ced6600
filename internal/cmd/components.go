package cmd

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Lokie-ree/aida-sub001/internal/assistant"
	"github.com/Lokie-ree/aida-sub001/internal/audit"
	"github.com/Lokie-ree/aida-sub001/internal/config"
	"github.com/Lokie-ree/aida-sub001/internal/llm"
	"github.com/Lokie-ree/aida-sub001/internal/retention"
	"github.com/Lokie-ree/aida-sub001/internal/retrieval"
	"github.com/Lokie-ree/aida-sub001/internal/session"
)

// stores bundles the SQLite-backed stores one process opens.
type stores struct {
	audit     *audit.Store
	sessions  *session.Store
	documents *retrieval.Index
}

func (s *stores) Close() {
	if s.documents != nil {
		_ = s.documents.Close()
	}
	if s.sessions != nil {
		_ = s.sessions.Close()
	}
	if s.audit != nil {
		_ = s.audit.Close()
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return cfg, nil
}

func openStores(cfg *config.Config) (*stores, error) {
	s := &stores{}
	var err error
	if s.audit, err = audit.NewStore(cfg.AuditDBPath(), cfg.SigningKey); err != nil {
		return nil, fmt.Errorf("initializing audit store: %w", err)
	}
	if s.sessions, err = session.NewStore(cfg.SessionDBPath()); err != nil {
		s.Close()
		return nil, fmt.Errorf("initializing session store: %w", err)
	}
	if s.documents, err = retrieval.NewIndex(cfg.DocumentDBPath()); err != nil {
		s.Close()
		return nil, fmt.Errorf("initializing document index: %w", err)
	}
	return s, nil
}

func providerOptions(cfg *config.Config) llm.ProviderOptions {
	return llm.ProviderOptions{
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		OpenAIBaseURL:   cfg.OpenAIBaseURL,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		OllamaBaseURL:   cfg.OllamaBaseURL,
	}
}

// buildOrchestrator wires the provider, prompts and retrieval index. A
// provider that cannot be built is logged and left nil, so every answer
// becomes the apology instead of the process refusing to start.
func buildOrchestrator(cfg *config.Config, index *retrieval.Index) (*assistant.Orchestrator, error) {
	prompts, err := assistant.LoadPrompts(cfg.PromptsFile)
	if err != nil {
		return nil, fmt.Errorf("loading prompts: %w", err)
	}

	provider, err := llm.NewProvider(cfg.LLMProvider, providerOptions(cfg))
	if err != nil {
		if errors.Is(err, llm.ErrUnknownProvider) {
			return nil, fmt.Errorf("language provider: %w", err)
		}
		log.Warn().Err(err).Str("provider", cfg.LLMProvider).Msg("language_provider_unavailable")
		provider = nil
	}

	var retriever *retrieval.Adapter
	if index != nil {
		retriever = retrieval.NewAdapter(index)
	}

	return assistant.NewOrchestrator(provider, retriever, assistant.Config{
		Model:          cfg.LLMModel,
		MaxTokens:      cfg.MaxTokens,
		Temperature:    cfg.Temperature,
		RetrievalLimit: assistant.DefaultRetrievalLimit,
		Prompts:        prompts,
	}), nil
}

func buildEnforcer(cfg *config.Config, s *stores) *retention.Enforcer {
	return retention.NewEnforcer(s.audit, s.sessions, retention.Cutoffs{
		AuditLogYears:        cfg.AuditRetentionYears,
		FeedbackSessionYears: cfg.SessionRetentionYears,
	})
}
