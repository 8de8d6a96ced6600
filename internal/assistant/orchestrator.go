// Package assistant turns a caller's question into a spoken answer. It
// classifies the question, optionally grounds it in district documents and
// asks a language model for the reply. Answer never fails: every collaborator
// failure degrades to fixed fallback text.
package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/Lokie-ree/aida-sub001/internal/classifier"
	"github.com/Lokie-ree/aida-sub001/internal/llm"
	aidaotel "github.com/Lokie-ree/aida-sub001/internal/otel"
	"github.com/Lokie-ree/aida-sub001/internal/retrieval"
)

var tracer = aidaotel.Tracer("github.com/Lokie-ree/aida-sub001/internal/assistant")

// ApologyText replaces the model output whenever generation fails.
const ApologyText = "I'm sorry, I encountered an error processing your request. Please try again."

// Defaults applied when Config leaves a field zero.
const (
	DefaultMaxTokens      = 300
	DefaultTemperature    = 0.7
	DefaultRetrievalLimit = 5
)

// Query is one inbound question. Empty strings mean absent.
type Query struct {
	Message  string
	CallerID string
	ScopeID  string
}

// Outcome is the answer to a Query. ResponseText is never empty.
type Outcome struct {
	ResponseText  string   `json:"response"`
	SourceLabels  []string `json:"sources"`
	IsPolicyQuery bool     `json:"isPolicyQuery"`
}

// Config tunes generation. Temperature is passed to the provider as given;
// the OpenAI client omits a zero temperature, so that provider applies its
// API default instead.
type Config struct {
	Model          string
	MaxTokens      int
	Temperature    float64
	RetrievalLimit int
	Prompts        Prompts
}

// DefaultConfig returns the production defaults for model.
func DefaultConfig(model string) Config {
	return Config{
		Model:          model,
		MaxTokens:      DefaultMaxTokens,
		Temperature:    DefaultTemperature,
		RetrievalLimit: DefaultRetrievalLimit,
		Prompts:        DefaultPrompts(),
	}
}

// Orchestrator answers queries. It holds no per-query state and is safe for
// concurrent use.
type Orchestrator struct {
	provider  llm.Provider
	retriever *retrieval.Adapter
	cfg       Config
}

// NewOrchestrator creates an orchestrator. A nil retriever disables document
// grounding; a nil provider makes every answer the apology.
func NewOrchestrator(provider llm.Provider, retriever *retrieval.Adapter, cfg Config) *Orchestrator {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.RetrievalLimit <= 0 {
		cfg.RetrievalLimit = DefaultRetrievalLimit
	}
	if cfg.Prompts.Base == "" {
		cfg.Prompts = DefaultPrompts()
	}
	return &Orchestrator{provider: provider, retriever: retriever, cfg: cfg}
}

// Answer produces the reply for q. It never panics and never returns empty text.
func (o *Orchestrator) Answer(ctx context.Context, q Query) (out Outcome) {
	ctx, span := tracer.Start(ctx, "assistant.answer",
		trace.WithAttributes(
			aidaotel.QueryHasCaller.Bool(q.CallerID != ""),
			aidaotel.QueryScopeID.String(q.ScopeID),
		))
	defer span.End()

	policy := classifier.Classify(q.Message).IsPolicyQuery
	span.SetAttributes(aidaotel.QueryIsPolicy.Bool(policy))
	if policy && log.Debug().Enabled() {
		log.Debug().
			Func(aidaotel.LogTraceFields(ctx)).
			Strs("matched_terms", classifier.MatchedTerms(q.Message)).
			Str("lexicon_version", classifier.LexiconVersion).
			Msg("policy_query_classified")
	}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("answer panic: %v", r)
			span.RecordError(err)
			span.SetStatus(codes.Error, "panic")
			log.Error().Err(err).Bool("policy_query", policy).Msg("answer_panic")
			recordFallback(ctx, "panic")
			out = Outcome{ResponseText: ApologyText, SourceLabels: []string{}, IsPolicyQuery: policy}
		}
	}()

	system, sources, mode := o.buildPrompt(ctx, q, policy)
	span.SetAttributes(
		aidaotel.QuerySourceCount.Int(len(sources)),
		attribute.String("aida.prompt.mode", mode),
	)
	recordQuery(ctx, policy, mode)

	text, reason := o.generate(ctx, system, q.Message)
	if reason != "" {
		span.SetAttributes(aidaotel.QueryFallback.String(reason))
		recordFallback(ctx, reason)
		text = ApologyText
	}

	log.Info().
		Func(aidaotel.LogTraceFields(ctx)).
		Bool("policy_query", policy).
		Bool("has_caller", q.CallerID != "").
		Str("prompt_mode", mode).
		Int("sources", len(sources)).
		Bool("fallback", reason != "").
		Msg("query_answered")

	return Outcome{ResponseText: text, SourceLabels: sources, IsPolicyQuery: policy}
}

// buildPrompt returns the system instruction, the cited source labels and the
// prompt mode name. Retrieval runs only for policy queries from a known caller.
func (o *Orchestrator) buildPrompt(ctx context.Context, q Query, policy bool) (string, []string, string) {
	sources := []string{}
	if !policy || q.CallerID == "" {
		return o.cfg.Prompts.general(), sources, "general"
	}

	res := o.retriever.Retrieve(ctx, q.Message, q.ScopeID, o.cfg.RetrievalLimit)
	if res.Empty() {
		return o.cfg.Prompts.noDocument(), sources, "no_document"
	}
	for _, it := range res.Items {
		sources = append(sources, it.SourceLabel)
	}
	return o.cfg.Prompts.augmented(res.ConcatenatedText), sources, "augmented"
}

// generate calls the provider. A non-empty reason means the text must not be used.
func (o *Orchestrator) generate(ctx context.Context, system, message string) (string, string) {
	if o.provider == nil {
		return "", "no_provider"
	}
	resp, err := o.provider.Generate(ctx, &llm.Request{
		Model: o.cfg.Model,
		Messages: []llm.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: message},
		},
		Temperature: o.cfg.Temperature,
		MaxTokens:   o.cfg.MaxTokens,
	})
	if err != nil {
		log.Warn().Err(err).Str("provider", o.provider.Name()).Msg("generation_failed")
		return "", "provider_error"
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		log.Warn().Str("provider", o.provider.Name()).Msg("generation_empty")
		return "", "empty_completion"
	}

	cost := o.provider.EstimateCost(resp.Model, resp.InputTokens, resp.OutputTokens)
	llm.RecordCostMetrics(ctx, cost, o.provider.Name(), o.cfg.Model)
	return strings.TrimSpace(resp.Content), ""
}

var (
	queriesTotal   metric.Int64Counter
	fallbacksTotal metric.Int64Counter
)

func init() {
	meter := aidaotel.Meter("github.com/Lokie-ree/aida-sub001/internal/assistant")
	var err error
	queriesTotal, err = meter.Int64Counter("aida.assistant.queries",
		metric.WithDescription("Queries answered, by classification and prompt mode"))
	if err != nil {
		queriesTotal, _ = meter.Int64Counter("aida.assistant.queries.fallback")
	}
	fallbacksTotal, err = meter.Int64Counter("aida.assistant.fallbacks",
		metric.WithDescription("Answers replaced by the apology text, by reason"))
	if err != nil {
		fallbacksTotal, _ = meter.Int64Counter("aida.assistant.fallbacks.fallback")
	}
}

func recordQuery(ctx context.Context, policy bool, mode string) {
	if queriesTotal == nil {
		return
	}
	queriesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("policy_query", policy),
		attribute.String("prompt_mode", mode),
	))
}

func recordFallback(ctx context.Context, reason string) {
	if fallbacksTotal == nil {
		return
	}
	fallbacksTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
