package otel

import (
	"go.opentelemetry.io/otel/attribute"
)

// GenAI semantic conventions (OpenTelemetry GenAI SIG) used by the llm package.
const (
	GenAISystem       = attribute.Key("gen_ai.system")
	GenAIRequestModel = attribute.Key("gen_ai.request.model")

	GenAIRequestTemperature = attribute.Key("gen_ai.request.temperature")
	GenAIRequestMaxTokens   = attribute.Key("gen_ai.request.max_tokens")

	GenAIUsageInputTokens  = attribute.Key("gen_ai.usage.input_tokens")
	GenAIUsageOutputTokens = attribute.Key("gen_ai.usage.output_tokens")

	GenAIResponseFinishReason = attribute.Key("gen_ai.response.finish_reason")
	GenAIResponseID           = attribute.Key("gen_ai.response.id")
)

// Voice query attributes shared by the assistant, trigger and server packages.
const (
	QueryIsPolicy     = attribute.Key("aida.query.is_policy")
	QueryHasCaller    = attribute.Key("aida.query.has_caller")
	QueryScopeID      = attribute.Key("aida.query.scope_id")
	QuerySourceCount  = attribute.Key("aida.query.source_count")
	QueryFallback     = attribute.Key("aida.query.fallback")
	WebhookEventKind  = attribute.Key("aida.webhook.event_kind")
	RetentionPhase    = attribute.Key("aida.retention.phase")
	RetentionDeleted  = attribute.Key("aida.retention.deleted")
	RetentionFailures = attribute.Key("aida.retention.failures")
)

// LLMRequestAttributes creates standard attributes for LLM requests.
func LLMRequestAttributes(system, model string, temperature float64, maxTokens int) []attribute.KeyValue {
	return []attribute.KeyValue{
		GenAISystem.String(system),
		GenAIRequestModel.String(model),
		GenAIRequestTemperature.Float64(temperature),
		GenAIRequestMaxTokens.Int(maxTokens),
	}
}

// LLMUsageAttributes creates attributes for token usage.
func LLMUsageAttributes(inputTokens, outputTokens int) []attribute.KeyValue {
	return []attribute.KeyValue{
		GenAIUsageInputTokens.Int(inputTokens),
		GenAIUsageOutputTokens.Int(outputTokens),
	}
}
