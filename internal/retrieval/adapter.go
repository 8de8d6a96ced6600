// Package retrieval finds district documents relevant to a caller's question.
//
// The Adapter is the only entry point the assistant uses. It treats the
// underlying Engine as best-effort: failures degrade to an empty Result so the
// caller answers with less context instead of failing.
package retrieval

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	aidaotel "github.com/Lokie-ree/aida-sub001/internal/otel"
)

var tracer = aidaotel.Tracer("github.com/Lokie-ree/aida-sub001/internal/retrieval")

// Item is one ranked document snippet.
type Item struct {
	Content     string  `json:"content"`
	SourceLabel string  `json:"source_label"`
	Relevance   float64 `json:"relevance"`
}

// Result is the outcome of a search. Empty Items is a valid outcome.
type Result struct {
	Items            []Item `json:"items"`
	ConcatenatedText string `json:"concatenated_text"`
}

// Empty reports whether the result carries no items.
func (r Result) Empty() bool {
	return len(r.Items) == 0
}

// Engine is a document search backend.
type Engine interface {
	Search(ctx context.Context, query, scopeID string, limit int) (*Result, error)
}

// Adapter wraps an Engine and never propagates its failures.
type Adapter struct {
	engine Engine
}

// NewAdapter creates an adapter over engine. A nil engine yields empty results.
func NewAdapter(engine Engine) *Adapter {
	return &Adapter{engine: engine}
}

// Retrieve searches for documents matching query within scopeID. Any engine
// error, nil result or panic is logged and replaced by an empty Result.
func (a *Adapter) Retrieve(ctx context.Context, query, scopeID string, limit int) (res Result) {
	ctx, span := tracer.Start(ctx, "retrieval.retrieve",
		trace.WithAttributes(
			aidaotel.QueryScopeID.String(scopeID),
			attribute.Int("retrieval.limit", limit),
		))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("retrieval engine panic: %v", r)
			span.RecordError(err)
			log.Warn().Err(err).Str("scope_id", scopeID).Msg("retrieval_failed")
			res = Result{}
		}
		span.SetAttributes(aidaotel.QuerySourceCount.Int(len(res.Items)))
	}()

	if a == nil || a.engine == nil {
		return Result{}
	}

	out, err := a.engine.Search(ctx, query, scopeID, limit)
	if err != nil {
		span.RecordError(err)
		log.Warn().Err(err).Str("scope_id", scopeID).Msg("retrieval_failed")
		return Result{}
	}
	if out == nil {
		log.Warn().Str("scope_id", scopeID).Msg("retrieval_returned_nil")
		return Result{}
	}
	if len(out.Items) == 0 {
		return Result{}
	}
	return *out
}
