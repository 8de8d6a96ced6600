package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Lokie-ree/aida-sub001/internal/assistant"
	aidaotel "github.com/Lokie-ree/aida-sub001/internal/otel"
)

var tracer = aidaotel.Tracer("github.com/Lokie-ree/aida-sub001/internal/trigger")

// Event kinds sent by the voice platform.
const (
	KindFunctionCall = "function-call"
	KindTranscript   = "transcript"
	KindHangup       = "hangup"
	KindUnknown      = "unknown"
)

// Fixed replies spoken back to the caller.
const (
	NoMessageText       = "I didn't catch that. Could you please repeat your question?"
	UnknownFunctionText = "I'm not sure how to help with that request. Please ask me a question about your district's policies or procedures."
	FailureText         = "Failed to process webhook"
)

// DefaultFunctionName is the voice platform tool that asks a question.
const DefaultFunctionName = "answerQuestion"

const maxWebhookBody = 1 << 20

// ErrDispatch wraps any failure raised while dispatching an event.
var ErrDispatch = errors.New("dispatch failed")

// Answerer produces answers for voice queries. *assistant.Orchestrator satisfies it.
type Answerer interface {
	Answer(ctx context.Context, q assistant.Query) assistant.Outcome
}

// Event is a decoded webhook envelope.
type Event struct {
	Kind         string
	RawType      string
	FunctionName string
	Message      string
	Transcript   string
}

// ParseEvent decodes a webhook body. Only malformed JSON is an error. Fields
// of the wrong type are treated as absent, and an unrecognised or missing
// type yields KindUnknown.
func ParseEvent(body []byte) (Event, error) {
	var raw interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return Event{}, fmt.Errorf("decoding webhook envelope: %w", err)
	}

	msg := object(object(raw)["message"])
	ev := Event{RawType: str(msg["type"]), Transcript: str(msg["transcript"])}
	switch ev.RawType {
	case KindFunctionCall:
		ev.Kind = KindFunctionCall
	case KindTranscript:
		ev.Kind = KindTranscript
	case "hang", KindHangup:
		ev.Kind = KindHangup
	default:
		ev.Kind = KindUnknown
	}

	fc := object(msg["functionCall"])
	ev.FunctionName = str(fc["name"])
	ev.Message = str(object(fc["parameters"])["message"])
	return ev, nil
}

// object returns v as a JSON object, or nil when it is anything else.
func object(v interface{}) map[string]interface{} {
	m, _ := v.(map[string]interface{})
	return m
}

// str returns v as a string, or "" when it is anything else.
func str(v interface{}) string {
	s, _ := v.(string)
	return s
}

// Reply is the JSON body returned to the voice platform.
type Reply struct {
	Result  string `json:"result,omitempty"`
	Success bool   `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Dispatcher routes webhook events to the assistant. Webhook callers are
// anonymous, so queries carry no caller ID and are never audited.
type Dispatcher struct {
	answerer  Answerer
	functions map[string]bool
}

// NewDispatcher creates a dispatcher recognising the given function names.
// With no names, DefaultFunctionName is recognised.
func NewDispatcher(answerer Answerer, functionNames ...string) *Dispatcher {
	if len(functionNames) == 0 {
		functionNames = []string{DefaultFunctionName}
	}
	d := &Dispatcher{answerer: answerer, functions: make(map[string]bool, len(functionNames))}
	for _, name := range functionNames {
		d.functions[name] = true
	}
	return d
}

// Handle dispatches ev. Panics are converted to an ErrDispatch error.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) (reply Reply, err error) {
	ctx, span := tracer.Start(ctx, "trigger.dispatch",
		trace.WithAttributes(
			aidaotel.WebhookEventKind.String(ev.Kind),
			attribute.String("aida.webhook.function", ev.FunctionName),
		))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrDispatch, r)
			span.RecordError(err)
			reply = Reply{}
		}
	}()

	switch ev.Kind {
	case KindFunctionCall:
		return d.handleFunctionCall(ctx, ev)
	case KindTranscript:
		log.Debug().Int("transcript_len", len(ev.Transcript)).Msg("webhook_transcript")
		return Reply{Success: true}, nil
	case KindHangup:
		log.Debug().Msg("webhook_hangup")
		return Reply{Success: true}, nil
	default:
		log.Debug().Str("type", ev.RawType).Msg("webhook_event_ignored")
		return Reply{Success: true}, nil
	}
}

func (d *Dispatcher) handleFunctionCall(ctx context.Context, ev Event) (Reply, error) {
	if !d.functions[ev.FunctionName] {
		log.Info().Str("function", ev.FunctionName).Msg("webhook_unknown_function")
		return Reply{Result: UnknownFunctionText}, nil
	}

	message := strings.TrimSpace(ev.Message)
	if message == "" {
		message = strings.TrimSpace(ev.Transcript)
	}
	if message == "" {
		return Reply{Result: NoMessageText}, nil
	}
	if d.answerer == nil {
		return Reply{}, fmt.Errorf("%w: no answerer configured", ErrDispatch)
	}

	out := d.answerer.Answer(ctx, assistant.Query{Message: message})
	log.Info().
		Func(aidaotel.LogTraceFields(ctx)).
		Str("function", ev.FunctionName).
		Bool("policy_query", out.IsPolicyQuery).
		Msg("webhook_question_answered")
	return Reply{Result: out.ResponseText}, nil
}

// HandleWebhook is the HTTP entry point. Unparseable bodies get 500; every
// other outcome, including internal failures, is a 200 so the platform does
// not retry.
func (d *Dispatcher) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeReply(w, http.StatusInternalServerError, Reply{Error: "invalid JSON body"})
		return
	}
	ev, err := ParseEvent(body)
	if err != nil {
		log.Warn().Err(err).Msg("webhook_invalid_body")
		writeReply(w, http.StatusInternalServerError, Reply{Error: "invalid JSON body"})
		return
	}

	reply, err := d.Handle(r.Context(), ev)
	if err != nil {
		log.Error().Err(err).Str("kind", ev.Kind).Msg("webhook_dispatch_failed")
		writeReply(w, http.StatusOK, Reply{Error: FailureText})
		return
	}
	writeReply(w, http.StatusOK, reply)
}

func writeReply(w http.ResponseWriter, status int, reply Reply) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(reply)
}
