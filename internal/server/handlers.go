package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Lokie-ree/aida-sub001/internal/assistant"
	"github.com/Lokie-ree/aida-sub001/internal/audit"
	"github.com/Lokie-ree/aida-sub001/internal/otel"
	"github.com/Lokie-ree/aida-sub001/internal/requestctx"
)

const (
	maxQueryBody     = 64 << 10
	defaultAuditList = 50
	maxAuditList     = 500
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	})
}

type voiceQueryRequest struct {
	Message string `json:"message"`
	ScopeID string `json:"scopeId,omitempty"`
}

type voiceQueryResponse struct {
	Response      string   `json:"response"`
	Sources       []string `json:"sources"`
	IsPolicyQuery bool     `json:"isPolicyQuery"`
}

func (s *Server) handleVoiceQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestctx.UserID(ctx)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "not_authenticated", audit.ErrNotAuthenticated.Error())
		return
	}

	var req voiceQueryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQueryBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "message is required")
		return
	}

	out := s.answerer.Answer(ctx, assistant.Query{Message: message, CallerID: userID, ScopeID: req.ScopeID})

	if _, err := s.recorder.Record(ctx, userID, audit.ActionVoiceQuery,
		audit.ResourceFor(out.IsPolicyQuery), audit.QueryDetails(message)); err != nil {
		if errors.Is(err, audit.ErrNotAuthenticated) {
			writeError(w, http.StatusUnauthorized, "not_authenticated", err.Error())
			return
		}
		log.Error().Func(otel.LogTraceFields(ctx)).Err(err).Str("user_id", userID).Msg("audit_record_failed")
	}

	sources := out.SourceLabels
	if sources == nil {
		sources = []string{}
	}
	writeJSON(w, http.StatusOK, voiceQueryResponse{
		Response:      out.ResponseText,
		Sources:       sources,
		IsPolicyQuery: out.IsPolicyQuery,
	})
}

func (s *Server) handleAuditList(w http.ResponseWriter, r *http.Request) {
	userID := requestctx.UserID(r.Context())
	limit := defaultAuditList
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxAuditList {
		limit = maxAuditList
	}

	entries, err := s.auditLog.ListByUser(r.Context(), userID, limit)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("audit_list_failed")
		writeError(w, http.StatusInternalServerError, "internal", "failed to list audit entries")
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries, "count": len(entries)})
}

func (s *Server) handleRetentionEnforce(w http.ResponseWriter, r *http.Request) {
	res := s.enforcer.Enforce(r.Context())
	log.Info().
		Str("user_id", requestctx.UserID(r.Context())).
		Int("deleted", res.DeletedCount).
		Int("errors", len(res.Errors)).
		Msg("retention_enforced_via_api")
	if res.Errors == nil {
		res.Errors = []string{}
	}
	writeJSON(w, http.StatusOK, res)
}
