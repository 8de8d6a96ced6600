// Package audit provides the append-only, HMAC-signed compliance trail of
// answered voice queries.
//
// One Entry is written per authenticated query. Entries are never updated;
// the retention enforcer deletes them once they pass the audit-log cutoff.
package audit

import (
	"encoding/json"
	"time"
	"unicode/utf8"
)

// Actions and resources written by the query path.
const (
	ActionVoiceQuery       = "voice_query"
	ResourceDistrictPolicy = "district_policy"
	ResourceGeneralQuery   = "general_query"
)

// MaxDetailsRunes bounds Entry.Details before TruncationMarker is appended.
const MaxDetailsRunes = 100

// TruncationMarker is appended to details cut at MaxDetailsRunes.
const TruncationMarker = "..."

// UnknownIP is stored when the caller's address cannot be resolved.
const UnknownIP = "unknown"

// Entry is one audit record.
type Entry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	IPAddress string    `json:"ip_address"`
	Signature string    `json:"signature"`
}

// ResourceFor returns the audit resource for a query classification.
func ResourceFor(isPolicyQuery bool) string {
	if isPolicyQuery {
		return ResourceDistrictPolicy
	}
	return ResourceGeneralQuery
}

// QueryDetails formats the details recorded for a voice query.
func QueryDetails(message string) string {
	return "Query: " + message
}

// TruncateDetails cuts s to MaxDetailsRunes runes and appends TruncationMarker
// when anything was removed.
func TruncateDetails(s string) string {
	if utf8.RuneCountInString(s) <= MaxDetailsRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:MaxDetailsRunes]) + TruncationMarker
}

// signedPayload is the canonical byte form covered by the signature.
func (e *Entry) signedPayload() ([]byte, error) {
	return json.Marshal(struct {
		ID        string `json:"id"`
		UserID    string `json:"user_id"`
		Action    string `json:"action"`
		Resource  string `json:"resource"`
		Details   string `json:"details"`
		Timestamp int64  `json:"timestamp_ns"`
		IPAddress string `json:"ip_address"`
	}{e.ID, e.UserID, e.Action, e.Resource, e.Details, e.Timestamp.UnixNano(), e.IPAddress})
}
