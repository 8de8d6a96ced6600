package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Lokie-ree/aida-sub001/internal/requestctx"
)

// ErrNotAuthenticated is returned when Record is called without a user.
var ErrNotAuthenticated = errors.New("not authenticated")

// Appender persists entries. *Store satisfies it.
type Appender interface {
	Append(ctx context.Context, e *Entry) error
}

// Recorder builds and appends audit entries for authenticated callers.
type Recorder struct {
	store Appender
	now   func() time.Time
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithClock overrides the insert-time clock.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) { r.now = now }
}

// NewRecorder creates a recorder writing to store.
func NewRecorder(store Appender, opts ...RecorderOption) *Recorder {
	r := &Recorder{store: store, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends one entry for userID. Details are truncated to
// MaxDetailsRunes; the IP address comes from ctx or is UnknownIP.
func (r *Recorder) Record(ctx context.Context, userID, action, resource, details string) (*Entry, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}

	ip := requestctx.IPAddress(ctx)
	if ip == "" {
		ip = UnknownIP
	}

	e := &Entry{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		Details:   TruncateDetails(details),
		Timestamp: r.now().UTC(),
		IPAddress: ip,
	}
	if err := r.store.Append(ctx, e); err != nil {
		return nil, fmt.Errorf("recording audit entry: %w", err)
	}

	log.Debug().
		Str("audit_id", e.ID).
		Str("user_id", userID).
		Str("action", action).
		Str("resource", resource).
		Msg("audit_recorded")
	return e, nil
}
