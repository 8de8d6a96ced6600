// Package retention purges audit logs and feedback sessions that have passed
// their retention windows.
//
// A run scans each collection in turn, lists entries strictly older than the
// collection's cutoff and deletes them one at a time. A failed delete is
// recorded and the run moves on; the next run re-selects whatever is left.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	aidaotel "github.com/Lokie-ree/aida-sub001/internal/otel"
)

var tracer = aidaotel.Tracer("github.com/Lokie-ree/aida-sub001/internal/retention")

// Collection names, also used as run phases.
const (
	CollectionAuditLogs        = "audit_logs"
	CollectionFeedbackSessions = "feedback_sessions"
)

// Phases of one run.
const (
	PhaseIdle = "idle"
	PhaseDone = "done"
)

// Default retention windows in years.
const (
	DefaultAuditLogYears        = 7
	DefaultFeedbackSessionYears = 3
)

// Collection is a store whose entries expire.
type Collection interface {
	ListBefore(ctx context.Context, cutoff time.Time) ([]string, error)
	Delete(ctx context.Context, id string) error
}

// Cutoffs holds the retention windows in calendar years.
type Cutoffs struct {
	AuditLogYears        int
	FeedbackSessionYears int
}

// DefaultCutoffs returns the 7-year audit and 3-year session windows.
func DefaultCutoffs() Cutoffs {
	return Cutoffs{AuditLogYears: DefaultAuditLogYears, FeedbackSessionYears: DefaultFeedbackSessionYears}
}

// Result summarises one run.
type Result struct {
	DeletedCount int      `json:"deletedCount"`
	Errors       []string `json:"errors"`
}

type scan struct {
	name       string
	collection Collection
	years      int
}

// Enforcer runs retention over the audit and session collections.
type Enforcer struct {
	scans []scan
	now   func() time.Time
}

// Option configures an Enforcer.
type Option func(*Enforcer)

// WithClock overrides the clock used to compute cutoffs.
func WithClock(now func() time.Time) Option {
	return func(e *Enforcer) { e.now = now }
}

// NewEnforcer creates an enforcer. Audit logs are scanned before feedback
// sessions.
func NewEnforcer(auditLogs, sessions Collection, cutoffs Cutoffs, opts ...Option) *Enforcer {
	e := &Enforcer{
		scans: []scan{
			{name: CollectionAuditLogs, collection: auditLogs, years: cutoffs.AuditLogYears},
			{name: CollectionFeedbackSessions, collection: sessions, years: cutoffs.FeedbackSessionYears},
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Cutoff returns the instant before which entries of a collection retained
// for years are deleted.
func Cutoff(now time.Time, years int) time.Time {
	return now.AddDate(-years, 0, 0)
}

// Enforce runs both scans sequentially and returns the aggregate result.
func (e *Enforcer) Enforce(ctx context.Context) Result {
	ctx, span := tracer.Start(ctx, "retention.enforce")
	defer span.End()

	now := e.now()
	res := Result{Errors: []string{}}
	log.Info().Str("phase", PhaseIdle).Msg("retention_started")

	for _, sc := range e.scans {
		deleted, errs := e.runScan(ctx, sc, Cutoff(now, sc.years))
		res.DeletedCount += deleted
		res.Errors = append(res.Errors, errs...)
	}

	span.SetAttributes(
		aidaotel.RetentionPhase.String(PhaseDone),
		aidaotel.RetentionDeleted.Int(res.DeletedCount),
		aidaotel.RetentionFailures.Int(len(res.Errors)),
	)
	log.Info().
		Str("phase", PhaseDone).
		Int("deleted", res.DeletedCount).
		Int("errors", len(res.Errors)).
		Msg("retention_completed")
	return res
}

// Pending reports how many entries of each collection are past their cutoff
// without deleting anything.
func (e *Enforcer) Pending(ctx context.Context) (map[string]int, error) {
	now := e.now()
	out := make(map[string]int, len(e.scans))
	for _, sc := range e.scans {
		if sc.collection == nil {
			continue
		}
		ids, err := sc.collection.ListBefore(ctx, Cutoff(now, sc.years))
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", sc.name, err)
		}
		out[sc.name] = len(ids)
	}
	return out, nil
}

func (e *Enforcer) runScan(ctx context.Context, sc scan, cutoff time.Time) (int, []string) {
	ctx, span := tracer.Start(ctx, "retention.scan",
		trace.WithAttributes(
			aidaotel.RetentionPhase.String(sc.name),
			attribute.String("retention.cutoff", cutoff.UTC().Format(time.RFC3339)),
		))
	defer span.End()

	logger := log.With().Str("phase", sc.name).Time("cutoff", cutoff).Logger()
	logger.Info().Msg("retention_scanning")

	if sc.collection == nil {
		return 0, nil
	}

	ids, err := sc.collection.ListBefore(ctx, cutoff)
	if err != nil {
		span.RecordError(err)
		logger.Error().Err(err).Msg("retention_list_failed")
		recordFailures(ctx, sc.name, 1)
		return 0, []string{fmt.Sprintf("failed to list %s: %v", sc.name, err)}
	}

	var deleted int
	var errs []string
	for _, id := range ids {
		if err := sc.collection.Delete(ctx, id); err != nil {
			logger.Warn().Err(err).Str("id", id).Msg("retention_delete_failed")
			errs = append(errs, fmt.Sprintf("failed to delete %s %s: %v", sc.name, id, err))
			continue
		}
		deleted++
	}

	span.SetAttributes(
		aidaotel.RetentionDeleted.Int(deleted),
		aidaotel.RetentionFailures.Int(len(errs)),
	)
	recordDeleted(ctx, sc.name, deleted)
	recordFailures(ctx, sc.name, len(errs))
	logger.Info().Int("matched", len(ids)).Int("deleted", deleted).Int("errors", len(errs)).Msg("retention_scanned")
	return deleted, errs
}

var (
	deletedTotal  metric.Int64Counter
	failuresTotal metric.Int64Counter
)

func init() {
	meter := aidaotel.Meter("github.com/Lokie-ree/aida-sub001/internal/retention")
	var err error
	deletedTotal, err = meter.Int64Counter("aida.retention.deleted",
		metric.WithDescription("Entries deleted by retention, by collection"))
	if err != nil {
		deletedTotal, _ = meter.Int64Counter("aida.retention.deleted.fallback")
	}
	failuresTotal, err = meter.Int64Counter("aida.retention.failures",
		metric.WithDescription("Retention list or delete failures, by collection"))
	if err != nil {
		failuresTotal, _ = meter.Int64Counter("aida.retention.failures.fallback")
	}
}

func recordDeleted(ctx context.Context, collection string, n int) {
	if deletedTotal == nil || n == 0 {
		return
	}
	deletedTotal.Add(ctx, int64(n), metric.WithAttributes(attribute.String("collection", collection)))
}

func recordFailures(ctx context.Context, collection string, n int) {
	if failuresTotal == nil || n == 0 {
		return
	}
	failuresTotal.Add(ctx, int64(n), metric.WithAttributes(attribute.String("collection", collection)))
}
