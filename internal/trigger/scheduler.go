// Package trigger handles the voice platform's webhook events and the cron
// schedule that runs retention.
package trigger

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/Lokie-ree/aida-sub001/internal/retention"
)

// DefaultRetentionSchedule runs retention daily at 03:00.
const DefaultRetentionSchedule = "0 3 * * *"

const retentionTimeout = 30 * time.Minute

// RetentionRunner executes one retention pass. *retention.Enforcer satisfies it.
type RetentionRunner interface {
	Enforce(ctx context.Context) retention.Result
}

// Scheduler runs retention on a cron schedule. A run still in progress when
// the next tick fires causes that tick to be skipped.
type Scheduler struct {
	cron   *cron.Cron
	runner RetentionRunner
}

// NewScheduler creates a scheduler backed by the given runner.
// Cron expressions use the standard 5-field format: minute hour day-of-month month day-of-week.
func NewScheduler(runner RetentionRunner) *Scheduler {
	logger := cronLogger{}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		runner: runner,
	}
}

// RegisterRetention adds the retention job at spec.
func (s *Scheduler) RegisterRetention(spec string) error {
	if spec == "" {
		spec = DefaultRetentionSchedule
	}
	_, err := s.cron.AddFunc(spec, s.runRetention)
	if err != nil {
		return fmt.Errorf("registering retention cron %q: %w", spec, err)
	}
	log.Info().Str("schedule", spec).Msg("retention_scheduled")
	return nil
}

func (s *Scheduler) runRetention() {
	ctx, cancel := context.WithTimeout(context.Background(), retentionTimeout)
	defer cancel()

	log.Info().Msg("scheduled_retention_fired")
	res := s.runner.Enforce(ctx)
	if len(res.Errors) > 0 {
		log.Warn().
			Int("deleted", res.DeletedCount).
			Strs("errors", res.Errors).
			Msg("scheduled_retention_partial")
		return
	}
	log.Info().Int("deleted", res.DeletedCount).Msg("scheduled_retention_completed")
}

// Start begins executing registered cron jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs to complete.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Entries returns the number of registered cron entries.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// cronLogger routes robfig/cron logs through zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron_" + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron_" + msg)
}
