// Package session stores feedback sessions. Sessions are created by the
// feedback surface and deleted by the retention enforcer after the
// feedback-session cutoff.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	aidaotel "github.com/Lokie-ree/aida-sub001/internal/otel"
)

var tracer = aidaotel.Tracer("github.com/Lokie-ree/aida-sub001/internal/session")

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("feedback session not found")

const schema = `
CREATE TABLE IF NOT EXISTS feedback_sessions (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_feedback_sessions_created ON feedback_sessions(created_at);
`

// FeedbackSession is one educator feedback session.
type FeedbackSession struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    string    `json:"user_id"`
}

// Store persists feedback sessions in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the session database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening session database: %w", err)
	}
	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating session schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts fs, filling ID and CreatedAt when empty.
func (s *Store) Create(ctx context.Context, fs *FeedbackSession) error {
	ctx, span := tracer.Start(ctx, "session.create")
	defer span.End()

	if fs.UserID == "" {
		return fmt.Errorf("feedback session requires a user id")
	}
	if fs.ID == "" {
		fs.ID = uuid.New().String()
	}
	if fs.CreatedAt.IsZero() {
		fs.CreatedAt = time.Now()
	}
	fs.CreatedAt = fs.CreatedAt.UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback_sessions (id, user_id, created_at) VALUES (?, ?, ?)`,
		fs.ID, fs.UserID, fs.CreatedAt.UnixNano())
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("storing feedback session: %w", err)
	}
	return nil
}

// Get returns the session with the given ID.
func (s *Store) Get(ctx context.Context, id string) (*FeedbackSession, error) {
	var fs FeedbackSession
	var created int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at FROM feedback_sessions WHERE id = ?`, id).
		Scan(&fs.ID, &fs.UserID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying feedback session: %w", err)
	}
	fs.CreatedAt = time.Unix(0, created).UTC()
	return &fs, nil
}

// ListBefore returns the IDs of sessions created strictly before cutoff,
// oldest first.
func (s *Store) ListBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	ctx, span := tracer.Start(ctx, "session.list_before",
		trace.WithAttributes(attribute.String("session.cutoff", cutoff.UTC().Format(time.RFC3339))))
	defer span.End()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM feedback_sessions WHERE created_at < ? ORDER BY created_at, id`, cutoff.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("listing expired feedback sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes one session. Deleting a missing session returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "session.delete",
		trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	res, err := s.db.ExecContext(ctx, `DELETE FROM feedback_sessions WHERE id = ?`, id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("deleting feedback session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting feedback session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of stored sessions.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feedback_sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting feedback sessions: %w", err)
	}
	return n, nil
}
