package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	aidaotel "github.com/Lokie-ree/aida-sub001/internal/otel"
)

var tracer = aidaotel.Tracer("github.com/Lokie-ree/aida-sub001/internal/audit")

// ErrNotFound is returned when an audit entry does not exist.
var ErrNotFound = errors.New("audit entry not found")

// Timestamps are unix nanoseconds so the retention cutoff compares exactly.
const schema = `
CREATE TABLE IF NOT EXISTS audit_logs (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    action TEXT NOT NULL,
    resource TEXT NOT NULL,
    details TEXT NOT NULL DEFAULT '',
    timestamp INTEGER NOT NULL,
    ip_address TEXT NOT NULL,
    signature TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_user ON audit_logs(user_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_logs(timestamp);
`

// Store persists signed audit entries in SQLite.
type Store struct {
	db     *sql.DB
	signer *Signer
}

// NewStore opens (or creates) the audit database at dbPath.
func NewStore(dbPath, signingKey string) (*Store, error) {
	signer, err := NewSigner(signingKey)
	if err != nil {
		return nil, fmt.Errorf("creating audit signer: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening audit database: %w", err)
	}
	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating audit schema: %w", err)
	}
	return &Store{db: db, signer: signer}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append signs and inserts e. The entry must carry an ID and timestamp.
func (s *Store) Append(ctx context.Context, e *Entry) error {
	ctx, span := tracer.Start(ctx, "audit.append",
		trace.WithAttributes(
			attribute.String("audit.id", e.ID),
			attribute.String("audit.action", e.Action),
			attribute.String("audit.resource", e.Resource),
		))
	defer span.End()

	if e.ID == "" || e.Timestamp.IsZero() {
		return fmt.Errorf("audit entry requires id and timestamp")
	}
	if err := s.signer.SignEntry(e); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, user_id, action, resource, details, timestamp, ip_address, signature)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Action, e.Resource, e.Details, e.Timestamp.UnixNano(), e.IPAddress, e.Signature)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("storing audit entry: %w", err)
	}
	return nil
}

// Get returns the entry with the given ID.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	ctx, span := tracer.Start(ctx, "audit.get")
	defer span.End()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, action, resource, details, timestamp, ip_address, signature
		 FROM audit_logs WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying audit entry: %w", err)
	}
	return e, nil
}

// ListByUser returns userID's entries, newest first. limit <= 0 means no limit.
func (s *Store) ListByUser(ctx context.Context, userID string, limit int) ([]Entry, error) {
	ctx, span := tracer.Start(ctx, "audit.list_by_user")
	defer span.End()

	query := `SELECT id, user_id, action, resource, details, timestamp, ip_address, signature
	          FROM audit_logs WHERE user_id = ? ORDER BY timestamp DESC, id`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// ListBefore returns the IDs of entries with timestamp strictly before cutoff,
// oldest first.
func (s *Store) ListBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	ctx, span := tracer.Start(ctx, "audit.list_before",
		trace.WithAttributes(attribute.String("audit.cutoff", cutoff.UTC().Format(time.RFC3339))))
	defer span.End()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM audit_logs WHERE timestamp < ? ORDER BY timestamp, id`, cutoff.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("listing expired audit entries: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning audit id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes one entry. Deleting a missing entry returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "audit.delete",
		trace.WithAttributes(attribute.String("audit.id", id)))
	defer span.End()

	res, err := s.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE id = ?`, id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("deleting audit entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting audit entry: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Verify reports whether the stored entry's signature is intact.
func (s *Store) Verify(ctx context.Context, id string) (bool, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return s.signer.VerifyEntry(e), nil
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting audit entries: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(r rowScanner) (*Entry, error) {
	var e Entry
	var ts int64
	if err := r.Scan(&e.ID, &e.UserID, &e.Action, &e.Resource, &e.Details, &ts, &e.IPAddress, &e.Signature); err != nil {
		return nil, err
	}
	e.Timestamp = time.Unix(0, ts).UTC()
	return &e, nil
}
