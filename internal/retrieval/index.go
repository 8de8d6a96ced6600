package retrieval

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrEmptyDocument is returned by Put when a document has no content.
var ErrEmptyDocument = errors.New("document content is empty")

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,
    scope_id TEXT NOT NULL DEFAULT '',
    source_label TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_scope ON documents(scope_id);
`

const ftsSchema = `
CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
    source_label, content,
    content=documents,
    content_rowid=rowid
);

CREATE TRIGGER IF NOT EXISTS documents_ai AFTER INSERT ON documents BEGIN
    INSERT INTO documents_fts(rowid, source_label, content)
    VALUES (new.rowid, new.source_label, new.content);
END;

CREATE TRIGGER IF NOT EXISTS documents_ad AFTER DELETE ON documents BEGIN
    INSERT INTO documents_fts(documents_fts, rowid, source_label, content)
    VALUES ('delete', old.rowid, old.source_label, old.content);
END;

CREATE TRIGGER IF NOT EXISTS documents_au AFTER UPDATE ON documents BEGIN
    INSERT INTO documents_fts(documents_fts, rowid, source_label, content)
    VALUES ('delete', old.rowid, old.source_label, old.content);
    INSERT INTO documents_fts(rowid, source_label, content)
    VALUES (new.rowid, new.source_label, new.content);
END;
`

// Document is a pre-chunked district document.
type Document struct {
	ID          string    `json:"id"`
	ScopeID     string    `json:"scope_id"`
	SourceLabel string    `json:"source_label"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

// Index is a SQLite-backed Engine. FTS5 is optional; if the SQLite build
// doesn't support it, search degrades to LIKE queries.
type Index struct {
	db      *sql.DB
	hasFTS5 bool
}

// NewIndex opens (or creates) the document index at dbPath.
func NewIndex(dbPath string) (*Index, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening document database: %w", err)
	}

	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating document schema: %w", err)
	}

	hasFTS5 := true
	if _, err := db.ExecContext(context.Background(), ftsSchema); err != nil {
		hasFTS5 = false
	}

	return &Index{db: db, hasFTS5: hasFTS5}, nil
}

// Close releases the database connection.
func (x *Index) Close() error {
	return x.db.Close()
}

// FullTextEnabled reports whether searches use FTS5 rather than the LIKE fallback.
func (x *Index) FullTextEnabled() bool {
	return x.hasFTS5
}

// Put stores doc, replacing any document with the same ID. An ID is
// generated when empty. Documents with an empty ScopeID are visible to every
// scope.
func (x *Index) Put(ctx context.Context, doc Document) (string, error) {
	ctx, span := tracer.Start(ctx, "retrieval.put",
		trace.WithAttributes(attribute.String("retrieval.scope_id", doc.ScopeID)))
	defer span.End()

	if strings.TrimSpace(doc.Content) == "" {
		return "", ErrEmptyDocument
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	if doc.SourceLabel == "" {
		doc.SourceLabel = doc.ID
	}

	_, err := x.db.ExecContext(ctx,
		`INSERT INTO documents (id, scope_id, source_label, content, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   scope_id = excluded.scope_id,
		   source_label = excluded.source_label,
		   content = excluded.content`,
		doc.ID, doc.ScopeID, doc.SourceLabel, doc.Content, doc.CreatedAt.UnixNano())
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("storing document: %w", err)
	}
	return doc.ID, nil
}

// Count returns the number of stored documents.
func (x *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := x.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

// Search returns up to limit documents matching any term of query. A
// non-empty scopeID restricts results to that scope plus shared documents.
func (x *Index) Search(ctx context.Context, query, scopeID string, limit int) (*Result, error) {
	ctx, span := tracer.Start(ctx, "retrieval.search",
		trace.WithAttributes(
			attribute.String("retrieval.scope_id", scopeID),
			attribute.Bool("retrieval.fts5", x.hasFTS5),
		))
	defer span.End()

	terms := searchTerms(query)
	if len(terms) == 0 {
		return &Result{}, nil
	}

	var sqlQuery string
	var args []interface{}

	if x.hasFTS5 {
		quoted := make([]string, len(terms))
		for i, t := range terms {
			quoted[i] = `"` + t + `"`
		}
		sqlQuery = `SELECT d.source_label, d.content, -bm25(documents_fts)
		            FROM documents d
		            JOIN documents_fts ON d.rowid = documents_fts.rowid
		            WHERE documents_fts MATCH ?`
		args = []interface{}{strings.Join(quoted, " OR ")}
		if scopeID != "" {
			sqlQuery += ` AND (d.scope_id = ? OR d.scope_id = '')`
			args = append(args, scopeID)
		}
		sqlQuery += ` ORDER BY bm25(documents_fts)`
	} else {
		likes := make([]string, len(terms))
		for i, t := range terms {
			likes[i] = `LOWER(content) LIKE ?`
			args = append(args, "%"+t+"%")
		}
		sqlQuery = `SELECT source_label, content, 0
		            FROM documents
		            WHERE (` + strings.Join(likes, " OR ") + `)`
		if scopeID != "" {
			sqlQuery += ` AND (scope_id = ? OR scope_id = '')`
			args = append(args, scopeID)
		}
		sqlQuery += ` ORDER BY created_at DESC`
	}

	if limit > 0 {
		sqlQuery += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := x.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.SourceLabel, &it.Content, &it.Relevance); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		if !x.hasFTS5 {
			it.Relevance = termOverlap(it.Content, terms)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document rows: %w", err)
	}

	return &Result{Items: items, ConcatenatedText: Concatenate(items)}, nil
}

// Concatenate renders items as labelled blocks separated by blank lines, the
// form the assistant embeds verbatim in its prompt.
func Concatenate(items []Item) string {
	blocks := make([]string, 0, len(items))
	for _, it := range items {
		blocks = append(blocks, "[Source: "+it.SourceLabel+"]\n"+it.Content)
	}
	return strings.Join(blocks, "\n\n")
}

// searchTerms lowercases query and splits it into alphanumeric terms, dropping
// duplicates. FTS5 MATCH syntax rejects raw punctuation such as "?".
func searchTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 || stopWords[f] || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
	}
	return terms
}

var stopWords = map[string]bool{
	"the": true, "is": true, "what": true, "a": true, "an": true, "of": true,
	"to": true, "for": true, "in": true, "on": true, "and": true, "or": true,
	"do": true, "does": true, "how": true, "our": true, "my": true, "we": true,
	"are": true, "can": true, "about": true, "with": true, "i": true,
}

func termOverlap(content string, terms []string) float64 {
	lower := strings.ToLower(content)
	hit := 0
	for _, t := range terms {
		if strings.Contains(lower, t) {
			hit++
		}
	}
	return float64(hit) / float64(len(terms))
}
