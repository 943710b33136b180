package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	apperrors "github.com/4d4r5h/text-search-api/pkg/errors"
	"github.com/4d4r5h/text-search-api/pkg/postgres"
	"github.com/lib/pq"
)

const (
	pgFKViolation = "23503"
)

// PostgresStore is the durable Store backed by PostgreSQL.
//
// Layout: a paragraphs table keyed by a BIGSERIAL id, and a word_occurrences
// table with a unique (word, paragraph_id) pair and an FK cascade to
// paragraphs. Occurrence insertion order is the occurrence row id.
type PostgresStore struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewPostgresStore creates a store on top of an open PostgreSQL client.
func NewPostgresStore(db *postgres.Client) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: slog.Default().With("component", "index-store"),
	}
}

// EnsureSchema creates the index tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS paragraphs (
			id   BIGSERIAL PRIMARY KEY,
			text TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS word_occurrences (
			id           BIGSERIAL PRIMARY KEY,
			word         TEXT NOT NULL,
			paragraph_id BIGINT NOT NULL REFERENCES paragraphs(id) ON DELETE CASCADE,
			UNIQUE (word, paragraph_id)
		)`,
		`CREATE INDEX IF NOT EXISTS word_occurrences_word_id_idx
			ON word_occurrences (word, id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring index schema: %w", err)
		}
	}
	return nil
}

// CreateParagraph inserts a paragraph row and returns its allocated id.
func (s *PostgresStore) CreateParagraph(ctx context.Context, text string) (ParagraphID, error) {
	var id ParagraphID
	err := s.db.DB.QueryRowContext(ctx,
		`INSERT INTO paragraphs (text) VALUES ($1) RETURNING id`, text,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting paragraph: %w", err)
	}
	return id, nil
}

// AddOccurrence inserts a (word, paragraph) pair. Duplicate pairs are
// suppressed at the write path via ON CONFLICT; a missing paragraph is
// reported as a dangling reference.
func (s *PostgresStore) AddOccurrence(ctx context.Context, word string, id ParagraphID) error {
	_, err := s.db.DB.ExecContext(ctx,
		`INSERT INTO word_occurrences (word, paragraph_id) VALUES ($1, $2)
		 ON CONFLICT (word, paragraph_id) DO NOTHING`,
		word, int64(id),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgFKViolation {
			return apperrors.Newf(apperrors.ErrDanglingReference, 400,
				"paragraph %d does not exist", id)
		}
		return fmt.Errorf("inserting occurrence: %w", err)
	}
	return nil
}

// FindParagraphsForWord streams occurrence rows for word in insertion order
// and collects up to limit distinct paragraph ids. The distinct step is
// explicit rather than delegated to the storage engine, even though the
// unique pair constraint already rules out physical duplicates.
func (s *PostgresStore) FindParagraphsForWord(ctx context.Context, word string, limit int) ([]ParagraphID, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT paragraph_id FROM word_occurrences WHERE word = $1 ORDER BY id`,
		word,
	)
	if err != nil {
		return nil, fmt.Errorf("querying occurrences for %q: %w", word, err)
	}
	defer rows.Close()

	seen := make(map[ParagraphID]struct{})
	ids := make([]ParagraphID, 0, limit)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning occurrence row: %w", err)
		}
		pid := ParagraphID(id)
		if _, dup := seen[pid]; dup {
			continue
		}
		seen[pid] = struct{}{}
		ids = append(ids, pid)
		if limit >= 0 && len(ids) >= limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating occurrence rows: %w", err)
	}
	return ids, nil
}

// GetParagraphs bulk-fetches paragraphs and reorders them to match the input
// ids. Unknown ids are skipped.
func (s *PostgresStore) GetParagraphs(ctx context.Context, ids []ParagraphID) ([]Paragraph, error) {
	if len(ids) == 0 {
		return []Paragraph{}, nil
	}
	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = int64(id)
	}
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT id, text FROM paragraphs WHERE id = ANY($1)`, pq.Array(raw),
	)
	if err != nil {
		return nil, fmt.Errorf("querying paragraphs: %w", err)
	}
	defer rows.Close()

	byID := make(map[ParagraphID]string, len(ids))
	for rows.Next() {
		var id int64
		var text string
		if err := rows.Scan(&id, &text); err != nil {
			return nil, fmt.Errorf("scanning paragraph row: %w", err)
		}
		byID[ParagraphID(id)] = text
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating paragraph rows: %w", err)
	}

	out := make([]Paragraph, 0, len(ids))
	for _, id := range ids {
		text, ok := byID[id]
		if !ok {
			continue
		}
		out = append(out, Paragraph{ID: id, Text: text})
	}
	return out, nil
}

// IndexParagraph writes one paragraph and all its occurrences in a single
// transaction, so the paragraph never becomes visible without its words.
func (s *PostgresStore) IndexParagraph(ctx context.Context, text string, words []string) (ParagraphID, error) {
	var id ParagraphID
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		var raw int64
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO paragraphs (text) VALUES ($1) RETURNING id`, text,
		).Scan(&raw); err != nil {
			return fmt.Errorf("inserting paragraph: %w", err)
		}
		id = ParagraphID(raw)
		if len(words) == 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO word_occurrences (word, paragraph_id)
			 SELECT w, $2 FROM unnest($1::text[]) AS w
			 ON CONFLICT (word, paragraph_id) DO NOTHING`,
			pq.Array(words), raw,
		); err != nil {
			return fmt.Errorf("inserting occurrences: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Ping verifies database connectivity, for health checks.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.DB.PingContext(ctx)
}
