// Package index defines the paragraph index store: a durable mapping from
// paragraph id to paragraph text and from lowercase word to the paragraphs
// containing it. Two implementations exist, a PostgreSQL-backed store for
// production and an in-memory store for tests.
package index

import "context"

// ParagraphID identifies a stored paragraph. IDs are unique and allocated
// monotonically in insertion order; they carry no other meaning.
type ParagraphID int64

// Paragraph is an immutable stored paragraph.
type Paragraph struct {
	ID   ParagraphID `json:"id"`
	Text string      `json:"text"`
}

// Store is the interface every index backend implements.
//
// AddOccurrence records that word appears in the given paragraph. The
// (word, paragraph) pair is unique: repeated inserts are idempotent.
// It fails with pkg/errors.ErrDanglingReference if the paragraph does not
// exist.
//
// FindParagraphsForWord returns up to limit distinct paragraph ids that
// contain word, ordered by occurrence insertion (first indexed first).
//
// GetParagraphs fetches paragraphs by id, preserving input order. Unknown
// ids are silently skipped rather than treated as errors.
//
// IndexParagraph stores one paragraph together with all its word
// occurrences as a single logical unit: either the paragraph and every
// occurrence become visible together, or nothing does.
type Store interface {
	CreateParagraph(ctx context.Context, text string) (ParagraphID, error)
	AddOccurrence(ctx context.Context, word string, id ParagraphID) error
	FindParagraphsForWord(ctx context.Context, word string, limit int) ([]ParagraphID, error)
	GetParagraphs(ctx context.Context, ids []ParagraphID) ([]Paragraph, error)
	IndexParagraph(ctx context.Context, text string, words []string) (ParagraphID, error)
}
