package index

import (
	"context"
	"sync"

	apperrors "github.com/4d4r5h/text-search-api/pkg/errors"
)

// MemoryStore is an in-memory Store used in tests and single-process
// deployments. All state is guarded by one mutex; occurrence lists keep
// insertion order so query ordering matches the durable store.
type MemoryStore struct {
	mu         sync.RWMutex
	nextID     ParagraphID
	paragraphs map[ParagraphID]string
	// postings maps a word to the paragraph ids that contain it, in
	// occurrence insertion order, with membership tracked alongside so
	// duplicate inserts stay idempotent.
	postings map[string][]ParagraphID
	members  map[string]map[ParagraphID]struct{}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:     1,
		paragraphs: make(map[ParagraphID]string),
		postings:   make(map[string][]ParagraphID),
		members:    make(map[string]map[ParagraphID]struct{}),
	}
}

// CreateParagraph stores text under a freshly allocated id.
func (m *MemoryStore) CreateParagraph(ctx context.Context, text string) (ParagraphID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createLocked(text), nil
}

func (m *MemoryStore) createLocked(text string) ParagraphID {
	id := m.nextID
	m.nextID++
	m.paragraphs[id] = text
	return id
}

// AddOccurrence records that word appears in paragraph id. Duplicate pairs
// are ignored.
func (m *MemoryStore) AddOccurrence(ctx context.Context, word string, id ParagraphID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addOccurrenceLocked(word, id)
}

func (m *MemoryStore) addOccurrenceLocked(word string, id ParagraphID) error {
	if _, ok := m.paragraphs[id]; !ok {
		return apperrors.Newf(apperrors.ErrDanglingReference, 400,
			"paragraph %d does not exist", id)
	}
	set, ok := m.members[word]
	if !ok {
		set = make(map[ParagraphID]struct{})
		m.members[word] = set
	}
	if _, dup := set[id]; dup {
		return nil
	}
	set[id] = struct{}{}
	m.postings[word] = append(m.postings[word], id)
	return nil
}

// FindParagraphsForWord returns up to limit distinct paragraph ids containing
// word, in occurrence insertion order.
func (m *MemoryStore) FindParagraphsForWord(ctx context.Context, word string, limit int) ([]ParagraphID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.postings[word]
	if limit >= 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]ParagraphID, len(ids))
	copy(out, ids)
	return out, nil
}

// GetParagraphs fetches paragraphs in input order, skipping unknown ids.
func (m *MemoryStore) GetParagraphs(ctx context.Context, ids []ParagraphID) ([]Paragraph, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Paragraph, 0, len(ids))
	for _, id := range ids {
		text, ok := m.paragraphs[id]
		if !ok {
			continue
		}
		out = append(out, Paragraph{ID: id, Text: text})
	}
	return out, nil
}

// IndexParagraph stores a paragraph and its word occurrences under one lock
// acquisition, so readers never observe the paragraph without its words.
func (m *MemoryStore) IndexParagraph(ctx context.Context, text string, words []string) (ParagraphID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.createLocked(text)
	for _, w := range words {
		if err := m.addOccurrenceLocked(w, id); err != nil {
			return 0, err
		}
	}
	return id, nil
}
