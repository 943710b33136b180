package index

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/4d4r5h/text-search-api/pkg/errors"
)

func TestCreateParagraphAllocatesMonotonicIDs(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var prev ParagraphID
	for i := 0; i < 5; i++ {
		id, err := store.CreateParagraph(ctx, "text")
		if err != nil {
			t.Fatalf("CreateParagraph: %v", err)
		}
		if id <= prev {
			t.Errorf("expected id > %d, got %d", prev, id)
		}
		prev = id
	}
}

func TestAddOccurrenceRejectsDanglingReference(t *testing.T) {
	store := NewMemoryStore()
	err := store.AddOccurrence(context.Background(), "word", 42)
	if !errors.Is(err, apperrors.ErrDanglingReference) {
		t.Fatalf("expected dangling reference error, got %v", err)
	}
}

func TestAddOccurrenceIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	id, _ := store.CreateParagraph(ctx, "hello hello hello")

	for i := 0; i < 3; i++ {
		if err := store.AddOccurrence(ctx, "hello", id); err != nil {
			t.Fatalf("AddOccurrence: %v", err)
		}
	}

	ids, err := store.FindParagraphsForWord(ctx, "hello", 10)
	if err != nil {
		t.Fatalf("FindParagraphsForWord: %v", err)
	}
	if len(ids) != 1 || ids[0] != id {
		t.Errorf("expected exactly [%d], got %v", id, ids)
	}
}

func TestFindParagraphsForWordInsertionOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var want []ParagraphID
	for i := 0; i < 4; i++ {
		id, _ := store.CreateParagraph(ctx, "x marks the spot")
		if err := store.AddOccurrence(ctx, "x", id); err != nil {
			t.Fatalf("AddOccurrence: %v", err)
		}
		want = append(want, id)
	}

	ids, err := store.FindParagraphsForWord(ctx, "x", 10)
	if err != nil {
		t.Fatalf("FindParagraphsForWord: %v", err)
	}
	if len(ids) != len(want) {
		t.Fatalf("expected %d ids, got %d", len(want), len(ids))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("position %d: expected %d, got %d", i, want[i], ids[i])
		}
	}
}

func TestFindParagraphsForWordAppliesLimit(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		id, _ := store.CreateParagraph(ctx, "common text")
		if err := store.AddOccurrence(ctx, "common", id); err != nil {
			t.Fatalf("AddOccurrence: %v", err)
		}
	}

	ids, err := store.FindParagraphsForWord(ctx, "common", 10)
	if err != nil {
		t.Fatalf("FindParagraphsForWord: %v", err)
	}
	if len(ids) != 10 {
		t.Errorf("expected 10 ids, got %d", len(ids))
	}
}

func TestFindParagraphsForWordUnknownWord(t *testing.T) {
	store := NewMemoryStore()
	ids, err := store.FindParagraphsForWord(context.Background(), "missing", 10)
	if err != nil {
		t.Fatalf("FindParagraphsForWord: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected no ids, got %v", ids)
	}
}

func TestGetParagraphsPreservesInputOrderAndSkipsUnknown(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first, _ := store.CreateParagraph(ctx, "first")
	second, _ := store.CreateParagraph(ctx, "second")

	paragraphs, err := store.GetParagraphs(ctx, []ParagraphID{second, 999, first})
	if err != nil {
		t.Fatalf("GetParagraphs: %v", err)
	}
	if len(paragraphs) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(paragraphs))
	}
	if paragraphs[0].ID != second || paragraphs[0].Text != "second" {
		t.Errorf("expected second paragraph first, got %+v", paragraphs[0])
	}
	if paragraphs[1].ID != first || paragraphs[1].Text != "first" {
		t.Errorf("expected first paragraph second, got %+v", paragraphs[1])
	}
}

func TestIndexParagraphStoresTextAndWords(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	id, err := store.IndexParagraph(ctx, "the raven", []string{"the", "raven"})
	if err != nil {
		t.Fatalf("IndexParagraph: %v", err)
	}

	for _, word := range []string{"the", "raven"} {
		ids, err := store.FindParagraphsForWord(ctx, word, 10)
		if err != nil {
			t.Fatalf("FindParagraphsForWord(%q): %v", word, err)
		}
		if len(ids) != 1 || ids[0] != id {
			t.Errorf("word %q: expected [%d], got %v", word, id, ids)
		}
	}

	paragraphs, err := store.GetParagraphs(ctx, []ParagraphID{id})
	if err != nil {
		t.Fatalf("GetParagraphs: %v", err)
	}
	if len(paragraphs) != 1 || paragraphs[0].Text != "the raven" {
		t.Errorf("round trip failed: %+v", paragraphs)
	}
}
