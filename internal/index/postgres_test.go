package index

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/4d4r5h/text-search-api/pkg/config"
	"github.com/4d4r5h/text-search-api/pkg/postgres"
)

// These tests need a running PostgreSQL instance and skip when one is not
// reachable. Connection parameters come from TEST_POSTGRES_* env vars.

func setupPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	cfg := testPostgresConfig()
	db, err := postgres.New(cfg)
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := NewPostgresStore(db)
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return store
}

func testPostgresConfig() config.PostgresConfig {
	return config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database:        envOrDefault("TEST_POSTGRES_DB", "textsearch_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "textsearch"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: config.Duration(5 * time.Minute),
	}
}

func TestPostgresIndexParagraphRoundTrip(t *testing.T) {
	store := setupPostgresStore(t)
	ctx := context.Background()

	// Unique word per run so reruns against the same database stay isolated.
	word := fmt.Sprintf("pgtest%d", time.Now().UnixNano())
	text := "a paragraph containing " + word

	id, err := store.IndexParagraph(ctx, text, []string{"a", "paragraph", "containing", word})
	if err != nil {
		t.Fatalf("IndexParagraph: %v", err)
	}

	ids, err := store.FindParagraphsForWord(ctx, word, 10)
	if err != nil {
		t.Fatalf("FindParagraphsForWord: %v", err)
	}
	if len(ids) != 1 || ids[0] != id {
		t.Fatalf("expected [%d], got %v", id, ids)
	}

	paragraphs, err := store.GetParagraphs(ctx, ids)
	if err != nil {
		t.Fatalf("GetParagraphs: %v", err)
	}
	if len(paragraphs) != 1 || paragraphs[0].Text != text {
		t.Errorf("round trip failed: %+v", paragraphs)
	}
}

func TestPostgresAddOccurrenceIsIdempotent(t *testing.T) {
	store := setupPostgresStore(t)
	ctx := context.Background()

	word := fmt.Sprintf("dup%d", time.Now().UnixNano())
	id, err := store.CreateParagraph(ctx, "duplicate occurrence test")
	if err != nil {
		t.Fatalf("CreateParagraph: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := store.AddOccurrence(ctx, word, id); err != nil {
			t.Fatalf("AddOccurrence: %v", err)
		}
	}

	ids, err := store.FindParagraphsForWord(ctx, word, 10)
	if err != nil {
		t.Fatalf("FindParagraphsForWord: %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("expected one distinct paragraph, got %v", ids)
	}
}

func TestPostgresFindParagraphsForWordAppliesLimit(t *testing.T) {
	store := setupPostgresStore(t)
	ctx := context.Background()

	word := fmt.Sprintf("cap%d", time.Now().UnixNano())
	var want []ParagraphID
	for i := 0; i < 12; i++ {
		id, err := store.IndexParagraph(ctx, "capped paragraph", []string{word})
		if err != nil {
			t.Fatalf("IndexParagraph: %v", err)
		}
		want = append(want, id)
	}

	ids, err := store.FindParagraphsForWord(ctx, word, 10)
	if err != nil {
		t.Fatalf("FindParagraphsForWord: %v", err)
	}
	if len(ids) != 10 {
		t.Fatalf("expected 10 ids, got %d", len(ids))
	}
	for i := 0; i < 10; i++ {
		if ids[i] != want[i] {
			t.Errorf("position %d: expected %d, got %d", i, want[i], ids[i])
		}
	}
}

func TestPostgresGetParagraphsSkipsUnknownIDs(t *testing.T) {
	store := setupPostgresStore(t)
	ctx := context.Background()

	id, err := store.CreateParagraph(ctx, "known paragraph")
	if err != nil {
		t.Fatalf("CreateParagraph: %v", err)
	}

	paragraphs, err := store.GetParagraphs(ctx, []ParagraphID{id, -1})
	if err != nil {
		t.Fatalf("GetParagraphs: %v", err)
	}
	if len(paragraphs) != 1 || paragraphs[0].ID != id {
		t.Errorf("expected only the known paragraph, got %+v", paragraphs)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
