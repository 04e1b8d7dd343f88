package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/minos/pkg/precedent"
	"mercator-hq/minos/pkg/verdict"
)

// createTempDB creates a temporary SQLite database for testing.
func createTempDB(t *testing.T) (*SQLiteStorage, string) {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	config := &SQLiteConfig{
		Path:         dbPath,
		Driver:       "sqlite3",
		MaxOpenConns: 5,
		MaxIdleConns: 2,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}

	storage, err := NewSQLiteStorage(config)
	if err != nil {
		t.Fatalf("Failed to create SQLite storage: %v", err)
	}

	return storage, dbPath
}

func TestSQLiteStorage_Initialize(t *testing.T) {
	storage, dbPath := createTempDB(t)
	defer storage.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestSQLiteStorage_UnknownDriver(t *testing.T) {
	_, err := NewSQLiteStorage(&SQLiteConfig{Path: ":memory:", Driver: "postgres"})
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestSQLiteStorage_StoreAndGet(t *testing.T) {
	storage, _ := createTempDB(t)
	defer storage.Close()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	id, err := storage.Store(ctx, &StoreRequest{
		RequestID:      "req-1",
		InputText:      "please wipe the database",
		Context:        map[string]string{"user_tier": "free"},
		Verdict:        verdict.VerdictBlock,
		Confidence:     0.92,
		Embedding:      []float32{0.1, 0.2, 0.3},
		EmbeddingModel: "static-sha256",
		CriticOutputs: []precedent.CriticOutput{
			{CriticName: "keyword", Verdict: verdict.VerdictBlock, Confidence: 0.92, Justification: "matched"},
		},
		Timestamp: now,
	})
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	p, err := storage.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if p.InputText != "please wipe the database" {
		t.Errorf("InputText = %q", p.InputText)
	}
	if p.Verdict != verdict.VerdictBlock {
		t.Errorf("Verdict = %v", p.Verdict)
	}
	if p.Context["user_tier"] != "free" {
		t.Errorf("Context = %v", p.Context)
	}
	if len(p.Embedding) != 3 {
		t.Errorf("Embedding length = %d, want 3", len(p.Embedding))
	}
	if p.EmbeddingModel != "static-sha256" {
		t.Errorf("EmbeddingModel = %q", p.EmbeddingModel)
	}
	if len(p.CriticOutputs) != 1 {
		t.Fatalf("critic output count = %d, want 1", len(p.CriticOutputs))
	}
	out := p.CriticOutputs[0]
	if out.PrecedentID != id || out.CriticName != "keyword" || out.Verdict != verdict.VerdictBlock || out.Justification != "matched" {
		t.Errorf("critic output = %+v", out)
	}
}

func TestSQLiteStorage_GetMissing(t *testing.T) {
	storage, _ := createTempDB(t)
	defer storage.Close()

	_, err := storage.Get(context.Background(), "missing")
	if !errors.Is(err, precedent.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStorage_StoreIdempotent(t *testing.T) {
	storage, _ := createTempDB(t)
	defer storage.Close()
	ctx := context.Background()

	req := func() *StoreRequest {
		return &StoreRequest{
			InputText:  "duplicate input",
			Context:    map[string]string{"k": "v"},
			Verdict:    verdict.VerdictAllow,
			Confidence: 0.8,
		}
	}

	id1, err := storage.Store(ctx, req())
	if err != nil {
		t.Fatalf("first Store failed: %v", err)
	}
	id2, err := storage.Store(ctx, req())
	if err != nil {
		t.Fatalf("second Store failed: %v", err)
	}
	if id1 != id2 {
		t.Errorf("dedup ids differ: %s vs %s", id1, id2)
	}

	count, err := storage.Count(ctx, &precedent.Query{})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestSQLiteStorage_GetByHash(t *testing.T) {
	storage, _ := createTempDB(t)
	defer storage.Close()
	ctx := context.Background()

	id, err := storage.Store(ctx, &StoreRequest{
		InputText: "hash lookup input",
		Context:   map[string]string{"a": "b"},
		Verdict:   verdict.VerdictReview,
	})
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	hash := precedent.CanonicalHash("hash lookup input", map[string]string{"a": "b"})
	p, err := storage.GetByHash(ctx, hash)
	if err != nil {
		t.Fatalf("GetByHash failed: %v", err)
	}
	if p.ID != id {
		t.Errorf("ID = %s, want %s", p.ID, id)
	}
}

func TestSQLiteStorage_QueryFilters(t *testing.T) {
	storage, _ := createTempDB(t)
	defer storage.Close()
	ctx := context.Background()

	now := time.Now().UTC()
	seed := []*StoreRequest{
		{InputText: "a", Verdict: verdict.VerdictAllow, Confidence: 0.9, Timestamp: now},
		{InputText: "b", Verdict: verdict.VerdictBlock, Confidence: 0.5, Timestamp: now.Add(-time.Hour)},
		{InputText: "c", Verdict: verdict.VerdictBlock, Confidence: 0.95, Timestamp: now.AddDate(0, 0, -40)},
	}
	for _, req := range seed {
		if _, err := storage.Store(ctx, req); err != nil {
			t.Fatalf("Store failed: %v", err)
		}
	}

	blocks, err := storage.Query(ctx, &precedent.Query{Verdict: verdict.VerdictBlock})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(blocks) != 2 {
		t.Errorf("block count = %d, want 2", len(blocks))
	}
	// Newest first.
	if len(blocks) == 2 && blocks[0].Timestamp.Before(blocks[1].Timestamp) {
		t.Error("results must be ordered newest first")
	}

	confident, err := storage.Query(ctx, &precedent.Query{MinConfidence: 0.8})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(confident) != 2 {
		t.Errorf("confident count = %d, want 2", len(confident))
	}

	recent, err := storage.Query(ctx, &precedent.Query{Since: now.AddDate(0, 0, -7)})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(recent) != 2 {
		t.Errorf("recent count = %d, want 2", len(recent))
	}

	paged, err := storage.Query(ctx, &precedent.Query{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(paged) != 1 {
		t.Errorf("paged count = %d, want 1", len(paged))
	}
}

func TestSQLiteStorage_AddReference(t *testing.T) {
	storage, _ := createTempDB(t)
	defer storage.Close()
	ctx := context.Background()

	id1, _ := storage.Store(ctx, &StoreRequest{InputText: "first", Verdict: verdict.VerdictAllow})
	id2, _ := storage.Store(ctx, &StoreRequest{InputText: "second", Verdict: verdict.VerdictAllow})

	if err := storage.AddReference(ctx, id1, id2, 0.8, "similar"); err != nil {
		t.Fatalf("AddReference failed: %v", err)
	}
	// Re-adding updates the edge instead of duplicating it.
	if err := storage.AddReference(ctx, id1, id2, 0.95, "similar"); err != nil {
		t.Fatalf("AddReference update failed: %v", err)
	}

	p, err := storage.Get(ctx, id1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(p.References) != 1 {
		t.Fatalf("reference count = %d, want 1", len(p.References))
	}
	if p.References[0].Similarity != 0.95 {
		t.Errorf("similarity = %v, want 0.95", p.References[0].Similarity)
	}

	if err := storage.AddReference(ctx, id1, "missing", 0.5, "similar"); !errors.Is(err, precedent.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound for missing referenced id", err)
	}
}

func TestSQLiteStorage_DeleteCascades(t *testing.T) {
	storage, _ := createTempDB(t)
	defer storage.Close()
	ctx := context.Background()

	id, _ := storage.Store(ctx, &StoreRequest{
		InputText: "cascade me",
		Verdict:   verdict.VerdictAllow,
		Embedding: []float32{0.5, 0.5},
		CriticOutputs: []precedent.CriticOutput{
			{CriticName: "c1", Verdict: verdict.VerdictAllow, Confidence: 0.9},
		},
	})

	ok, err := storage.Delete(ctx, id)
	if err != nil || !ok {
		t.Fatalf("Delete = (%v, %v), want (true, nil)", ok, err)
	}

	embeddings, err := storage.ListEmbeddings(ctx)
	if err != nil {
		t.Fatalf("ListEmbeddings failed: %v", err)
	}
	if len(embeddings) != 0 {
		t.Errorf("embedding count after delete = %d, want 0", len(embeddings))
	}

	ok, err = storage.Delete(ctx, id)
	if err != nil || ok {
		t.Errorf("second Delete = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestSQLiteStorage_DeleteBefore(t *testing.T) {
	storage, _ := createTempDB(t)
	defer storage.Close()
	ctx := context.Background()

	now := time.Now().UTC()
	storage.Store(ctx, &StoreRequest{InputText: "old", Verdict: verdict.VerdictAllow, Timestamp: now.AddDate(0, 0, -200)})
	storage.Store(ctx, &StoreRequest{InputText: "new", Verdict: verdict.VerdictAllow, Timestamp: now})

	n, err := storage.DeleteBefore(ctx, now.AddDate(0, 0, -180))
	if err != nil {
		t.Fatalf("DeleteBefore failed: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
}

func TestSQLiteStorage_VectorRoundTrip(t *testing.T) {
	storage, _ := createTempDB(t)
	defer storage.Close()
	ctx := context.Background()

	vec := []float32{0.25, -1.5, 3.75, 0}
	id, err := storage.Store(ctx, &StoreRequest{
		InputText:      "vector roundtrip",
		Verdict:        verdict.VerdictAllow,
		Embedding:      vec,
		EmbeddingModel: "m",
	})
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	records, err := storage.ListEmbeddings(ctx)
	if err != nil {
		t.Fatalf("ListEmbeddings failed: %v", err)
	}
	if len(records) != 1 || records[0].PrecedentID != id {
		t.Fatalf("unexpected embedding records %+v", records)
	}
	for i, f := range vec {
		if records[0].Vector[i] != f {
			t.Errorf("vector[%d] = %v, want %v", i, records[0].Vector[i], f)
		}
	}
}

func TestSQLiteStorage_ModerncDriver(t *testing.T) {
	tmpDir := t.TempDir()
	storage, err := NewSQLiteStorage(&SQLiteConfig{
		Path:         filepath.Join(tmpDir, "pure.db"),
		Driver:       "sqlite",
		MaxOpenConns: 2,
		MaxIdleConns: 1,
		WALMode:      true,
		BusyTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("pure-Go driver open failed: %v", err)
	}
	defer storage.Close()

	ctx := context.Background()
	id, err := storage.Store(ctx, &StoreRequest{InputText: "pure go", Verdict: verdict.VerdictAllow})
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if _, err := storage.Get(ctx, id); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
}
