package index

import (
	"context"
	"testing"
)

func TestBruteForceIndex_SearchOrdering(t *testing.T) {
	idx := NewBruteForceIndex()
	ctx := context.Background()

	idx.Add(ctx, "exact", []float32{1, 0})
	idx.Add(ctx, "close", []float32{0.9, 0.1})
	idx.Add(ctx, "far", []float32{0, 1})

	matches, err := idx.Search(ctx, []float32{1, 0}, 10, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("match count = %d, want 3", len(matches))
	}
	if matches[0].PrecedentID != "exact" || matches[1].PrecedentID != "close" || matches[2].PrecedentID != "far" {
		t.Errorf("unexpected order: %v %v %v", matches[0].PrecedentID, matches[1].PrecedentID, matches[2].PrecedentID)
	}
	if matches[0].Similarity < 0.9999 {
		t.Errorf("exact similarity = %v, want ~1.0", matches[0].Similarity)
	}
}

func TestBruteForceIndex_MinSimilarityFilter(t *testing.T) {
	idx := NewBruteForceIndex()
	ctx := context.Background()

	idx.Add(ctx, "aligned", []float32{1, 0})
	idx.Add(ctx, "orthogonal", []float32{0, 1})

	matches, err := idx.Search(ctx, []float32{1, 0}, 10, 0.5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 1 || matches[0].PrecedentID != "aligned" {
		t.Errorf("matches = %+v, want only aligned", matches)
	}
}

func TestBruteForceIndex_TopKTruncation(t *testing.T) {
	idx := NewBruteForceIndex()
	ctx := context.Background()

	idx.Add(ctx, "a", []float32{1, 0})
	idx.Add(ctx, "b", []float32{0.9, 0.1})
	idx.Add(ctx, "c", []float32{0.8, 0.2})

	matches, err := idx.Search(ctx, []float32{1, 0}, 2, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("match count = %d, want 2", len(matches))
	}

	matches, err = idx.Search(ctx, []float32{1, 0}, 0, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("topK=0 should return no matches, got %d", len(matches))
	}
}

func TestBruteForceIndex_TieBreaksByID(t *testing.T) {
	idx := NewBruteForceIndex()
	ctx := context.Background()

	idx.Add(ctx, "zed", []float32{1, 0})
	idx.Add(ctx, "abc", []float32{1, 0})

	matches, err := idx.Search(ctx, []float32{1, 0}, 10, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 2 || matches[0].PrecedentID != "abc" {
		t.Errorf("equal similarity must order by id, got %+v", matches)
	}
}

func TestBruteForceIndex_AddReplacesAndRemove(t *testing.T) {
	idx := NewBruteForceIndex()
	ctx := context.Background()

	idx.Add(ctx, "p1", []float32{1, 0})
	idx.Add(ctx, "p1", []float32{0, 1})
	if idx.Len() != 1 {
		t.Errorf("Len = %d, want 1 after replace", idx.Len())
	}

	matches, _ := idx.Search(ctx, []float32{0, 1}, 1, 0.5)
	if len(matches) != 1 {
		t.Fatal("replaced vector should match the new direction")
	}

	if err := idx.Remove(ctx, "p1"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if idx.Len() != 0 {
		t.Errorf("Len = %d, want 0 after remove", idx.Len())
	}
}

func TestBruteForceIndex_CopiesInput(t *testing.T) {
	idx := NewBruteForceIndex()
	ctx := context.Background()

	v := []float32{1, 0}
	idx.Add(ctx, "p1", v)
	v[0] = 0
	v[1] = 1

	matches, _ := idx.Search(ctx, []float32{1, 0}, 1, 0.9)
	if len(matches) != 1 {
		t.Error("mutating the caller's slice must not affect the index")
	}
}
