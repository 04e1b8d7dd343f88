package retention

import (
	"context"
	"testing"
	"time"

	"mercator-hq/minos/pkg/precedent"
	"mercator-hq/minos/pkg/precedent/storage"
	"mercator-hq/minos/pkg/verdict"
)

func seedStore(t *testing.T, ages []time.Duration) storage.Storage {
	t.Helper()

	store := storage.NewMemoryStorage()
	now := time.Now().UTC()
	for i, age := range ages {
		_, err := store.Store(context.Background(), &storage.StoreRequest{
			InputText: string(rune('a' + i)),
			Verdict:   verdict.VerdictAllow,
			Timestamp: now.Add(-age),
		})
		if err != nil {
			t.Fatalf("Store failed: %v", err)
		}
	}
	return store
}

func TestPruner_AgeBasedPruning(t *testing.T) {
	store := seedStore(t, []time.Duration{
		200 * 24 * time.Hour,
		190 * 24 * time.Hour,
		time.Hour,
	})

	p, err := NewPruner(store, &Config{RetentionDays: 180}, nil)
	if err != nil {
		t.Fatalf("NewPruner failed: %v", err)
	}

	deleted, err := p.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	count, _ := store.Count(context.Background(), &precedent.Query{})
	if count != 1 {
		t.Errorf("remaining = %d, want 1", count)
	}
}

func TestPruner_ZeroRetentionKeepsForever(t *testing.T) {
	store := seedStore(t, []time.Duration{5000 * 24 * time.Hour})

	p, err := NewPruner(store, &Config{RetentionDays: 0}, nil)
	if err != nil {
		t.Fatalf("NewPruner failed: %v", err)
	}

	deleted, err := p.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0", deleted)
	}
}

func TestPruner_MaxRecordsCapDeletesOldest(t *testing.T) {
	store := seedStore(t, []time.Duration{
		3 * time.Hour,
		2 * time.Hour,
		time.Hour,
	})

	p, err := NewPruner(store, &Config{RetentionDays: 0, MaxRecords: 2}, nil)
	if err != nil {
		t.Fatalf("NewPruner failed: %v", err)
	}

	deleted, err := p.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	// The oldest record is the one that went.
	remaining, _ := store.Query(context.Background(), &precedent.Query{})
	for _, r := range remaining {
		if time.Since(r.Timestamp) > 150*time.Minute {
			t.Errorf("oldest record survived: %s", r.ID)
		}
	}
}

func TestPruner_NegativeRetentionRejected(t *testing.T) {
	store := storage.NewMemoryStorage()
	if _, err := NewPruner(store, &Config{RetentionDays: -1}, nil); err == nil {
		t.Error("expected error for negative retention")
	}
}

func TestPruner_RequiresStorage(t *testing.T) {
	if _, err := NewPruner(nil, nil, nil); err == nil {
		t.Error("expected error for nil storage")
	}
}

func TestPruner_StartRejectsBadSchedule(t *testing.T) {
	store := storage.NewMemoryStorage()
	p, err := NewPruner(store, &Config{RetentionDays: 180, PruneSchedule: "not a cron expr"}, nil)
	if err != nil {
		t.Fatalf("NewPruner failed: %v", err)
	}
	if err := p.Start(); err == nil {
		t.Error("expected error for invalid schedule")
	}
	p.Stop()
}

func TestPruner_StartStop(t *testing.T) {
	store := storage.NewMemoryStorage()
	p, err := NewPruner(store, nil, nil)
	if err != nil {
		t.Fatalf("NewPruner failed: %v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	p.Stop()
}
