package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"mercator-hq/minos/pkg/verdict"
)

// captureSigner records every signed decision for assertions.
type captureSigner struct {
	mu      sync.Mutex
	records []*DecisionRecord
	block   chan struct{}
}

func (s *captureSigner) Sign(ctx context.Context, record *DecisionRecord) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	s.records = append(s.records, record)
	s.mu.Unlock()
	return nil
}

func (s *captureSigner) signed() []*DecisionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*DecisionRecord(nil), s.records...)
}

func decisionRecord(id string) *DecisionRecord {
	return &DecisionRecord{
		RequestID:  id,
		Timestamp:  time.Now().UTC(),
		Input:      "input for " + id,
		Verdict:    verdict.VerdictAllow,
		Confidence: 0.9,
	}
}

func TestEmitter_DeliversRecords(t *testing.T) {
	signer := &captureSigner{}
	e, err := NewEmitter(signer, nil, nil)
	if err != nil {
		t.Fatalf("NewEmitter failed: %v", err)
	}

	e.Emit(decisionRecord("r1"))
	e.Emit(decisionRecord("r2"))

	if err := e.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	records := signer.signed()
	if len(records) != 2 {
		t.Fatalf("signed count = %d, want 2", len(records))
	}
	if records[0].RequestID != "r1" || records[1].RequestID != "r2" {
		t.Errorf("unexpected order: %s, %s", records[0].RequestID, records[1].RequestID)
	}
}

func TestEmitter_CloseDrainsPending(t *testing.T) {
	signer := &captureSigner{}
	e, err := NewEmitter(signer, &EmitterConfig{BufferSize: 100, SignTimeout: time.Second}, nil)
	if err != nil {
		t.Fatalf("NewEmitter failed: %v", err)
	}

	for i := 0; i < 50; i++ {
		e.Emit(decisionRecord("r"))
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if got := len(signer.signed()); got != 50 {
		t.Errorf("signed count = %d, want all 50 drained on close", got)
	}
}

func TestEmitter_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	release := make(chan struct{})
	signer := &captureSigner{block: release}
	e, err := NewEmitter(signer, &EmitterConfig{BufferSize: 1, SignTimeout: 5 * time.Second}, nil)
	if err != nil {
		t.Fatalf("NewEmitter failed: %v", err)
	}

	// The first record occupies the worker, the second fills the buffer;
	// everything after must be dropped without blocking.
	for i := 0; i < 10; i++ {
		e.Emit(decisionRecord("r"))
	}

	if e.Dropped() == 0 {
		t.Error("expected dropped records with a full buffer")
	}

	close(release)
	e.Close()
}

func TestEmitter_IgnoresNil(t *testing.T) {
	signer := &captureSigner{}
	e, err := NewEmitter(signer, nil, nil)
	if err != nil {
		t.Fatalf("NewEmitter failed: %v", err)
	}

	e.Emit(nil)
	e.Close()

	if len(signer.signed()) != 0 {
		t.Error("nil records must be ignored")
	}
	if e.Dropped() != 0 {
		t.Error("nil records must not count as dropped")
	}
}

func TestEmitter_RequiresSigner(t *testing.T) {
	if _, err := NewEmitter(nil, nil, nil); err == nil {
		t.Error("expected error for nil signer")
	}
}
