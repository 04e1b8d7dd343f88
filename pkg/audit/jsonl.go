package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// JSONLSigner appends decision records to an append-only JSON Lines file.
// Each line carries a content digest chained to the previous line's digest,
// so any in-place edit breaks the chain.
type JSONLSigner struct {
	mu       sync.Mutex
	file     *os.File
	prevHash string
}

type signedLine struct {
	Record   *DecisionRecord `json:"record"`
	PrevHash string          `json:"prev_hash,omitempty"`
	Hash     string          `json:"hash"`
}

// NewJSONLSigner opens (or creates) the audit trail file for appending.
func NewJSONLSigner(path string) (*JSONLSigner, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open audit trail %q: %w", path, err)
	}
	return &JSONLSigner{file: f}, nil
}

// Sign appends one chained record line.
func (s *JSONLSigner) Sign(_ context.Context, record *DecisionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	sum := sha256.Sum256(append(payload, []byte(s.prevHash)...))
	line := signedLine{
		Record:   record,
		PrevHash: s.prevHash,
		Hash:     hex.EncodeToString(sum[:]),
	}

	data, err := json.Marshal(&line)
	if err != nil {
		return fmt.Errorf("marshal audit line: %w", err)
	}
	if _, err := s.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append audit line: %w", err)
	}

	s.prevHash = line.Hash
	return nil
}

// Close closes the underlying file.
func (s *JSONLSigner) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
