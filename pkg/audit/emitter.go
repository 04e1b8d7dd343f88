package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/minos/pkg/verdict"
)

// DecisionRecord is the audit trail entry for one finalized decision.
type DecisionRecord struct {
	// RequestID identifies the originating request.
	RequestID string `json:"request_id"`

	// Timestamp is the decision time.
	Timestamp time.Time `json:"timestamp"`

	// Input is the judged input text.
	Input string `json:"input"`

	// Verdict is the finalized decision.
	Verdict verdict.Verdict `json:"verdict"`

	// Confidence is the decision confidence.
	Confidence float64 `json:"confidence"`

	// Evidence carries the per-critic reports behind the decision.
	Evidence []*verdict.EvaluatorReport `json:"evidence,omitempty"`

	// FallbackTrigger is set when the decision came from the fallback
	// path.
	FallbackTrigger string `json:"fallback_trigger,omitempty"`
}

// Signer persists and signs decision records. Implementations are out of
// scope for the engine; a signer failure is logged and never propagates into
// the decision path.
type Signer interface {
	// Sign persists one decision record.
	Sign(ctx context.Context, record *DecisionRecord) error
}

// EmitterConfig contains configuration for the async emitter.
type EmitterConfig struct {
	// BufferSize bounds the pending record queue.
	// Default: 1000
	BufferSize int `yaml:"buffer_size"`

	// SignTimeout bounds each Sign call.
	// Default: 5s
	SignTimeout time.Duration `yaml:"sign_timeout"`
}

// DefaultEmitterConfig returns the default emitter configuration.
func DefaultEmitterConfig() *EmitterConfig {
	return &EmitterConfig{
		BufferSize:  1000,
		SignTimeout: 5 * time.Second,
	}
}

// Emitter delivers decision records to the signer asynchronously.
type Emitter struct {
	signer  Signer
	config  *EmitterConfig
	logger  *slog.Logger
	records chan *DecisionRecord
	dropped atomic.Int64
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewEmitter creates and starts an emitter.
func NewEmitter(signer Signer, config *EmitterConfig, logger *slog.Logger) (*Emitter, error) {
	if signer == nil {
		return nil, fmt.Errorf("signer cannot be nil")
	}
	if config == nil {
		config = DefaultEmitterConfig()
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 1000
	}
	if config.SignTimeout <= 0 {
		config.SignTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default().With("component", "audit.emitter")
	}

	e := &Emitter{
		signer:  signer,
		config:  config,
		logger:  logger,
		records: make(chan *DecisionRecord, config.BufferSize),
		stopCh:  make(chan struct{}),
	}

	e.wg.Add(1)
	go e.run()

	return e, nil
}

// Emit queues a record for signing. A full buffer drops the record rather
// than blocking the decision path.
func (e *Emitter) Emit(record *DecisionRecord) {
	if record == nil {
		return
	}
	select {
	case e.records <- record:
	default:
		n := e.dropped.Add(1)
		e.logger.Warn("audit buffer full, record dropped",
			"request_id", record.RequestID,
			"total_dropped", n,
		)
	}
}

// Dropped returns the number of records dropped due to buffer overflow.
func (e *Emitter) Dropped() int64 {
	return e.dropped.Load()
}

// Close drains pending records and stops the emitter.
func (e *Emitter) Close() error {
	close(e.stopCh)
	e.wg.Wait()
	return nil
}

// run delivers queued records until stopped, then drains the remainder.
func (e *Emitter) run() {
	defer e.wg.Done()

	for {
		select {
		case record := <-e.records:
			e.sign(record)
		case <-e.stopCh:
			for {
				select {
				case record := <-e.records:
					e.sign(record)
				default:
					return
				}
			}
		}
	}
}

func (e *Emitter) sign(record *DecisionRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), e.config.SignTimeout)
	defer cancel()

	if err := e.signer.Sign(ctx, record); err != nil {
		e.logger.Error("failed to sign decision record",
			"request_id", record.RequestID,
			"error", err,
		)
	}
}
