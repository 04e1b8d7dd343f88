package precedent

import (
	"time"

	"mercator-hq/minos/pkg/verdict"
)

// Precedent is an immutable stored decision. Records are only referenced or
// deleted after creation; callers receive copies, never the stored instance.
type Precedent struct {
	// ID is the precedent's unique identifier (UUID).
	ID string `json:"id"`

	// RequestID links the precedent to the originating decision request.
	RequestID string `json:"request_id"`

	// InputText is the judged input.
	InputText string `json:"input_text"`

	// ContextHash is the canonical SHA-256 hash of (input text, context).
	// Deduplication and exact-match search key off this field.
	ContextHash string `json:"input_context_hash"`

	// Context holds the request context attributes present at decision
	// time. Quasi-identifying attributes here (location, age, user role)
	// are generalized by the privacy bundler before export.
	Context map[string]string `json:"context,omitempty"`

	// Verdict is the finalized decision.
	Verdict verdict.Verdict `json:"verdict"`

	// Confidence is the decision confidence at storage time.
	Confidence float64 `json:"confidence"`

	// Embedding is the input's embedding vector, nil when no embedding
	// provider is configured.
	Embedding []float32 `json:"embedding,omitempty"`

	// EmbeddingModel names the model that produced the embedding.
	EmbeddingModel string `json:"embedding_model,omitempty"`

	// Timestamp is the decision time.
	Timestamp time.Time `json:"timestamp"`

	// References are weighted similarity edges to other precedents,
	// recorded after the fact.
	References []Reference `json:"references,omitempty"`

	// CriticOutputs are the per-critic reports behind the decision,
	// ordered by critic name. Loaded by Get and GetByHash; Query omits
	// them.
	CriticOutputs []CriticOutput `json:"critic_outputs,omitempty"`
}

// Reference is a weighted graph edge between two precedents. It records
// discovered similarity, not ownership.
type Reference struct {
	// ReferencedID is the target precedent.
	ReferencedID string `json:"precedent_id"`

	// Similarity is the recorded similarity score.
	Similarity float64 `json:"similarity"`

	// Type classifies the edge (e.g. "semantic", "exact", "manual").
	Type string `json:"type,omitempty"`
}

// CriticOutput is the per-critic report persisted alongside a precedent.
type CriticOutput struct {
	// PrecedentID is the owning precedent.
	PrecedentID string `json:"precedent_id"`

	// CriticName identifies the critic.
	CriticName string `json:"critic_name"`

	// Verdict is the critic's individual verdict.
	Verdict verdict.Verdict `json:"verdict"`

	// Confidence is the critic's confidence.
	Confidence float64 `json:"confidence"`

	// Justification is the critic's reasoning.
	Justification string `json:"justification,omitempty"`

	// AppliedWeight is the effective weight aggregation used.
	AppliedWeight float64 `json:"applied_weight,omitempty"`
}

// Query filters precedent reads. Zero-valued fields are ignored.
type Query struct {
	// Verdict filters by finalized verdict.
	Verdict verdict.Verdict

	// MinConfidence filters out precedents below this confidence.
	MinConfidence float64

	// Since filters out precedents older than this time.
	Since time.Time

	// Until filters out precedents newer than this time.
	Until time.Time

	// Limit caps the result count. 0 means the backend default.
	Limit int

	// Offset skips the first N results.
	Offset int
}

// Clone returns a deep copy of the precedent. Storage backends hand out
// clones so callers can never mutate the stored record.
func (p *Precedent) Clone() *Precedent {
	cp := *p
	if p.Context != nil {
		cp.Context = make(map[string]string, len(p.Context))
		for k, v := range p.Context {
			cp.Context[k] = v
		}
	}
	if p.Embedding != nil {
		cp.Embedding = make([]float32, len(p.Embedding))
		copy(cp.Embedding, p.Embedding)
	}
	if p.References != nil {
		cp.References = make([]Reference, len(p.References))
		copy(cp.References, p.References)
	}
	if p.CriticOutputs != nil {
		cp.CriticOutputs = make([]CriticOutput, len(p.CriticOutputs))
		copy(cp.CriticOutputs, p.CriticOutputs)
	}
	return &cp
}
