package critics

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"mercator-hq/minos/pkg/verdict"
)

// Input is the request under judgment.
type Input struct {
	// RequestID identifies the originating request.
	RequestID string

	// Text is the content being judged.
	Text string

	// Context holds request context attributes (user role, location, ...).
	Context map[string]string
}

// Critic is the fixed evaluator interface. Implementations judge one input
// and return a report; returning an error (or panicking) is converted by the
// pool into an ERROR report.
type Critic interface {
	// Name identifies the critic. Must be unique within a registry.
	Name() string

	// Evaluate judges the input. Implementations must honor ctx
	// cancellation.
	Evaluate(ctx context.Context, input *Input) (*verdict.EvaluatorReport, error)
}

// Registration couples a critic with its aggregation attributes from static
// configuration.
type Registration struct {
	Critic Critic

	// Weight is the critic's base aggregation weight.
	Weight float64

	// Category classifies the critic for moral-mode weighting.
	Category string

	// Priority is the optional priority tag ("override").
	Priority string

	// Critical marks the critic for the CRITICAL_CRITIC_FAILED fallback
	// trigger.
	Critical bool
}

// Registry is the explicit registration table of critics. Registration
// happens at startup; lookups are safe for concurrent use afterward.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Registration)}
}

// Register adds a critic. Duplicate names are rejected.
func (r *Registry) Register(reg *Registration) error {
	if reg == nil || reg.Critic == nil {
		return fmt.Errorf("registration requires a critic")
	}
	name := reg.Critic.Name()
	if name == "" {
		return fmt.Errorf("critic name cannot be empty")
	}
	if reg.Weight == 0 {
		reg.Weight = 1.0
	}
	if reg.Weight < 0 {
		return fmt.Errorf("critic %q has negative weight %v", name, reg.Weight)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("critic %q already registered", name)
	}
	r.entries[name] = reg
	return nil
}

// Get returns the registration for a critic name.
func (r *Registry) Get(name string) (*Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[name]
	return reg, ok
}

// All returns registrations sorted by critic name for deterministic
// iteration.
func (r *Registry) All() []*Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	regs := make([]*Registration, 0, len(r.entries))
	for _, reg := range r.entries {
		regs = append(regs, reg)
	}
	sort.Slice(regs, func(i, j int) bool {
		return regs[i].Critic.Name() < regs[j].Critic.Name()
	})
	return regs
}

// CriticalNames returns the names of critics marked critical, for the
// fallback engine's trigger configuration.
func (r *Registry) CriticalNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for name, reg := range r.entries {
		if reg.Critical {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// UpdateAttributes adjusts a critic's weight and criticality at runtime.
// Used by the config watcher; the critic implementation itself is unchanged.
func (r *Registry) UpdateAttributes(name string, weight float64, critical bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.entries[name]
	if !ok {
		return fmt.Errorf("critic %q not registered", name)
	}
	if weight > 0 {
		reg.Weight = weight
	}
	reg.Critical = critical
	return nil
}

// Len returns the number of registered critics.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
