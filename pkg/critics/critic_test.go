package critics

import (
	"testing"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()

	err := r.Register(&Registration{
		Critic:   NewKeywordCritic("safety", []string{"bad"}, 0.9),
		Weight:   2.0,
		Category: "harm",
		Critical: true,
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	reg, ok := r.Get("safety")
	if !ok {
		t.Fatal("registered critic not found")
	}
	if reg.Weight != 2.0 || reg.Category != "harm" || !reg.Critical {
		t.Errorf("unexpected registration %+v", reg)
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&Registration{Critic: NewKeywordCritic("dup", nil, 0.9)}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(&Registration{Critic: NewKeywordCritic("dup", nil, 0.9)}); err == nil {
		t.Error("expected error for duplicate name")
	}
}

func TestRegistry_RejectsInvalid(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(nil); err == nil {
		t.Error("expected error for nil registration")
	}
	if err := r.Register(&Registration{}); err == nil {
		t.Error("expected error for nil critic")
	}
	if err := r.Register(&Registration{Critic: NewKeywordCritic("neg", nil, 0.9), Weight: -1}); err == nil {
		t.Error("expected error for negative weight")
	}
}

func TestRegistry_ZeroWeightDefaultsToOne(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&Registration{Critic: NewKeywordCritic("c", nil, 0.9)}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	reg, _ := r.Get("c")
	if reg.Weight != 1.0 {
		t.Errorf("Weight = %v, want default 1.0", reg.Weight)
	}
}

func TestRegistry_AllSortedByName(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := r.Register(&Registration{Critic: NewKeywordCritic(name, nil, 0.9)}); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}

	regs := r.All()
	want := []string{"alpha", "mid", "zeta"}
	for i, name := range want {
		if regs[i].Critic.Name() != name {
			t.Errorf("All()[%d] = %s, want %s", i, regs[i].Critic.Name(), name)
		}
	}
}

func TestRegistry_CriticalNames(t *testing.T) {
	r := NewRegistry()
	r.Register(&Registration{Critic: NewKeywordCritic("b-critical", nil, 0.9), Critical: true})
	r.Register(&Registration{Critic: NewKeywordCritic("a-critical", nil, 0.9), Critical: true})
	r.Register(&Registration{Critic: NewKeywordCritic("normal", nil, 0.9)})

	names := r.CriticalNames()
	if len(names) != 2 || names[0] != "a-critical" || names[1] != "b-critical" {
		t.Errorf("CriticalNames = %v", names)
	}
}

func TestRegistry_UpdateAttributes(t *testing.T) {
	r := NewRegistry()
	r.Register(&Registration{Critic: NewKeywordCritic("c", nil, 0.9), Weight: 1.0})

	if err := r.UpdateAttributes("c", 3.0, true); err != nil {
		t.Fatalf("UpdateAttributes failed: %v", err)
	}
	reg, _ := r.Get("c")
	if reg.Weight != 3.0 || !reg.Critical {
		t.Errorf("registration not updated: %+v", reg)
	}

	// Zero weight leaves the existing weight in place.
	if err := r.UpdateAttributes("c", 0, false); err != nil {
		t.Fatalf("UpdateAttributes failed: %v", err)
	}
	reg, _ = r.Get("c")
	if reg.Weight != 3.0 || reg.Critical {
		t.Errorf("zero weight should not overwrite: %+v", reg)
	}

	if err := r.UpdateAttributes("missing", 1.0, false); err == nil {
		t.Error("expected error for unknown critic")
	}
}
