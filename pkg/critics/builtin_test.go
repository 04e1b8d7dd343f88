package critics

import (
	"context"
	"strings"
	"testing"

	"mercator-hq/minos/pkg/verdict"
)

func TestKeywordCritic_Evaluate(t *testing.T) {
	c := NewKeywordCritic("kw", []string{"DROP TABLE", "rm -rf"}, 0.95)

	tests := []struct {
		name string
		text string
		want verdict.Verdict
	}{
		{"blocked keyword", "please DROP TABLE users", verdict.VerdictBlock},
		{"case insensitive", "please drop table users", verdict.VerdictBlock},
		{"keyword inside word run", "x rm -rf / y", verdict.VerdictBlock},
		{"clean input", "summarize this report", verdict.VerdictAllow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := c.Evaluate(context.Background(), &Input{Text: tt.text})
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}
			if report.Verdict != tt.want {
				t.Errorf("Verdict = %v, want %v", report.Verdict, tt.want)
			}
			if report.Confidence != 0.95 {
				t.Errorf("Confidence = %v, want 0.95", report.Confidence)
			}
			if report.CriticName != "kw" {
				t.Errorf("CriticName = %q", report.CriticName)
			}
		})
	}
}

func TestKeywordCritic_InvalidConfidenceDefaults(t *testing.T) {
	c := NewKeywordCritic("kw", nil, 1.5)

	report, err := c.Evaluate(context.Background(), &Input{Text: "anything"})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if report.Confidence != 0.9 {
		t.Errorf("Confidence = %v, want default 0.9", report.Confidence)
	}
}

func TestKeywordCritic_CancelledContext(t *testing.T) {
	c := NewKeywordCritic("kw", []string{"x"}, 0.9)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Evaluate(ctx, &Input{Text: "x"}); err == nil {
		t.Error("expected context error")
	}
}

func TestLengthCritic_Evaluate(t *testing.T) {
	c := NewLengthCritic("len", 10)

	report, err := c.Evaluate(context.Background(), &Input{Text: "short"})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if report.Verdict != verdict.VerdictAllow {
		t.Errorf("Verdict = %v, want ALLOW", report.Verdict)
	}

	report, err = c.Evaluate(context.Background(), &Input{Text: strings.Repeat("a", 11)})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if report.Verdict != verdict.VerdictReview {
		t.Errorf("Verdict = %v, want REVIEW for oversized input", report.Verdict)
	}
	if report.Confidence != 0.7 {
		t.Errorf("Confidence = %v, want 0.7", report.Confidence)
	}
}
