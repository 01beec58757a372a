package noop

import (
	"context"
	"testing"

	"crypto-autotrade/internal/decision"
	"crypto-autotrade/internal/types"
)

func TestNoopDecodesToHold(t *testing.T) {
	out, err := New().Complete(context.Background(), "sys", "user")
	if err != nil {
		t.Fatal(err)
	}
	intent, err := decision.ParseIntent(out)
	if err != nil {
		t.Fatalf("Expected parseable response, got %v", err)
	}
	if intent.Decision != types.DecisionHold || intent.ConfidenceScore != 0 {
		t.Errorf("Expected zero-confidence hold, got %+v", intent)
	}
}
