package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 1000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Fatalf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Fatalf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}
}

func TestParseRunID(t *testing.T) {
	tests := []struct {
		input    string
		hasError bool
	}{
		{"run-1", false},
		{"", true},
		{"   ", true},
	}
	for _, tt := range tests {
		_, err := ParseRunID(tt.input)
		if (err != nil) != tt.hasError {
			t.Errorf("ParseRunID(%q) error = %v, wantErr %v", tt.input, err, tt.hasError)
		}
	}
}

func TestComputeFamilyIDStable(t *testing.T) {
	a := ComputeFamilyID("comprehensive", "linear", "all_phrases")
	b := ComputeFamilyID("comprehensive", "linear", "all_phrases")
	c := ComputeFamilyID("comprehensive", "quadratic", "all_phrases")

	if a != b {
		t.Errorf("expected identical keys to hash equally: %s vs %s", a, b)
	}
	if a == c {
		t.Errorf("expected different keys to hash differently")
	}
	if len(a) != 12 {
		t.Errorf("expected 12 character family id, got %d", len(a))
	}
}

func TestIsNotConverged(t *testing.T) {
	if !IsNotConverged(fmt.Errorf("exponential: %w", ErrNotConverged)) {
		t.Error("wrapped non-convergence should match")
	}
	if IsNotConverged(ErrDegenerate) {
		t.Error("degenerate input is not a convergence failure")
	}
	if IsNotConverged(errors.New("disk full")) {
		t.Error("arbitrary errors must not match")
	}
}
