// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"testing"
)

// positionSet converts match positions to a set for order-independent
// assertions; the matcher reports them in backtrace order.
func positionSet(positions []int) map[int]bool {
	set := make(map[int]bool, len(positions))
	for _, position := range positions {
		set[position] = true
	}
	return set
}

func TestFuzzyMatchPrefix(t *testing.T) {
	slab := NewSlab()

	result := FuzzyMatch("sensor-hub", []rune("sensor"), slab)
	if result.Score <= 0 {
		t.Fatalf("expected a positive score, got %d", result.Score)
	}

	set := positionSet(result.Positions)
	if len(set) != 6 {
		t.Fatalf("expected 6 matched positions, got %v", result.Positions)
	}
	for index := 0; index < 6; index++ {
		if !set[index] {
			t.Errorf("position %d missing from %v", index, result.Positions)
		}
	}
}

func TestFuzzyMatchNonContiguous(t *testing.T) {
	slab := NewSlab()

	// Only one valid subsequence: r(0), b(6), g(10).
	result := FuzzyMatch("radio-bridge", []rune("rbg"), slab)
	if result.Score <= 0 {
		t.Fatalf("expected a positive score, got %d", result.Score)
	}

	set := positionSet(result.Positions)
	for _, want := range []int{0, 6, 10} {
		if !set[want] {
			t.Errorf("position %d missing from %v", want, result.Positions)
		}
	}
	if len(set) != 3 {
		t.Errorf("expected 3 matched positions, got %v", result.Positions)
	}
}

func TestFuzzyMatchCaseInsensitive(t *testing.T) {
	slab := NewSlab()

	tests := []struct {
		name    string
		text    string
		pattern string
	}{
		{"upper pattern lower text", "sensor-hub", "HUB"},
		{"lower pattern upper text", "Sensor-Hub", "hub"},
		{"mixed both", "RaDio-BriDGe", "bridge"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := FuzzyMatch(test.text, []rune(test.pattern), slab)
			if result.Score <= 0 {
				t.Errorf("FuzzyMatch(%q, %q) should match", test.text, test.pattern)
			}
		})
	}
}

func TestFuzzyMatchMiss(t *testing.T) {
	result := FuzzyMatch("blink", []rune("xyz"), NewSlab())
	if result.Score != 0 {
		t.Errorf("score = %d, want 0 for a miss", result.Score)
	}
	if len(result.Positions) != 0 {
		t.Errorf("positions = %v, want none for a miss", result.Positions)
	}
}

func TestFuzzyMatchEmptyInputs(t *testing.T) {
	slab := NewSlab()

	if result := FuzzyMatch("blink", nil, slab); result.Score != 0 {
		t.Errorf("empty pattern should not match, score = %d", result.Score)
	}
	if result := FuzzyMatch("", []rune("abc"), slab); result.Score != 0 {
		t.Errorf("empty text should not match, score = %d", result.Score)
	}
}

func TestFuzzyMatchNilSlab(t *testing.T) {
	result := FuzzyMatch("sensor-hub", []rune("hub"), nil)
	if result.Score <= 0 {
		t.Error("matcher should work without a preallocated slab")
	}
}
