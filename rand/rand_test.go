// rand/rand_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package rand

import (
	"testing"
)

func TestSeededDeterminism(t *testing.T) {
	a, b := NewSeeded(42), NewSeeded(42)
	for i := range 100 {
		if x, y := a.Uint32(), b.Uint32(); x != y {
			t.Fatalf("%d: generators with the same seed diverged: %d vs %d", i, x, y)
		}
	}
}

func TestRange(t *testing.T) {
	r := NewSeeded(7)
	for range 1000 {
		if v := r.Range(-3, 5); v < -3 || v > 5 {
			t.Errorf("Range(-3, 5) gave %f", v)
		}
	}
}

func TestSign(t *testing.T) {
	r := NewSeeded(1)
	counts := map[int]int{}
	for range 1000 {
		counts[r.Sign()]++
	}
	if len(counts) != 2 || counts[-1] < 350 || counts[1] < 350 {
		t.Errorf("unexpected distribution of signs: %v", counts)
	}
}

func TestSampleSlice(t *testing.T) {
	r := NewSeeded(3)
	s := []string{"a", "b", "c"}
	seen := map[string]bool{}
	for range 100 {
		seen[SampleSlice(&r, s)] = true
	}
	if len(seen) != 3 {
		t.Errorf("expected all elements to be sampled, got %v", seen)
	}
}
