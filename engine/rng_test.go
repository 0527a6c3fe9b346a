package engine

import "testing"

func TestRNG_Deterministic(t *testing.T) {
	rng1 := NewRNG(42)
	rng2 := NewRNG(42)

	for i := 0; i < 20; i++ {
		a := rng1.Roll(100)
		b := rng2.Roll(100)
		if a != b {
			t.Fatalf("roll %d: got %d and %d from same seed", i, a, b)
		}
	}
}

func TestRNG_Roll_Range(t *testing.T) {
	rng := NewRNG(99)

	for i := 0; i < 1000; i++ {
		r := rng.Roll(6)
		if r < 1 || r > 6 {
			t.Fatalf("roll out of range [1,6]: got %d", r)
		}
	}
}

func TestRNG_Roll_OneSided(t *testing.T) {
	rng := NewRNG(1)

	for i := 0; i < 10; i++ {
		if r := rng.Roll(1); r != 1 {
			t.Fatalf("1-sided die should always be 1, got %d", r)
		}
	}
	if rng.Position() != 0 {
		t.Errorf("1-sided rolls should not draw, position %d", rng.Position())
	}
}

func TestRNG_Position_Tracks(t *testing.T) {
	rng := NewRNG(42)

	if rng.Position() != 0 {
		t.Fatalf("expected position 0, got %d", rng.Position())
	}

	rng.Roll(64)
	if rng.Position() != 1 {
		t.Fatalf("expected position 1, got %d", rng.Position())
	}

	before := rng.Position()
	rng.Roll(100)
	if rng.Position() <= before {
		t.Fatalf("position did not advance: %d", rng.Position())
	}
}

func TestRNG_Restore_MatchesPosition(t *testing.T) {
	rng := NewRNG(42)
	for i := 0; i < 10; i++ {
		rng.Roll(100)
	}
	pos := rng.Position()

	var expected [5]int
	for i := range expected {
		expected[i] = rng.Roll(100)
	}

	restored := RestoreRNG(42, pos)
	if restored.Position() != pos {
		t.Fatalf("expected position %d, got %d", pos, restored.Position())
	}
	if restored.Seed() != 42 {
		t.Fatalf("expected seed 42, got %d", restored.Seed())
	}

	for i, want := range expected {
		got := restored.Roll(100)
		if got != want {
			t.Fatalf("roll %d: expected %d, got %d", i, want, got)
		}
	}
}

func TestRNG_DifferentSeeds_DifferentResults(t *testing.T) {
	rng1 := NewRNG(1)
	rng2 := NewRNG(2)

	differs := false
	for i := 0; i < 20; i++ {
		if rng1.Roll(100) != rng2.Roll(100) {
			differs = true
			break
		}
	}
	if !differs {
		t.Error("expected different seeds to produce different results")
	}
}
