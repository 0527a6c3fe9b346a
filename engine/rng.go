package engine

import "math/rand"

// countingSource counts draws from the underlying source so the exact
// stream position can be restored, whatever the draws were used for.
type countingSource struct {
	src rand.Source
	n   int64
}

func (s *countingSource) Int63() int64 {
	s.n++
	return s.src.Int63()
}

func (s *countingSource) Seed(seed int64) {
	s.src.Seed(seed)
	s.n = 0
}

// RNG wraps math/rand.Rand with deterministic position tracking.
// Position counts source draws, enabling save/restore.
type RNG struct {
	seed int64
	src  *countingSource
	rnd  *rand.Rand
}

// NewRNG creates a new deterministic RNG from a seed.
func NewRNG(seed int64) *RNG {
	src := &countingSource{src: rand.NewSource(seed)}
	return &RNG{seed: seed, src: src, rnd: rand.New(src)}
}

// Roll returns a random integer in [1, sides].
func (r *RNG) Roll(sides int) int {
	if sides <= 1 {
		return 1
	}
	return r.rnd.Intn(sides) + 1
}

// Seed returns the seed the RNG was created with.
func (r *RNG) Seed() int64 { return r.seed }

// Position returns the number of source draws made since creation.
func (r *RNG) Position() int64 { return r.src.n }

// RestoreRNG creates an RNG and advances it to the given position.
// This reproduces the exact RNG state for save/load.
func RestoreRNG(seed int64, position int64) *RNG {
	rng := NewRNG(seed)
	for i := int64(0); i < position; i++ {
		rng.src.Int63()
	}
	return rng
}
