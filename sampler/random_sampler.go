package sampler

import (
	"math/rand"
)

// RandomSampler draws the indices of a chunk's examples in a uniformly
// shuffled order, without replacement. It is not safe for concurrent use -
// the engine guards it with the batch buffer lock.
type RandomSampler struct {
	rng    *rand.Rand
	perm   []int
	cursor int
}

// CreateRandomSampler creates a RandomSampler seeded with the given value.
// Two samplers created with the same seed draw identical index sequences.
func CreateRandomSampler(seed int64) *RandomSampler {
	return &RandomSampler{rng: rand.New(rand.NewSource(seed))}
}

// Reset arms the sampler with a fresh permutation of [0, n)
func (s *RandomSampler) Reset(n int) {
	s.perm = s.rng.Perm(n)
	s.cursor = 0
}

// Next draws the next count indices of the current permutation, or returns
// false if fewer than count indices remain undrawn
func (s *RandomSampler) Next(count int) ([]int, bool) {
	if count > len(s.perm)-s.cursor {
		return nil, false
	}
	indices := s.perm[s.cursor : s.cursor+count]
	s.cursor += count
	return indices, true
}
