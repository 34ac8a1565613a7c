package sampler

// SequentialSampler draws the indices of a chunk's examples in their natural
// order, preserving the order in which the reader produced them
type SequentialSampler struct {
	size   int
	cursor int
}

// CreateSequentialSampler creates a SequentialSampler
func CreateSequentialSampler() *SequentialSampler {
	return &SequentialSampler{}
}

// Reset arms the sampler to draw [0, n) in order
func (s *SequentialSampler) Reset(n int) {
	s.size = n
	s.cursor = 0
}

// Next draws the next count indices in ascending order, or returns false if
// fewer than count indices remain undrawn
func (s *SequentialSampler) Next(count int) ([]int, bool) {
	if count > s.size-s.cursor {
		return nil, false
	}
	indices := make([]int, count)
	for i := range indices {
		indices[i] = s.cursor + i
	}
	s.cursor += count
	return indices, true
}
