package chunk

import (
	"encoding/binary"
	"math/rand"
	"sync/atomic"

	xxhash "github.com/cespare/xxhash/v2"
)

// randomChunkScheduler emits this replica's chunk assignment in an order
// shuffled at each Reset call
type randomChunkScheduler struct {
	*schedulerBase
	allIndices   []int
	chunkIndices []int
	cursor       int64
}

// CreateRandomChunkScheduler creates a ChunkScheduler which shuffles the
// chunk order at each Reset call. Every replica derives the same shuffle from
// the recorded epoch, then takes its own contiguous slice of the result, so
// rank assignments never overlap (beyond the padding required to give every
// replica an equal number of chunks).
func CreateRandomChunkScheduler(chunkCount int, numReplicas int, rank int) (ChunkScheduler, error) {
	base, err := createSchedulerBase(chunkCount, numReplicas, rank)
	if err != nil {
		return nil, err
	}
	indexCount := chunkCount
	if numReplicas > 1 {
		indexCount = base.localChunkCount * numReplicas
	}
	allIndices := make([]int, indexCount)
	for i := range allIndices {
		// past chunkCount we wrap around, padding the assignment so all
		// replicas see the same number of chunks
		allIndices[i] = i % chunkCount
	}
	s := &randomChunkScheduler{
		schedulerBase: base,
		allIndices:    allIndices,
	}
	s.Reset()
	return s, nil
}

// Next returns the next chunk index to load, or false when this replica's
// slice is exhausted for the current epoch
func (s *randomChunkScheduler) Next() (int, bool) {
	idx := atomic.AddInt64(&s.cursor, 1) - 1
	if idx < int64(len(s.chunkIndices)) {
		return s.chunkIndices[idx], true
	}
	return 0, false
}

// Reset shuffles the underlying chunk sequence with a PRNG seeded from the
// recorded epoch, then slices out this replica's assignment
func (s *randomChunkScheduler) Reset() {
	var seed [8]byte
	binary.LittleEndian.PutUint64(seed[:], uint64(s.epoch))
	rng := rand.New(rand.NewSource(int64(xxhash.Sum64(seed[:]))))
	rng.Shuffle(len(s.allIndices), func(i, j int) {
		s.allIndices[i], s.allIndices[j] = s.allIndices[j], s.allIndices[i]
	})
	begin := s.rank * s.localChunkCount
	s.chunkIndices = append(s.chunkIndices[:0], s.allIndices[begin:begin+s.localChunkCount]...)
	atomic.StoreInt64(&s.cursor, 0)
}
