package chunk

import (
	"sync/atomic"
)

// sequentialChunkScheduler emits this replica's chunk assignment in ascending
// index order
type sequentialChunkScheduler struct {
	*schedulerBase
	begin  int64
	end    int64
	cursor int64
}

// CreateSequentialChunkScheduler creates a ChunkScheduler which emits chunk
// indices in ascending order. Each replica emits the contiguous range
// [rank*localChunkCount, (rank+1)*localChunkCount), taken modulo the chunk
// count so that all replicas see the same number of chunks.
func CreateSequentialChunkScheduler(chunkCount int, numReplicas int, rank int) (ChunkScheduler, error) {
	base, err := createSchedulerBase(chunkCount, numReplicas, rank)
	if err != nil {
		return nil, err
	}
	begin := int64(rank * base.localChunkCount)
	s := &sequentialChunkScheduler{
		schedulerBase: base,
		begin:         begin,
		end:           begin + int64(base.localChunkCount),
		cursor:        begin,
	}
	return s, nil
}

// Next returns the next chunk index to load, or false when this replica's
// range is exhausted for the current epoch
func (s *sequentialChunkScheduler) Next() (int, bool) {
	idx := atomic.AddInt64(&s.cursor, 1) - 1
	if idx < s.end {
		return int(idx % int64(s.chunkCount)), true
	}
	return 0, false
}

// Reset rewinds the cursor to the beginning of this replica's range
func (s *sequentialChunkScheduler) Reset() {
	atomic.StoreInt64(&s.cursor, s.begin)
}
