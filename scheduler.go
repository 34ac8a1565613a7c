package chunk

import (
	"github.com/go-chunk/chunk/errors"
)

// ChunkScheduler produces the stream of chunk indices a single replica will
// load during one epoch, and defines their order. In a distributed setting it
// selects a subset of the chunks depending on the configured number of
// replicas and this replica's rank.
type ChunkScheduler interface {
	// Next returns the next chunk index to load, or false when this
	// replica's assignment is exhausted for the current epoch. Next is safe
	// to call concurrently from multiple preloader goroutines.
	Next() (int, bool)
	// Reset reinitializes the scheduler for a new enumeration of chunks.
	// Implementations may use the recorded epoch to derive shuffling.
	Reset()
	// SetEpoch records the epoch prior to Reset, altering chunk selection
	// and shuffling behaviour
	SetEpoch(epoch int)
	// LocalChunkCount returns the number of chunks this replica loads per
	// epoch. In distributed training this differs from the reader's total
	// chunk count, as each replica loads only a subset of chunks.
	LocalChunkCount() int
}

// schedulerBase carries the replica arithmetic shared by all ChunkSchedulers
type schedulerBase struct {
	chunkCount      int
	numReplicas     int
	rank            int
	epoch           int
	localChunkCount int
}

func createSchedulerBase(chunkCount int, numReplicas int, rank int) (*schedulerBase, error) {
	if chunkCount < 0 {
		return nil, errors.InvalidChunkCountError{ChunkCount: chunkCount}
	}
	if numReplicas < 1 || rank < 0 || rank >= numReplicas {
		return nil, errors.InvalidReplicaConfigError{NumReplicas: numReplicas, Rank: rank}
	}
	return &schedulerBase{
		chunkCount:      chunkCount,
		numReplicas:     numReplicas,
		rank:            rank,
		localChunkCount: (chunkCount + numReplicas - 1) / numReplicas,
	}, nil
}

// SetEpoch records the epoch prior to Reset
func (s *schedulerBase) SetEpoch(epoch int) {
	s.epoch = epoch
}

// LocalChunkCount returns the number of chunks this replica loads per epoch
func (s *schedulerBase) LocalChunkCount() int {
	return s.localChunkCount
}
