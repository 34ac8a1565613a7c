package chunk

import "time"

// RuntimeStatistics facilitates the retrieval of statistics about a running
// ChunkDataset
type RuntimeStatistics interface {
	// GetStartTime returns the time at which the first epoch was started
	GetStartTime() time.Time
	// GetRuntime returns the time elapsed since the first epoch was started
	GetRuntime() time.Duration
	// GetNumEpochs returns the number of epochs started so far
	GetNumEpochs() int64
	// GetNumChunksLoaded returns the number of chunks successfully loaded so far
	GetNumChunksLoaded() int64
	// GetNumChunksSkipped returns the number of empty chunks skipped so far
	GetNumChunksSkipped() int64
	// GetNumChunksFailed returns the number of chunk loads which failed so far
	GetNumChunksFailed() int64
	// GetNumBatchesDelivered returns the number of batches returned from GetBatch so far
	GetNumBatchesDelivered() int64
	// GetNumExamplesDelivered returns the number of examples returned from GetBatch so far
	GetNumExamplesDelivered() int64
}
