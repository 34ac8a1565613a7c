package stats

import (
	"sync"
	"sync/atomic"
	"time"
)

// RunStatistics contains statistics about a running chunk-loading pipeline.
// Counters are updated from preloader goroutines and the consumer
// concurrently.
type RunStatistics struct {
	startLock sync.Mutex
	started   bool
	startTime time.Time

	epochs            int64
	chunksLoaded      int64
	chunksSkipped     int64
	chunksFailed      int64
	batchesDelivered  int64
	examplesDelivered int64
}

// StartEpoch triggers statistics tracking, if it hasn't been started
// already, and counts the new epoch
func (rs *RunStatistics) StartEpoch() {
	rs.startLock.Lock()
	if !rs.started {
		rs.started = true
		rs.startTime = time.Now()
	}
	rs.startLock.Unlock()
	atomic.AddInt64(&rs.epochs, 1)
}

// ChunkLoaded counts a successfully loaded chunk
func (rs *RunStatistics) ChunkLoaded() {
	atomic.AddInt64(&rs.chunksLoaded, 1)
}

// ChunkSkipped counts an empty chunk
func (rs *RunStatistics) ChunkSkipped() {
	atomic.AddInt64(&rs.chunksSkipped, 1)
}

// ChunkFailed counts a chunk whose load failed
func (rs *RunStatistics) ChunkFailed() {
	atomic.AddInt64(&rs.chunksFailed, 1)
}

// BatchDelivered counts a batch handed to the consumer, along with the
// number of examples it held
func (rs *RunStatistics) BatchDelivered(exampleCount int) {
	atomic.AddInt64(&rs.batchesDelivered, 1)
	atomic.AddInt64(&rs.examplesDelivered, int64(exampleCount))
}

// GetStartTime returns the time at which the first epoch was started
func (rs *RunStatistics) GetStartTime() time.Time {
	rs.startLock.Lock()
	defer rs.startLock.Unlock()
	return rs.startTime
}

// GetRuntime returns the time elapsed since the first epoch was started
func (rs *RunStatistics) GetRuntime() time.Duration {
	rs.startLock.Lock()
	defer rs.startLock.Unlock()
	if !rs.started {
		return 0
	}
	return time.Since(rs.startTime)
}

// GetNumEpochs returns the number of epochs started so far
func (rs *RunStatistics) GetNumEpochs() int64 {
	return atomic.LoadInt64(&rs.epochs)
}

// GetNumChunksLoaded returns the number of chunks successfully loaded so far
func (rs *RunStatistics) GetNumChunksLoaded() int64 {
	return atomic.LoadInt64(&rs.chunksLoaded)
}

// GetNumChunksSkipped returns the number of empty chunks skipped so far
func (rs *RunStatistics) GetNumChunksSkipped() int64 {
	return atomic.LoadInt64(&rs.chunksSkipped)
}

// GetNumChunksFailed returns the number of chunk loads which failed so far
func (rs *RunStatistics) GetNumChunksFailed() int64 {
	return atomic.LoadInt64(&rs.chunksFailed)
}

// GetNumBatchesDelivered returns the number of batches returned from
// GetBatch so far
func (rs *RunStatistics) GetNumBatchesDelivered() int64 {
	return atomic.LoadInt64(&rs.batchesDelivered)
}

// GetNumExamplesDelivered returns the number of examples returned from
// GetBatch so far
func (rs *RunStatistics) GetNumExamplesDelivered() int64 {
	return atomic.LoadInt64(&rs.examplesDelivered)
}
