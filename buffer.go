package chunk

import (
	"log"
	"sync"

	"github.com/go-chunk/chunk/errors"
)

// bufferEntry is one unit of the batch queue: either a batch of examples, or
// a failure captured on a preloader goroutine, transported in FIFO position
type bufferEntry[T any] struct {
	batch []T
	err   error
}

// batchBuffer manages a bounded queue of batches. After a preloader loads a
// chunk, pushChunk splits it into batchSize batches and appends them to the
// queue. getBatch pops cached batches for the consumer; if the queue holds
// less than a full batch it either waits for more chunks to arrive or, once
// all chunks are accounted for, drains the tail and reports end-of-epoch.
type batchBuffer[T any] struct {
	lock     sync.Mutex
	readable *sync.Cond
	writable *sync.Cond
	// queue of batches sliced from loaded chunks, oldest first
	queue []bufferEntry[T]
	// count of examples currently stored in the queue
	totalExamplesInQueue int
	// count of chunks still to be accounted for. Every chunk this replica
	// loads decrements it exactly once - whether it contributed batches, was
	// skipped, or carried a failure. Zero means no more data is coming.
	remainingChunkCount int
	batchSize           int
	cacheSize           int
	sampler             ExampleSampler
	stopped             bool
}

// createBatchBuffer creates a batchBuffer expecting remainingChunkCount
// chunks, holding at most cacheSize examples (a single chunk arrival may
// momentarily overshoot, but no second arrival is accepted until drained)
func createBatchBuffer[T any](remainingChunkCount int, batchSize int, cacheSize int, sampler ExampleSampler) *batchBuffer[T] {
	b := &batchBuffer[T]{
		remainingChunkCount: remainingChunkCount,
		batchSize:           batchSize,
		cacheSize:           cacheSize,
		sampler:             sampler,
	}
	b.readable = sync.NewCond(&b.lock)
	b.writable = sync.NewCond(&b.lock)
	return b
}

// pushChunk slices a loaded chunk into batches and appends them to the
// queue, blocking while the queue is at capacity. Called from preloader
// goroutines. If the buffer is stopped mid-wait, the chunk is dropped
// without modifying buffer state.
func (b *batchBuffer[T]) pushChunk(data []T) {
	b.lock.Lock()
	for b.totalExamplesInQueue >= b.cacheSize && !b.stopped {
		b.writable.Wait()
	}
	if b.stopped {
		b.lock.Unlock()
		return
	}

	size := len(data)
	remaining := size
	b.sampler.Reset(size)
	fill := func(count int, batch []T) []T {
		indices, ok := b.sampler.Next(count)
		if !ok || len(indices) != count {
			log.Panicf("example sampler failed to draw %d indices from a chunk of %d", count, size)
		}
		for _, i := range indices {
			if i >= size {
				log.Panicf("example sampler produced index %d for a chunk of %d", i, size)
			}
			batch = append(batch, data[i])
		}
		remaining -= count
		return batch
	}

	// if the queue already ends in a partial batch, top it up first so that
	// every batch the consumer sees, except the last of the epoch, holds
	// exactly batchSize examples. A failure entry is never topped up, so a
	// partial batch queued directly before a failure is delivered short.
	if len(b.queue) > 0 {
		tail := &b.queue[len(b.queue)-1]
		if tail.err == nil && len(tail.batch) < b.batchSize {
			count := remaining
			if deficit := b.batchSize - len(tail.batch); deficit < count {
				count = deficit
			}
			tail.batch = fill(count, tail.batch)
		}
	}
	for remaining > 0 {
		count := remaining
		if b.batchSize < count {
			count = b.batchSize
		}
		b.queue = append(b.queue, bufferEntry[T]{batch: fill(count, make([]T, 0, b.batchSize))})
	}

	b.totalExamplesInQueue += size
	if b.remainingChunkCount <= 0 {
		log.Panicf("chunk pushed after all chunks were accounted for (remaining count %d)", b.remainingChunkCount)
	}
	b.remainingChunkCount--
	b.lock.Unlock()
	b.readable.Broadcast()
}

// pushFailure transports a preloader failure through the queue in FIFO
// position. The failed chunk still counts as one chunk consumed, so epoch
// progress is preserved. Called from preloader goroutines.
func (b *batchBuffer[T]) pushFailure(err error) {
	b.lock.Lock()
	for b.totalExamplesInQueue >= b.cacheSize && !b.stopped {
		b.writable.Wait()
	}
	if b.stopped {
		b.lock.Unlock()
		return
	}
	b.queue = append(b.queue, bufferEntry[T]{err: err})
	if b.remainingChunkCount <= 0 {
		log.Panicf("failure pushed after all chunks were accounted for")
	}
	b.remainingChunkCount--
	b.lock.Unlock()
	b.readable.Broadcast()
}

// skipChunk accounts for an empty chunk without enqueueing anything. Called
// from preloader goroutines.
func (b *batchBuffer[T]) skipChunk() {
	b.lock.Lock()
	if b.remainingChunkCount <= 0 {
		log.Panicf("chunk skipped after all chunks were accounted for")
	}
	b.remainingChunkCount--
	b.lock.Unlock()
	b.readable.Broadcast()
}

// getBatch returns the next batch, blocking until either a full batch is
// available or all chunks are accounted for (which delivers the possibly
// short tail batch, and then a NoMoreBatchesError). A failure entry at the
// head of the queue is returned as a WorkerError. Called from the consumer.
func (b *batchBuffer[T]) getBatch() ([]T, error) {
	b.lock.Lock()
	for b.totalExamplesInQueue < b.batchSize && b.remainingChunkCount != 0 {
		b.readable.Wait()
	}
	if len(b.queue) == 0 {
		if b.remainingChunkCount != 0 {
			log.Panicf("batch queue empty with %d chunks outstanding", b.remainingChunkCount)
		}
		b.lock.Unlock()
		return nil, errors.NoMoreBatchesError{}
	}
	entry := b.queue[0]
	b.queue = b.queue[1:]
	if entry.err != nil {
		b.lock.Unlock()
		return nil, errors.WorkerError{Err: entry.err}
	}
	b.totalExamplesInQueue -= len(entry.batch)
	b.lock.Unlock()
	b.writable.Broadcast()
	return entry.batch, nil
}

// stop wakes all blocked preloaders so they can observe teardown and exit.
// Queued batches are discarded with the buffer itself - a new epoch rebuilds
// the queue from scratch.
func (b *batchBuffer[T]) stop() {
	b.lock.Lock()
	b.stopped = true
	b.lock.Unlock()
	b.writable.Broadcast()
}
