package chunk

import (
	"log"
	"sync"
	"sync/atomic"

	uuid "github.com/gofrs/uuid"

	"github.com/go-chunk/chunk/errors"
	"github.com/go-chunk/chunk/internal/stats"
	"github.com/go-chunk/chunk/logging"
)

// ChunkDataset is a stateful dataset supporting hierarchical sampling and
// prefetching of entire chunks. Two samplers cooperate: the ChunkScheduler
// selects which chunk each preloader loads next, while the ExampleSampler
// determines the order of examples within each batch.
//
// A ChunkDataset spawns no goroutines until Reset is called, and Close (or a
// subsequent Reset) joins them deterministically. Reset starts an epoch;
// GetBatch dequeues until it returns a NoMoreBatchesError, which marks the
// end of the epoch.
type ChunkDataset[T any] struct {
	reader    ChunkReader[T]
	sampler   ExampleSampler
	scheduler ChunkScheduler
	options   *ChunkDatasetOptions
	buffer    *batchBuffer[T]
	workers   sync.WaitGroup
	// non-zero when preloaders should wind down
	quitWorker int32
	// identifies the current epoch in log messages
	epochID string
	stats   stats.RunStatistics
}

// CreateChunkDataset creates a ChunkDataset from a reader, an example
// sampler, a chunk scheduler and validated options. No goroutines are
// spawned until Reset is called.
func CreateChunkDataset[T any](reader ChunkReader[T], sampler ExampleSampler, scheduler ChunkScheduler, options *ChunkDatasetOptions) (*ChunkDataset[T], error) {
	if err := options.validate(); err != nil {
		return nil, err
	}
	return &ChunkDataset[T]{
		reader:    reader,
		sampler:   sampler,
		scheduler: scheduler,
		options:   options,
	}, nil
}

// Reset clears any internal state and starts the prefetching machinery for a
// new epoch: existing preloaders are terminated and joined, the reader and
// scheduler are reset, queued batches from the previous epoch are discarded,
// and a fresh pool of preloaders is spawned.
func (d *ChunkDataset[T]) Reset() error {
	d.freeWorkers()

	if err := d.reader.Reset(); err != nil {
		return err
	}
	d.scheduler.Reset()

	id, err := uuid.NewV4()
	if err != nil {
		log.Fatalf("failed to generate UUID for epoch: %v", err)
	}
	d.epochID = id.String()

	// the scheduler holds the truth about how many chunks this replica
	// loads - in distributed training it differs from the reader's total
	d.buffer = createBatchBuffer[T](d.scheduler.LocalChunkCount(), d.options.BatchSize, d.options.CacheSize, d.sampler)

	atomic.StoreInt32(&d.quitWorker, 0)
	for i := 0; i < d.options.PreloaderCount; i++ {
		d.workers.Add(1)
		go d.preloader(i)
	}
	d.stats.StartEpoch()
	logging.Logf(logging.DebugLevel, "epoch %s: started %d preloader(s) for %d chunk(s)", d.epochID, d.options.PreloaderCount, d.scheduler.LocalChunkCount())
	return nil
}

// preloader runs on a worker goroutine, pulling chunk indices from the
// scheduler and pushing loaded data into the buffer until the scheduler is
// exhausted or teardown is requested
func (d *ChunkDataset[T]) preloader(id int) {
	defer d.workers.Done()
	for atomic.LoadInt32(&d.quitWorker) == 0 {
		chunkIndex, ok := d.scheduler.Next()
		if !ok {
			break
		}
		data, err := d.reader.ReadChunk(chunkIndex)
		if err != nil {
			logging.Logf(logging.ErrorLevel, "epoch %s: preloader %d failed to read chunk %d: %v", d.epochID, id, chunkIndex, err)
			d.stats.ChunkFailed()
			d.buffer.pushFailure(err)
			continue
		}
		if len(data) == 0 {
			d.stats.ChunkSkipped()
			d.buffer.skipChunk()
			continue
		}
		d.stats.ChunkLoaded()
		d.buffer.pushChunk(data)
	}
}

// GetBatch returns the next batch of exactly batchSize examples, blocking
// until one is available. The final batch of an epoch, and a batch queued
// directly before a reader failure, may be shorter; once
// the epoch is exhausted GetBatch returns a NoMoreBatchesError. A failure
// raised by the reader on a preloader goroutine is returned, wrapped in a
// WorkerError, in the FIFO position at which the chunk finished loading.
//
// The requested batchSize must match the configured ChunkDatasetOptions.
func (d *ChunkDataset[T]) GetBatch(batchSize int) ([]T, error) {
	if d.buffer == nil {
		return nil, errors.NotResetError{}
	}
	if batchSize != d.options.BatchSize {
		return nil, errors.BatchSizeMismatchError{Requested: batchSize, Configured: d.options.BatchSize}
	}
	batch, err := d.buffer.getBatch()
	if err != nil {
		return nil, err
	}
	d.stats.BatchDelivered(len(batch))
	return batch, nil
}

// Size returns false: a ChunkDataset is stateful and does not advertise a
// length
func (d *ChunkDataset[T]) Size() (int, bool) {
	return 0, false
}

// GetRuntimeStatistics returns statistics about this dataset's activity
// across all epochs so far
func (d *ChunkDataset[T]) GetRuntimeStatistics() RuntimeStatistics {
	return &d.stats
}

// Close terminates and joins any running preloaders, discarding batches
// still queued. Close is idempotent and safe to call on a dataset which was
// never Reset. The dataset may be reused afterwards by calling Reset.
func (d *ChunkDataset[T]) Close() error {
	d.freeWorkers()
	return nil
}

// freeWorkers blocks until all preloaders observe the quit flag and exit.
// Preloaders blocked on a full buffer are woken by stopping the buffer.
func (d *ChunkDataset[T]) freeWorkers() {
	if atomic.CompareAndSwapInt32(&d.quitWorker, 0, 1) {
		if d.buffer != nil {
			d.buffer.stop()
		}
		d.workers.Wait()
	}
}
