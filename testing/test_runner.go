// Package testing provides helpers for exercising ChunkDatasets in tests.
package testing

import (
	"github.com/go-chunk/chunk"
	"github.com/go-chunk/chunk/errors"
)

// DrainEpoch resets the given dataset and dequeues batches until the epoch
// is exhausted, returning every batch in the order delivered. A WorkerError
// surfaced mid-epoch aborts the drain and is returned alongside the batches
// collected so far.
func DrainEpoch[T any](dataset *chunk.ChunkDataset[T], batchSize int) ([][]T, error) {
	if err := dataset.Reset(); err != nil {
		return nil, err
	}
	return DrainRemainder(dataset, batchSize)
}

// DrainRemainder dequeues batches from an already-running epoch until it is
// exhausted
func DrainRemainder[T any](dataset *chunk.ChunkDataset[T], batchSize int) ([][]T, error) {
	var batches [][]T
	for {
		batch, err := dataset.GetBatch(batchSize)
		if _, done := err.(errors.NoMoreBatchesError); done {
			return batches, nil
		}
		if err != nil {
			return batches, err
		}
		batches = append(batches, batch)
	}
}
