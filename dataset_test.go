package chunk_test

import (
	stderrors "errors"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/go-chunk/chunk"
	"github.com/go-chunk/chunk/datasource/memory"
	"github.com/go-chunk/chunk/errors"
	"github.com/go-chunk/chunk/sampler"
	chunktesting "github.com/go-chunk/chunk/testing"
)

// numberedChunks builds chunks of consecutive ints with the given sizes
func numberedChunks(sizes ...int) [][]int {
	chunks := make([][]int, len(sizes))
	next := 0
	for i, size := range sizes {
		chunks[i] = make([]int, size)
		for j := range chunks[i] {
			chunks[i][j] = next
			next++
		}
	}
	return chunks
}

func createSequentialDataset(t *testing.T, chunks [][]int, preloaders int, batchSize int, cacheSize int) *chunk.ChunkDataset[int] {
	scheduler, err := chunk.CreateSequentialChunkScheduler(len(chunks), 1, 0)
	require.Nil(t, err)
	dataset, err := chunk.CreateChunkDataset[int](
		memory.CreateReader(chunks),
		sampler.CreateSequentialSampler(),
		scheduler,
		&chunk.ChunkDatasetOptions{PreloaderCount: preloaders, BatchSize: batchSize, CacheSize: cacheSize},
	)
	require.Nil(t, err)
	return dataset
}

func TestChunkDatasetUniformBatches(t *testing.T) {
	// 4 chunks of 3 examples regrouped into 3 batches of 4
	dataset := createSequentialDataset(t, numberedChunks(3, 3, 3, 3), 1, 4, 0)
	defer dataset.Close()
	batches, err := chunktesting.DrainEpoch(dataset, 4)
	require.Nil(t, err)
	require.Equal(t, [][]int{
		{0, 1, 2, 3},
		{4, 5, 6, 7},
		{8, 9, 10, 11},
	}, batches)
}

func TestChunkDatasetShortTailBatch(t *testing.T) {
	dataset := createSequentialDataset(t, numberedChunks(5, 5), 1, 3, 0)
	defer dataset.Close()
	batches, err := chunktesting.DrainEpoch(dataset, 3)
	require.Nil(t, err)
	require.Equal(t, [][]int{
		{0, 1, 2},
		{3, 4, 5},
		{6, 7, 8},
		{9},
	}, batches)
}

func TestChunkDatasetSkipsEmptyChunks(t *testing.T) {
	dataset := createSequentialDataset(t, numberedChunks(0, 4, 0), 1, 2, 0)
	defer dataset.Close()
	batches, err := chunktesting.DrainEpoch(dataset, 2)
	require.Nil(t, err)
	require.Equal(t, [][]int{{0, 1}, {2, 3}}, batches)

	stats := dataset.GetRuntimeStatistics()
	require.Equal(t, int64(1), stats.GetNumChunksLoaded())
	require.Equal(t, int64(2), stats.GetNumChunksSkipped())
	require.Equal(t, int64(0), stats.GetNumChunksFailed())
}

func TestChunkDatasetRandomSchedulerMultiset(t *testing.T) {
	scheduler, err := chunk.CreateRandomChunkScheduler(10, 1, 0)
	require.Nil(t, err)
	scheduler.SetEpoch(7)
	dataset, err := chunk.CreateChunkDataset[int](
		memory.CreateReader(numberedChunks(1, 1, 1, 1, 1, 1, 1, 1, 1, 1)),
		sampler.CreateSequentialSampler(),
		scheduler,
		&chunk.ChunkDatasetOptions{PreloaderCount: 4, BatchSize: 1},
	)
	require.Nil(t, err)
	defer dataset.Close()
	batches, err := chunktesting.DrainEpoch(dataset, 1)
	require.Nil(t, err)
	require.Len(t, batches, 10)
	var values []int
	for _, batch := range batches {
		require.Len(t, batch, 1)
		values = append(values, batch...)
	}
	sort.Ints(values)
	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, values)
}

// flakyReader fails ReadChunk for one chunk index
type flakyReader struct {
	*memory.Reader[int]
	failOn int
}

func (r *flakyReader) ReadChunk(index int) ([]int, error) {
	if index == r.failOn {
		return nil, fmt.Errorf("simulated I/O failure on chunk %d", index)
	}
	return r.Reader.ReadChunk(index)
}

func TestChunkDatasetSurfacesReaderFailure(t *testing.T) {
	scheduler, err := chunk.CreateSequentialChunkScheduler(4, 1, 0)
	require.Nil(t, err)
	dataset, err := chunk.CreateChunkDataset[int](
		&flakyReader{Reader: memory.CreateReader(numberedChunks(2, 2, 2, 2)), failOn: 2},
		sampler.CreateSequentialSampler(),
		scheduler,
		&chunk.ChunkDatasetOptions{PreloaderCount: 1, BatchSize: 2},
	)
	require.Nil(t, err)
	defer dataset.Close()
	require.Nil(t, dataset.Reset())

	batch, err := dataset.GetBatch(2)
	require.Nil(t, err)
	require.Equal(t, []int{0, 1}, batch)
	batch, err = dataset.GetBatch(2)
	require.Nil(t, err)
	require.Equal(t, []int{2, 3}, batch)

	// the failure surfaces in the FIFO position of the chunk that raised it
	_, err = dataset.GetBatch(2)
	require.IsType(t, errors.WorkerError{}, err)
	var worker errors.WorkerError
	require.True(t, stderrors.As(err, &worker))
	require.Contains(t, worker.Err.Error(), "chunk 2")

	// delivery of the remaining chunks is not stalled
	batch, err = dataset.GetBatch(2)
	require.Nil(t, err)
	require.Equal(t, []int{6, 7}, batch)
	_, err = dataset.GetBatch(2)
	require.IsType(t, errors.NoMoreBatchesError{}, err)

	require.Equal(t, int64(1), dataset.GetRuntimeStatistics().GetNumChunksFailed())
}

func TestChunkDatasetEmptyDataset(t *testing.T) {
	dataset := createSequentialDataset(t, nil, 1, 2, 0)
	defer dataset.Close()
	require.Nil(t, dataset.Reset())
	_, err := dataset.GetBatch(2)
	require.IsType(t, errors.NoMoreBatchesError{}, err)
}

func TestChunkDatasetTightCache(t *testing.T) {
	// cacheSize == batchSize must still make progress
	dataset := createSequentialDataset(t, numberedChunks(4, 4, 4, 4, 4), 2, 4, 4)
	defer dataset.Close()
	batches, err := chunktesting.DrainEpoch(dataset, 4)
	require.Nil(t, err)
	require.Len(t, batches, 5)
	for _, batch := range batches {
		require.Len(t, batch, 4)
	}
}

func TestChunkDatasetDeterministicWithSinglePreloader(t *testing.T) {
	run := func() [][]int {
		scheduler, err := chunk.CreateRandomChunkScheduler(6, 1, 0)
		require.Nil(t, err)
		scheduler.SetEpoch(5)
		dataset, err := chunk.CreateChunkDataset[int](
			memory.CreateReader(numberedChunks(3, 1, 4, 2, 3, 3)),
			sampler.CreateRandomSampler(42),
			scheduler,
			&chunk.ChunkDatasetOptions{PreloaderCount: 1, BatchSize: 4},
		)
		require.Nil(t, err)
		defer dataset.Close()
		batches, err := chunktesting.DrainEpoch(dataset, 4)
		require.Nil(t, err)
		return batches
	}
	require.Equal(t, run(), run())
}

func TestChunkDatasetMultisetInvariant(t *testing.T) {
	// whatever the preloader count, one epoch delivers exactly the examples
	// the reader produced, in full batches except possibly the last
	sizes := []int{3, 0, 7, 1, 5, 2, 8, 4}
	total := 0
	for _, size := range sizes {
		total += size
	}
	for _, preloaders := range []int{1, 2, 4} {
		dataset := createSequentialDataset(t, numberedChunks(sizes...), preloaders, 4, 8)
		batches, err := chunktesting.DrainEpoch(dataset, 4)
		require.Nil(t, err)
		var values []int
		for i, batch := range batches {
			if i < len(batches)-1 {
				require.Len(t, batch, 4)
			}
			values = append(values, batch...)
		}
		require.Len(t, values, total)
		sort.Ints(values)
		for i, value := range values {
			require.Equal(t, i, value)
		}
		require.Nil(t, dataset.Close())
	}
}

func TestChunkDatasetRepeatedEpochs(t *testing.T) {
	dataset := createSequentialDataset(t, numberedChunks(3, 3, 3), 1, 3, 0)
	defer dataset.Close()
	first, err := chunktesting.DrainEpoch(dataset, 3)
	require.Nil(t, err)
	second, err := chunktesting.DrainEpoch(dataset, 3)
	require.Nil(t, err)
	require.Equal(t, first, second)
	require.Equal(t, int64(2), dataset.GetRuntimeStatistics().GetNumEpochs())
}

func TestChunkDatasetDoubleReset(t *testing.T) {
	// two successive resets are externally indistinguishable from one
	dataset := createSequentialDataset(t, numberedChunks(3, 3, 3), 2, 3, 0)
	defer dataset.Close()
	require.Nil(t, dataset.Reset())
	batches, err := chunktesting.DrainEpoch(dataset, 3)
	require.Nil(t, err)
	require.Len(t, batches, 3)
}

func TestChunkDatasetResetMidEpoch(t *testing.T) {
	dataset := createSequentialDataset(t, numberedChunks(4, 4, 4, 4), 2, 4, 4)
	defer dataset.Close()
	require.Nil(t, dataset.Reset())
	_, err := dataset.GetBatch(4)
	require.Nil(t, err)
	// abandoning the epoch after one batch must tear down cleanly and the
	// next epoch must deliver everything again
	batches, err := chunktesting.DrainEpoch(dataset, 4)
	require.Nil(t, err)
	require.Len(t, batches, 4)
}

func TestChunkDatasetGetBatchBeforeReset(t *testing.T) {
	dataset := createSequentialDataset(t, numberedChunks(2), 1, 2, 0)
	_, err := dataset.GetBatch(2)
	require.IsType(t, errors.NotResetError{}, err)
}

func TestChunkDatasetBatchSizeMismatch(t *testing.T) {
	dataset := createSequentialDataset(t, numberedChunks(2, 2), 1, 2, 0)
	defer dataset.Close()
	require.Nil(t, dataset.Reset())
	_, err := dataset.GetBatch(3)
	require.IsType(t, errors.BatchSizeMismatchError{}, err)
}

func TestChunkDatasetSizeIsUnknown(t *testing.T) {
	dataset := createSequentialDataset(t, numberedChunks(2), 1, 2, 0)
	_, known := dataset.Size()
	require.False(t, known)
}

func TestChunkDatasetCloseJoinsWorkers(t *testing.T) {
	defer goleak.VerifyNone(t)
	// a small cache guarantees some preloaders are parked on the writable
	// condition when Close is called
	dataset := createSequentialDataset(t, numberedChunks(4, 4, 4, 4, 4, 4, 4, 4), 4, 4, 4)
	require.Nil(t, dataset.Reset())
	require.Nil(t, dataset.Close())
	// Close is idempotent, and safe on a dataset which was never reset
	require.Nil(t, dataset.Close())
	fresh := createSequentialDataset(t, numberedChunks(2), 1, 2, 0)
	require.Nil(t, fresh.Close())
}

func TestChunkDatasetDistributedReplicas(t *testing.T) {
	// every replica drains its own shard; the union covers the whole dataset
	chunks := numberedChunks(2, 2, 2, 2, 2, 2, 2)
	seen := make(map[int]bool)
	perReplica := 0
	for rank := 0; rank < 3; rank++ {
		scheduler, err := chunk.CreateRandomChunkScheduler(len(chunks), 3, rank)
		require.Nil(t, err)
		dataset, err := chunk.CreateChunkDataset[int](
			memory.CreateReader(chunks),
			sampler.CreateSequentialSampler(),
			scheduler,
			&chunk.ChunkDatasetOptions{PreloaderCount: 2, BatchSize: 2},
		)
		require.Nil(t, err)
		batches, err := chunktesting.DrainEpoch(dataset, 2)
		require.Nil(t, err)
		if rank == 0 {
			perReplica = len(batches)
		} else {
			// padding gives every replica the same number of chunks
			require.Equal(t, perReplica, len(batches))
		}
		for _, batch := range batches {
			for _, value := range batch {
				seen[value] = true
			}
		}
		require.Nil(t, dataset.Close())
	}
	for value := 0; value < 14; value++ {
		require.True(t, seen[value], "example %d was never delivered", value)
	}
}
