package chunk

import (
	"fmt"

	"github.com/go-chunk/chunk/errors"
)

const defaultCacheSize = 2048

// ChunkDatasetOptions configures a ChunkDataset
type ChunkDatasetOptions struct {
	// PreloaderCount is the number of goroutines preloading chunk data
	PreloaderCount int
	// BatchSize is the number of examples per batch returned from GetBatch
	BatchSize int
	// CacheSize is the maximum number of examples buffered ahead of the
	// consumer. Defaults to 2048. Must be at least BatchSize.
	CacheSize int
}

func (o *ChunkDatasetOptions) validate() error {
	if o.PreloaderCount <= 0 {
		return errors.InvalidOptionsError{Message: "at least one preloader needs to be specified"}
	}
	if o.BatchSize <= 0 {
		return errors.InvalidOptionsError{Message: "a positive batch size needs to be specified"}
	}
	if o.CacheSize == 0 {
		o.CacheSize = defaultCacheSize
	}
	if o.CacheSize < 0 {
		return errors.InvalidOptionsError{Message: "a positive cache size needs to be specified"}
	}
	if o.CacheSize < o.BatchSize {
		return errors.InvalidOptionsError{Message: fmt.Sprintf("cache size %d is less than batch size %d and cannot hold a full batch", o.CacheSize, o.BatchSize)}
	}
	return nil
}
