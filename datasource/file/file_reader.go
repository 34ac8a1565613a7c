package file

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/pierrec/lz4"
	"golang.org/x/sync/semaphore"
)

// ReaderConf configures a file Reader
type ReaderConf struct {
	// Compressed indicates that chunk files are lz4-framed
	Compressed bool
	// MaxOpenFiles bounds the number of chunk files open at once across all
	// preloader goroutines. Defaults to 8.
	MaxOpenFiles int64
	// MaxBufferSize is the maximum size in bytes of the buffer used to read
	// records from a chunk file
	MaxBufferSize int
}

// Reader is a ChunkReader where each chunk is a file of newline-delimited
// byte records, located via a glob pattern. Chunk files may optionally be
// lz4-compressed. The file list is fixed at construction, so ReadChunk is
// safe to call from any number of preloader goroutines.
type Reader struct {
	paths []string
	conf  *ReaderConf
	open  *semaphore.Weighted
}

// CreateReader creates a Reader over all files matching the given glob
// pattern, one chunk per file, in lexical order
func CreateReader(glob string, conf *ReaderConf) (*Reader, error) {
	if conf.MaxOpenFiles == 0 {
		conf.MaxOpenFiles = 8
	}
	if conf.MaxBufferSize == 0 {
		conf.MaxBufferSize = bufio.MaxScanTokenSize
	}
	matches, err := filepath.Glob(glob)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("glob %s produced 0 files", glob)
	}
	var result *multierror.Error
	for _, path := range matches {
		if _, err := os.Stat(path); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return &Reader{paths: matches, conf: conf, open: semaphore.NewWeighted(conf.MaxOpenFiles)}, nil
}

// ReadChunk reads the chunk file at the given index, returning one example
// per record
func (r *Reader) ReadChunk(index int) ([][]byte, error) {
	if index < 0 || index >= len(r.paths) {
		return nil, fmt.Errorf("chunk index %d out of range [0, %d)", index, len(r.paths))
	}
	if err := r.open.Acquire(context.Background(), 1); err != nil {
		return nil, err
	}
	defer r.open.Release(1)
	f, err := os.Open(r.paths[index])
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var stream io.Reader = f
	if r.conf.Compressed {
		stream = lz4.NewReader(f)
	}
	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 0, 4096), r.conf.MaxBufferSize)
	var records [][]byte
	for scanner.Scan() {
		record := make([]byte, len(scanner.Bytes()))
		copy(record, scanner.Bytes())
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chunk file %s: %w", r.paths[index], err)
	}
	return records, nil
}

// ChunkCount returns the number of chunk files matched at construction
func (r *Reader) ChunkCount() int {
	return len(r.paths)
}

// Reset does nothing - chunk files are reopened on every read
func (r *Reader) Reset() error {
	return nil
}
