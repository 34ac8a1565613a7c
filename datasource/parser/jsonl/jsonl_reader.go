package jsonl

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
)

// ReaderConf configures a JSONL Reader, suitable for JSON lines data
type ReaderConf struct {
	// Paths are the gjson paths extracted from each line, in order, to form
	// one example. Values within the JSON which do not correspond to a
	// configured path are ignored.
	Paths []string
	// MaxBufferSize is the maximum size in bytes of the buffer used to read
	// lines from a chunk file
	MaxBufferSize int
}

// Reader is a ChunkReader where each chunk is a JSONL file located via a
// glob pattern, and each example is the vector of float values extracted
// from one line using the configured gjson paths. The file list is fixed at
// construction, so ReadChunk is safe to call from any number of preloader
// goroutines.
type Reader struct {
	paths []string
	conf  *ReaderConf
}

// CreateReader creates a Reader over all JSONL files matching the given glob
// pattern, one chunk per file
func CreateReader(glob string, conf *ReaderConf) (*Reader, error) {
	if len(conf.Paths) == 0 {
		return nil, fmt.Errorf("at least one gjson path must be configured")
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
	return &Reader{paths: matches, conf: conf}, nil
}

// ReadChunk parses the JSONL file at the given index, returning one example
// per line
func (r *Reader) ReadChunk(index int) ([][]float64, error) {
	if index < 0 || index >= len(r.paths) {
		return nil, fmt.Errorf("chunk index %d out of range [0, %d)", index, len(r.paths))
	}
	f, err := os.Open(r.paths[index])
	if err != nil {
		return nil, err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 4096), r.conf.MaxBufferSize)
	var examples [][]float64
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		if !gjson.ValidBytes(scanner.Bytes()) {
			return nil, fmt.Errorf("%s:%d: not valid JSON", r.paths[index], line)
		}
		example := make([]float64, len(r.conf.Paths))
		for i, path := range r.conf.Paths {
			result := gjson.GetBytes(scanner.Bytes(), path)
			if !result.Exists() {
				return nil, fmt.Errorf("%s:%d: path %q not present", r.paths[index], line, path)
			}
			example[i] = result.Float()
		}
		examples = append(examples, example)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chunk file %s: %w", r.paths[index], err)
	}
	return examples, nil
}

// ChunkCount returns the number of chunk files matched at construction
func (r *Reader) ChunkCount() int {
	return len(r.paths)
}

// Reset does nothing - chunk files are reopened on every read
func (r *Reader) Reset() error {
	return nil
}
