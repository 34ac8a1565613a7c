package mnist

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Idx-format constants, from http://yann.lecun.com/exdb/mnist/
const (
	imageMagicNumber  = 2051
	targetMagicNumber = 2049
	// ImageRows is the pixel height of an MNIST image
	ImageRows = 28
	// ImageColumns is the pixel width of an MNIST image
	ImageColumns = 28

	trainImagesFilename  = "train-images-idx3-ubyte"
	trainTargetsFilename = "train-labels-idx1-ubyte"
	testImagesFilename   = "t10k-images-idx3-ubyte"
	testTargetsFilename  = "t10k-labels-idx1-ubyte"
)

// Example is a single MNIST image with its target digit. Pixels are
// normalized to [0, 1] in row-major order.
type Example struct {
	Image  []float32
	Target int64
}

// ReaderConf configures an MNIST Reader
type ReaderConf struct {
	// Train selects the 60k training split over the 10k test split
	Train bool
	// ChunkSize is the number of examples per chunk. Defaults to 1000.
	ChunkSize int
}

// Reader is a ChunkReader over the MNIST handwritten-digit dataset in its
// original idx format, split into fixed-size chunks of examples. The whole
// split is decoded once at construction, so ReadChunk is safe to call from
// any number of preloader goroutines.
type Reader struct {
	images    []float32
	targets   []int64
	count     int
	chunkSize int
}

// CreateReader creates a Reader over the MNIST files in the given root
// directory
func CreateReader(root string, conf *ReaderConf) (*Reader, error) {
	if conf.ChunkSize == 0 {
		conf.ChunkSize = 1000
	}
	if conf.ChunkSize < 0 {
		return nil, fmt.Errorf("chunk size %d must be positive", conf.ChunkSize)
	}
	images, imageCount, err := readImages(root, conf.Train)
	if err != nil {
		return nil, err
	}
	targets, targetCount, err := readTargets(root, conf.Train)
	if err != nil {
		return nil, err
	}
	if imageCount != targetCount {
		return nil, fmt.Errorf("image count %d does not match target count %d", imageCount, targetCount)
	}
	return &Reader{
		images:    images,
		targets:   targets,
		count:     imageCount,
		chunkSize: conf.ChunkSize,
	}, nil
}

// ReadChunk returns the examples in the chunk at the given index. The final
// chunk may hold fewer than ChunkSize examples.
func (r *Reader) ReadChunk(index int) ([]Example, error) {
	if index < 0 || index >= r.ChunkCount() {
		return nil, fmt.Errorf("chunk index %d out of range [0, %d)", index, r.ChunkCount())
	}
	begin := index * r.chunkSize
	end := begin + r.chunkSize
	if end > r.count {
		end = r.count
	}
	examples := make([]Example, 0, end-begin)
	for i := begin; i < end; i++ {
		examples = append(examples, Example{
			Image:  r.images[i*ImageRows*ImageColumns : (i+1)*ImageRows*ImageColumns],
			Target: r.targets[i],
		})
	}
	return examples, nil
}

// ChunkCount returns the number of chunks the configured split divides into
func (r *Reader) ChunkCount() int {
	return (r.count + r.chunkSize - 1) / r.chunkSize
}

// Reset does nothing - the decoded split is immutable
func (r *Reader) Reset() error {
	return nil
}

func expectInt32(stream io.Reader, expected uint32) error {
	var value uint32
	if err := binary.Read(stream, binary.BigEndian, &value); err != nil {
		return err
	}
	if value != expected {
		return fmt.Errorf("expected to read number %d but found %d instead", expected, value)
	}
	return nil
}

func readImages(root string, train bool) ([]float32, int, error) {
	name := testImagesFilename
	if train {
		name = trainImagesFilename
	}
	path := filepath.Join(root, name)
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("error opening images file at %s: %w", path, err)
	}
	defer f.Close()
	if err := expectInt32(f, imageMagicNumber); err != nil {
		return nil, 0, fmt.Errorf("bad magic number in %s: %w", path, err)
	}
	var count uint32
	if err := binary.Read(f, binary.BigEndian, &count); err != nil {
		return nil, 0, err
	}
	if err := expectInt32(f, ImageRows); err != nil {
		return nil, 0, fmt.Errorf("bad row count in %s: %w", path, err)
	}
	if err := expectInt32(f, ImageColumns); err != nil {
		return nil, 0, fmt.Errorf("bad column count in %s: %w", path, err)
	}
	raw := make([]byte, int(count)*ImageRows*ImageColumns)
	if _, err := io.ReadFull(f, raw); err != nil {
		return nil, 0, fmt.Errorf("truncated images file %s: %w", path, err)
	}
	images := make([]float32, len(raw))
	for i, pixel := range raw {
		images[i] = float32(pixel) / 255
	}
	return images, int(count), nil
}

func readTargets(root string, train bool) ([]int64, int, error) {
	name := testTargetsFilename
	if train {
		name = trainTargetsFilename
	}
	path := filepath.Join(root, name)
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("error opening targets file at %s: %w", path, err)
	}
	defer f.Close()
	if err := expectInt32(f, targetMagicNumber); err != nil {
		return nil, 0, fmt.Errorf("bad magic number in %s: %w", path, err)
	}
	var count uint32
	if err := binary.Read(f, binary.BigEndian, &count); err != nil {
		return nil, 0, err
	}
	raw := make([]byte, count)
	if _, err := io.ReadFull(f, raw); err != nil {
		return nil, 0, fmt.Errorf("truncated targets file %s: %w", path, err)
	}
	targets := make([]int64, count)
	for i, digit := range raw {
		targets[i] = int64(digit)
	}
	return targets, int(count), nil
}
