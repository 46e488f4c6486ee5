package data

import (
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"
)

// IDX magic numbers for unsigned-byte image and label files.
const (
	idxImagesMagic = 2051
	idxLabelsMagic = 2049
)

// LoadIDX reads a dataset from an IDX image file and an IDX label file (the
// standard handwritten-digit layout). Files ending in .gz are decompressed
// on the fly. Pixels are scaled to [0, 1]. The two files are read
// concurrently.
func LoadIDX(imagesPath, labelsPath string) (*Dataset, error) {
	var (
		images [][]float32
		labels []int64
	)
	var g errgroup.Group
	g.Go(func() error {
		var err error
		images, err = readIDXImages(imagesPath)
		return err
	})
	g.Go(func() error {
		var err error
		labels, err = readIDXLabels(labelsPath)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(images) != len(labels) {
		return nil, fmt.Errorf("idx: %d images but %d labels", len(images), len(labels))
	}
	return &Dataset{Inputs: images, Labels: labels}, nil
}

func openIDX(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return struct {
		io.Reader
		io.Closer
	}{gz, f}, nil
}

func readIDXImages(path string) ([][]float32, error) {
	r, err := openIDX(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var magic, count, rows, cols int32
	for _, p := range []*int32{&magic, &count, &rows, &cols} {
		if err := binary.Read(r, binary.BigEndian, p); err != nil {
			return nil, fmt.Errorf("idx: %s header: %w", path, err)
		}
	}
	if magic != idxImagesMagic {
		return nil, fmt.Errorf("idx: %s magic %d, want %d", path, magic, idxImagesMagic)
	}
	pixels := int(rows) * int(cols)
	images := make([][]float32, count)
	buf := make([]byte, pixels)
	for i := range images {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("idx: %s image %d: %w", path, i, err)
		}
		img := make([]float32, pixels)
		for j, b := range buf {
			img[j] = float32(b) / 255
		}
		images[i] = img
	}
	return images, nil
}

func readIDXLabels(path string) ([]int64, error) {
	r, err := openIDX(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var magic, count int32
	for _, p := range []*int32{&magic, &count} {
		if err := binary.Read(r, binary.BigEndian, p); err != nil {
			return nil, fmt.Errorf("idx: %s header: %w", path, err)
		}
	}
	if magic != idxLabelsMagic {
		return nil, fmt.Errorf("idx: %s magic %d, want %d", path, magic, idxLabelsMagic)
	}
	buf := make([]byte, count)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("idx: %s labels: %w", path, err)
	}
	labels := make([]int64, count)
	for i, b := range buf {
		labels[i] = int64(b)
	}
	return labels, nil
}
