// Package data supplies labeled training examples to the training loop as
// batches of fixed-length feature vectors with integer class labels. The
// training core consumes the Loader contract and never touches files itself.
package data

import (
	"fmt"
	"io"
	"math/rand"

	"github.com/djeday123/gograd/tensor"
)

// Batch is one training batch: Inputs [batch, features] float32 and
// Labels [batch] int64 class indices.
type Batch struct {
	Inputs *tensor.Tensor
	Labels *tensor.Tensor
}

// Loader produces a finite, restartable sequence of batches.
// Next returns io.EOF when the sequence is exhausted; Reset restarts it.
type Loader interface {
	Next() (Batch, error)
	Reset()
}

// Dataset is an in-memory collection of examples. Every input vector must
// have the same length; labels parallel the inputs.
type Dataset struct {
	Inputs [][]float32
	Labels []int64
}

// Features returns the input vector length, 0 for an empty dataset.
func (d *Dataset) Features() int {
	if len(d.Inputs) == 0 {
		return 0
	}
	return len(d.Inputs[0])
}

// Len returns the number of examples.
func (d *Dataset) Len() int {
	return len(d.Inputs)
}

// batchLoader cuts a Dataset into batches, optionally reshuffling on Reset.
type batchLoader struct {
	ds        *Dataset
	batchSize int
	order     []int
	pos       int
	rng       *rand.Rand
}

// NewLoader creates a Loader over ds with the given batch size. When rng is
// non-nil the example order is reshuffled on every Reset.
func NewLoader(ds *Dataset, batchSize int, rng *rand.Rand) (Loader, error) {
	if len(ds.Inputs) != len(ds.Labels) {
		return nil, fmt.Errorf("data: %d inputs but %d labels", len(ds.Inputs), len(ds.Labels))
	}
	if len(ds.Inputs) == 0 {
		return nil, fmt.Errorf("data: empty dataset")
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("data: batch size %d", batchSize)
	}
	dim := ds.Features()
	for i, in := range ds.Inputs {
		if len(in) != dim {
			return nil, fmt.Errorf("data: example %d has %d features, want %d", i, len(in), dim)
		}
	}
	l := &batchLoader{ds: ds, batchSize: batchSize, rng: rng}
	l.order = make([]int, ds.Len())
	for i := range l.order {
		l.order[i] = i
	}
	l.Reset()
	return l, nil
}

func (l *batchLoader) Reset() {
	l.pos = 0
	if l.rng != nil {
		l.rng.Shuffle(len(l.order), func(i, j int) {
			l.order[i], l.order[j] = l.order[j], l.order[i]
		})
	}
}

func (l *batchLoader) Next() (Batch, error) {
	if l.pos >= len(l.order) {
		return Batch{}, io.EOF
	}
	end := l.pos + l.batchSize
	if end > len(l.order) {
		end = len(l.order)
	}
	idx := l.order[l.pos:end]
	l.pos = end

	dim := l.ds.Features()
	flat := make([]float32, 0, len(idx)*dim)
	labels := make([]int64, 0, len(idx))
	for _, i := range idx {
		flat = append(flat, l.ds.Inputs[i]...)
		labels = append(labels, l.ds.Labels[i])
	}
	inputs, err := tensor.FromFloat32(flat, len(idx), dim)
	if err != nil {
		return Batch{}, err
	}
	labelT, err := tensor.FromInt64(labels, len(idx))
	if err != nil {
		return Batch{}, err
	}
	return Batch{Inputs: inputs, Labels: labelT}, nil
}
