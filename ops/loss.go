package ops

import (
	"errors"
	"fmt"

	"github.com/djeday123/gograd/autograd"
	"github.com/djeday123/gograd/core"
	"github.com/djeday123/gograd/tensor"
)

// ErrInvalidLabel is returned when a class label falls outside [0, numClasses).
var ErrInvalidLabel = errors.New("label index out of class range")

// checkLabels validates the label tensor against a [batch, classes] input
// before any computation or gradient bookkeeping happens.
func checkLabels(input, labels *tensor.Tensor) ([]int64, error) {
	if len(input.Shape) != 2 {
		return nil, fmt.Errorf("%w: loss input must be [batch, classes], got %v", core.ErrShapeMismatch, input.Shape)
	}
	if len(labels.Shape) != 1 || labels.Shape[0] != input.Shape[0] {
		return nil, fmt.Errorf("%w: labels %v for input %v", core.ErrShapeMismatch, labels.Shape, input.Shape)
	}
	classes := int64(input.Shape[1])
	idx := labels.Int64()
	for i, label := range idx {
		if label < 0 || label >= classes {
			return nil, fmt.Errorf("%w: label %d at row %d, want [0, %d)", ErrInvalidLabel, label, i, classes)
		}
	}
	return idx, nil
}

// NLL computes the negative-log-likelihood loss: the mean over the batch of
// the negated log-probability at each row's true class index. logProbs is
// [batch, classes]; labels is a [batch] int64 tensor of class indices.
func NLL(g *autograd.Graph, logProbs, labels *tensor.Tensor) (*tensor.Tensor, error) {
	idx, err := checkLabels(logProbs, labels)
	if err != nil {
		return nil, err
	}
	batch, cols := logProbs.Shape[0], logProbs.Shape[1]
	lp := logProbs.Float32()
	var loss float32
	for i, label := range idx {
		loss -= lp[i*cols+int(label)]
	}
	loss /= float32(batch)

	out, err := tensor.Scalar(loss)
	if err != nil {
		return nil, err
	}
	record(g, &tensor.Node{Kind: tensor.OpNLL, Inputs: []*tensor.Tensor{logProbs}, Output: out, Labels: idx},
		logProbs.RequiresGrad)
	return out, nil
}

// CrossEntropy is the fused composite of LogSoftmax and NLL operating on raw
// scores. It produces results numerically identical to applying the two
// nodes in sequence; the fusion only saves one recorded node and one buffer.
func CrossEntropy(g *autograd.Graph, logits, labels *tensor.Tensor) (*tensor.Tensor, error) {
	idx, err := checkLabels(logits, labels)
	if err != nil {
		return nil, err
	}
	batch, cols := logits.Shape[0], logits.Shape[1]
	be, err := deviceFor(logits)
	if err != nil {
		return nil, err
	}

	logp, err := tensor.Zeros(batch, cols)
	if err != nil {
		return nil, err
	}
	if err := be.LogSoftmax(logp.Storage, logits.Storage, batch, cols); err != nil {
		return nil, err
	}
	lp := logp.Float32()
	var loss float32
	for i, label := range idx {
		loss -= lp[i*cols+int(label)]
	}
	loss /= float32(batch)

	out, err := tensor.Scalar(loss)
	if err != nil {
		return nil, err
	}
	node := &tensor.Node{Kind: tensor.OpCrossEntropy, Inputs: []*tensor.Tensor{logits}, Output: out, Labels: idx}
	if g != nil && logits.RequiresGrad {
		sm, err := tensor.Zeros(batch, cols)
		if err != nil {
			return nil, err
		}
		if err := be.Exp(sm.Storage, logp.Storage, batch*cols); err != nil {
			return nil, err
		}
		node.Saved = sm
	}
	record(g, node, logits.RequiresGrad)
	return out, nil
}
