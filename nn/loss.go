package nn

import (
	"github.com/djeday123/gograd/autograd"
	"github.com/djeday123/gograd/backend"
	"github.com/djeday123/gograd/ops"
	"github.com/djeday123/gograd/tensor"
)

// NLLLoss computes the mean negative-log-likelihood of logProbs [batch, C]
// against integer labels [batch].
func NLLLoss(g *autograd.Graph, logProbs, labels *tensor.Tensor) (*tensor.Tensor, error) {
	return ops.NLL(g, logProbs, labels)
}

// CrossEntropyLoss computes the fused log-softmax + NLL loss on raw scores.
func CrossEntropyLoss(g *autograd.Graph, logits, labels *tensor.Tensor) (*tensor.Tensor, error) {
	return ops.CrossEntropy(g, logits, labels)
}

// Probabilities converts a batch of log-probabilities into class
// probabilities via exponentiation. No graph bookkeeping happens here.
func Probabilities(logProbs *tensor.Tensor) (*tensor.Tensor, error) {
	be, err := backend.GetForDevice(logProbs.Storage.Device())
	if err != nil {
		return nil, err
	}
	out, err := tensor.Zeros(logProbs.Shape...)
	if err != nil {
		return nil, err
	}
	if err := be.Exp(out.Storage, logProbs.Storage, out.NumElements()); err != nil {
		return nil, err
	}
	return out, nil
}
