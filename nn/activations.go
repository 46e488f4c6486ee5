package nn

import (
	"github.com/djeday123/gograd/autograd"
	"github.com/djeday123/gograd/ops"
	"github.com/djeday123/gograd/tensor"
)

// ReLU is the stateless rectified-linear layer.
type ReLU struct{}

// Forward applies max(0, x) elementwise.
func (ReLU) Forward(g *autograd.Graph, x *tensor.Tensor) (*tensor.Tensor, error) {
	return ops.Relu(g, x)
}

// Parameters returns nothing; ReLU is stateless.
func (ReLU) Parameters() []*tensor.Tensor { return nil }

// LogSoftmax normalizes each batch row into log-probabilities.
type LogSoftmax struct{}

// Forward applies log-softmax along the class axis.
func (LogSoftmax) Forward(g *autograd.Graph, x *tensor.Tensor) (*tensor.Tensor, error) {
	return ops.LogSoftmax(g, x)
}

// Parameters returns nothing; LogSoftmax is stateless.
func (LogSoftmax) Parameters() []*tensor.Tensor { return nil }
