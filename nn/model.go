package nn

import (
	"math/rand"

	"github.com/djeday123/gograd/autograd"
	"github.com/djeday123/gograd/tensor"
)

// Layer is one stage of a model pipeline: a parameterized transform or a
// stateless nonlinearity. Forward records operation nodes on g when gradient
// tracking is enabled.
type Layer interface {
	Forward(g *autograd.Graph, x *tensor.Tensor) (*tensor.Tensor, error)
	Parameters() []*tensor.Tensor
}

// Sequential composes layers into a pipeline applied in order.
type Sequential struct {
	Layers []Layer
}

// NewSequential builds a model from the given layers.
func NewSequential(layers ...Layer) *Sequential {
	return &Sequential{Layers: layers}
}

// Forward threads x through each layer in order and returns the final tensor.
func (s *Sequential) Forward(g *autograd.Graph, x *tensor.Tensor) (*tensor.Tensor, error) {
	var err error
	for _, l := range s.Layers {
		x, err = l.Forward(g, x)
		if err != nil {
			return nil, err
		}
	}
	return x, nil
}

// Parameters returns every trainable tensor across all layers, in layer
// order. The ordering is stable across calls.
func (s *Sequential) Parameters() []*tensor.Tensor {
	var params []*tensor.Tensor
	for _, l := range s.Layers {
		params = append(params, l.Parameters()...)
	}
	return params
}

// NewMLP builds a multilayer perceptron classifier: linear layers with ReLU
// between them and a final LogSoftmax, e.g. NewMLP(rng, 784, 128, 64, 10).
// The last size is the number of classes.
func NewMLP(rng *rand.Rand, sizes ...int) (*Sequential, error) {
	var layers []Layer
	for i := 0; i < len(sizes)-1; i++ {
		lin, err := NewLinear(sizes[i], sizes[i+1], rng)
		if err != nil {
			return nil, err
		}
		layers = append(layers, lin)
		if i < len(sizes)-2 {
			layers = append(layers, ReLU{})
		}
	}
	layers = append(layers, LogSoftmax{})
	return NewSequential(layers...), nil
}
