package nn

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/djeday123/gograd/autograd"
	"github.com/djeday123/gograd/ops"
	"github.com/djeday123/gograd/tensor"
)

// Linear is y = x @ W + bias. W is [InSize, OutSize], bias [OutSize];
// the batch is the leading axis of x.
type Linear struct {
	W       *tensor.Tensor // [InSize, OutSize]
	Bias    *tensor.Tensor // [OutSize]
	InSize  int
	OutSize int
}

// NewLinear creates a linear layer with weights drawn uniformly from
// ±1/sqrt(inSize) and a zero bias. Both tensors track gradients.
func NewLinear(inSize, outSize int, rng *rand.Rand) (*Linear, error) {
	bound := 1 / math.Sqrt(float64(inSize))
	wData := make([]float32, inSize*outSize)
	for i := range wData {
		wData[i] = float32((rng.Float64()*2 - 1) * bound)
	}
	w, err := tensor.FromFloat32(wData, inSize, outSize)
	if err != nil {
		return nil, err
	}
	bias, err := tensor.Zeros(outSize)
	if err != nil {
		return nil, err
	}
	w.RequiresGrad = true
	bias.RequiresGrad = true
	return &Linear{W: w, Bias: bias, InSize: inSize, OutSize: outSize}, nil
}

// NewLinearWith wraps caller-provided weight and bias tensors.
// W must be [in, out] and bias [out].
func NewLinearWith(w, bias *tensor.Tensor) (*Linear, error) {
	if len(w.Shape) != 2 || len(bias.Shape) != 1 || bias.Shape[0] != w.Shape[1] {
		return nil, fmt.Errorf("linear: W must be [in,out] with bias [out], got %v and %v", w.Shape, bias.Shape)
	}
	w.RequiresGrad = true
	bias.RequiresGrad = true
	return &Linear{W: w, Bias: bias, InSize: w.Shape[0], OutSize: w.Shape[1]}, nil
}

// Forward computes x @ W + bias. x: [batch, InSize], out: [batch, OutSize].
func (l *Linear) Forward(g *autograd.Graph, x *tensor.Tensor) (*tensor.Tensor, error) {
	return ops.Linear(g, x, l.W, l.Bias)
}

// Parameters returns the weight then the bias.
func (l *Linear) Parameters() []*tensor.Tensor {
	return []*tensor.Tensor{l.W, l.Bias}
}
