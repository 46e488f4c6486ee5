// Package ops implements the differentiable primitives. Each function runs
// the forward computation through the backend and, when a graph is supplied
// and an operand tracks gradients, records an operation node carrying the
// data its backward rule needs. Shape validation happens before any
// computation; operand values are never mutated.
package ops

import (
	"fmt"

	"github.com/djeday123/gograd/autograd"
	"github.com/djeday123/gograd/backend"
	"github.com/djeday123/gograd/core"
	"github.com/djeday123/gograd/tensor"
)

// record marks out as gradient-tracking and appends the node when a graph is
// present and any input tracks gradients.
func record(g *autograd.Graph, n *tensor.Node, tracked bool) {
	if g == nil || !tracked {
		return
	}
	n.Output.RequiresGrad = true
	g.Record(n)
}

func deviceFor(t *tensor.Tensor) (backend.Backend, error) {
	return backend.GetForDevice(t.Storage.Device())
}

// Add returns a + b elementwise. Operand shapes must match exactly.
func Add(g *autograd.Graph, a, b *tensor.Tensor) (*tensor.Tensor, error) {
	if !a.Shape.Equal(b.Shape) {
		return nil, fmt.Errorf("%w: add operands %v and %v", core.ErrShapeMismatch, a.Shape, b.Shape)
	}
	be, err := deviceFor(a)
	if err != nil {
		return nil, err
	}
	out, err := tensor.Zeros(a.Shape...)
	if err != nil {
		return nil, err
	}
	if err := be.Add(out.Storage, a.Storage, b.Storage, out.NumElements()); err != nil {
		return nil, err
	}
	record(g, &tensor.Node{Kind: tensor.OpAdd, Inputs: []*tensor.Tensor{a, b}, Output: out},
		a.RequiresGrad || b.RequiresGrad)
	return out, nil
}

// Mul returns a * b elementwise. Operand shapes must match exactly.
func Mul(g *autograd.Graph, a, b *tensor.Tensor) (*tensor.Tensor, error) {
	if !a.Shape.Equal(b.Shape) {
		return nil, fmt.Errorf("%w: mul operands %v and %v", core.ErrShapeMismatch, a.Shape, b.Shape)
	}
	be, err := deviceFor(a)
	if err != nil {
		return nil, err
	}
	out, err := tensor.Zeros(a.Shape...)
	if err != nil {
		return nil, err
	}
	if err := be.Mul(out.Storage, a.Storage, b.Storage, out.NumElements()); err != nil {
		return nil, err
	}
	record(g, &tensor.Node{Kind: tensor.OpMul, Inputs: []*tensor.Tensor{a, b}, Output: out},
		a.RequiresGrad || b.RequiresGrad)
	return out, nil
}

// Pow returns x^p elementwise for a scalar exponent.
func Pow(g *autograd.Graph, x *tensor.Tensor, p float64) (*tensor.Tensor, error) {
	be, err := deviceFor(x)
	if err != nil {
		return nil, err
	}
	out, err := tensor.Zeros(x.Shape...)
	if err != nil {
		return nil, err
	}
	if err := be.Pow(out.Storage, x.Storage, out.NumElements(), p); err != nil {
		return nil, err
	}
	record(g, &tensor.Node{Kind: tensor.OpPow, Inputs: []*tensor.Tensor{x}, Output: out, Exp: p},
		x.RequiresGrad)
	return out, nil
}

// MatMul returns a @ b for a [m,k] and b [k,n].
func MatMul(g *autograd.Graph, a, b *tensor.Tensor) (*tensor.Tensor, error) {
	m, n, k, err := core.CheckMatMul(a.Shape, b.Shape)
	if err != nil {
		return nil, err
	}
	be, err := deviceFor(a)
	if err != nil {
		return nil, err
	}
	out, err := tensor.Zeros(m, n)
	if err != nil {
		return nil, err
	}
	if err := be.MatMul(out.Storage, a.Storage, b.Storage, false, false, m, n, k, 1, 0); err != nil {
		return nil, err
	}
	record(g, &tensor.Node{Kind: tensor.OpMatMul, Inputs: []*tensor.Tensor{a, b}, Output: out},
		a.RequiresGrad || b.RequiresGrad)
	return out, nil
}

// Linear returns x @ w + bias for x [batch,in], w [in,out], bias [out].
// The batch dimension is the leading axis; bias broadcasts across the batch.
func Linear(g *autograd.Graph, x, w, bias *tensor.Tensor) (*tensor.Tensor, error) {
	batch, out, in, err := core.CheckMatMul(x.Shape, w.Shape)
	if err != nil {
		return nil, err
	}
	if len(bias.Shape) != 1 || bias.Shape[0] != out {
		return nil, fmt.Errorf("%w: linear bias %v, want [%d]", core.ErrShapeMismatch, bias.Shape, out)
	}
	be, err := deviceFor(x)
	if err != nil {
		return nil, err
	}
	y, err := tensor.Zeros(batch, out)
	if err != nil {
		return nil, err
	}
	if err := be.MatMul(y.Storage, x.Storage, w.Storage, false, false, batch, out, in, 1, 0); err != nil {
		return nil, err
	}
	if err := be.BiasAdd(y.Storage, bias.Storage, batch, out); err != nil {
		return nil, err
	}
	record(g, &tensor.Node{Kind: tensor.OpLinear, Inputs: []*tensor.Tensor{x, w, bias}, Output: y},
		x.RequiresGrad || w.RequiresGrad || bias.RequiresGrad)
	return y, nil
}

// Relu returns max(0, x) elementwise. The gradient at x == 0 is 0.
func Relu(g *autograd.Graph, x *tensor.Tensor) (*tensor.Tensor, error) {
	be, err := deviceFor(x)
	if err != nil {
		return nil, err
	}
	out, err := tensor.Zeros(x.Shape...)
	if err != nil {
		return nil, err
	}
	if err := be.Relu(out.Storage, x.Storage, out.NumElements()); err != nil {
		return nil, err
	}
	record(g, &tensor.Node{Kind: tensor.OpRelu, Inputs: []*tensor.Tensor{x}, Output: out},
		x.RequiresGrad)
	return out, nil
}

// LogSoftmax applies log-softmax along the class axis of each batch row of a
// [batch, classes] tensor, max-shift stabilized.
func LogSoftmax(g *autograd.Graph, x *tensor.Tensor) (*tensor.Tensor, error) {
	if len(x.Shape) != 2 {
		return nil, fmt.Errorf("%w: logsoftmax requires [batch, classes], got %v", core.ErrShapeMismatch, x.Shape)
	}
	rows, cols := x.Shape[0], x.Shape[1]
	be, err := deviceFor(x)
	if err != nil {
		return nil, err
	}
	out, err := tensor.Zeros(rows, cols)
	if err != nil {
		return nil, err
	}
	if err := be.LogSoftmax(out.Storage, x.Storage, rows, cols); err != nil {
		return nil, err
	}
	node := &tensor.Node{Kind: tensor.OpLogSoftmax, Inputs: []*tensor.Tensor{x}, Output: out}
	if g != nil && x.RequiresGrad {
		// backward needs softmax(x); exp of the already-stabilized output
		sm, err := tensor.Zeros(rows, cols)
		if err != nil {
			return nil, err
		}
		if err := be.Exp(sm.Storage, out.Storage, rows*cols); err != nil {
			return nil, err
		}
		node.Saved = sm
	}
	record(g, node, x.RequiresGrad)
	return out, nil
}

// Mean reduces x to a rank-0 scalar holding the mean of all elements.
func Mean(g *autograd.Graph, x *tensor.Tensor) (*tensor.Tensor, error) {
	be, err := deviceFor(x)
	if err != nil {
		return nil, err
	}
	n := x.NumElements()
	sum, err := be.Sum(x.Storage, n)
	if err != nil {
		return nil, err
	}
	out, err := tensor.Scalar(sum / float32(n))
	if err != nil {
		return nil, err
	}
	record(g, &tensor.Node{Kind: tensor.OpMean, Inputs: []*tensor.Tensor{x}, Output: out},
		x.RequiresGrad)
	return out, nil
}
