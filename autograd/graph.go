package autograd

import (
	"errors"
	"fmt"

	"github.com/djeday123/gograd/backend"
	"github.com/djeday123/gograd/core"
	"github.com/djeday123/gograd/tensor"
)

// ErrDoubleBackward is returned when Backward is invoked a second time on a
// graph whose nodes have already been consumed.
var ErrDoubleBackward = errors.New("backward already run on this graph")

// Graph records operation nodes produced during one forward pass, in creation
// order. It is owned by the caller: each forward pass gets a fresh Graph, so
// independent training runs never share mutable state.
//
// Because every node's inputs are created strictly before the node itself,
// the recording order is a topological order, and replaying it in reverse is
// a valid reverse topological sort for the backward pass.
type Graph struct {
	nodes    []*tensor.Node
	consumed bool
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{}
}

// Record appends a node and wires the output tensor's back-reference.
func (g *Graph) Record(n *tensor.Node) {
	n.Output.Node = n
	g.nodes = append(g.nodes, n)
}

// Len returns the number of recorded nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Backward seeds loss's gradient with 1.0 and replays the recorded nodes in
// reverse creation order, accumulating each node's input gradients. Gradients
// are always added into the target buffers, so a tensor feeding several
// downstream nodes collects the sum of all contributions.
//
// loss must be a rank-0 tensor. A graph can be consumed exactly once; a
// second call fails with ErrDoubleBackward.
func (g *Graph) Backward(loss *tensor.Tensor) error {
	if !loss.IsScalar() {
		return fmt.Errorf("%w: backward requires a rank-0 loss tensor, got shape %v",
			core.ErrShapeMismatch, loss.Shape)
	}
	if g.consumed {
		return ErrDoubleBackward
	}
	g.consumed = true

	be, err := backend.GetForDevice(loss.Storage.Device())
	if err != nil {
		return err
	}
	if err := loss.EnsureGrad(); err != nil {
		return err
	}
	if err := be.AddScalar(loss.Grad.Storage, 1, 1); err != nil {
		return err
	}

	for i := len(g.nodes) - 1; i >= 0; i-- {
		n := g.nodes[i]
		if n.Output.Grad == nil {
			// no gradient flowed into this branch
			continue
		}
		if err := step(be, n); err != nil {
			return fmt.Errorf("backward through %s node: %w", n.Kind, err)
		}
	}
	return nil
}

// grad ensures t has a gradient buffer and returns it, or nil when t does not
// participate in differentiation.
func grad(t *tensor.Tensor) (*tensor.Tensor, error) {
	if !t.RequiresGrad {
		return nil, nil
	}
	if err := t.EnsureGrad(); err != nil {
		return nil, err
	}
	return t.Grad, nil
}

// step applies one node's vector-Jacobian product, accumulating into each
// input's gradient buffer.
func step(be backend.Backend, n *tensor.Node) error {
	dy := n.Output.Grad

	switch n.Kind {
	case tensor.OpAdd:
		for _, in := range n.Inputs {
			ig, err := grad(in)
			if err != nil {
				return err
			}
			if ig == nil {
				continue
			}
			if err := be.Axpy(1, dy.Storage, ig.Storage, ig.NumElements()); err != nil {
				return err
			}
		}

	case tensor.OpMul:
		a, b := n.Inputs[0], n.Inputs[1]
		if ag, err := grad(a); err != nil {
			return err
		} else if ag != nil {
			if err := be.MulAcc(ag.Storage, dy.Storage, b.Storage, ag.NumElements()); err != nil {
				return err
			}
		}
		if bg, err := grad(b); err != nil {
			return err
		} else if bg != nil {
			if err := be.MulAcc(bg.Storage, dy.Storage, a.Storage, bg.NumElements()); err != nil {
				return err
			}
		}

	case tensor.OpPow:
		x := n.Inputs[0]
		xg, err := grad(x)
		if err != nil || xg == nil {
			return err
		}
		return be.PowGrad(xg.Storage, x.Storage, dy.Storage, xg.NumElements(), n.Exp)

	case tensor.OpMatMul:
		a, b := n.Inputs[0], n.Inputs[1]
		m, k := a.Shape[0], a.Shape[1]
		nc := b.Shape[1]
		if ag, err := grad(a); err != nil {
			return err
		} else if ag != nil {
			// da += dy @ b^T
			if err := be.MatMul(ag.Storage, dy.Storage, b.Storage, false, true, m, k, nc, 1, 1); err != nil {
				return err
			}
		}
		if bg, err := grad(b); err != nil {
			return err
		} else if bg != nil {
			// db += a^T @ dy
			if err := be.MatMul(bg.Storage, a.Storage, dy.Storage, true, false, k, nc, m, 1, 1); err != nil {
				return err
			}
		}

	case tensor.OpLinear:
		x, w, bias := n.Inputs[0], n.Inputs[1], n.Inputs[2]
		batch, in := x.Shape[0], x.Shape[1]
		out := w.Shape[1]
		if xg, err := grad(x); err != nil {
			return err
		} else if xg != nil {
			// dx += dy @ W^T
			if err := be.MatMul(xg.Storage, dy.Storage, w.Storage, false, true, batch, in, out, 1, 1); err != nil {
				return err
			}
		}
		if wg, err := grad(w); err != nil {
			return err
		} else if wg != nil {
			// dW += x^T @ dy
			if err := be.MatMul(wg.Storage, x.Storage, dy.Storage, true, false, in, out, batch, 1, 1); err != nil {
				return err
			}
		}
		if bgrad, err := grad(bias); err != nil {
			return err
		} else if bgrad != nil {
			// db += column-sum(dy)
			if err := be.ColSum(bgrad.Storage, dy.Storage, batch, out); err != nil {
				return err
			}
		}

	case tensor.OpRelu:
		x := n.Inputs[0]
		xg, err := grad(x)
		if err != nil || xg == nil {
			return err
		}
		return be.ReluGrad(xg.Storage, x.Storage, dy.Storage, xg.NumElements())

	case tensor.OpLogSoftmax:
		x := n.Inputs[0]
		xg, err := grad(x)
		if err != nil || xg == nil {
			return err
		}
		rows, cols := x.Shape[0], x.Shape[1]
		return be.LogSoftmaxGrad(xg.Storage, n.Saved.Storage, dy.Storage, rows, cols)

	case tensor.OpMean:
		x := n.Inputs[0]
		xg, err := grad(x)
		if err != nil || xg == nil {
			return err
		}
		g := dy.Float32()[0]
		return be.AddScalar(xg.Storage, xg.NumElements(), g/float32(x.NumElements()))

	case tensor.OpNLL:
		logp := n.Inputs[0]
		lg, err := grad(logp)
		if err != nil || lg == nil {
			return err
		}
		batch := logp.Shape[0]
		cols := logp.Shape[1]
		g := dy.Float32()[0]
		data := lg.Float32()
		for i, label := range n.Labels {
			data[i*cols+int(label)] -= g / float32(batch)
		}

	case tensor.OpCrossEntropy:
		logits := n.Inputs[0]
		lg, err := grad(logits)
		if err != nil || lg == nil {
			return err
		}
		batch := logits.Shape[0]
		cols := logits.Shape[1]
		g := dy.Float32()[0]
		sm := n.Saved.Float32()
		data := lg.Float32()
		scale := g / float32(batch)
		for i, label := range n.Labels {
			base := i * cols
			for j := 0; j < cols; j++ {
				data[base+j] += sm[base+j] * scale
			}
			data[base+int(label)] -= scale
		}

	default:
		return fmt.Errorf("%w: op kind %s", backend.ErrUnsupported, n.Kind)
	}
	return nil
}
