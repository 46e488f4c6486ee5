// Package optim implements parameter update rules. An optimizer holds
// references to the parameter tensors it updates; Step reads each
// parameter's accumulated gradient and mutates the value buffer in place,
// never the gradient buffer. ZeroGrad resets the gradient buffers.
package optim

import (
	"github.com/djeday123/gograd/backend"
	"github.com/djeday123/gograd/tensor"
)

// Optimizer updates parameters from their accumulated gradients.
type Optimizer interface {
	Step() error
	ZeroGrad() error
}

// SGD is plain stochastic gradient descent: p -= lr * p.Grad.
type SGD struct {
	params []*tensor.Tensor
	lr     float32
}

// NewSGD creates an SGD optimizer over the given parameters.
func NewSGD(params []*tensor.Tensor, lr float32) *SGD {
	return &SGD{params: params, lr: lr}
}

// Step applies one update. Parameters without a gradient buffer are skipped,
// so calling Step before any backward pass is a no-op.
func (s *SGD) Step() error {
	for _, p := range s.params {
		if p.Grad == nil {
			continue
		}
		be, err := backend.GetForDevice(p.Storage.Device())
		if err != nil {
			return err
		}
		if err := be.Axpy(-s.lr, p.Grad.Storage, p.Storage, p.NumElements()); err != nil {
			return err
		}
	}
	return nil
}

// ZeroGrad resets every parameter's gradient buffer to zero.
func (s *SGD) ZeroGrad() error {
	for _, p := range s.params {
		if err := p.ZeroGrad(); err != nil {
			return err
		}
	}
	return nil
}
