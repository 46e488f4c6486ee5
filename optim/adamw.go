package optim

import (
	"math"

	"github.com/djeday123/gograd/tensor"
)

// AdamW implements Adam with decoupled weight decay.
type AdamW struct {
	params      []*tensor.Tensor
	lr          float64
	beta1       float64
	beta2       float64
	eps         float64
	weightDecay float64
	t           int
	m           []*tensor.Tensor // first moment
	v           []*tensor.Tensor // second moment
}

// NewAdamW creates an AdamW optimizer. params are modified in place; a
// parameter without a gradient buffer is skipped during Step.
func NewAdamW(params []*tensor.Tensor, lr, beta1, beta2, eps, weightDecay float64) (*AdamW, error) {
	if eps == 0 {
		eps = 1e-8
	}
	m := make([]*tensor.Tensor, len(params))
	v := make([]*tensor.Tensor, len(params))
	for i, p := range params {
		var err error
		if m[i], err = tensor.Zeros(p.Shape...); err != nil {
			return nil, err
		}
		if v[i], err = tensor.Zeros(p.Shape...); err != nil {
			return nil, err
		}
	}
	return &AdamW{
		params:      params,
		lr:          lr,
		beta1:       beta1,
		beta2:       beta2,
		eps:         eps,
		weightDecay: weightDecay,
		m:           m,
		v:           v,
	}, nil
}

// Step performs one parameter update.
// m = beta1*m + (1-beta1)*grad, v = beta2*v + (1-beta2)*grad^2,
// m_hat = m/(1-beta1^t), v_hat = v/(1-beta2^t),
// p -= lr * m_hat / (sqrt(v_hat)+eps), with decoupled decay p -= lr*wd*p.
func (a *AdamW) Step() error {
	a.t++
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))
	for i, p := range a.params {
		if p.Grad == nil {
			continue
		}
		grad := p.Grad.Float32()
		param := p.Float32()
		mF := a.m[i].Float32()
		vF := a.v[i].Float32()
		for j := range param {
			g := float64(grad[j])
			param[j] -= float32(a.lr * a.weightDecay * float64(param[j]))
			mF[j] = float32(a.beta1*float64(mF[j]) + (1-a.beta1)*g)
			vF[j] = float32(a.beta2*float64(vF[j]) + (1-a.beta2)*g*g)
			mHat := float64(mF[j]) / c1
			vHat := float64(vF[j]) / c2
			param[j] -= float32(a.lr * mHat / (math.Sqrt(vHat) + a.eps))
		}
	}
	return nil
}

// ZeroGrad resets every parameter's gradient buffer to zero.
func (a *AdamW) ZeroGrad() error {
	for _, p := range a.params {
		if err := p.ZeroGrad(); err != nil {
			return err
		}
	}
	return nil
}
