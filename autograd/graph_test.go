package autograd_test

import (
	"errors"
	"math"
	"testing"

	"github.com/djeday123/gograd/autograd"
	_ "github.com/djeday123/gograd/backend/cpu"
	"github.com/djeday123/gograd/core"
	"github.com/djeday123/gograd/ops"
	"github.com/djeday123/gograd/tensor"
)

func leaf(t *testing.T, data []float32, shape ...int) *tensor.Tensor {
	t.Helper()
	x, err := tensor.FromFloat32(data, shape...)
	if err != nil {
		t.Fatal(err)
	}
	x.RequiresGrad = true
	return x
}

func labelTensor(t *testing.T, labels ...int64) *tensor.Tensor {
	t.Helper()
	l, err := tensor.FromInt64(labels, len(labels))
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func wantClose(t *testing.T, got, want []float32, eps float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range got {
		if math.Abs(float64(got[i]-want[i])) > eps {
			t.Fatalf("element %d: got %v, want %v (full: %v vs %v)", i, got[i], want[i], got, want)
		}
	}
}

// Gradients from several consumers of the same tensor must sum.
func TestBackwardFanIn(t *testing.T) {
	g := autograd.NewGraph()
	x := leaf(t, []float32{1, -2, 3, 0}, 4)

	r, err := ops.Relu(g, x)
	if err != nil {
		t.Fatal(err)
	}
	sq, err := ops.Mul(g, x, x)
	if err != nil {
		t.Fatal(err)
	}
	s, err := ops.Add(g, r, sq)
	if err != nil {
		t.Fatal(err)
	}
	loss, err := ops.Mean(g, s)
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Backward(loss); err != nil {
		t.Fatal(err)
	}

	// d/dx (relu(x) + x*x)/4: relu contributes 1 where x > 0, the square 2x.
	wantClose(t, x.Grad.Float32(), []float32{0.75, -1, 1.75, 0}, 1e-5)
}

// forward runs x -> linear -> relu -> logsoftmax -> nll and returns the loss.
func forward(g *autograd.Graph, x, w, b, labels *tensor.Tensor) (*tensor.Tensor, error) {
	y, err := ops.Linear(g, x, w, b)
	if err != nil {
		return nil, err
	}
	a, err := ops.Relu(g, y)
	if err != nil {
		return nil, err
	}
	lp, err := ops.LogSoftmax(g, a)
	if err != nil {
		return nil, err
	}
	return ops.NLL(g, lp, labels)
}

func TestGradientsMatchFiniteDifferences(t *testing.T) {
	xData := []float32{0.5, -1.2, 2.0, 1.1, 0.3, -0.7}
	wData := []float32{0.4, -0.6, 1.1, 0.9, -0.3, 0.5}
	bData := []float32{0.2, -0.1}
	labels := labelTensor(t, 1, 0)

	g := autograd.NewGraph()
	x := leaf(t, xData, 2, 3)
	w := leaf(t, wData, 3, 2)
	b := leaf(t, bData, 2)

	loss, err := forward(g, x, w, b, labels)
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Backward(loss); err != nil {
		t.Fatal(err)
	}

	// lossAt recomputes the loss for perturbed inputs without recording.
	lossAt := func(xv, wv, bv []float32) float32 {
		xt := leaf(t, xv, 2, 3)
		wt := leaf(t, wv, 3, 2)
		bt := leaf(t, bv, 2)
		l, err := forward(nil, xt, wt, bt, labels)
		if err != nil {
			t.Fatal(err)
		}
		v, err := l.Item()
		if err != nil {
			t.Fatal(err)
		}
		return v
	}

	const eps = 1e-2
	check := func(name string, data, grads []float32, at func(i int, v float32) float32) {
		for i := range data {
			orig := data[i]
			plus := at(i, orig+eps)
			minus := at(i, orig-eps)
			fd := (plus - minus) / (2 * eps)
			if math.Abs(float64(fd-grads[i])) > 0.02 {
				t.Fatalf("%s[%d]: analytic %v, finite difference %v", name, i, grads[i], fd)
			}
		}
	}

	perturb := func(src []float32, i int, v float32) []float32 {
		out := make([]float32, len(src))
		copy(out, src)
		out[i] = v
		return out
	}

	check("x", xData, x.Grad.Float32(), func(i int, v float32) float32 {
		return lossAt(perturb(xData, i, v), wData, bData)
	})
	check("w", wData, w.Grad.Float32(), func(i int, v float32) float32 {
		return lossAt(xData, perturb(wData, i, v), bData)
	})
	check("b", bData, b.Grad.Float32(), func(i int, v float32) float32 {
		return lossAt(xData, wData, perturb(bData, i, v))
	})
}

// Zeroing gradients and replaying the same forward pass must reproduce the
// exact same gradients.
func TestZeroGradThenReplayReproduces(t *testing.T) {
	xData := []float32{0.5, -1.2, 2.0, 1.1, 0.3, -0.7}
	wData := []float32{0.4, -0.6, 1.1, 0.9, -0.3, 0.5}
	bData := []float32{0.2, -0.1}
	labels := labelTensor(t, 1, 0)

	w := leaf(t, wData, 3, 2)
	b := leaf(t, bData, 2)

	run := func() {
		x := leaf(t, xData, 2, 3)
		x.RequiresGrad = false
		g := autograd.NewGraph()
		loss, err := forward(g, x, w, b, labels)
		if err != nil {
			t.Fatal(err)
		}
		if err := g.Backward(loss); err != nil {
			t.Fatal(err)
		}
	}

	run()
	first := make([]float32, len(w.Grad.Float32()))
	copy(first, w.Grad.Float32())

	if err := w.ZeroGrad(); err != nil {
		t.Fatal(err)
	}
	if err := b.ZeroGrad(); err != nil {
		t.Fatal(err)
	}
	run()
	wantClose(t, w.Grad.Float32(), first, 0)
}

// Without ZeroGrad, a second backward pass accumulates on top of the first.
func TestGradientsAccumulateAcrossGraphs(t *testing.T) {
	x := leaf(t, []float32{1, 2, 3}, 3)

	for pass := 0; pass < 2; pass++ {
		g := autograd.NewGraph()
		loss, err := ops.Mean(g, x)
		if err != nil {
			t.Fatal(err)
		}
		if err := g.Backward(loss); err != nil {
			t.Fatal(err)
		}
	}
	third := float32(1.0 / 3.0)
	wantClose(t, x.Grad.Float32(), []float32{2 * third, 2 * third, 2 * third}, 1e-6)
}

func TestDoubleBackward(t *testing.T) {
	g := autograd.NewGraph()
	x := leaf(t, []float32{1, 2}, 2)
	loss, err := ops.Mean(g, x)
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Backward(loss); err != nil {
		t.Fatal(err)
	}
	if err := g.Backward(loss); !errors.Is(err, autograd.ErrDoubleBackward) {
		t.Fatalf("want ErrDoubleBackward, got %v", err)
	}
}

func TestBackwardRequiresScalarLoss(t *testing.T) {
	g := autograd.NewGraph()
	x := leaf(t, []float32{1, 2}, 2)
	y, err := ops.Relu(g, x)
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Backward(y); !errors.Is(err, core.ErrShapeMismatch) {
		t.Fatalf("want ErrShapeMismatch, got %v", err)
	}
}

// A nil graph disables recording entirely; leaves collect no gradients.
func TestInferenceModeRecordsNothing(t *testing.T) {
	x := leaf(t, []float32{1, -2}, 2)
	y, err := ops.Relu(nil, x)
	if err != nil {
		t.Fatal(err)
	}
	if y.Node != nil {
		t.Fatal("inference output should carry no node")
	}

	g := autograd.NewGraph()
	plain, err := tensor.FromFloat32([]float32{1, 2}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ops.Relu(g, plain); err != nil {
		t.Fatal(err)
	}
	if g.Len() != 0 {
		t.Fatalf("untracked inputs recorded %d nodes", g.Len())
	}
}
