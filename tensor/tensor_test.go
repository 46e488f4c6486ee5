package tensor_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	_ "github.com/djeday123/gograd/backend/cpu"
	"github.com/djeday123/gograd/core"
	"github.com/djeday123/gograd/tensor"
)

func TestFromFloat32(t *testing.T) {
	x, err := tensor.FromFloat32([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(core.Shape{2, 3}, x.Shape); diff != "" {
		t.Fatalf("shape mismatch:\n%s", diff)
	}
	if diff := cmp.Diff([]float32{1, 2, 3, 4, 5, 6}, x.Float32()); diff != "" {
		t.Fatalf("data mismatch:\n%s", diff)
	}
	if x.NumElements() != 6 {
		t.Fatalf("NumElements = %d", x.NumElements())
	}

	_, err = tensor.FromFloat32([]float32{1, 2, 3}, 2, 2)
	if !errors.Is(err, core.ErrShapeMismatch) {
		t.Fatalf("want ErrShapeMismatch, got %v", err)
	}
}

func TestScalar(t *testing.T) {
	s, err := tensor.Scalar(2.5)
	if err != nil {
		t.Fatal(err)
	}
	if !s.IsScalar() {
		t.Fatalf("rank-0 expected, got shape %v", s.Shape)
	}
	v, err := s.Item()
	if err != nil || v != 2.5 {
		t.Fatalf("Item = %v, %v", v, err)
	}

	m, err := tensor.FromFloat32([]float32{1, 2}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Item(); !errors.Is(err, core.ErrShapeMismatch) {
		t.Fatalf("Item on rank-1 should fail with ErrShapeMismatch, got %v", err)
	}
}

func TestFromFloat16(t *testing.T) {
	halves := []core.Float16Value{
		core.Float32ToFloat16(1.5),
		core.Float32ToFloat16(-0.25),
	}
	x, err := tensor.FromFloat16(halves, 2)
	if err != nil {
		t.Fatal(err)
	}
	if x.DType != core.Float32 {
		t.Fatalf("dtype = %v", x.DType)
	}
	if diff := cmp.Diff([]float32{1.5, -0.25}, x.Float32()); diff != "" {
		t.Fatalf("data mismatch:\n%s", diff)
	}
}

func TestFromInt64(t *testing.T) {
	labels, err := tensor.FromInt64([]int64{0, 2, 1}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if labels.DType != core.Int64 {
		t.Fatalf("dtype = %v", labels.DType)
	}
	if diff := cmp.Diff([]int64{0, 2, 1}, labels.Int64()); diff != "" {
		t.Fatalf("data mismatch:\n%s", diff)
	}
}

func TestView(t *testing.T) {
	x, err := tensor.FromFloat32([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	v, err := x.View(3, 2)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(core.Shape{3, 2}, v.Shape); diff != "" {
		t.Fatalf("view shape:\n%s", diff)
	}

	// storage is shared
	v.Float32()[0] = 99
	if x.Float32()[0] != 99 {
		t.Fatal("view does not share storage")
	}

	if _, err := x.View(4, 2); !errors.Is(err, core.ErrShapeMismatch) {
		t.Fatalf("want ErrShapeMismatch, got %v", err)
	}
}

func TestClone(t *testing.T) {
	x, err := tensor.FromFloat32([]float32{1, 2, 3}, 3)
	if err != nil {
		t.Fatal(err)
	}
	c, err := x.Clone()
	if err != nil {
		t.Fatal(err)
	}
	c.Float32()[0] = 42
	if x.Float32()[0] != 1 {
		t.Fatal("clone shares storage with original")
	}
}

func TestGradLifecycle(t *testing.T) {
	x, err := tensor.FromFloat32([]float32{1, 2}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if x.Grad != nil {
		t.Fatal("fresh tensor should have no gradient buffer")
	}
	if err := x.EnsureGrad(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float32{0, 0}, x.Grad.Float32()); diff != "" {
		t.Fatalf("gradient not zero-initialized:\n%s", diff)
	}

	x.Grad.Float32()[0] = 3
	x.Grad.Float32()[1] = -1
	if err := x.ZeroGrad(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float32{0, 0}, x.Grad.Float32()); diff != "" {
		t.Fatalf("ZeroGrad left residue:\n%s", diff)
	}
	// values untouched
	if diff := cmp.Diff([]float32{1, 2}, x.Float32()); diff != "" {
		t.Fatalf("ZeroGrad touched values:\n%s", diff)
	}

	// ZeroGrad without a buffer is a no-op
	y, err := tensor.Zeros(2)
	if err != nil {
		t.Fatal(err)
	}
	if err := y.ZeroGrad(); err != nil {
		t.Fatal(err)
	}
}
