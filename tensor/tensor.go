package tensor

import (
	"fmt"
	"unsafe"

	"github.com/djeday123/gograd/backend"
	"github.com/djeday123/gograd/core"
)

// Tensor is the core multi-dimensional array: storage + shape + strides + dtype.
// Grad is the accumulated gradient buffer; it is always the same shape as the
// value buffer, zero-initialized, and only ever written additively.
// Node points at the operation that produced this tensor (nil for leaves).
type Tensor struct {
	Storage      backend.Storage
	Shape        core.Shape
	Strides      core.Strides
	DType        core.DType
	Grad         *Tensor
	Node         *Node
	RequiresGrad bool
}

// New creates a tensor from existing storage, shape, and strides.
// If strides is nil, contiguous row-major strides are computed.
func New(storage backend.Storage, shape core.Shape, strides core.Strides, dtype core.DType) *Tensor {
	if strides == nil {
		strides = core.ContiguousStrides(shape, dtype.Size())
	}
	return &Tensor{
		Storage: storage,
		Shape:   shape,
		Strides: strides,
		DType:   dtype,
	}
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return t.Shape.NumElements()
}

// IsScalar reports whether the tensor is rank 0.
func (t *Tensor) IsScalar() bool {
	return t.Shape.IsScalar()
}

// Zeros allocates a zero-filled float32 CPU tensor.
func Zeros(shape ...int) (*Tensor, error) {
	s := core.Shape(shape)
	be, err := backend.GetForDevice(backend.CPU0)
	if err != nil {
		return nil, err
	}
	st, err := be.Alloc(s.NumElements() * 4)
	if err != nil {
		return nil, err
	}
	return New(st, s, nil, core.Float32), nil
}

// FromFloat32 creates a new CPU tensor from a float32 slice (copy; contiguous).
// With no shape arguments the result is a rank-0 scalar and data must hold
// exactly one value.
func FromFloat32(data []float32, shape ...int) (*Tensor, error) {
	s := core.Shape(shape)
	if s.NumElements() != len(data) {
		return nil, fmt.Errorf("%w: shape %v has %d elements, data has %d",
			core.ErrShapeMismatch, s, s.NumElements(), len(data))
	}
	be, err := backend.GetForDevice(backend.CPU0)
	if err != nil {
		return nil, err
	}
	st, err := be.Alloc(len(data) * 4)
	if err != nil {
		return nil, err
	}
	copy(st.Bytes(), BytesFromFloat32(data))
	return New(st, s, nil, core.Float32), nil
}

// FromFloat16 creates a float32 CPU tensor from half-precision values.
// Arithmetic stays float32; this is an ingestion convenience.
func FromFloat16(data []core.Float16Value, shape ...int) (*Tensor, error) {
	widened := make([]float32, len(data))
	for i, h := range data {
		widened[i] = h.Float32()
	}
	return FromFloat32(widened, shape...)
}

// FromInt64 creates a new CPU tensor from an int64 slice (e.g. class labels).
func FromInt64(data []int64, shape ...int) (*Tensor, error) {
	s := core.Shape(shape)
	if s.NumElements() != len(data) {
		return nil, fmt.Errorf("%w: shape %v has %d elements, data has %d",
			core.ErrShapeMismatch, s, s.NumElements(), len(data))
	}
	be, err := backend.GetForDevice(backend.CPU0)
	if err != nil {
		return nil, err
	}
	st, err := be.Alloc(len(data) * 8)
	if err != nil {
		return nil, err
	}
	b := st.Bytes()
	dst := unsafe.Slice((*int64)(unsafe.Pointer(&b[0])), len(data))
	copy(dst, data)
	return New(st, s, nil, core.Int64), nil
}

// Scalar creates a rank-0 float32 tensor holding v.
func Scalar(v float32) (*Tensor, error) {
	return FromFloat32([]float32{v})
}

// Float32 returns the underlying float32 slice for CPU tensors (shared memory).
// Panics if not Float32 dtype.
func (t *Tensor) Float32() []float32 {
	if t.DType != core.Float32 {
		panic("Float32() only for Float32 tensors")
	}
	return Float32FromBytes(t.Storage.Bytes())
}

// Int64 returns the underlying int64 slice for CPU tensors.
func (t *Tensor) Int64() []int64 {
	if t.DType != core.Int64 {
		panic("Int64() only for Int64 tensors")
	}
	return Int64FromBytes(t.Storage.Bytes())
}

// Item returns the value of a rank-0 tensor.
func (t *Tensor) Item() (float32, error) {
	if !t.IsScalar() {
		return 0, fmt.Errorf("%w: Item requires a rank-0 tensor, got %v", core.ErrShapeMismatch, t.Shape)
	}
	return t.Float32()[0], nil
}

// View returns a new tensor sharing storage with t but with the given shape.
// The product of shape must equal t.NumElements(). Strides are recomputed as contiguous.
func (t *Tensor) View(shape ...int) (*Tensor, error) {
	s := core.Shape(shape)
	if s.NumElements() != t.NumElements() {
		return nil, fmt.Errorf("%w: view shape %v has %d elements, tensor has %d",
			core.ErrShapeMismatch, s, s.NumElements(), t.NumElements())
	}
	return New(t.Storage, s, nil, t.DType), nil
}

// Clone allocates a new tensor with the same shape and copies data.
func (t *Tensor) Clone() (*Tensor, error) {
	be, err := backend.GetForDevice(t.Storage.Device())
	if err != nil {
		return nil, err
	}
	byteLen := t.NumElements() * int(t.DType.Size())
	st, err := be.Alloc(byteLen)
	if err != nil {
		return nil, err
	}
	if err := be.Copy(st, t.Storage, byteLen); err != nil {
		st.Free()
		return nil, err
	}
	return New(st, t.Shape.Clone(), nil, t.DType), nil
}

// EnsureGrad allocates a zero-filled gradient buffer if none exists.
// All gradient writes are additive on top of this zero state.
func (t *Tensor) EnsureGrad() error {
	if t.Grad != nil {
		return nil
	}
	g, err := Zeros(t.Shape...)
	if err != nil {
		return err
	}
	t.Grad = g
	return nil
}

// ZeroGrad resets the gradient buffer to zero without touching values.
// A tensor without a gradient buffer is left untouched.
func (t *Tensor) ZeroGrad() error {
	if t.Grad == nil {
		return nil
	}
	be, err := backend.GetForDevice(t.Grad.Storage.Device())
	if err != nil {
		return err
	}
	return be.Fill(t.Grad.Storage, t.Grad.NumElements(), 0)
}
