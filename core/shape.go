package core

import (
	"errors"
	"fmt"
)

// ErrShapeMismatch is returned when operand dimensions are incompatible for
// the requested operation, including a non-scalar argument to backward.
var ErrShapeMismatch = errors.New("shape mismatch")

// Shape is the dimension sizes of a tensor, e.g. [2, 3, 4].
// A zero-length shape is a rank-0 scalar holding one element.
type Shape []int

// Strides are byte offsets per axis (row-major).
type Strides []int

// ContiguousStrides computes row-major strides for a shape.
// Last axis stride = elemSize; strides[i] = strides[i+1] * shape[i+1].
func ContiguousStrides(shape Shape, elemSize uintptr) Strides {
	if len(shape) == 0 {
		return nil
	}
	strides := make(Strides, len(shape))
	strides[len(shape)-1] = int(elemSize)
	for i := len(shape) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * shape[i+1]
	}
	return strides
}

// NumElements returns the total number of elements (product of dimensions).
// A rank-0 shape has one element.
func (s Shape) NumElements() int {
	n := 1
	for _, d := range s {
		if d <= 0 {
			return 0
		}
		n *= d
	}
	return n
}

// Equal reports whether two shapes have identical rank and dimensions.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// IsScalar reports whether the shape is rank 0.
func (s Shape) IsScalar() bool {
	return len(s) == 0
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	if s == nil {
		return nil
	}
	out := make(Shape, len(s))
	copy(out, s)
	return out
}

// CheckMatMul validates a [m,k] @ b [k,n] dimensions and returns m, n, k.
func CheckMatMul(a, b Shape) (m, n, k int, err error) {
	if len(a) != 2 || len(b) != 2 {
		return 0, 0, 0, fmt.Errorf("%w: matmul requires 2D operands, got %v and %v", ErrShapeMismatch, a, b)
	}
	if a[1] != b[0] {
		return 0, 0, 0, fmt.Errorf("%w: matmul inner dims %d and %d", ErrShapeMismatch, a[1], b[0])
	}
	return a[0], b[1], a[1], nil
}
