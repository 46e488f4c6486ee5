package backend

import (
	"errors"
	"fmt"
)

// DeviceType identifies the kind of hardware.
type DeviceType uint8

const (
	CPU DeviceType = iota
	CUDA
	ROCm
	Metal
	Vulkan
)

// Device identifies a specific device (e.g. GPU 0).
type Device struct {
	Type  DeviceType
	Index int
}

// CPU0 is the default CPU device.
var CPU0 = Device{Type: CPU, Index: 0}

// Storage represents raw memory on a device.
// Ptr() is the bridge to raw hardware (RAM address for CPU, device pointer for GPU).
type Storage interface {
	Device() Device
	Ptr() uintptr
	Bytes() []byte // CPU only; nil for GPU
	ByteLen() int
	Free()
}

// Backend is the contract every hardware backend must implement.
// All float kernels operate on contiguous float32 buffers.
//
// Gradient kernels (ReluGrad, PowGrad, MulAcc, LogSoftmaxGrad, ColSum,
// AddScalar) accumulate into dst; they never overwrite. Forward kernels
// overwrite dst.
type Backend interface {
	Name() string
	DeviceType() DeviceType

	Alloc(byteLen int) (Storage, error)
	Free(s Storage)
	Copy(dst, src Storage, byteLen int) error
	Fill(dst Storage, nElems int, value float32) error

	// Elementwise forward: dst = a op b / f(src).
	Add(dst, a, b Storage, nElems int) error
	Mul(dst, a, b Storage, nElems int) error
	Exp(dst, src Storage, nElems int) error
	Pow(dst, src Storage, nElems int, p float64) error
	Relu(dst, src Storage, nElems int) error

	// BLAS level 1: y += alpha*x; x *= alpha; sum of elements.
	Axpy(alpha float32, x, y Storage, nElems int) error
	Scale(alpha float32, x Storage, nElems int) error
	Sum(src Storage, nElems int) (float32, error)

	// MatMul: C = alpha*op(A)@op(B) + beta*C. op(A) is m×k, op(B) is k×n,
	// C is m×n; transA/transB select op. beta=1 accumulates into C.
	MatMul(dst, a, b Storage, transA, transB bool, m, n, k int, alpha, beta float32) error

	// BiasAdd: dst[i,j] += bias[j] for a [rows, cols] matrix.
	BiasAdd(dst, bias Storage, rows, cols int) error
	// ColSum: dst[j] += sum_i src[i,j] for a [rows, cols] matrix.
	ColSum(dst, src Storage, rows, cols int) error

	// Row softmax family, max-shift stabilized. src and dst are [rows, cols].
	LogSoftmax(dst, src Storage, rows, cols int) error
	Softmax(dst, src Storage, rows, cols int) error
	// LogSoftmaxGrad: dst[i,:] += dy[i,:] - sm[i,:]*sum_j(dy[i,j]).
	LogSoftmaxGrad(dst, sm, dy Storage, rows, cols int) error

	// Gradient accumulation kernels.
	ReluGrad(dst, x, dy Storage, nElems int) error   // dst += dy where x > 0
	PowGrad(dst, x, dy Storage, nElems int, p float64) error // dst += dy*p*x^(p-1)
	MulAcc(dst, a, b Storage, nElems int) error      // dst += a*b
	AddScalar(dst Storage, nElems int, value float32) error // dst += value
}

var registry = make(map[DeviceType]Backend)

// Register adds a backend for its device type.
func Register(b Backend) {
	registry[b.DeviceType()] = b
}

// Get returns the backend for a device type.
func Get(dt DeviceType) (Backend, error) {
	b, ok := registry[dt]
	if !ok {
		return nil, fmt.Errorf("no backend registered for device type %v", dt)
	}
	return b, nil
}

// GetForDevice returns the backend that handles the given device.
func GetForDevice(d Device) (Backend, error) {
	return Get(d.Type)
}

// ErrUnsupported is returned when an operation is not supported.
var ErrUnsupported = errors.New("operation not supported")
