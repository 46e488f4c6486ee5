package cpu

import (
	"math"
	"unsafe"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/djeday123/gograd/backend"
)

type cpuBackend struct{}

func init() {
	backend.Register(&cpuBackend{})
}

func (b *cpuBackend) Name() string                   { return "cpu" }
func (b *cpuBackend) DeviceType() backend.DeviceType { return backend.CPU }

func (b *cpuBackend) Alloc(byteLen int) (backend.Storage, error) {
	return Alloc(byteLen), nil
}

func (b *cpuBackend) Free(s backend.Storage) {
	if cs, ok := s.(*storage); ok {
		cs.Free()
	}
}

func (b *cpuBackend) Copy(dst, src backend.Storage, byteLen int) error {
	db := dst.(*storage).buf
	sb := src.(*storage).buf
	copy(db[:byteLen], sb[:byteLen])
	return nil
}

func floatSlice(s backend.Storage, n int) []float32 {
	if n == 0 {
		return nil
	}
	b := s.(*storage).buf
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), n)
}

func vec(s backend.Storage, n int) blas32.Vector {
	return blas32.Vector{N: n, Inc: 1, Data: floatSlice(s, n)}
}

func (b *cpuBackend) Fill(dst backend.Storage, nElems int, value float32) error {
	d := floatSlice(dst, nElems)
	for i := range d {
		d[i] = value
	}
	return nil
}

func (b *cpuBackend) Add(dst, a, c backend.Storage, nElems int) error {
	d := floatSlice(dst, nElems)
	x := floatSlice(a, nElems)
	y := floatSlice(c, nElems)
	for i := range d {
		d[i] = x[i] + y[i]
	}
	return nil
}

func (b *cpuBackend) Mul(dst, a, c backend.Storage, nElems int) error {
	d := floatSlice(dst, nElems)
	x := floatSlice(a, nElems)
	y := floatSlice(c, nElems)
	for i := range d {
		d[i] = x[i] * y[i]
	}
	return nil
}

func (b *cpuBackend) Exp(dst, src backend.Storage, nElems int) error {
	d := floatSlice(dst, nElems)
	x := floatSlice(src, nElems)
	for i := range d {
		d[i] = float32(math.Exp(float64(x[i])))
	}
	return nil
}

func (b *cpuBackend) Pow(dst, src backend.Storage, nElems int, p float64) error {
	d := floatSlice(dst, nElems)
	x := floatSlice(src, nElems)
	for i := range d {
		d[i] = float32(math.Pow(float64(x[i]), p))
	}
	return nil
}

func (b *cpuBackend) Relu(dst, src backend.Storage, nElems int) error {
	d := floatSlice(dst, nElems)
	x := floatSlice(src, nElems)
	for i := range d {
		if x[i] > 0 {
			d[i] = x[i]
		} else {
			d[i] = 0
		}
	}
	return nil
}

func (b *cpuBackend) Axpy(alpha float32, x, y backend.Storage, nElems int) error {
	blas32.Axpy(alpha, vec(x, nElems), vec(y, nElems))
	return nil
}

func (b *cpuBackend) Scale(alpha float32, x backend.Storage, nElems int) error {
	blas32.Scal(alpha, vec(x, nElems))
	return nil
}

func (b *cpuBackend) Sum(src backend.Storage, nElems int) (float32, error) {
	x := floatSlice(src, nElems)
	var s float32
	for _, v := range x {
		s += v
	}
	return s, nil
}

func (b *cpuBackend) MatMul(dst, a, c backend.Storage, transA, transB bool, m, n, k int, alpha, beta float32) error {
	tA, tB := blas.NoTrans, blas.NoTrans
	aRows, aCols := m, k
	if transA {
		tA = blas.Trans
		aRows, aCols = k, m
	}
	bRows, bCols := k, n
	if transB {
		tB = blas.Trans
		bRows, bCols = n, k
	}
	ga := blas32.General{Rows: aRows, Cols: aCols, Stride: aCols, Data: floatSlice(a, aRows*aCols)}
	gb := blas32.General{Rows: bRows, Cols: bCols, Stride: bCols, Data: floatSlice(c, bRows*bCols)}
	gc := blas32.General{Rows: m, Cols: n, Stride: n, Data: floatSlice(dst, m*n)}
	blas32.Gemm(tA, tB, alpha, ga, gb, beta, gc)
	return nil
}

func (b *cpuBackend) BiasAdd(dst, bias backend.Storage, rows, cols int) error {
	d := floatSlice(dst, rows*cols)
	bs := floatSlice(bias, cols)
	for i := 0; i < rows; i++ {
		row := d[i*cols : (i+1)*cols]
		for j := range row {
			row[j] += bs[j]
		}
	}
	return nil
}

func (b *cpuBackend) ColSum(dst, src backend.Storage, rows, cols int) error {
	d := floatSlice(dst, cols)
	x := floatSlice(src, rows*cols)
	for i := 0; i < rows; i++ {
		row := x[i*cols : (i+1)*cols]
		for j := range row {
			d[j] += row[j]
		}
	}
	return nil
}

func (b *cpuBackend) LogSoftmax(dst, src backend.Storage, rows, cols int) error {
	d := floatSlice(dst, rows*cols)
	x := floatSlice(src, rows*cols)
	for i := 0; i < rows; i++ {
		row := x[i*cols : (i+1)*cols]
		out := d[i*cols : (i+1)*cols]
		maxV := row[0]
		for _, v := range row[1:] {
			if v > maxV {
				maxV = v
			}
		}
		var sumExp float64
		for _, v := range row {
			sumExp += math.Exp(float64(v - maxV))
		}
		lse := maxV + float32(math.Log(sumExp))
		for j, v := range row {
			out[j] = v - lse
		}
	}
	return nil
}

func (b *cpuBackend) Softmax(dst, src backend.Storage, rows, cols int) error {
	if err := b.LogSoftmax(dst, src, rows, cols); err != nil {
		return err
	}
	return b.Exp(dst, dst, rows*cols)
}

func (b *cpuBackend) LogSoftmaxGrad(dst, sm, dy backend.Storage, rows, cols int) error {
	d := floatSlice(dst, rows*cols)
	s := floatSlice(sm, rows*cols)
	g := floatSlice(dy, rows*cols)
	for i := 0; i < rows; i++ {
		base := i * cols
		var gsum float32
		for j := 0; j < cols; j++ {
			gsum += g[base+j]
		}
		for j := 0; j < cols; j++ {
			d[base+j] += g[base+j] - s[base+j]*gsum
		}
	}
	return nil
}

func (b *cpuBackend) ReluGrad(dst, x, dy backend.Storage, nElems int) error {
	d := floatSlice(dst, nElems)
	in := floatSlice(x, nElems)
	g := floatSlice(dy, nElems)
	for i := range d {
		// subgradient at 0 is 0
		if in[i] > 0 {
			d[i] += g[i]
		}
	}
	return nil
}

func (b *cpuBackend) PowGrad(dst, x, dy backend.Storage, nElems int, p float64) error {
	d := floatSlice(dst, nElems)
	in := floatSlice(x, nElems)
	g := floatSlice(dy, nElems)
	for i := range d {
		d[i] += g[i] * float32(p*math.Pow(float64(in[i]), p-1))
	}
	return nil
}

func (b *cpuBackend) MulAcc(dst, a, c backend.Storage, nElems int) error {
	d := floatSlice(dst, nElems)
	x := floatSlice(a, nElems)
	y := floatSlice(c, nElems)
	for i := range d {
		d[i] += x[i] * y[i]
	}
	return nil
}

func (b *cpuBackend) AddScalar(dst backend.Storage, nElems int, value float32) error {
	d := floatSlice(dst, nElems)
	for i := range d {
		d[i] += value
	}
	return nil
}
