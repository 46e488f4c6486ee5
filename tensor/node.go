package tensor

// OpKind tags a differentiable primitive. The backward rule for each kind is
// a single dispatch over this tag in the autograd package.
type OpKind uint8

const (
	OpAdd OpKind = iota
	OpMul
	OpPow
	OpMatMul
	OpLinear
	OpRelu
	OpLogSoftmax
	OpMean
	OpNLL
	OpCrossEntropy
)

// String returns a human-readable name for the kind.
func (k OpKind) String() string {
	switch k {
	case OpAdd:
		return "add"
	case OpMul:
		return "mul"
	case OpPow:
		return "pow"
	case OpMatMul:
		return "matmul"
	case OpLinear:
		return "linear"
	case OpRelu:
		return "relu"
	case OpLogSoftmax:
		return "logsoftmax"
	case OpMean:
		return "mean"
	case OpNLL:
		return "nll"
	case OpCrossEntropy:
		return "crossentropy"
	default:
		return "unknown"
	}
}

// Node is one recorded operation in a computation graph. It holds shared
// references to its inputs for the lifetime of the backward pass, plus the
// closed-over data its backward rule needs and nothing more.
//
// For OpLinear, Inputs is [x, w, b]. For the loss kinds, Labels carries the
// integer class indices. Saved holds the softmax rows that OpLogSoftmax and
// OpCrossEntropy need to propagate gradients. Exp is OpPow's exponent.
type Node struct {
	Kind   OpKind
	Inputs []*Tensor
	Output *Tensor

	Labels []int64
	Saved  *Tensor
	Exp    float64
}
