// Package inference abstracts the neural network runtime behind a small interpreter interface.
// The default runtime is TensorFlow Lite, optionally accelerated by an Edge TPU delegate.
package inference

import (
	"context"

	"github.com/pkg/errors"

	"github.com/johnhalbert/vr-project-backup-sub006/ml"
)

// TensorType names the element type of a tensor.
type TensorType string

// Tensor element types understood by the pipeline.
const (
	Int8    TensorType = "int8"
	UInt8   TensorType = "uint8"
	Float32 TensorType = "float32"
	Unknown TensorType = "unknown"
)

// Tensor is one input or output tensor of an interpreter.
type Tensor interface {
	Name() string
	Type() TensorType
	Shape() []int
	Quantization() ml.QuantParams
	// Int8s exposes the tensor's backing memory. It returns nil when the tensor is not int8.
	Int8s() []int8
}

// Interpreter is an executable model with allocated tensors.
type Interpreter interface {
	InputTensorCount() int
	InputTensor(i int) Tensor
	OutputTensorCount() int
	OutputTensor(i int) Tensor
	// Invoke runs one synchronous inference over the current input tensors.
	Invoke() error
	// Backend reports which execution backend was attached at load time.
	Backend() BackendKind
	// Close releases the interpreter, the model and any delegate. It is safe to call more than once.
	Close() error
}

// LoadOptions configure how a Runtime builds an interpreter.
type LoadOptions struct {
	// NumThreads is the CPU thread count used by the non-accelerated path.
	NumThreads int
	// Delegate selects which hardware delegates may be attempted.
	Delegate DelegateMode
	// DevicePath optionally pins the accelerator device to use, e.g. "/dev/apex_0".
	DevicePath string
}

// Runtime loads serialized models into interpreters.
type Runtime interface {
	Load(ctx context.Context, modelPath string, opts LoadOptions) (Interpreter, error)
}

var (
	// ErrModelLoad is returned when the serialized model cannot be read or parsed.
	ErrModelLoad = errors.New("failed to load model")
	// ErrInterpreterBuild is returned when an interpreter cannot be built or its tensors allocated.
	ErrInterpreterBuild = errors.New("failed to build interpreter")
	// ErrRuntimeUnavailable is returned by binaries built without a runtime.
	ErrRuntimeUnavailable = errors.New("inference runtime not available in this build")
)

// ShapeEqual reports whether two tensor shapes are identical.
func ShapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// NumElements returns the product of the dimensions of a shape.
func NumElements(shape []int) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
