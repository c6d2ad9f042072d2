package inject

import (
	"context"

	"github.com/johnhalbert/vr-project-backup-sub006/ml"
	"github.com/johnhalbert/vr-project-backup-sub006/ml/inference"
)

// Tensor is an injected tensor backed by a plain int8 slice.
type Tensor struct {
	TensorName  string
	TensorType  inference.TensorType
	TensorShape []int
	Quant       ml.QuantParams
	Data        []int8
}

// NewInt8Tensor returns an int8 tensor of the given shape with zeroed backing memory.
func NewInt8Tensor(name string, quant ml.QuantParams, shape ...int) *Tensor {
	return &Tensor{
		TensorName:  name,
		TensorType:  inference.Int8,
		TensorShape: shape,
		Quant:       quant,
		Data:        make([]int8, inference.NumElements(shape)),
	}
}

// Name returns the injected name.
func (t *Tensor) Name() string { return t.TensorName }

// Type returns the injected type.
func (t *Tensor) Type() inference.TensorType { return t.TensorType }

// Shape returns the injected shape.
func (t *Tensor) Shape() []int { return t.TensorShape }

// Quantization returns the injected quantization parameters.
func (t *Tensor) Quantization() ml.QuantParams { return t.Quant }

// Int8s returns the backing data for int8 tensors and nil otherwise.
func (t *Tensor) Int8s() []int8 {
	if t.TensorType != inference.Int8 {
		return nil
	}
	return t.Data
}

// Interpreter is an injected interpreter.
type Interpreter struct {
	inference.Interpreter
	Inputs      []inference.Tensor
	Outputs     []inference.Tensor
	BackendKind inference.BackendKind
	InvokeFunc  func() error
	CloseFunc   func() error

	Invocations int
	Closes      int
}

// InputTensorCount returns the number of injected inputs.
func (i *Interpreter) InputTensorCount() int { return len(i.Inputs) }

// InputTensor returns the injected input or nil when out of range.
func (i *Interpreter) InputTensor(idx int) inference.Tensor {
	if idx < 0 || idx >= len(i.Inputs) {
		return nil
	}
	return i.Inputs[idx]
}

// OutputTensorCount returns the number of injected outputs.
func (i *Interpreter) OutputTensorCount() int { return len(i.Outputs) }

// OutputTensor returns the injected output or nil when out of range.
func (i *Interpreter) OutputTensor(idx int) inference.Tensor {
	if idx < 0 || idx >= len(i.Outputs) {
		return nil
	}
	return i.Outputs[idx]
}

// Invoke calls the injected Invoke or succeeds.
func (i *Interpreter) Invoke() error {
	i.Invocations++
	if i.InvokeFunc == nil {
		return nil
	}
	return i.InvokeFunc()
}

// Backend returns the injected backend, cpu by default.
func (i *Interpreter) Backend() inference.BackendKind {
	if i.BackendKind == "" {
		return inference.BackendCPU
	}
	return i.BackendKind
}

// Close calls the injected Close or succeeds.
func (i *Interpreter) Close() error {
	i.Closes++
	if i.CloseFunc == nil {
		return nil
	}
	return i.CloseFunc()
}

// Runtime is an injected inference runtime.
type Runtime struct {
	LoadFunc func(ctx context.Context, modelPath string, opts inference.LoadOptions) (inference.Interpreter, error)
}

// Load calls the injected Load.
func (r *Runtime) Load(ctx context.Context, modelPath string, opts inference.LoadOptions) (inference.Interpreter, error) {
	return r.LoadFunc(ctx, modelPath, opts)
}
