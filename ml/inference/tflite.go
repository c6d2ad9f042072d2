//go:build !no_tflite && !no_cgo

package inference

import (
	"context"
	"os"
	"runtime"
	"sync"

	tflite "github.com/mattn/go-tflite"
	"github.com/mattn/go-tflite/delegates"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"github.com/johnhalbert/vr-project-backup-sub006/logging"
	"github.com/johnhalbert/vr-project-backup-sub006/ml"
)

// TFLiteRuntime loads .tflite models with github.com/mattn/go-tflite.
type TFLiteRuntime struct {
	logger logging.Logger
}

// NewTFLiteRuntime returns the TensorFlow Lite runtime.
func NewTFLiteRuntime(logger logging.Logger) (*TFLiteRuntime, error) {
	return &TFLiteRuntime{logger: logger}, nil
}

// Load reads the model and builds an interpreter, trying the planned backends in order.
func (rt *TFLiteRuntime) Load(ctx context.Context, modelPath string, opts LoadOptions) (Interpreter, error) {
	_, span := trace.StartSpan(ctx, "ml::inference::tflite::Load")
	defer span.End()

	if _, err := os.Stat(modelPath); err != nil {
		return nil, errors.Wrapf(ErrModelLoad, "file not found at %s: %v", modelPath, err)
	}
	model := tflite.NewModelFromFile(modelPath)
	if model == nil {
		return nil, errors.Wrapf(ErrModelLoad, "cannot parse %s", modelPath)
	}

	numThreads := opts.NumThreads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	plan := PlanBackends(opts.Delegate, edgeTPUSupported)
	attempts := make([]BackendAttempt, 0, len(plan))
	for _, kind := range plan {
		kind := kind
		attempts = append(attempts, BackendAttempt{Kind: kind, Build: func() (Interpreter, error) {
			return rt.build(model, kind, numThreads, opts.DevicePath)
		}})
	}
	interp, err := BuildWithFallback(rt.logger, attempts...)
	if err != nil {
		model.Delete()
		return nil, err
	}
	return interp, nil
}

func (rt *TFLiteRuntime) build(model *tflite.Model, kind BackendKind, numThreads int, devicePath string) (Interpreter, error) {
	options := tflite.NewInterpreterOptions()
	if options == nil {
		return nil, errors.Wrap(ErrInterpreterBuild, "interpreter options failed to be created")
	}
	options.SetNumThread(numThreads)
	options.SetErrorReporter(func(msg string, _ interface{}) {
		rt.logger.Warnw("tflite", "msg", msg)
	}, nil)

	var delegate delegates.Delegater
	if kind == BackendEdgeTPU {
		d, err := newEdgeTPUDelegate(devicePath)
		if err != nil {
			options.Delete()
			return nil, err
		}
		delegate = d
		options.AddDelegate(delegate)
	}

	release := func() {
		options.Delete()
		deleteDelegate(delegate)
	}

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		release()
		return nil, errors.Wrap(ErrInterpreterBuild, "failed to create interpreter")
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		release()
		return nil, errors.Wrapf(ErrInterpreterBuild, "failed to allocate tensors: %v", status)
	}
	return &tfliteInterpreter{
		model:       model,
		options:     options,
		interpreter: interpreter,
		delegate:    delegate,
		kind:        kind,
	}, nil
}

func deleteDelegate(d delegates.Delegater) {
	if deleter, ok := d.(interface{ Delete() }); ok {
		deleter.Delete()
	}
}

type tfliteInterpreter struct {
	model       *tflite.Model
	options     *tflite.InterpreterOptions
	interpreter *tflite.Interpreter
	delegate    delegates.Delegater
	kind        BackendKind
	closeOnce   sync.Once
}

func (ti *tfliteInterpreter) InputTensorCount() int {
	return ti.interpreter.GetInputTensorCount()
}

func (ti *tfliteInterpreter) InputTensor(i int) Tensor {
	t := ti.interpreter.GetInputTensor(i)
	if t == nil {
		return nil
	}
	return &tfliteTensor{t}
}

func (ti *tfliteInterpreter) OutputTensorCount() int {
	return ti.interpreter.GetOutputTensorCount()
}

func (ti *tfliteInterpreter) OutputTensor(i int) Tensor {
	t := ti.interpreter.GetOutputTensor(i)
	if t == nil {
		return nil
	}
	return &tfliteTensor{t}
}

func (ti *tfliteInterpreter) Invoke() error {
	if status := ti.interpreter.Invoke(); status != tflite.OK {
		return errors.Errorf("invoke failed with status %v", status)
	}
	return nil
}

func (ti *tfliteInterpreter) Backend() BackendKind {
	return ti.kind
}

// Close deletes the interpreter before the delegate it runs on, then the options and model.
func (ti *tfliteInterpreter) Close() error {
	ti.closeOnce.Do(func() {
		ti.interpreter.Delete()
		deleteDelegate(ti.delegate)
		ti.options.Delete()
		ti.model.Delete()
	})
	return nil
}

type tfliteTensor struct {
	t *tflite.Tensor
}

func (tt *tfliteTensor) Name() string {
	return tt.t.Name()
}

func (tt *tfliteTensor) Type() TensorType {
	switch tt.t.Type() {
	case tflite.Int8:
		return Int8
	case tflite.UInt8:
		return UInt8
	case tflite.Float32:
		return Float32
	default:
		return Unknown
	}
}

func (tt *tfliteTensor) Shape() []int {
	shape := make([]int, tt.t.NumDims())
	for i := range shape {
		shape[i] = tt.t.Dim(i)
	}
	return shape
}

func (tt *tfliteTensor) Quantization() ml.QuantParams {
	qp := tt.t.QuantizationParams()
	return ml.QuantParams{Scale: float32(qp.Scale), ZeroPoint: int32(qp.ZeroPoint)}
}

func (tt *tfliteTensor) Int8s() []int8 {
	if tt.t.Type() != tflite.Int8 {
		return nil
	}
	return tt.t.Int8s()
}
