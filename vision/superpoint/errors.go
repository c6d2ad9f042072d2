package superpoint

import "github.com/pkg/errors"

// Per-frame failures. A frame that fails returns empty Features together with one of these.
var (
	ErrEmptyImage           = errors.New("input image is empty")
	ErrUnsupportedInputType = errors.New("model input tensor is not int8")
	ErrInvokeFailed         = errors.New("inference invocation failed")
	ErrInputSizeMismatch    = errors.New("preprocessed image does not match the model input tensor")
	ErrClosed               = errors.New("extractor is closed")
)

// Construction failures.
var (
	ErrNoInputTensor        = errors.New("model has no input tensor")
	ErrUnsupportedInputRank = errors.New("unsupported input tensor rank")
	ErrTooFewOutputs        = errors.New("model has fewer than 2 output tensors")
	ErrMissingOutput        = errors.New("could not identify model output")
	ErrAmbiguousOutputs     = errors.New("model outputs are ambiguous")
)
