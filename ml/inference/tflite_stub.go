//go:build no_tflite || no_cgo

package inference

import (
	"context"

	"github.com/johnhalbert/vr-project-backup-sub006/logging"
)

// TFLiteRuntime is unavailable in builds without cgo or tflite.
type TFLiteRuntime struct{}

// NewTFLiteRuntime always fails in this build.
func NewTFLiteRuntime(logging.Logger) (*TFLiteRuntime, error) {
	return nil, ErrRuntimeUnavailable
}

// Load always fails in this build.
func (*TFLiteRuntime) Load(context.Context, string, LoadOptions) (Interpreter, error) {
	return nil, ErrRuntimeUnavailable
}
