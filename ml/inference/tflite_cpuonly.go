//go:build !(linux && arm64) && !no_tflite && !no_cgo

package inference

import (
	"github.com/mattn/go-tflite/delegates"
	"github.com/pkg/errors"
)

const edgeTPUSupported = false

func newEdgeTPUDelegate(string) (delegates.Delegater, error) {
	return nil, errors.New("edge tpu delegate is only available on linux/arm64")
}
