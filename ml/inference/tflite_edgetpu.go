//go:build linux && arm64 && !no_tflite && !no_cgo

package inference

import (
	"github.com/mattn/go-tflite/delegates"
	"github.com/mattn/go-tflite/delegates/edgetpu"
	"github.com/pkg/errors"
)

const edgeTPUSupported = true

// newEdgeTPUDelegate opens the Edge TPU at devicePath, or the first enumerated device when
// devicePath is empty.
func newEdgeTPUDelegate(devicePath string) (delegates.Delegater, error) {
	devices, err := edgetpu.DeviceList()
	if err != nil {
		return nil, errors.Wrap(err, "could not enumerate edge tpu devices")
	}
	if len(devices) == 0 {
		return nil, errors.New("no edge tpu devices found")
	}
	device := devices[0]
	if devicePath != "" {
		found := false
		for _, d := range devices {
			if d.Path == devicePath {
				device, found = d, true
				break
			}
		}
		if !found {
			return nil, errors.Errorf("edge tpu device %q not found", devicePath)
		}
	}
	d := edgetpu.New(device)
	if d == nil {
		return nil, errors.Errorf("could not create edge tpu delegate for %q", device.Path)
	}
	return d, nil
}
