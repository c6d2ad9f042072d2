package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/urfave/cli/v2"
	"go.viam.com/test"

	"github.com/johnhalbert/vr-project-backup-sub006/ml"
	"github.com/johnhalbert/vr-project-backup-sub006/ml/inference"
	"github.com/johnhalbert/vr-project-backup-sub006/vision/keypoints"
	"github.com/johnhalbert/vr-project-backup-sub006/vision/keypoints/descriptors"
	"github.com/johnhalbert/vr-project-backup-sub006/vision/superpoint"
)

func runConfigCommand(t *testing.T, args ...string) (*superpoint.Config, error) {
	t.Helper()
	var cfg *superpoint.Config
	var cfgErr error
	app := newApp(io.Discard)
	app.Commands = []*cli.Command{{
		Name: "cfg",
		Action: func(c *cli.Context) error {
			cfg, cfgErr = configFromContext(c)
			return nil
		},
	}}
	test.That(t, app.Run(append(append([]string{"superpoint"}, args...), "cfg")), test.ShouldBeNil)
	return cfg, cfgErr
}

func TestConfigFromContext(t *testing.T) {
	cfg, err := runConfigCommand(t, "--model", "sp.tflite", "--features", "0", "--radius", "2.5", "--delegate", "none")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ModelPath, test.ShouldEqual, "sp.tflite")
	test.That(t, cfg.NFeatures, test.ShouldEqual, 0)
	test.That(t, cfg.NMSRadius, test.ShouldEqual, 2.5)
	test.That(t, cfg.Delegate, test.ShouldEqual, inference.DelegateNone)
	test.That(t, cfg.Threshold, test.ShouldEqual, superpoint.DefaultThreshold)

	cfg, err = runConfigCommand(t, "-m", "sp.tflite")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.NFeatures, test.ShouldEqual, superpoint.DefaultNFeatures)

	_, err = runConfigCommand(t)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "model_path")
}

func TestLoadImageAndMask(t *testing.T) {
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{255, 255, 255, 255})
	path := filepath.Join(dir, "frame.png")
	test.That(t, imaging.Save(img, path), test.ShouldBeNil)

	loaded, err := loadImage(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, loaded.Bounds().Size(), test.ShouldResemble, image.Point{4, 3})

	mask, err := loadMask(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mask.GrayAt(1, 1).Y, test.ShouldEqual, uint8(255))
	test.That(t, mask.GrayAt(0, 0).Y, test.ShouldEqual, uint8(0))

	mask, err = loadMask("")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mask, test.ShouldBeNil)

	_, err = loadImage(filepath.Join(dir, "missing.png"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "missing.png")
}

func TestCommandsRequireImages(t *testing.T) {
	for _, cmd := range []string{"extract", "match", "bench"} {
		err := newApp(io.Discard).Run([]string{"superpoint", "-m", "sp.tflite", cmd})
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "expected <image")
	}
}

func TestContractTable(t *testing.T) {
	out := contractTable(superpoint.ModelContract{
		InputHeight: 480, InputWidth: 640, InputChannels: 1,
		InputType: inference.Int8, InputQuant: ml.QuantParams{Scale: 0.5, ZeroPoint: -128}, InputZeroPoint: -128,
		Descriptor: superpoint.OutputTensor{Index: 1, Channels: 256, Height: 60, Width: 80},
		Score:      superpoint.OutputTensor{Index: 0, Channels: 65, Height: 60, Width: 80},
	}, inference.BackendEdgeTPU)
	test.That(t, out, test.ShouldContainSubstring, "backend: edgetpu")
	test.That(t, out, test.ShouldContainSubstring, "480x640x1")
	test.That(t, out, test.ShouldContainSubstring, "60x80x256")
	test.That(t, out, test.ShouldContainSubstring, "60x80x65")
}

func TestMatchTable(t *testing.T) {
	matches := []keypoints.DescriptorMatch{{Idx1: 0, Idx2: 1, Distance: 0.25}}
	out := matchTable(matches, keypoints.KeyPoints{{X: 1, Y: 2}}, keypoints.KeyPoints{{X: 3.5, Y: 4}}, 5, 6)
	test.That(t, out, test.ShouldContainSubstring, "1 matches between 5 and 6 keypoints")
	test.That(t, out, test.ShouldContainSubstring, "(3.5, 4.0)")
	test.That(t, out, test.ShouldContainSubstring, "0.2500")
}

func TestMetricsTable(t *testing.T) {
	out := metricsTable(superpoint.Snapshot{
		Frames: 2, Keypoints: 10, Inference: 20 * time.Millisecond, P50: 10, P95: 12.5,
	})
	test.That(t, out, test.ShouldContainSubstring, "2 frames, 10 keypoints")
	test.That(t, out, test.ShouldContainSubstring, "10ms")
	test.That(t, out, test.ShouldContainSubstring, "10.00ms / 12.50ms")
	test.That(t, out, test.ShouldNotContainSubstring, "MS")
}

func TestFeaturesJSON(t *testing.T) {
	features := &superpoint.Features{
		KeyPoints:   keypoints.KeyPoints{{X: 8, Y: 16, Size: 8, Score: 0.5}},
		Descriptors: descriptors.Descriptors{{0.6, 0.8}},
	}
	var buf bytes.Buffer
	test.That(t, writeJSON(&buf, newFeaturesJSON("frame.png", image.Point{64, 48}, features)), test.ShouldBeNil)

	var decoded featuresJSON
	test.That(t, json.Unmarshal(buf.Bytes(), &decoded), test.ShouldBeNil)
	test.That(t, decoded.Count, test.ShouldEqual, 1)
	test.That(t, decoded.Width, test.ShouldEqual, 64)
	test.That(t, decoded.KeyPoints[0].Y, test.ShouldEqual, 16.)
	test.That(t, decoded.KeyPoints[0].Descriptor, test.ShouldResemble, []float32{0.6, 0.8})
}
