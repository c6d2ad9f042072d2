package superpoint

import (
	"context"
	"fmt"
	"image"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"gorgonia.org/tensor"

	"github.com/johnhalbert/vr-project-backup-sub006/ml"
	"github.com/johnhalbert/vr-project-backup-sub006/ml/inference"
	"github.com/johnhalbert/vr-project-backup-sub006/utils"
)

// Element counts above which the input shift and the descriptor dequantization run in parallel.
const (
	parallelShiftThreshold   = 10000
	parallelDequantThreshold = 10000
)

// RawTensors are the dequantized outputs of one inference.
type RawTensors struct {
	// KeyPoints is reserved for models that emit keypoints directly. It is always empty.
	KeyPoints []float32
	// Descriptors has shape (256, H, W) in the model's channel-major layout.
	Descriptors *tensor.Dense
	// Scores has shape (H, W, 64); the no-keypoint channel is dropped.
	Scores *tensor.Dense
}

// DescriptorData returns the flat descriptor buffer.
func (r *RawTensors) DescriptorData() []float32 {
	return r.Descriptors.Data().([]float32)
}

// ScoreGrid returns the score tensor as a grid for decoding.
func (r *RawTensors) ScoreGrid() ScoreGrid {
	shape := r.Scores.Shape()
	return ScoreGrid{Height: shape[0], Width: shape[1], Data: r.Scores.Data().([]float32)}
}

type runner struct {
	interp   inference.Interpreter
	contract ModelContract
}

// infer writes img into the input tensor, runs the model once and dequantizes both outputs.
func (r *runner) infer(ctx context.Context, img *NormalizedImage) (*RawTensors, error) {
	_, span := trace.StartSpan(ctx, "superpoint::runner::infer")
	defer span.End()

	input := r.interp.InputTensor(0)
	if input.Type() != inference.Int8 {
		return nil, errors.Wrapf(ErrUnsupportedInputType, "got %s", input.Type())
	}
	dst := input.Int8s()
	if len(dst) != len(img.Pix) {
		return nil, errors.Wrapf(ErrInputSizeMismatch, "tensor holds %d values, image has %d", len(dst), len(img.Pix))
	}
	zp := r.contract.InputZeroPoint
	src := img.Pix
	utils.ParallelForRange(len(src), parallelShiftThreshold, func(from, to int) {
		for i := from; i < to; i++ {
			dst[i] = ml.ShiftToInt8(src[i], zp)
		}
	})

	if err := r.interp.Invoke(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvokeFailed, err)
	}

	descriptors, err := r.dequantizeDescriptors()
	if err != nil {
		return nil, err
	}
	scores, err := r.dequantizeScores()
	if err != nil {
		return nil, err
	}
	return &RawTensors{Descriptors: descriptors, Scores: scores}, nil
}

func (r *runner) dequantizeDescriptors() (*tensor.Dense, error) {
	out := r.contract.Descriptor
	n := out.Channels * out.Height * out.Width
	src := r.interp.OutputTensor(out.Index).Int8s()
	if len(src) < n {
		return nil, errors.Errorf("descriptor output holds %d int8 values, expected %d", len(src), n)
	}
	dst := make([]float32, n)
	utils.ParallelForRange(n, parallelDequantThreshold, func(from, to int) {
		out.Quant.DequantizeRange(dst, src, from, to)
	})
	return tensor.New(tensor.WithShape(out.Channels, out.Height, out.Width), tensor.WithBacking(dst)), nil
}

// dequantizeScores keeps the first 64 channels of every cell of the (1, H, W, 65) score output.
func (r *runner) dequantizeScores() (*tensor.Dense, error) {
	out := r.contract.Score
	h, w := out.Height, out.Width
	src := r.interp.OutputTensor(out.Index).Int8s()
	if len(src) < h*w*out.Channels {
		return nil, errors.Errorf("score output holds %d int8 values, expected %d", len(src), h*w*out.Channels)
	}
	dst := make([]float32, h*w*UsableScoreChannels)
	utils.ParallelForEachPixel(image.Point{w, h}, func(x, y int) {
		cell := y*w + x
		from := cell * out.Channels
		to := cell * UsableScoreChannels
		for c := 0; c < UsableScoreChannels; c++ {
			dst[to+c] = out.Quant.Dequantize(src[from+c])
		}
	})
	return tensor.New(tensor.WithShape(h, w, UsableScoreChannels), tensor.WithBacking(dst)), nil
}
