package superpoint

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/johnhalbert/vr-project-backup-sub006/logging"
	"github.com/johnhalbert/vr-project-backup-sub006/ml"
	"github.com/johnhalbert/vr-project-backup-sub006/ml/inference"
)

// Output tensor channel counts of the network.
const (
	DescriptorChannels = 256
	ScoreChannels      = 65
	// UsableScoreChannels excludes the trailing "no keypoint" channel.
	UsableScoreChannels = 64
	// CellSize is the side in pixels of one feature grid cell.
	CellSize = 8
)

// OutputTensor describes one resolved output of the network.
type OutputTensor struct {
	Index    int
	Channels int
	Height   int
	Width    int
	Quant    ml.QuantParams
}

// ModelContract is what the extractor learned about a model when it was loaded. It does not
// change for the lifetime of the extractor.
type ModelContract struct {
	InputHeight   int
	InputWidth    int
	InputChannels int
	InputType     inference.TensorType
	InputQuant    ml.QuantParams
	// InputZeroPoint is the shift applied to every uint8 pixel before it is written to the input.
	InputZeroPoint int32

	Descriptor OutputTensor
	Score      OutputTensor
}

// ClassifyOutputs finds the descriptor and score tensors among output shapes. A rank 4 shape with
// 256 as its second dimension is a descriptor candidate and a rank 4 shape with 65 as its fourth
// dimension is a score candidate. When one role has exactly one candidate, that tensor is removed
// from the other role's candidates. Each role must then have exactly one distinct tensor.
func ClassifyOutputs(shapes [][]int) (descriptorIdx, scoreIdx int, err error) {
	if len(shapes) < 2 {
		return -1, -1, errors.Wrapf(ErrTooFewOutputs, "got %d", len(shapes))
	}
	var descs, scores []int
	for i, shape := range shapes {
		if len(shape) != 4 {
			continue
		}
		if shape[1] == DescriptorChannels {
			descs = append(descs, i)
		}
		if shape[3] == ScoreChannels {
			scores = append(scores, i)
		}
	}
	descs = withoutClaimed(descs, scores)
	scores = withoutClaimed(scores, descs)

	switch {
	case len(descs) == 0:
		return -1, -1, errors.Wrapf(ErrMissingOutput, "no rank 4 output with %d channels in dimension 1", DescriptorChannels)
	case len(scores) == 0:
		return -1, -1, errors.Wrapf(ErrMissingOutput, "no rank 4 output with %d channels in dimension 3", ScoreChannels)
	case len(descs) > 1:
		return -1, -1, errors.Wrapf(ErrAmbiguousOutputs, "descriptor candidates %v", descs)
	case len(scores) > 1:
		return -1, -1, errors.Wrapf(ErrAmbiguousOutputs, "score candidates %v", scores)
	case descs[0] == scores[0]:
		return -1, -1, errors.Wrapf(ErrAmbiguousOutputs, "output %d matches both descriptor and score", descs[0])
	}
	return descs[0], scores[0], nil
}

func withoutClaimed(candidates, other []int) []int {
	if len(other) != 1 || len(candidates) < 2 {
		return candidates
	}
	kept := make([]int, 0, len(candidates))
	for _, idx := range candidates {
		if idx != other[0] {
			kept = append(kept, idx)
		}
	}
	return kept
}

// loadContract introspects an interpreter's tensors.
func loadContract(interp inference.Interpreter, logger logging.Logger) (ModelContract, error) {
	var contract ModelContract
	if interp.InputTensorCount() == 0 {
		return contract, ErrNoInputTensor
	}
	input := interp.InputTensor(0)
	shape := input.Shape()
	switch len(shape) {
	case 4:
		contract.InputHeight, contract.InputWidth, contract.InputChannels = shape[1], shape[2], shape[3]
	case 3:
		contract.InputHeight, contract.InputWidth, contract.InputChannels = shape[0], shape[1], shape[2]
	default:
		return contract, errors.Wrapf(ErrUnsupportedInputRank, "input %q has rank %d", input.Name(), len(shape))
	}
	if contract.InputChannels != 1 && contract.InputChannels != 3 {
		return contract, errors.Errorf("input %q has %d channels, expected 1 or 3", input.Name(), contract.InputChannels)
	}
	contract.InputType = input.Type()
	contract.InputQuant = input.Quantization()
	logTensor(logger, "input", input)

	if contract.InputType != inference.Int8 {
		logger.Warnw("model input is not int8, inference will fail", "type", contract.InputType)
	}
	contract.InputZeroPoint = ml.DefaultInputZeroPoint
	if contract.InputQuant.IsSet() {
		contract.InputZeroPoint = contract.InputQuant.ZeroPoint
	}
	if contract.InputZeroPoint != ml.DefaultInputZeroPoint {
		logger.Warnw("model input zero point differs from the usual uint8 to int8 shift",
			"zero_point", contract.InputZeroPoint, "expected", ml.DefaultInputZeroPoint)
	}

	shapes := make([][]int, interp.OutputTensorCount())
	for i := range shapes {
		shapes[i] = interp.OutputTensor(i).Shape()
	}
	descIdx, scoreIdx, err := ClassifyOutputs(shapes)
	if err != nil {
		return contract, err
	}

	desc := interp.OutputTensor(descIdx)
	ds := desc.Shape()
	contract.Descriptor = OutputTensor{
		Index: descIdx, Channels: ds[1], Height: ds[2], Width: ds[3], Quant: desc.Quantization(),
	}
	logTensor(logger, "descriptor", desc)

	score := interp.OutputTensor(scoreIdx)
	ss := score.Shape()
	contract.Score = OutputTensor{
		Index: scoreIdx, Channels: ss[3], Height: ss[1], Width: ss[2], Quant: score.Quantization(),
	}
	logTensor(logger, "score", score)
	return contract, nil
}

func logTensor(logger logging.Logger, role string, t inference.Tensor) {
	q := t.Quantization()
	logger.Infow("resolved model tensor",
		"role", role,
		"name", t.Name(),
		"shape", shapeString(t.Shape()),
		"type", t.Type(),
		"scale", q.Scale,
		"zero_point", q.ZeroPoint,
	)
}

func shapeString(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, "x")
}
