package superpoint

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/johnhalbert/vr-project-backup-sub006/logging"
	"github.com/johnhalbert/vr-project-backup-sub006/ml"
	"github.com/johnhalbert/vr-project-backup-sub006/ml/inference"
	"github.com/johnhalbert/vr-project-backup-sub006/testutils/inject"
)

func TestClassifyOutputs(t *testing.T) {
	for _, tc := range []struct {
		name      string
		shapes    [][]int
		desc      int
		score     int
		expectErr error
	}{
		{"descriptor then score", [][]int{{1, 256, 60, 80}, {1, 60, 80, 65}}, 0, 1, nil},
		{"score then descriptor", [][]int{{1, 60, 80, 65}, {1, 256, 60, 80}}, 1, 0, nil},
		{"extra outputs ignored", [][]int{{1, 10}, {1, 60, 80, 65}, {256}, {1, 256, 60, 80}}, 3, 1, nil},
		{"too few", [][]int{{1, 256, 60, 80}}, -1, -1, ErrTooFewOutputs},
		{"none", nil, -1, -1, ErrTooFewOutputs},
		{"no descriptor", [][]int{{1, 60, 80, 65}, {1, 60, 80, 256}}, -1, -1, ErrMissingOutput},
		{"no score", [][]int{{1, 256, 60, 80}, {1, 60, 80, 64}}, -1, -1, ErrMissingOutput},
		{"rank 3 descriptor", [][]int{{256, 60, 80}, {1, 60, 80, 65}}, -1, -1, ErrMissingOutput},
		{"two descriptors", [][]int{{1, 256, 60, 80}, {1, 256, 30, 40}, {1, 60, 80, 65}}, -1, -1, ErrAmbiguousOutputs},
		{"two scores", [][]int{{1, 256, 60, 80}, {1, 60, 80, 65}, {1, 30, 40, 65}}, -1, -1, ErrAmbiguousOutputs},
		{
			// 256 appears in both, but only one has it in the channel position
			"256 in other dimensions", [][]int{{1, 256, 60, 80}, {1, 60, 256, 65}}, 0, 1, nil,
		},
		{
			// the second output could be either; the first can only be a descriptor
			"shared candidate resolved", [][]int{{1, 256, 60, 80}, {1, 256, 60, 65}}, 0, 1, nil,
		},
		{
			"shared candidate resolved for scores", [][]int{{1, 256, 60, 65}, {1, 60, 80, 65}}, 0, 1, nil,
		},
		{"single tensor fits both", [][]int{{1, 256, 60, 65}, {1, 2, 3, 4}}, -1, -1, ErrAmbiguousOutputs},
		{"two tensors fit both", [][]int{{1, 256, 60, 65}, {1, 256, 30, 65}}, -1, -1, ErrAmbiguousOutputs},
	} {
		t.Run(tc.name, func(t *testing.T) {
			desc, score, err := ClassifyOutputs(tc.shapes)
			if tc.expectErr != nil {
				test.That(t, errors.Is(err, tc.expectErr), test.ShouldBeTrue)
				return
			}
			test.That(t, err, test.ShouldBeNil)
			test.That(t, desc, test.ShouldEqual, tc.desc)
			test.That(t, score, test.ShouldEqual, tc.score)
		})
	}
}

func TestLoadContract(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	m := newFakeModel(6, 10)
	contract, err := loadContract(m.interp, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, contract.InputHeight, test.ShouldEqual, 48)
	test.That(t, contract.InputWidth, test.ShouldEqual, 80)
	test.That(t, contract.InputChannels, test.ShouldEqual, 1)
	test.That(t, contract.InputType, test.ShouldEqual, inference.Int8)
	test.That(t, contract.InputZeroPoint, test.ShouldEqual, int32(-128))
	test.That(t, contract.Descriptor, test.ShouldResemble, OutputTensor{
		Index: 1, Channels: 256, Height: 6, Width: 10, Quant: descriptorQuant,
	})
	test.That(t, contract.Score, test.ShouldResemble, OutputTensor{
		Index: 0, Channels: 65, Height: 6, Width: 10, Quant: scoreQuant,
	})

	resolved := logs.FilterMessage("resolved model tensor").All()
	test.That(t, len(resolved), test.ShouldEqual, 3)
	test.That(t, resolved[1].ContextMap()["role"], test.ShouldEqual, "descriptor")
	test.That(t, resolved[2].ContextMap()["shape"], test.ShouldEqual, "1x6x10x65")
	test.That(t, logs.FilterLevelExact(logging.WARN.AsZap()).Len(), test.ShouldEqual, 0)
}

func TestLoadContractInputs(t *testing.T) {
	t.Run("rank 3 input", func(t *testing.T) {
		m := newFakeModel(6, 10)
		m.input.TensorShape = []int{48, 80, 3}
		contract, err := loadContract(m.interp, logging.NewTestLogger(t))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, contract.InputHeight, test.ShouldEqual, 48)
		test.That(t, contract.InputWidth, test.ShouldEqual, 80)
		test.That(t, contract.InputChannels, test.ShouldEqual, 3)
	})
	t.Run("unsupported rank", func(t *testing.T) {
		for _, shape := range [][]int{{48, 80}, {1, 1, 48, 80, 1}} {
			m := newFakeModel(6, 10)
			m.input.TensorShape = shape
			_, err := loadContract(m.interp, logging.NewTestLogger(t))
			test.That(t, errors.Is(err, ErrUnsupportedInputRank), test.ShouldBeTrue)
		}
	})
	t.Run("unsupported channels", func(t *testing.T) {
		m := newFakeModel(6, 10)
		m.input.TensorShape = []int{1, 48, 80, 4}
		_, err := loadContract(m.interp, logging.NewTestLogger(t))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "4 channels")
	})
	t.Run("no input", func(t *testing.T) {
		m := newFakeModel(6, 10)
		m.interp.Inputs = nil
		_, err := loadContract(m.interp, logging.NewTestLogger(t))
		test.That(t, errors.Is(err, ErrNoInputTensor), test.ShouldBeTrue)
	})
	t.Run("one output", func(t *testing.T) {
		m := newFakeModel(6, 10)
		m.interp.Outputs = m.interp.Outputs[:1]
		_, err := loadContract(m.interp, logging.NewTestLogger(t))
		test.That(t, errors.Is(err, ErrTooFewOutputs), test.ShouldBeTrue)
	})
}

func TestLoadContractZeroPoint(t *testing.T) {
	t.Run("taken from the input tensor", func(t *testing.T) {
		logger, logs := logging.NewObservedTestLogger(t)
		m := newFakeModel(2, 2)
		m.input.Quant = ml.QuantParams{Scale: 0.5, ZeroPoint: -100}
		contract, err := loadContract(m.interp, logger)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, contract.InputZeroPoint, test.ShouldEqual, int32(-100))
		warnings := logs.FilterMessageSnippet("zero point").All()
		test.That(t, len(warnings), test.ShouldEqual, 1)
		test.That(t, warnings[0].ContextMap()["zero_point"], test.ShouldEqual, int32(-100))
	})
	t.Run("falls back when not quantized", func(t *testing.T) {
		logger, logs := logging.NewObservedTestLogger(t)
		m := newFakeModel(2, 2)
		m.input.Quant = ml.QuantParams{}
		contract, err := loadContract(m.interp, logger)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, contract.InputZeroPoint, test.ShouldEqual, int32(ml.DefaultInputZeroPoint))
		test.That(t, logs.FilterMessageSnippet("zero point").Len(), test.ShouldEqual, 0)
	})
	t.Run("non int8 input warns", func(t *testing.T) {
		logger, logs := logging.NewObservedTestLogger(t)
		m := newFakeModel(2, 2)
		m.input.TensorType = inference.UInt8
		contract, err := loadContract(m.interp, logger)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, contract.InputType, test.ShouldEqual, inference.UInt8)
		test.That(t, logs.FilterMessageSnippet("not int8").Len(), test.ShouldEqual, 1)
	})
}

var _ inference.Tensor = &inject.Tensor{}
