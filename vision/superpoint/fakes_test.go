package superpoint

import (
	"context"

	"github.com/johnhalbert/vr-project-backup-sub006/ml"
	"github.com/johnhalbert/vr-project-backup-sub006/ml/inference"
	"github.com/johnhalbert/vr-project-backup-sub006/testutils/inject"
)

var (
	scoreQuant      = ml.QuantParams{Scale: 0.01, ZeroPoint: -128}
	descriptorQuant = ml.QuantParams{Scale: 0.5, ZeroPoint: 2}
)

// fakeModel is a gray input model with a gridH x gridW feature grid. Scores dequantize to zero
// until set.
type fakeModel struct {
	interp *inject.Interpreter
	input  *inject.Tensor
	score  *inject.Tensor
	desc   *inject.Tensor
	gridH  int
	gridW  int
}

func newFakeModel(gridH, gridW int) *fakeModel {
	m := &fakeModel{
		input: inject.NewInt8Tensor("image", ml.QuantParams{Scale: 1.0 / 255, ZeroPoint: -128},
			1, gridH*CellSize, gridW*CellSize, 1),
		score: inject.NewInt8Tensor("semi", scoreQuant, 1, gridH, gridW, ScoreChannels),
		desc:  inject.NewInt8Tensor("desc", descriptorQuant, 1, DescriptorChannels, gridH, gridW),
		gridH: gridH,
		gridW: gridW,
	}
	for i := range m.score.Data {
		m.score.Data[i] = -128
	}
	// outputs deliberately listed score first
	m.interp = &inject.Interpreter{
		Inputs:  []inference.Tensor{m.input},
		Outputs: []inference.Tensor{m.score, m.desc},
	}
	return m
}

// setScore sets the raw int8 score of one channel of one cell.
func (m *fakeModel) setScore(row, col, channel int, v int8) {
	m.score.Data[(row*m.gridW+col)*ScoreChannels+channel] = v
}

// setDescriptor sets the raw int8 descriptor of one cell.
func (m *fakeModel) setDescriptor(row, col int, fill func(c int) int8) {
	plane := m.gridH * m.gridW
	for c := 0; c < DescriptorChannels; c++ {
		m.desc.Data[c*plane+row*m.gridW+col] = fill(c)
	}
}

func (m *fakeModel) runtime() *inject.Runtime {
	return &inject.Runtime{
		LoadFunc: func(ctx context.Context, modelPath string, opts inference.LoadOptions) (inference.Interpreter, error) {
			return m.interp, nil
		},
	}
}
