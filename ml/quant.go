// Package ml provides quantization primitives shared by the inference runtimes.
package ml

import (
	"math"

	"github.com/johnhalbert/vr-project-backup-sub006/utils"
)

// DefaultInputZeroPoint is the input zero point assumed when a model carries no input
// quantization parameters. It maps the uint8 range [0, 255] onto int8 [-128, 127].
const DefaultInputZeroPoint = -128

// QuantParams are per-tensor affine quantization parameters: real = (q - ZeroPoint) * Scale.
type QuantParams struct {
	Scale     float32
	ZeroPoint int32
}

// IsSet reports whether the parameters describe an actual quantization. Runtimes report a zero
// scale for tensors that are not quantized.
func (q QuantParams) IsSet() bool {
	return q.Scale != 0
}

// Dequantize converts one int8 value to float32.
func (q QuantParams) Dequantize(v int8) float32 {
	return float32(int32(v)-q.ZeroPoint) * q.Scale
}

// DequantizeRange dequantizes src[from:to] into dst[from:to].
func (q QuantParams) DequantizeRange(dst []float32, src []int8, from, to int) {
	for i := from; i < to; i++ {
		dst[i] = float32(int32(src[i])-q.ZeroPoint) * q.Scale
	}
}

// ShiftToInt8 adds zeroPoint to an unsigned pixel and saturates the result to the int8 range.
// With zeroPoint -128 this is the plain `pixel - 128` shift.
func ShiftToInt8(pixel uint8, zeroPoint int32) int8 {
	return int8(utils.Clamp(int32(pixel)+zeroPoint, math.MinInt8, math.MaxInt8))
}
