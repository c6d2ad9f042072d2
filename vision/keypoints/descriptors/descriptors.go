// Package descriptors contains float feature descriptors and the operations matching needs.
package descriptors

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/blas/blas32"
)

// MinNorm is the smallest L2 norm that Normalize divides by. Descriptors at or below it are left
// untouched.
const MinNorm = 1e-6

// Descriptor is a dense float feature vector.
type Descriptor []float32

// Descriptors is a matrix of descriptors, one row per keypoint.
type Descriptors []Descriptor

func (d Descriptor) vector() blas32.Vector {
	return blas32.Vector{N: len(d), Inc: 1, Data: d}
}

// Norm returns the L2 norm of the descriptor.
func (d Descriptor) Norm() float32 {
	if len(d) == 0 {
		return 0
	}
	return blas32.Nrm2(d.vector())
}

// Normalize scales the descriptor in place to unit L2 norm and reports whether it did so.
// Descriptors whose norm is at most MinNorm are left unchanged.
func (d Descriptor) Normalize() bool {
	norm := d.Norm()
	if norm <= MinNorm {
		return false
	}
	blas32.Scal(1/norm, d.vector())
	return true
}

// Rows returns the number of descriptors.
func (ds Descriptors) Rows() int {
	return len(ds)
}

// L2Distance returns the euclidean distance between two descriptors of equal length.
func L2Distance(d1, d2 Descriptor) (float64, error) {
	if len(d1) != len(d2) {
		return 0, errors.Errorf("descriptors have different lengths %d and %d", len(d1), len(d2))
	}
	diff := make([]float32, len(d1))
	copy(diff, d1)
	blas32.Axpy(-1, d2.vector(), Descriptor(diff).vector())
	return float64(blas32.Nrm2(Descriptor(diff).vector())), nil
}

// DistanceMatrix returns the pairwise L2 distances between two sets of descriptors.
func DistanceMatrix(desc1, desc2 Descriptors) ([][]float64, error) {
	out := make([][]float64, len(desc1))
	for i := range desc1 {
		out[i] = make([]float64, len(desc2))
		for j := range desc2 {
			d, err := L2Distance(desc1[i], desc2[j])
			if err != nil {
				return nil, err
			}
			out[i][j] = d
		}
	}
	return out, nil
}
