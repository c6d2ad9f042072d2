package keypoints

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/johnhalbert/vr-project-backup-sub006/logging"
	"github.com/johnhalbert/vr-project-backup-sub006/vision/keypoints/descriptors"
)

// MatchingConfig contains the parameters for matching descriptors.
type MatchingConfig struct {
	DoCrossCheck bool    `json:"do_cross_check"`
	MaxDist      float64 `json:"max_dist"`
}

// DescriptorMatch contains the index of a match in the first and second set of descriptors.
type DescriptorMatch struct {
	Idx1     int
	Idx2     int
	Distance float64
}

// argMinPerRow returns, for every row, the column holding the smallest value.
func argMinPerRow(m [][]float64) []int {
	out := make([]int, len(m))
	for i, row := range m {
		if len(row) == 0 {
			out[i] = -1
			continue
		}
		out[i] = floats.MinIdx(row)
	}
	return out
}

func transpose(m [][]float64) [][]float64 {
	if len(m) == 0 {
		return nil
	}
	out := make([][]float64, len(m[0]))
	for j := range out {
		out[j] = make([]float64, len(m))
		for i := range m {
			out[j][i] = m[i][j]
		}
	}
	return out
}

// MatchDescriptors matches every descriptor of desc1 to its nearest neighbor in desc2. With
// cross checking, a match is kept only if it is also the nearest neighbor in the other direction.
// A positive MaxDist drops matches at or beyond that distance. Matches are sorted by ascending
// distance.
func MatchDescriptors(desc1, desc2 descriptors.Descriptors, cfg *MatchingConfig, logger logging.Logger) []DescriptorMatch {
	if len(desc1) == 0 || len(desc2) == 0 {
		return nil
	}
	distances, err := descriptors.DistanceMatrix(desc1, desc2)
	if err != nil {
		logger.Errorw("cannot compute descriptor distances", "error", err)
		return nil
	}
	indices2 := argMinPerRow(distances)
	var backward []int
	if cfg.DoCrossCheck {
		backward = argMinPerRow(transpose(distances))
	}

	matches := make([]DescriptorMatch, 0, len(desc1))
	dists := make([]float64, 0, len(desc1))
	for idx1, idx2 := range indices2 {
		if cfg.DoCrossCheck && backward[idx2] != idx1 {
			continue
		}
		d := distances[idx1][idx2]
		if cfg.MaxDist > 0 && d >= cfg.MaxDist {
			continue
		}
		matches = append(matches, DescriptorMatch{Idx1: idx1, Idx2: idx2, Distance: d})
		dists = append(dists, d)
	}

	// sort
	sortedIndices := make([]int, len(dists))
	floats.Argsort(dists, sortedIndices)
	sorted := make([]DescriptorMatch, len(matches))
	for i, idx := range sortedIndices {
		sorted[i] = matches[idx]
	}
	return sorted
}

// GetMatchingKeyPoints takes the matches and the keypoints and returns the corresponding keypoints that are matched.
func GetMatchingKeyPoints(matches []DescriptorMatch, kps1, kps2 KeyPoints) (KeyPoints, KeyPoints, error) {
	matchedKps1 := make(KeyPoints, len(matches))
	matchedKps2 := make(KeyPoints, len(matches))
	for i, match := range matches {
		if match.Idx1 >= len(kps1) {
			return nil, nil, errors.Errorf("match %d refers to keypoint %d of the first set which has %d", i, match.Idx1, len(kps1))
		}
		if match.Idx2 >= len(kps2) {
			return nil, nil, errors.Errorf("match %d refers to keypoint %d of the second set which has %d", i, match.Idx2, len(kps2))
		}
		matchedKps1[i] = kps1[match.Idx1]
		matchedKps2[i] = kps2[match.Idx2]
	}
	return matchedKps1, matchedKps2, nil
}
