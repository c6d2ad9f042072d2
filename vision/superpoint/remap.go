package superpoint

import (
	"image"
	"sort"

	"github.com/johnhalbert/vr-project-backup-sub006/vision/keypoints"
)

// Remap scales grid space candidates to original image coordinates. gridSize is the score grid
// size in cells.
func Remap(candidates []Candidate, imageSize, gridSize image.Point) keypoints.KeyPoints {
	sx := float64(imageSize.X) / float64(gridSize.X*CellSize)
	sy := float64(imageSize.Y) / float64(gridSize.Y*CellSize)
	kps := make(keypoints.KeyPoints, len(candidates))
	for i, c := range candidates {
		kps[i] = keypoints.KeyPoint{
			X:     float64(c.X) * sx,
			Y:     float64(c.Y) * sy,
			Size:  CellSize,
			Score: float64(c.Score),
		}
	}
	return kps
}

// ApplyMask drops keypoints outside an image of the given size and keypoints on zero mask pixels.
// The mask is in original image coordinates. A nil mask keeps everything.
func ApplyMask(kps keypoints.KeyPoints, mask *image.Gray, imageSize image.Point) keypoints.KeyPoints {
	if mask == nil {
		return kps
	}
	bounds := image.Rectangle{Max: imageSize}
	kept := kps[:0:0]
	for _, kp := range kps {
		pt := kp.Point()
		if !pt.In(bounds) {
			continue
		}
		if mask.GrayAt(mask.Rect.Min.X+pt.X, mask.Rect.Min.Y+pt.Y).Y == 0 {
			continue
		}
		kept = append(kept, kp)
	}
	return kept
}

// RetainBest keeps the n highest scoring keypoints, ties in their original order. A non-positive
// n keeps everything.
func RetainBest(kps keypoints.KeyPoints, n int) keypoints.KeyPoints {
	if n <= 0 || len(kps) <= n {
		return kps
	}
	sorted := make(keypoints.KeyPoints, len(kps))
	copy(sorted, kps)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	return sorted[:n]
}
