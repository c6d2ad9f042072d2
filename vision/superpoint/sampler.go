package superpoint

import (
	"image"
	"math"

	"github.com/johnhalbert/vr-project-backup-sub006/utils"
	"github.com/johnhalbert/vr-project-backup-sub006/vision/keypoints"
	"github.com/johnhalbert/vr-project-backup-sub006/vision/keypoints/descriptors"
)

const parallelSampleThreshold = 50

// SampleDescriptors reads the descriptor of every keypoint from the nearest cell of the
// descriptor map and L2-normalizes it. raw is laid out channel-major with descH x descW cells per
// channel. Descriptors with a near-zero norm are returned as sampled.
func SampleDescriptors(kps keypoints.KeyPoints, raw []float32, descH, descW int, imageSize image.Point) descriptors.Descriptors {
	out := make(descriptors.Descriptors, len(kps))
	plane := descH * descW
	utils.ParallelFor(len(kps), parallelSampleThreshold, func(i int) {
		kp := kps[i]
		col := int(math.Floor(kp.X * float64(descW) / float64(imageSize.X)))
		row := int(math.Floor(kp.Y * float64(descH) / float64(imageSize.Y)))
		col = utils.Clamp(col, 0, descW-1)
		row = utils.Clamp(row, 0, descH-1)

		desc := make(descriptors.Descriptor, DescriptorChannels)
		cell := row*descW + col
		for c := range desc {
			idx := c*plane + cell
			if idx >= 0 && idx < len(raw) {
				desc[c] = raw[idx]
			}
		}
		desc.Normalize()
		out[i] = desc
	})
	return out
}
