// Package keypoints contains keypoint and descriptor types shared by feature extractors, the
// multiscale metadata of classical extractors, and descriptor matching.
package keypoints

import (
	"image"
	"math"

	"github.com/fogleman/gg"
)

// KeyPoint is a detected feature location in original-image pixel coordinates.
type KeyPoint struct {
	X     float64
	Y     float64
	Size  float64 // diameter of the meaningful neighborhood
	Score float64
}

// KeyPoints is a slice of keypoints.
type KeyPoints []KeyPoint

// Point returns the integer pixel containing the keypoint.
func (kp KeyPoint) Point() image.Point {
	return image.Point{int(math.Floor(kp.X)), int(math.Floor(kp.Y))}
}

// Points returns the integer pixels of the keypoints.
func (kps KeyPoints) Points() []image.Point {
	pts := make([]image.Point, len(kps))
	for i, kp := range kps {
		pts[i] = kp.Point()
	}
	return pts
}

// PlotKeypoints plots keypoints on image.
func PlotKeypoints(img image.Image, kps KeyPoints, outName string) error {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()

	dc := gg.NewContext(w, h)
	dc.DrawImage(img, 0, 0)

	// draw keypoints on image
	dc.SetRGBA(0, 0, 1, 0.5)
	for _, p := range kps {
		dc.DrawCircle(p.X, p.Y, float64(3.0))
		dc.Fill()
	}
	return dc.SavePNG(outName)
}
