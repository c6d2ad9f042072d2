package keypoints

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// ImagePyramid contains the downscaled copies of an image, one per scale level.
type ImagePyramid struct {
	Images []image.Image
	Scales []float64
}

// BuildImagePyramid resizes img once per level of sp using bilinear filtering. Level 0 is the
// input itself. Levels that would shrink below one pixel are clamped to one pixel.
func BuildImagePyramid(img image.Image, sp ScalePyramid) *ImagePyramid {
	pyramid := &ImagePyramid{
		Images: make([]image.Image, 0, sp.NumLevels()),
		Scales: sp.Factors(),
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	for i, level := range sp.Levels {
		if i == 0 {
			pyramid.Images = append(pyramid.Images, img)
			continue
		}
		lw := int(math.Max(1, math.Round(float64(w)*level.InvFactor)))
		lh := int(math.Max(1, math.Round(float64(h)*level.InvFactor)))
		pyramid.Images = append(pyramid.Images, imaging.Resize(img, lw, lh, imaging.Linear))
	}
	return pyramid
}
