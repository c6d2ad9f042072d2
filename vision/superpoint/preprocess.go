package superpoint

import (
	"image"

	"github.com/johnhalbert/vr-project-backup-sub006/rimage"
)

// NormalizedImage is an 8-bit image laid out exactly as the model input expects. Three channel
// images are interleaved B, G, R.
type NormalizedImage struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

// Prepare converts img to the channel count, then to the size, the model expects. Conversions
// that are not needed are skipped. img must not be empty.
func Prepare(img image.Image, width, height, channels int) *NormalizedImage {
	out := &NormalizedImage{Width: width, Height: height, Channels: channels}
	if channels == 1 {
		gray := rimage.MakeGray(img)
		gray = rimage.MakeGray(rimage.Resize(gray, width, height))
		out.Pix = rimage.GrayToUInt8Buffer(gray)
		return out
	}
	out.Pix = rimage.ImageToBGRBuffer(rimage.Resize(img, width, height))
	return out
}
