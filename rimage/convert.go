// Package rimage contains the image conversions used to feed images to neural networks.
package rimage

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/nfnt/resize"
)

// ChannelCount returns 1 for grayscale images and 3 for everything else.
func ChannelCount(img image.Image) int {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return 1
	default:
		if img.ColorModel() == color.GrayModel || img.ColorModel() == color.Gray16Model {
			return 1
		}
		return 3
	}
}

// MakeGray converts any image to an 8-bit image.Gray. An *image.Gray is returned as is.
func MakeGray(pic image.Image) *image.Gray {
	if g, ok := pic.(*image.Gray); ok {
		return g
	}
	bounds := pic.Bounds()
	result := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(result, result.Bounds(), pic, bounds.Min, draw.Src)
	return result
}

// Resize scales img to exactly width x height with bilinear interpolation. The image is returned
// untouched when it already has that size.
func Resize(img image.Image, width, height int) image.Image {
	size := img.Bounds().Size()
	if size.X == width && size.Y == height {
		return img
	}
	return resize.Resize(uint(width), uint(height), img, resize.Bilinear)
}

// GrayToUInt8Buffer returns the gray pixels as one contiguous row-major buffer. The image's own
// backing memory is returned when it is already contiguous and starts at its first pixel.
func GrayToUInt8Buffer(g *image.Gray) []uint8 {
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	if g.Stride == w && g.PixOffset(g.Rect.Min.X, g.Rect.Min.Y) == 0 && len(g.Pix) >= w*h {
		return g.Pix[:w*h]
	}
	out := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		start := g.PixOffset(g.Rect.Min.X, g.Rect.Min.Y+y)
		copy(out[y*w:(y+1)*w], g.Pix[start:start+w])
	}
	return out
}

// ImageToBGRBuffer returns the image as interleaved 8-bit B, G, R samples in row-major order.
// Grayscale images are replicated into all three channels.
func ImageToBGRBuffer(img image.Image) []uint8 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := make([]uint8, 0, w*h*3)
	switch im := img.(type) {
	case *image.RGBA:
		for y := 0; y < h; y++ {
			row := im.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			for x := 0; x < w; x++ {
				i := row + 4*x
				out = append(out, im.Pix[i+2], im.Pix[i+1], im.Pix[i])
			}
		}
	case *image.Gray:
		for y := 0; y < h; y++ {
			row := im.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			for x := 0; x < w; x++ {
				v := im.Pix[row+x]
				out = append(out, v, v, v)
			}
		}
	default:
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				r, g, b, _ := img.At(x, y).RGBA()
				out = append(out, uint8(b>>8), uint8(g>>8), uint8(r>>8))
			}
		}
	}
	return out
}
