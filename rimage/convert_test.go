package rimage

import (
	"image"
	"image/color"
	"testing"

	"go.viam.com/test"
)

func TestChannelCount(t *testing.T) {
	test.That(t, ChannelCount(image.NewGray(image.Rect(0, 0, 2, 2))), test.ShouldEqual, 1)
	test.That(t, ChannelCount(image.NewGray16(image.Rect(0, 0, 2, 2))), test.ShouldEqual, 1)
	test.That(t, ChannelCount(image.NewRGBA(image.Rect(0, 0, 2, 2))), test.ShouldEqual, 3)
	test.That(t, ChannelCount(image.NewNRGBA(image.Rect(0, 0, 2, 2))), test.ShouldEqual, 3)
}

func TestMakeGray(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 4, 4))
	test.That(t, MakeGray(g), test.ShouldEqual, g)

	g16 := image.NewGray16(image.Rect(0, 0, 2, 1))
	g16.SetGray16(0, 0, color.Gray16{Y: 0xffff})
	g16.SetGray16(1, 0, color.Gray16{Y: 0x8000})
	out := MakeGray(g16)
	test.That(t, out.Pix, test.ShouldResemble, []uint8{255, 128})

	rgba := image.NewRGBA(image.Rect(5, 5, 7, 6))
	rgba.Set(5, 5, color.RGBA{255, 255, 255, 255})
	out = MakeGray(rgba)
	test.That(t, out.Bounds(), test.ShouldResemble, image.Rect(0, 0, 2, 1))
	test.That(t, out.Pix, test.ShouldResemble, []uint8{255, 0})
}

func TestResize(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 64, 48))
	test.That(t, Resize(g, 64, 48), test.ShouldEqual, g)
	resized := Resize(g, 32, 24)
	test.That(t, resized.Bounds().Size(), test.ShouldResemble, image.Point{32, 24})
	_, isGray := resized.(*image.Gray)
	test.That(t, isGray, test.ShouldBeTrue)
}

func TestGrayToUInt8Buffer(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 3, 2))
	copy(g.Pix, []uint8{1, 2, 3, 4, 5, 6})
	buf := GrayToUInt8Buffer(g)
	test.That(t, buf, test.ShouldResemble, []uint8{1, 2, 3, 4, 5, 6})
	// contiguous images share memory
	buf[0] = 9
	test.That(t, g.Pix[0], test.ShouldEqual, uint8(9))

	sub := g.SubImage(image.Rect(1, 0, 3, 2)).(*image.Gray)
	buf = GrayToUInt8Buffer(sub)
	test.That(t, buf, test.ShouldResemble, []uint8{2, 3, 5, 6})
}

func TestImageToBGRBuffer(t *testing.T) {
	rgba := image.NewRGBA(image.Rect(0, 0, 2, 1))
	rgba.Set(0, 0, color.RGBA{10, 20, 30, 255})
	rgba.Set(1, 0, color.RGBA{40, 50, 60, 255})
	test.That(t, ImageToBGRBuffer(rgba), test.ShouldResemble, []uint8{30, 20, 10, 60, 50, 40})

	g := image.NewGray(image.Rect(0, 0, 1, 1))
	g.Pix[0] = 7
	test.That(t, ImageToBGRBuffer(g), test.ShouldResemble, []uint8{7, 7, 7})

	nrgba := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	nrgba.Set(0, 0, color.NRGBA{1, 2, 3, 255})
	test.That(t, ImageToBGRBuffer(nrgba), test.ShouldResemble, []uint8{3, 2, 1})
}
