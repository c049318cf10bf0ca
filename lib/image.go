package lib

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Image is a packed RGB24 frame, the layout ffmpeg emits with -pix_fmt rgb24.
type Image struct {
	Width  int
	Height int
	Bytes  []byte
}

func NewImage(width int, height int) Image {
	return Image{
		Width:  width,
		Height: height,
		Bytes:  make([]byte, 3*width*height),
	}
}

func ImageFromBytes(width int, height int, bytes []byte) Image {
	return Image{
		Width:  width,
		Height: height,
		Bytes:  bytes,
	}
}

func (im Image) AsImage() image.Image {
	pixbuf := make([]byte, im.Width*im.Height*4)
	j := 0
	channels := 0
	for i := range im.Bytes {
		pixbuf[j] = im.Bytes[i]
		j++
		channels++
		if channels == 3 {
			pixbuf[j] = 255
			j++
			channels = 0
		}
	}
	return &image.RGBA{
		Pix:    pixbuf,
		Stride: im.Width * 4,
		Rect:   image.Rect(0, 0, im.Width, im.Height),
	}
}

// SaveJPG writes the frame with the format picked from the file extension.
func (im Image) SaveJPG(fname string) error {
	return imaging.Save(im.AsImage(), fname, imaging.JPEGQuality(95))
}

func (im Image) SetRGB(i int, j int, color [3]uint8) {
	if i < 0 || i >= im.Width || j < 0 || j >= im.Height {
		return
	}
	for channel := 0; channel < 3; channel++ {
		im.Bytes[(j*im.Width+i)*3+channel] = color[channel]
	}
}

func (im Image) GetRGB(i int, j int) [3]uint8 {
	var color [3]uint8
	for channel := 0; channel < 3; channel++ {
		color[channel] = im.Bytes[(j*im.Width+i)*3+channel]
	}
	return color
}

func (im Image) FillRectangle(left, top, right, bottom int, color [3]uint8) {
	for i := left; i < right; i++ {
		for j := top; j < bottom; j++ {
			im.SetRGB(i, j, color)
		}
	}
}

func (im Image) Copy() Image {
	bytes := make([]byte, len(im.Bytes))
	copy(bytes, im.Bytes)
	return Image{
		Width:  im.Width,
		Height: im.Height,
		Bytes:  bytes,
	}
}

func (im Image) DrawRectangle(left, top, right, bottom int, width int, color [3]uint8) {
	im.FillRectangle(left-width, top, left+width, bottom, color)
	im.FillRectangle(right-width, top, right+width, bottom, color)
	im.FillRectangle(left, top-width, right, top+width, color)
	im.FillRectangle(left, bottom-width, right, bottom+width, color)
}

// DrawLabel writes text on a filled background whose bottom-left corner is
// at (left, bottom).
func (im Image) DrawLabel(left, bottom int, text string, bg [3]uint8) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  im,
		Src:  image.NewUniform(color.RGBA{255, 255, 255, 255}),
		Face: face,
	}
	width := d.MeasureString(text).Ceil()
	height := face.Metrics().Height.Ceil()
	if bottom-height < 0 {
		bottom = height
	}
	im.FillRectangle(left, bottom-height, left+width+2, bottom, bg)
	d.Dot = fixed.P(left+1, bottom-face.Metrics().Descent.Ceil())
	d.DrawString(text)
}

// for image.Image / draw.Image

func (im Image) Set(i int, j int, c color.Color) {
	r, g, b, _ := c.RGBA()
	im.SetRGB(i, j, [3]uint8{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)})
}

func (im Image) At(i int, j int) color.Color {
	if i < 0 || i >= im.Width || j < 0 || j >= im.Height {
		return color.RGBA{}
	}
	c := im.GetRGB(i, j)
	return color.RGBA{c[0], c[1], c[2], 255}
}

func (im Image) ColorModel() color.Model {
	return color.RGBAModel
}

func (im Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, im.Width, im.Height)
}
