package lib

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImage_DrawRectangle(t *testing.T) {
	im := NewImage(20, 20)
	red := [3]uint8{255, 0, 0}
	im.DrawRectangle(5, 5, 15, 15, 1, red)

	assert.Equal(t, red, im.GetRGB(5, 10))
	assert.Equal(t, red, im.GetRGB(10, 15))
	assert.Equal(t, [3]uint8{}, im.GetRGB(10, 10))

	// drawing past the border is clipped
	im.DrawRectangle(-5, -5, 30, 30, 2, red)
}

func TestImage_Copy(t *testing.T) {
	im := NewImage(4, 4)
	cp := im.Copy()
	cp.SetRGB(1, 1, [3]uint8{1, 2, 3})
	assert.Equal(t, [3]uint8{}, im.GetRGB(1, 1))
	assert.Equal(t, [3]uint8{1, 2, 3}, cp.GetRGB(1, 1))
}

func TestImage_SaveJPG(t *testing.T) {
	im := NewImage(32, 16)
	im.FillRectangle(0, 0, 32, 16, [3]uint8{0, 0, 255})
	fname := filepath.Join(t.TempDir(), "000000.jpg")
	require.NoError(t, im.SaveJPG(fname))

	decoded, err := imaging.Open(fname)
	require.NoError(t, err)
	assert.Equal(t, 32, decoded.Bounds().Dx())
	assert.Equal(t, 16, decoded.Bounds().Dy())

	info, err := os.Stat(fname)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func TestRenderFrame(t *testing.T) {
	im := NewImage(200, 200)
	result := TrackResult{TrackBBoxes: [][][]float64{{{4, 50, 60, 150, 160, 0.8}}}}
	out := RenderFrame(im, result, []string{"pedestrian"})

	color := TrackColor(intPtr(4))
	assert.Equal(t, Colors[4], color)
	assert.Equal(t, color, out.GetRGB(50, 100))
	assert.Equal(t, color, out.GetRGB(100, 160))
	// the input frame is left untouched
	assert.Equal(t, [3]uint8{}, im.GetRGB(50, 100))
	assert.Equal(t, Colors[0], TrackColor(nil))
}

func intPtr(x int) *int {
	return &x
}
