package lib

import (
	"fmt"
)

var Colors = [][3]uint8{
	{255, 0, 0},
	{0, 255, 0},
	{0, 0, 255},
	{255, 255, 0},
	{0, 255, 255},
	{255, 0, 255},
	{0, 51, 51},
	{51, 153, 153},
	{102, 0, 51},
	{102, 51, 204},
	{102, 153, 204},
	{102, 255, 204},
	{153, 102, 102},
	{204, 102, 51},
	{204, 255, 102},
	{255, 255, 204},
	{121, 125, 127},
	{69, 179, 157},
	{250, 215, 160},
}

func TrackColor(trackID *int) [3]uint8 {
	if trackID == nil || *trackID < 0 {
		return Colors[0]
	}
	return Colors[*trackID%len(Colors)]
}

// RenderFrame draws the tracked boxes of result onto a copy of im.
func RenderFrame(im Image, result TrackResult, classes []string) Image {
	out := im.Copy()
	for _, d := range result.Tracked(classes) {
		color := TrackColor(d.TrackID)
		out.DrawRectangle(d.Left, d.Top, d.Right, d.Bottom, 1, color)
		out.DrawLabel(d.Left, d.Top, fmt.Sprintf("%s %d", d.Class, *d.TrackID), color)
	}
	return out
}
