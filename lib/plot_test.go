package lib

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameTimeStats(t *testing.T) {
	std, p95 := FrameTimeStats(nil)
	assert.Zero(t, std)
	assert.Zero(t, p95)

	std, p95 = FrameTimeStats([]float64{0.1})
	assert.Zero(t, std)
	assert.Equal(t, 0.1, p95)

	times := make([]float64, 0, 20)
	for i := 20; i >= 1; i-- {
		times = append(times, float64(i))
	}
	std, p95 = FrameTimeStats(times)
	assert.InDelta(t, 5.9161, std, 1e-3)
	assert.GreaterOrEqual(t, p95, 19.0)
	assert.LessOrEqual(t, p95, 20.0)
	// input order is kept
	assert.Equal(t, 20.0, times[0])
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, RunSummary{}, Summarize(nil))
	assert.Equal(t, RunSummary{Videos: 1, MeanFPS: 10}, Summarize([]VideoStats{{FPS: 10}}))

	summary := Summarize([]VideoStats{{FPS: 10}, {FPS: 20}})
	assert.Equal(t, 2, summary.Videos)
	assert.InDelta(t, 15.0, summary.MeanFPS, 1e-9)
	assert.InDelta(t, 7.0711, summary.StdFPS, 1e-3)
}

func TestPrintSummary(t *testing.T) {
	var out bytes.Buffer
	PrintSummary(&out, []VideoStats{{Name: "a.mp4", Frames: 10, FPS: 5, Tracks: 2}})
	assert.Contains(t, out.String(), "a.mp4")
	assert.Contains(t, out.String(), "mean fps")
}

func TestPlotFPS(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "plots", "fps.png")
	require.NoError(t, PlotFPS([]VideoStats{{FPS: 10}, {FPS: 12}, {FPS: 9}}, fname))
	assert.FileExists(t, fname)
}
