package lib

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimingReport(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "out", "time.txt")
	stats := VideoStats{
		FPS:          12.5,
		TimePerFrame: 0.08,
		JSONTime:     250 * time.Millisecond,
		VideoTime:    1500 * time.Millisecond,
	}

	report, err := OpenReport(fname)
	require.NoError(t, err)
	require.NoError(t, report.Header("a.mp4"))
	require.NoError(t, report.WriteStats(stats))
	require.NoError(t, report.Close())

	expected := "===========a.mp4==========\n" +
		"Average FPS: 12.5 seconds\n" +
		"Time per Frame: 0.08 seconds \n" +
		"Create json anotations: 0.25 seconds\n" +
		"Create output video: 1.5 seconds\n" +
		"\n"
	data, err := os.ReadFile(fname)
	require.NoError(t, err)
	assert.Equal(t, expected, string(data))

	// a second run appends
	report, err = OpenReport(fname)
	require.NoError(t, err)
	require.NoError(t, report.Header("b.mp4"))
	require.NoError(t, report.Close())
	data, err = os.ReadFile(fname)
	require.NoError(t, err)
	assert.Equal(t, expected+"===========b.mp4==========\n", string(data))
}
