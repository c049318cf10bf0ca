package lib

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/mitchellh/colorstring"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// FrameTimeStats returns the standard deviation and 95th percentile of the
// per-frame inference times, in seconds.
func FrameTimeStats(frameTimes []float64) (std float64, p95 float64) {
	if len(frameTimes) == 0 {
		return 0, 0
	}
	sorted := append([]float64(nil), frameTimes...)
	sort.Float64s(sorted)
	if len(sorted) > 1 {
		_, std = stat.MeanStdDev(sorted, nil)
	}
	p95 = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	return std, p95
}

type RunSummary struct {
	Videos  int
	MeanFPS float64
	StdFPS  float64
}

func Summarize(stats []VideoStats) RunSummary {
	summary := RunSummary{Videos: len(stats)}
	if len(stats) == 0 {
		return summary
	}
	fps := make([]float64, len(stats))
	for i, s := range stats {
		fps[i] = s.FPS
	}
	if len(fps) == 1 {
		summary.MeanFPS = fps[0]
		return summary
	}
	summary.MeanFPS, summary.StdFPS = stat.MeanStdDev(fps, nil)
	return summary
}

func PrintSummary(w io.Writer, stats []VideoStats) {
	colorstring.Fprintln(w, "[cyan][SUM][reset] Run summary")
	for _, s := range stats {
		colorstring.Fprintf(w, "  %-32s frames: %6d  fps: [green]%.2f[reset]  tracks: %d\n",
			s.Name, s.Frames, s.FPS, s.Tracks)
	}
	summary := Summarize(stats)
	colorstring.Fprintf(w, "  videos: %d  mean fps: [green]%.2f[reset]  std: [yellow]%.2f[reset]\n",
		summary.Videos, summary.MeanFPS, summary.StdFPS)
}

// PlotFPS saves a line plot of the FPS of each video, in processing order.
func PlotFPS(stats []VideoStats, savePath string) error {
	if err := os.MkdirAll(filepath.Dir(savePath), 0755); err != nil {
		return err
	}
	p := plot.New()
	p.Title.Text = "Tracking speed per video"
	p.X.Label.Text = "Video"
	p.Y.Label.Text = "FPS"

	data := make(plotter.XYs, len(stats))
	for i := range data {
		data[i].X = float64(i)
		data[i].Y = stats[i].FPS
	}
	if err := plotutil.AddLinePoints(p, "FPS", data); err != nil {
		return fmt.Errorf("plot fps: %w", err)
	}
	if err := p.Save(12*vg.Inch, 6*vg.Inch, savePath); err != nil {
		return fmt.Errorf("save plot %s: %w", savePath, err)
	}
	return nil
}
