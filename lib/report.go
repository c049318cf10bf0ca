package lib

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// TimingReport is the plain-text per-video timing log. Existing content is
// kept; each run appends.
type TimingReport struct {
	file *os.File
}

func OpenReport(fname string) (*TimingReport, error) {
	if err := os.MkdirAll(filepath.Dir(fname), 0755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(fname, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open report %s: %w", fname, err)
	}
	return &TimingReport{file: file}, nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (r *TimingReport) Header(name string) error {
	_, err := fmt.Fprintf(r.file, "===========%s==========\n", name)
	return err
}

func (r *TimingReport) WriteStats(stats VideoStats) error {
	_, err := fmt.Fprintf(r.file,
		"Average FPS: %s seconds\nTime per Frame: %s seconds \nCreate json anotations: %s seconds\nCreate output video: %s seconds\n\n",
		formatSeconds(stats.FPS),
		formatSeconds(stats.TimePerFrame),
		formatSeconds(stats.JSONTime.Seconds()),
		formatSeconds(stats.VideoTime.Seconds()),
	)
	if err != nil {
		return err
	}
	return r.file.Sync()
}

func (r *TimingReport) Close() error {
	return r.file.Close()
}
