package lib

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/k0kubun/go-ansi"
	"github.com/mitchellh/colorstring"
	"github.com/schollz/progressbar/v3"
)

var ErrEmptyVideo = errors.New("video has no frames")

// DefaultFPS is used for the output video when the input does not report a
// frame rate.
const DefaultFPS = 30.0

// RunConfigName is the file the resolved run config is saved as, next to
// the timing report.
const RunConfigName = "run.yaml"

type ModelOpener func(ctx context.Context, configPath string, checkpoint string, device string) (TrackModel, error)

type Runner struct {
	Config     Config
	Downloader Downloader
	OpenModel  ModelOpener
	Videos     VideoIO
	Logger     RunLogger
	Out        io.Writer
	BarOut     io.Writer
}

type VideoStats struct {
	Name         string
	Frames       int
	Elapsed      time.Duration
	InferTime    time.Duration
	JSONTime     time.Duration
	VideoTime    time.Duration
	FPS          float64
	TimePerFrame float64
	FrameTimes   []float64
	Tracks       int
}

func (s VideoStats) Metrics() Metrics {
	std, p95 := FrameTimeStats(s.FrameTimes)
	return Metrics{
		"Average FPS":            s.FPS,
		"Time per Frame":         s.TimePerFrame,
		"Create json anotations": s.JSONTime.Seconds(),
		"Create output video":    s.VideoTime.Seconds(),
		"Frames":                 float64(s.Frames),
		"Unique Tracks":          float64(s.Tracks),
		"Frame Time Std":         std,
		"Frame Time P95":         p95,
	}
}

func (r *Runner) out() io.Writer {
	if r.Out == nil {
		return os.Stdout
	}
	return r.Out
}

func (r *Runner) barOut() io.Writer {
	if r.BarOut == nil {
		return ansi.NewAnsiStdout()
	}
	return r.BarOut
}

// Run resolves the checkpoint, loads the model once and tracks every video
// of the input directory in lexical order. The first failing video stops
// the run.
func (r *Runner) Run(ctx context.Context, args RunArgs) (allStats []VideoStats, err error) {
	if args.Config == "" {
		return nil, ErrNoConfig
	}
	cfg := r.Config

	checkpoint, err := ResolveCheckpoint(ctx, args.Checkpoint, cfg.LogBase.CheckpointRoot, r.Downloader, r.out())
	if err != nil {
		return nil, err
	}

	model, err := r.OpenModel(ctx, args.Config, checkpoint, cfg.Device())
	if err != nil {
		return nil, fmt.Errorf("init model: %w", err)
	}
	defer func() {
		err = errors.Join(err, model.Close())
	}()

	report, err := OpenReport(cfg.LogBase.ReportPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, report.Close())
	}()
	// keep the resolved settings beside the report they produced
	if err := SaveYaml(cfg, filepath.Join(filepath.Dir(cfg.LogBase.ReportPath), RunConfigName)); err != nil {
		return nil, fmt.Errorf("save run config: %w", err)
	}

	run, err := r.Logger.Init(ctx, cfg.Project, NewRunMetadata(args.Config, args.Checkpoint))
	if err != nil {
		return nil, fmt.Errorf("init run logger: %w", err)
	}
	defer func() {
		err = errors.Join(err, run.Finish())
	}()
	slog.Info("run started", "project", cfg.Project, "run", run.ID())

	fmt.Fprintln(r.out(), "Detect Classes:", model.Classes())

	fnames, err := ListVideos(cfg.DataBase.InputRoot)
	if err != nil {
		return nil, err
	}
	for videoID, fname := range fnames {
		if err := ctx.Err(); err != nil {
			return allStats, err
		}
		stats, err := r.ProcessVideo(ctx, model, report, videoID, fname)
		if err != nil {
			return allStats, fmt.Errorf("process %s: %w", fname, err)
		}
		if err := run.Log(videoID, stats.Metrics()); err != nil {
			return allStats, fmt.Errorf("log metrics: %w", err)
		}
		allStats = append(allStats, stats)
	}

	PrintSummary(r.out(), allStats)
	if cfg.LogBase.PlotPath != "" && len(allStats) > 0 {
		if err := PlotFPS(allStats, cfg.LogBase.PlotPath); err != nil {
			return allStats, err
		}
	}
	return allStats, nil
}

func newFrameBar(w io.Writer, frames int, name string) *progressbar.ProgressBar {
	total := frames
	if total <= 0 {
		total = -1
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(15),
		progressbar.OptionSetDescription("[cyan][TR][reset] "+name),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

// ProcessVideo tracks one video of the input directory and writes its
// annotations, rendered video and report block.
func (r *Runner) ProcessVideo(ctx context.Context, model TrackModel, report *TimingReport, videoID int, fname string) (VideoStats, error) {
	cfg := r.Config
	stats := VideoStats{Name: fname}

	fmt.Fprintf(r.out(), "===========%s==========\n", fname)
	if err := report.Header(fname); err != nil {
		return stats, err
	}

	rd, err := r.Videos.Open(ctx, filepath.Join(cfg.DataBase.InputRoot, fname))
	if err != nil {
		return stats, err
	}
	defer rd.Close()

	if cfg.VideoBase.ScratchRoot != "" {
		if err := os.MkdirAll(cfg.VideoBase.ScratchRoot, 0755); err != nil {
			return stats, err
		}
	}
	scratch, err := os.MkdirTemp(cfg.VideoBase.ScratchRoot, "mmtrack-")
	if err != nil {
		return stats, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	classes := model.Classes()
	acc := NewAccumulator()
	bar := newFrameBar(r.barOut(), rd.Len(), fname)

	start := time.Now()
	for frameIdx := 0; ; frameIdx++ {
		im, err := rd.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return stats, fmt.Errorf("read frame %d: %w", frameIdx, err)
		}

		inferStart := time.Now()
		result, err := model.Infer(videoID, frameIdx, im)
		if err != nil {
			return stats, err
		}
		inferTime := time.Since(inferStart)
		stats.InferTime += inferTime
		stats.FrameTimes = append(stats.FrameTimes, inferTime.Seconds())
		acc.Add(frameIdx, result)

		rendered := RenderFrame(im, result, classes)
		if err := rendered.SaveJPG(filepath.Join(scratch, fmt.Sprintf("%06d.jpg", frameIdx))); err != nil {
			return stats, fmt.Errorf("save frame %d: %w", frameIdx, err)
		}
		bar.Add(1)
	}
	stats.Elapsed = time.Since(start)
	bar.Finish()
	fmt.Fprintln(r.barOut())

	if err := model.End(videoID); err != nil {
		return stats, err
	}

	stats.Frames = acc.Len()
	if stats.Frames == 0 {
		return stats, ErrEmptyVideo
	}
	stats.FPS = float64(stats.Frames) / stats.Elapsed.Seconds()
	stats.TimePerFrame = stats.InferTime.Seconds() / float64(stats.Frames)
	tracks := acc.GetTracks(classes)
	stats.Tracks = len(tracks)

	stem := FileStem(fname)
	jsonStart := time.Now()
	if err := acc.WriteJSON(filepath.Join(cfg.LogBase.AnnotationRoot, stem+".json")); err != nil {
		return stats, err
	}
	stats.JSONTime = time.Since(jsonStart)

	fps := rd.FPS()
	if fps <= 0 {
		fps = DefaultFPS
	}
	videoStart := time.Now()
	if err := r.Videos.Encode(ctx, scratch, filepath.Join(cfg.LogBase.VideoRoot, stem+".mp4"), fps); err != nil {
		return stats, err
	}
	stats.VideoTime = time.Since(videoStart)

	if err := report.WriteStats(stats); err != nil {
		return stats, fmt.Errorf("write report: %w", err)
	}
	r.printStats(stats)
	if cfg.Visualize {
		r.printTracks(tracks)
	}
	slog.Debug("video done", "file", fname, "frames", stats.Frames, "fps", stats.FPS)
	return stats, nil
}

func (r *Runner) printStats(stats VideoStats) {
	w := r.out()
	colorstring.Fprintf(w, "Average FPS: [green]%s[reset] seconds\n", formatSeconds(stats.FPS))
	colorstring.Fprintf(w, "Time per Frame: [green]%s[reset] seconds\n", formatSeconds(stats.TimePerFrame))
	colorstring.Fprintf(w, "Create json anotations: [green]%s[reset] seconds\n", formatSeconds(stats.JSONTime.Seconds()))
	colorstring.Fprintf(w, "Create output video: [green]%s[reset] seconds\n\n", formatSeconds(stats.VideoTime.Seconds()))
}

func (r *Runner) printTracks(tracks [][]TrackDetection) {
	w := r.out()
	for _, track := range tracks {
		first, last := track[0], track[len(track)-1]
		colorstring.Fprintf(w, "  track [cyan]%d[reset] %s frames %d-%d (%d boxes) moved %.1f px\n",
			*first.TrackID, first.Class, first.FrameIdx, last.FrameIdx, len(track), TrackDisplacement(track))
	}
}
