package lib

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// VideoReader yields decoded frames in order and io.EOF after the last one.
type VideoReader interface {
	FPS() float64
	Len() int
	Read() (Image, error)
	Close() error
}

type VideoIO interface {
	Open(ctx context.Context, fname string) (VideoReader, error)
	// Encode turns framesDir/%06d.jpg into a video file.
	Encode(ctx context.Context, framesDir string, output string, fps float64) error
}

type VideoInfo struct {
	Width       int
	Height      int
	FPS         float64
	FrameNumber int
}

type FfmpegIO struct {
	FourCC  string
	Threads int
}

func NewFfmpegIO(fourcc string) *FfmpegIO {
	if fourcc == "" {
		fourcc = "mp4v"
	}
	return &FfmpegIO{FourCC: fourcc, Threads: 2}
}

func (f *FfmpegIO) Open(ctx context.Context, fname string) (VideoReader, error) {
	info, err := Probe(ctx, fname)
	if err != nil {
		return nil, err
	}
	return ReadFfmpeg(ctx, fname, info, f.Threads)
}

func (f *FfmpegIO) Encode(ctx context.Context, framesDir string, output string, fps float64) error {
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", EncodeArgs(framesDir, output, fps, f.FourCC)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg encode %s: %w: %s", output, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func EncodeArgs(framesDir string, output string, fps float64, fourcc string) []string {
	return []string{
		"-y", "-loglevel", "error",
		"-framerate", strconv.FormatFloat(fps, 'f', -1, 64),
		"-i", filepath.Join(framesDir, "%06d.jpg"),
		"-c:v", "mpeg4", "-vtag", fourcc, "-q:v", "2",
		"-pix_fmt", "yuv420p",
		output,
	}
}

type probeOutput struct {
	Streams []struct {
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
		NbFrames     string `json:"nb_frames"`
	} `json:"streams"`
}

func Probe(ctx context.Context, fname string) (VideoInfo, error) {
	cmd := exec.CommandContext(ctx,
		"ffprobe", "-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate,avg_frame_rate,nb_frames",
		"-of", "json",
		fname,
	)
	output, err := cmd.Output()
	if err != nil {
		return VideoInfo{}, fmt.Errorf("ffprobe %s: %w", fname, err)
	}
	return parseProbe(output)
}

func parseProbe(output []byte) (VideoInfo, error) {
	var probe probeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return VideoInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(probe.Streams) == 0 {
		return VideoInfo{}, fmt.Errorf("no video stream")
	}
	stream := probe.Streams[0]
	if stream.Width <= 0 || stream.Height <= 0 {
		return VideoInfo{}, fmt.Errorf("invalid frame size %dx%d", stream.Width, stream.Height)
	}
	fps := parseRate(stream.AvgFrameRate)
	if fps == 0 {
		fps = parseRate(stream.RFrameRate)
	}
	frames, _ := strconv.Atoi(stream.NbFrames)
	return VideoInfo{
		Width:       stream.Width,
		Height:      stream.Height,
		FPS:         fps,
		FrameNumber: frames,
	}, nil
}

// parseRate reads ffprobe rates such as "30000/1001"; malformed input is 0.
func parseRate(rate string) float64 {
	parts := strings.Split(rate, "/")
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0
	}
	if len(parts) == 1 {
		return num
	}
	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || den == 0 {
		return 0
	}
	return num / den
}

type FfmpegReader struct {
	Cmd    *exec.Cmd
	Stdout io.ReadCloser
	Info   VideoInfo
}

func ReadFfmpeg(ctx context.Context, fname string, info VideoInfo, threads int) (*FfmpegReader, error) {
	cmd := exec.CommandContext(ctx,
		"ffmpeg",
		"-loglevel", "error",
		"-threads", strconv.Itoa(threads),
		"-i", fname,
		"-c:v", "rawvideo", "-pix_fmt", "rgb24", "-f", "rawvideo",
		"-",
	)
	cmd.Stderr = os.Stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	return &FfmpegReader{
		Cmd:    cmd,
		Stdout: stdout,
		Info:   info,
	}, nil
}

func (rd *FfmpegReader) FPS() float64 {
	return rd.Info.FPS
}

func (rd *FfmpegReader) Len() int {
	return rd.Info.FrameNumber
}

func (rd *FfmpegReader) Read() (Image, error) {
	buf := make([]byte, rd.Info.Width*rd.Info.Height*3)
	_, err := io.ReadFull(rd.Stdout, buf)
	if err == io.ErrUnexpectedEOF {
		return Image{}, fmt.Errorf("truncated frame: %w", err)
	} else if err != nil {
		return Image{}, err
	}
	return ImageFromBytes(rd.Info.Width, rd.Info.Height, buf), nil
}

func (rd *FfmpegReader) Close() error {
	rd.Stdout.Close()
	return rd.Cmd.Wait()
}
