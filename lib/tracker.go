package lib

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// TrackModel is the opaque multi-object tracker. Frames of one video are
// passed in order; End resets per-video state.
type TrackModel interface {
	Classes() []string
	Infer(id int, frameIdx int, im Image) (TrackResult, error)
	End(id int) error
	Close() error
}

// pyProcess speaks the length-prefixed packet protocol with a python helper:
// a 4-byte big-endian length and a json packet on stdin, answers on stdout
// as lines starting with "json". Other stdout lines are ignored.
type pyProcess struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	rd    *bufio.Reader
	mu    sync.Mutex
}

func startPyProcess(ctx context.Context, python string, script string, args ...string) (*pyProcess, error) {
	cmd := exec.CommandContext(ctx, python, append([]string{"-W", "ignore", script}, args...)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", script, err)
	}
	return &pyProcess{
		cmd:   cmd,
		stdin: stdin,
		rd:    bufio.NewReader(stdout),
	}, nil
}

func writePacket(w io.Writer, packet interface{}) error {
	bytes, err := json.Marshal(packet)
	if err != nil {
		return err
	}
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(bytes)))
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err = w.Write(bytes)
	return err
}

func writeImage(w io.Writer, im Image) error {
	header := make([]byte, 12)
	binary.BigEndian.PutUint32(header[0:4], uint32(len(im.Bytes)))
	binary.BigEndian.PutUint32(header[4:8], uint32(im.Width))
	binary.BigEndian.PutUint32(header[8:12], uint32(im.Height))
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(im.Bytes)
	return err
}

func readJSONLine(rd *bufio.Reader, x interface{}) error {
	var line string
	for {
		var err error
		line, err = rd.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "json") {
			break
		}
	}
	if err := json.Unmarshal([]byte(line[4:]), x); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (p *pyProcess) call(packet interface{}, im *Image, response interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := writePacket(p.stdin, packet); err != nil {
		return err
	}
	if im != nil {
		if err := writeImage(p.stdin, *im); err != nil {
			return err
		}
	}
	if response == nil {
		return nil
	}
	return readJSONLine(p.rd, response)
}

func (p *pyProcess) Close() error {
	p.stdin.Close()
	return p.cmd.Wait()
}

type TrackerPacket struct {
	ID       int    `json:"id"`
	FrameIdx int    `json:"frame_idx"`
	Type     string `json:"type"`
}

type PyTrackModel struct {
	proc    *pyProcess
	classes []string
}

// NewPyTrackModel starts the inference helper and waits for its class list,
// which it prints once the model is loaded.
func NewPyTrackModel(ctx context.Context, python string, script string, configPath string, checkpoint string, device string) (*PyTrackModel, error) {
	proc, err := startPyProcess(ctx, python, script, configPath, checkpoint, device)
	if err != nil {
		return nil, err
	}
	var hello struct {
		Classes []string `json:"classes"`
	}
	if err := readJSONLine(proc.rd, &hello); err != nil {
		proc.Close()
		return nil, fmt.Errorf("init model %s: %w", configPath, err)
	}
	return &PyTrackModel{
		proc:    proc,
		classes: hello.Classes,
	}, nil
}

func (m *PyTrackModel) Classes() []string {
	return m.classes
}

func (m *PyTrackModel) Infer(id int, frameIdx int, im Image) (TrackResult, error) {
	packet := TrackerPacket{
		ID:       id,
		FrameIdx: frameIdx,
		Type:     "job",
	}
	var result TrackResult
	if err := m.proc.call(packet, &im, &result); err != nil {
		return result, fmt.Errorf("infer frame %d: %w", frameIdx, err)
	}
	return result, nil
}

func (m *PyTrackModel) End(id int) error {
	return m.proc.call(TrackerPacket{ID: id, Type: "end"}, nil, nil)
}

func (m *PyTrackModel) Close() error {
	return m.proc.Close()
}
