package lib

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mitchellh/colorstring"
)

// Metrics is one flat record of scalar statistics.
type Metrics map[string]float64

func (m Metrics) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RunLogger opens one experiment run spanning every video of an invocation.
type RunLogger interface {
	Init(ctx context.Context, project string, meta RunMetadata) (Run, error)
}

type Run interface {
	ID() string
	Log(step int, metrics Metrics) error
	Finish() error
}

type MultiLogger []RunLogger

func (ml MultiLogger) Init(ctx context.Context, project string, meta RunMetadata) (Run, error) {
	var runs multiRun
	for _, logger := range ml {
		run, err := logger.Init(ctx, project, meta)
		if err != nil {
			runs.Finish()
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

type multiRun []Run

func (mr multiRun) ID() string {
	ids := make([]string, 0, len(mr))
	for _, run := range mr {
		ids = append(ids, run.ID())
	}
	return strings.Join(ids, ",")
}

func (mr multiRun) Log(step int, metrics Metrics) error {
	var errs []error
	for _, run := range mr {
		errs = append(errs, run.Log(step, metrics))
	}
	return errors.Join(errs...)
}

func (mr multiRun) Finish() error {
	var errs []error
	for _, run := range mr {
		errs = append(errs, run.Finish())
	}
	return errors.Join(errs...)
}

type ConsoleLogger struct {
	Out io.Writer
}

func (c ConsoleLogger) Init(_ context.Context, project string, meta RunMetadata) (Run, error) {
	colorstring.Fprintf(c.Out, "[cyan]run[reset] %s algorithm=[green]%s[reset] config=%s checkpoint=%s\n",
		project, meta.Algorithm, meta.Config, meta.Checkpoint)
	return &consoleRun{out: c.Out, id: project}, nil
}

type consoleRun struct {
	out io.Writer
	id  string
}

func (r *consoleRun) ID() string { return r.id }

func (r *consoleRun) Log(step int, metrics Metrics) error {
	colorstring.Fprintf(r.out, "[cyan][step %d][reset]", step)
	for _, k := range metrics.Keys() {
		colorstring.Fprintf(r.out, " %s: [green]%.4f[reset]", k, metrics[k])
	}
	fmt.Fprintln(r.out)
	return nil
}

func (r *consoleRun) Finish() error { return nil }

// WandbLogger drives pylib/wandb_bridge.py, which owns the wandb session.
type WandbLogger struct {
	Python string
	Script string
}

type wandbPacket struct {
	Type    string            `json:"type"`
	Project string            `json:"project,omitempty"`
	Config  map[string]string `json:"config,omitempty"`
	Step    int               `json:"step"`
	Data    Metrics           `json:"data,omitempty"`
}

func (w WandbLogger) Init(ctx context.Context, project string, meta RunMetadata) (Run, error) {
	proc, err := startPyProcess(ctx, w.Python, w.Script)
	if err != nil {
		return nil, err
	}
	var login struct {
		OK bool `json:"ok"`
	}
	if err := proc.call(wandbPacket{Type: "login"}, nil, &login); err != nil {
		proc.Close()
		return nil, fmt.Errorf("wandb login: %w", err)
	}
	if !login.OK {
		proc.Close()
		return nil, fmt.Errorf("wandb login refused")
	}
	var hello struct {
		ID string `json:"id"`
	}
	packet := wandbPacket{Type: "init", Project: project, Config: meta.AsMap()}
	if err := proc.call(packet, nil, &hello); err != nil {
		proc.Close()
		return nil, fmt.Errorf("wandb init: %w", err)
	}
	return &wandbRun{proc: proc, id: hello.ID}, nil
}

type wandbRun struct {
	proc *pyProcess
	id   string
}

func (r *wandbRun) ID() string { return r.id }

func (r *wandbRun) Log(step int, metrics Metrics) error {
	return r.proc.call(wandbPacket{Type: "log", Step: step, Data: metrics}, nil, nil)
}

func (r *wandbRun) Finish() error {
	if err := r.proc.call(wandbPacket{Type: "finish"}, nil, nil); err != nil {
		r.proc.Close()
		return err
	}
	return r.proc.Close()
}

// NewRunLogger builds the loggers named by logging.backends. The returned
// close function releases the sqlite store when one is opened.
func NewRunLogger(cfg Config, out io.Writer) (RunLogger, func() error, error) {
	var loggers MultiLogger
	closeFn := func() error { return nil }
	for _, backend := range cfg.Logging.Backends {
		switch strings.ToLower(backend) {
		case "wandb":
			loggers = append(loggers, WandbLogger{Python: cfg.Python, Script: cfg.Logging.Script})
		case "sqlite":
			store, err := OpenStore(cfg.LogBase.StorePath)
			if err != nil {
				return nil, closeFn, err
			}
			loggers = append(loggers, store)
			closeFn = store.Close
		case "console":
			loggers = append(loggers, ConsoleLogger{Out: out})
		default:
			return nil, closeFn, fmt.Errorf("unsupported logging backend: %s", backend)
		}
	}
	return loggers, closeFn, nil
}
