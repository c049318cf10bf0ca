package lib

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

var (
	ErrNoConfig     = errors.New("no config file")
	ErrNoCheckpoint = errors.New("no checkpoint source")
)

type RunArgs struct {
	Config     string
	Checkpoint string
	RunConfig  string
	Verbose    bool
}

func ParseArgs(argv []string, output io.Writer) (RunArgs, error) {
	var args RunArgs
	fs := flag.NewFlagSet("mmtrack", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&args.Config, "config", "", "path to config file")
	fs.StringVar(&args.Checkpoint, "checkpoint", "", "checkpoint download link")
	fs.StringVar(&args.RunConfig, "run", "", "path to run settings (yaml)")
	fs.BoolVar(&args.Verbose, "verbose", false, "print download command output")
	if err := fs.Parse(argv); err != nil {
		return args, err
	}
	if args.Config == "" {
		return args, ErrNoConfig
	}
	return args, nil
}

type Config struct {
	DeviceID  int    `yaml:"deviceid"`
	Project   string `yaml:"project"`
	Python    string `yaml:"python"`
	Visualize bool   `yaml:"visualize"`
	DataBase  struct {
		InputRoot string `yaml:"inputroot"`
	} `yaml:"database"`
	LogBase struct {
		AnnotationRoot string `yaml:"annotationroot"`
		VideoRoot      string `yaml:"videoroot"`
		ReportPath     string `yaml:"reportpath"`
		CheckpointRoot string `yaml:"checkpointroot"`
		StorePath      string `yaml:"storepath"`
		PlotPath       string `yaml:"plotpath"`
	} `yaml:"logbase"`
	VideoBase struct {
		FourCC      string `yaml:"fourcc"`
		ScratchRoot string `yaml:"scratchroot"`
	} `yaml:"videobase"`
	ModelBase struct {
		Script string `yaml:"script"`
	} `yaml:"modelbase"`
	Logging struct {
		Backends []string `yaml:"backends"`
		Script   string   `yaml:"script"`
	} `yaml:"logging"`
	Download struct {
		Method string `yaml:"method"`
	} `yaml:"download"`
}

var LOGBACKENDS = []string{"wandb", "sqlite", "console"}

// DefaultConfig reproduces the fixed DNP layout the runner was first written for.
func DefaultConfig() Config {
	var cfg Config
	cfg.Project = "DNP-mmtracking"
	cfg.Python = "python"
	cfg.DataBase.InputRoot = "data/DNP/video/"
	cfg.LogBase.AnnotationRoot = "output/DNP/anotations/"
	cfg.LogBase.VideoRoot = "output/DNP/videos/"
	cfg.LogBase.ReportPath = "output/DNP/time.txt"
	cfg.LogBase.CheckpointRoot = "checkpoints"
	cfg.LogBase.StorePath = "output/DNP/runs.db"
	cfg.VideoBase.FourCC = "mp4v"
	cfg.ModelBase.Script = "./pylib/mmtrack_infer.py"
	cfg.Logging.Backends = []string{"wandb"}
	cfg.Logging.Script = "./pylib/wandb_bridge.py"
	cfg.Download.Method = "wget"
	return cfg
}

// GetConfig reads a yaml run config on top of DefaultConfig. An empty path
// returns the defaults.
func GetConfig(configRoot string) (Config, error) {
	config := DefaultConfig()
	if configRoot == "" {
		return config, nil
	}

	data, err := os.ReadFile(configRoot)
	if err != nil {
		return config, fmt.Errorf("read run config: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("parse run config %s: %w", configRoot, err)
	}
	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

func (cfg Config) Validate() error {
	for _, backend := range cfg.Logging.Backends {
		if !IsContain(LOGBACKENDS, strings.ToLower(backend)) {
			return fmt.Errorf("unsupported logging backend: %s", backend)
		}
	}
	switch cfg.Download.Method {
	case "", "wget", "http":
	default:
		return fmt.Errorf("unsupported download method: %s", cfg.Download.Method)
	}
	if cfg.VideoBase.FourCC != "" && len(cfg.VideoBase.FourCC) != 4 {
		return fmt.Errorf("fourcc must be 4 characters, got %q", cfg.VideoBase.FourCC)
	}
	return nil
}

func (cfg Config) Device() string {
	if cfg.DeviceID < 0 {
		return "cpu"
	}
	return fmt.Sprintf("cuda:%d", cfg.DeviceID)
}

func SaveYaml(config Config, savePath string) error {
	yamlData, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshal run config: %w", err)
	}
	return os.WriteFile(savePath, yamlData, 0644)
}

type RunMetadata struct {
	Algorithm  string `json:"algorithm"`
	Config     string `json:"config"`
	Checkpoint string `json:"checkpoint"`
}

// NewRunMetadata derives run metadata from paths shaped like
// configs/mot/<algorithm>/<name>.py.
func NewRunMetadata(configPath string, checkpointSource string) RunMetadata {
	parts := strings.Split(filepath.ToSlash(configPath), "/")
	algorithm := filepath.Base(filepath.Dir(configPath))
	if len(parts) > 3 {
		algorithm = parts[2]
	}
	return RunMetadata{
		Algorithm:  algorithm,
		Config:     parts[len(parts)-1],
		Checkpoint: CheckpointName(checkpointSource),
	}
}

// CheckpointName is the file name a checkpoint source resolves to locally.
func CheckpointName(source string) string {
	if u, err := url.Parse(source); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return path.Base(u.Path)
	}
	parts := strings.Split(filepath.ToSlash(source), "/")
	return parts[len(parts)-1]
}

func (m RunMetadata) AsMap() map[string]string {
	return map[string]string{
		"algorithm":  m.Algorithm,
		"config":     m.Config,
		"checkpoint": m.Checkpoint,
	}
}
