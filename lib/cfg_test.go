package lib

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	args, err := ParseArgs([]string{
		"-config", "configs/mot/bytetrack/bytetrack_yolox_x.py",
		"-checkpoint", "https://example.com/ckpt/bytetrack.pth",
		"-verbose",
	}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "configs/mot/bytetrack/bytetrack_yolox_x.py", args.Config)
	assert.Equal(t, "https://example.com/ckpt/bytetrack.pth", args.Checkpoint)
	assert.True(t, args.Verbose)
	assert.Empty(t, args.RunConfig)
}

func TestParseArgs_MissingConfig(t *testing.T) {
	_, err := ParseArgs([]string{"-checkpoint", "x.pth"}, io.Discard)
	assert.ErrorIs(t, err, ErrNoConfig)
}

func TestParseArgs_UnknownFlag(t *testing.T) {
	_, err := ParseArgs([]string{"-nope"}, io.Discard)
	assert.Error(t, err)
}

func TestGetConfig_Defaults(t *testing.T) {
	cfg, err := GetConfig("")
	require.NoError(t, err)
	assert.Equal(t, "DNP-mmtracking", cfg.Project)
	assert.Equal(t, "data/DNP/video/", cfg.DataBase.InputRoot)
	assert.Equal(t, "output/DNP/anotations/", cfg.LogBase.AnnotationRoot)
	assert.Equal(t, "output/DNP/videos/", cfg.LogBase.VideoRoot)
	assert.Equal(t, "output/DNP/time.txt", cfg.LogBase.ReportPath)
	assert.Equal(t, "checkpoints", cfg.LogBase.CheckpointRoot)
	assert.Equal(t, []string{"wandb"}, cfg.Logging.Backends)
	assert.Equal(t, "cuda:0", cfg.Device())
}

func TestGetConfig_OverridesAndRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fname := filepath.Join(dir, "run.yaml")
	content := "deviceid: -1\nlogbase:\n  reportpath: out/time.txt\nlogging:\n  backends: [console, sqlite]\n"
	require.NoError(t, os.WriteFile(fname, []byte(content), 0644))

	cfg, err := GetConfig(fname)
	require.NoError(t, err)
	assert.Equal(t, "cpu", cfg.Device())
	assert.Equal(t, "out/time.txt", cfg.LogBase.ReportPath)
	// untouched sections keep their defaults
	assert.Equal(t, "output/DNP/videos/", cfg.LogBase.VideoRoot)
	assert.Equal(t, []string{"console", "sqlite"}, cfg.Logging.Backends)

	saved := filepath.Join(dir, "saved.yaml")
	require.NoError(t, SaveYaml(cfg, saved))
	again, err := GetConfig(saved)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestGetConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"backend": "logging:\n  backends: [tensorboard]\n",
		"method":  "download:\n  method: ftp\n",
		"fourcc":  "videobase:\n  fourcc: mp4\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			fname := filepath.Join(dir, name+".yaml")
			require.NoError(t, os.WriteFile(fname, []byte(content), 0644))
			_, err := GetConfig(fname)
			assert.Error(t, err)
		})
	}
}

func TestGetConfig_MissingFile(t *testing.T) {
	_, err := GetConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestNewRunMetadata(t *testing.T) {
	meta := NewRunMetadata("configs/mot/deepsort/deepsort_faster-rcnn_fpn_4e_mot17.py",
		"https://download.openmmlab.com/mmtracking/mot/deepsort/sort_faster.pth")
	assert.Equal(t, RunMetadata{
		Algorithm:  "deepsort",
		Config:     "deepsort_faster-rcnn_fpn_4e_mot17.py",
		Checkpoint: "sort_faster.pth",
	}, meta)
	assert.Equal(t, map[string]string{
		"algorithm":  "deepsort",
		"config":     "deepsort_faster-rcnn_fpn_4e_mot17.py",
		"checkpoint": "sort_faster.pth",
	}, meta.AsMap())
}

func TestNewRunMetadata_ShortPath(t *testing.T) {
	meta := NewRunMetadata("ocsort/ocsort.py", "weights/ocsort.pth")
	assert.Equal(t, "ocsort", meta.Algorithm)
	assert.Equal(t, "ocsort.py", meta.Config)
	assert.Equal(t, "ocsort.pth", meta.Checkpoint)
}

func TestCheckpointName(t *testing.T) {
	assert.Equal(t, "a.pth", CheckpointName("https://host/dir/a.pth?token=1"))
	assert.Equal(t, "b.pth", CheckpointName("local/b.pth"))
	assert.Equal(t, "c.pth", CheckpointName("c.pth"))
}
