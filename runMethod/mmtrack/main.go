package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/haydenshimada/mmtracking/lib"
	"github.com/k0kubun/go-ansi"
)

func fatal(msg string, err error) {
	color.New(color.FgRed).Fprintf(color.Output, "%s: %v\n", msg, err)
	slog.Error(msg, "err", err)
	os.Exit(1)
}

func main() {
	color.Output = ansi.NewAnsiStdout()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	args, err := lib.ParseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		fatal("parse arguments", err)
	}
	if args.Verbose {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	cfg, err := lib.GetConfig(args.RunConfig)
	if err != nil {
		fatal("load run config", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var downloader lib.Downloader = lib.NewShellDownloader(args.Verbose)
	if cfg.Download.Method == "http" {
		downloader = lib.NewHTTPDownloader()
	}

	logger, closeStore, err := lib.NewRunLogger(cfg, color.Output)
	if err != nil {
		fatal("init run logger", err)
	}
	defer closeStore()

	runner := &lib.Runner{
		Config:     cfg,
		Downloader: downloader,
		OpenModel: func(ctx context.Context, configPath string, checkpoint string, device string) (lib.TrackModel, error) {
			return lib.NewPyTrackModel(ctx, cfg.Python, cfg.ModelBase.Script, configPath, checkpoint, device)
		},
		Videos: lib.NewFfmpegIO(cfg.VideoBase.FourCC),
		Logger: logger,
		Out:    color.Output,
	}
	if _, err := runner.Run(ctx, args); err != nil {
		closeStore()
		fatal("run", err)
	}
}
