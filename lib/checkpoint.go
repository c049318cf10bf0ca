package lib

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/k0kubun/go-ansi"
	"github.com/schollz/progressbar/v3"
)

// CommandExecutor runs one prepared command and returns its combined output.
type CommandExecutor interface {
	Run() ([]byte, error)
}

// CommandBuilder is the seam between the runner and the shell.
type CommandBuilder interface {
	BuildShellCommand(ctx context.Context, command string) CommandExecutor
}

type shellCommand struct {
	cmd *exec.Cmd
}

func (s *shellCommand) Run() ([]byte, error) {
	return s.cmd.CombinedOutput()
}

type ShellCommandBuilder struct{}

func (ShellCommandBuilder) BuildShellCommand(ctx context.Context, command string) CommandExecutor {
	return &shellCommand{cmd: exec.CommandContext(ctx, "sh", "-c", command)}
}

type Downloader interface {
	Download(ctx context.Context, source string, dir string) error
}

// ShellDownloader fetches with `wget -c`, so an interrupted download resumes.
type ShellDownloader struct {
	Builder CommandBuilder
	Verbose bool
	Out     io.Writer
}

func NewShellDownloader(verbose bool) *ShellDownloader {
	return &ShellDownloader{
		Builder: ShellCommandBuilder{},
		Verbose: verbose,
		Out:     os.Stdout,
	}
}

// shellQuote wraps s in single quotes for sh.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// WgetCommand saves source as dir/CheckpointName(source), so a query string
// never ends up in the file name.
func WgetCommand(source string, dir string) string {
	dst := filepath.Join(dir, CheckpointName(source))
	return fmt.Sprintf("wget -c -O %s %s", shellQuote(dst), shellQuote(source))
}

func (d *ShellDownloader) Download(ctx context.Context, source string, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	output, err := d.Builder.BuildShellCommand(ctx, WgetCommand(source, dir)).Run()
	if d.Verbose && d.Out != nil {
		fmt.Fprintln(d.Out, strings.TrimSpace(string(output)))
	}
	if err != nil {
		return fmt.Errorf("wget %s: %w", source, err)
	}
	return nil
}

type HTTPDownloader struct {
	Client *http.Client
	Out    io.Writer
}

func NewHTTPDownloader() *HTTPDownloader {
	return &HTTPDownloader{
		Client: http.DefaultClient,
		Out:    ansi.NewAnsiStdout(),
	}
}

func (d *HTTPDownloader) Download(ctx context.Context, source string, dir string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", source, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: status %d", source, resp.StatusCode)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	dst := filepath.Join(dir, CheckpointName(source))
	part := dst + ".part"
	file, err := os.Create(part)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions64(resp.ContentLength,
		progressbar.OptionSetWriter(d.Out),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(15),
		progressbar.OptionSetDescription("[cyan][DL][reset] "+CheckpointName(source)),
	)
	_, err = io.Copy(io.MultiWriter(file, bar), resp.Body)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(part)
		return fmt.Errorf("download %s: %w", source, err)
	}
	bar.Finish()
	return os.Rename(part, dst)
}

func isRemote(source string) bool {
	u, err := url.Parse(source)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// ResolveCheckpoint returns the local checkpoint path for source, downloading
// it into root when it is not there yet. A present file is trusted as is.
func ResolveCheckpoint(ctx context.Context, source string, root string, d Downloader, out io.Writer) (string, error) {
	if source == "" {
		return "", ErrNoCheckpoint
	}
	local := filepath.Join(root, CheckpointName(source))
	if fileExists(local) {
		fmt.Fprintln(out, "Checkpoint is downloaded")
		return local, nil
	}
	if !isRemote(source) && fileExists(source) {
		fmt.Fprintln(out, "Checkpoint found at", source)
		return source, nil
	}

	fmt.Fprintln(out, "Downloading checkpoint ...")
	slog.Info("download checkpoint", "source", source, "dir", root)
	if err := d.Download(ctx, source, root); err != nil {
		return "", err
	}
	fmt.Fprintln(out, "Finished")

	if !fileExists(local) {
		return "", fmt.Errorf("checkpoint %s missing after download", local)
	}
	return local, nil
}
