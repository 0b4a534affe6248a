package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/socialchef/recipebot/internal/config"
	"github.com/socialchef/recipebot/internal/errors"
	"github.com/socialchef/recipebot/internal/metrics"
	"github.com/socialchef/recipebot/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// Status is the outcome of one fetch.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Result is returned by every fetch; Err is set only when Status is failed.
type Result struct {
	Status Status
	Err    error
}

func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

func succeeded() Result {
	return Result{Status: StatusSuccess}
}

func failed(err error) Result {
	return Result{Status: StatusFailed, Err: err}
}

// Runner executes an external command and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return out.Bytes(), fmt.Errorf("%s failed: %w, stderr: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out.Bytes(), nil
}

// videoInfo is the subset of yt-dlp's info JSON we read.
type videoInfo struct {
	Width       *int     `json:"width"`
	Height      *int     `json:"height"`
	Duration    *float64 `json:"duration"`
	Description *string  `json:"description"`
}

// Fetcher downloads media with yt-dlp.
type Fetcher struct {
	runner     Runner
	binary     string
	ffmpegPath string
	timeout    time.Duration
}

func NewFetcher(cfg config.MediaConfig) *Fetcher {
	return &Fetcher{
		runner:     execRunner{},
		binary:     cfg.YtDlpPath,
		ffmpegPath: cfg.FFmpegPath,
		timeout:    cfg.DownloadTimeout,
	}
}

// WithRunner swaps the command runner.
func (f *Fetcher) WithRunner(r Runner) *Fetcher {
	f.runner = r
	return f
}

// FetchVideo downloads the video to v.Path and fills its metadata on success.
func (f *Fetcher) FetchVideo(ctx context.Context, v *Video) Result {
	args := f.baseArgs()
	args = append(args,
		"--no-simulate",
		"--dump-json",
		"-f", v.Format,
		"-o", v.Path,
		"--", v.SourceURL,
	)

	out, err := f.run(ctx, "video", args)
	if err != nil {
		slog.Warn("Video download failed", "url", v.SourceURL, "error", err)
		return failed(errors.NewDownloadError("yt-dlp video download failed", "YTDLP_VIDEO", err))
	}

	info, err := parseInfo(out)
	if err != nil {
		// The file is there; missing metadata is not a failure.
		slog.Warn("Could not parse yt-dlp metadata", "url", v.SourceURL, "error", err)
	}
	v.applyInfo(info)

	return succeeded()
}

// FetchAudio extracts the audio track to a.Path. Success means the file
// exists afterwards, whatever yt-dlp's exit status was.
func (f *Fetcher) FetchAudio(ctx context.Context, a *Audio) Result {
	// yt-dlp picks the extension after extraction, so hand it a template
	template := strings.TrimSuffix(a.Path, filepath.Ext(a.Path)) + ".%(ext)s"

	args := f.baseArgs()
	args = append(args,
		"-f", a.Format,
		"-x",
		"--audio-format", a.Codec,
		"-o", template,
		"--", a.SourceURL,
	)

	_, err := f.run(ctx, "audio", args)
	if fileExists(a.Path) {
		if err != nil {
			slog.Info("yt-dlp reported an error but the audio file exists", "url", a.SourceURL, "error", err)
		}
		return succeeded()
	}

	if err == nil {
		err = fmt.Errorf("no audio file at %s", a.Path)
	}
	slog.Warn("Audio download failed", "url", a.SourceURL, "error", err)
	return failed(err)
}

func (f *Fetcher) baseArgs() []string {
	// Sweep ages files by mtime, so keep the download time
	args := []string{"--no-playlist", "--no-progress", "--no-warnings", "--no-mtime"}
	if f.ffmpegPath != "" && f.ffmpegPath != "ffmpeg" {
		args = append(args, "--ffmpeg-location", f.ffmpegPath)
	}
	return args
}

func (f *Fetcher) run(ctx context.Context, kind string, args []string) ([]byte, error) {
	ctx, span := telemetry.Tracer("media").Start(ctx, "ytdlp."+kind)
	defer span.End()

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := f.runner.Run(ctx, f.binary, args...)

	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	metrics.DownloadDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("status", status),
	))

	return out, err
}

// parseInfo reads the last JSON object yt-dlp printed.
func parseInfo(out []byte) (videoInfo, error) {
	var info videoInfo
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") {
			continue
		}
		if err := json.Unmarshal([]byte(line), &info); err != nil {
			return videoInfo{}, fmt.Errorf("failed to parse yt-dlp info: %w", err)
		}
		return info, nil
	}
	return videoInfo{}, fmt.Errorf("yt-dlp printed no info JSON")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
