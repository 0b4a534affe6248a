package integration

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/socialchef/recipebot/internal/delivery"
)

// fakeYtDlp stands in for the yt-dlp binary: it writes the files the real
// tool would and prints the metadata line for video downloads.
type fakeYtDlp struct {
	description string
	videoFails  bool
	audioFails  bool
	// leave the partial files an interrupted download would
	leavePartials bool

	mu    sync.Mutex
	paths []string
}

func (f *fakeYtDlp) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	out := argAfter(args, "-o")
	isVideo := contains(args, "--dump-json")

	if isVideo {
		f.record(out)
		if f.videoFails {
			return nil, errors.New("ERROR: Unsupported URL")
		}
		if err := os.WriteFile(out, []byte("mp4"), 0644); err != nil {
			return nil, err
		}
		if f.leavePartials {
			if err := os.WriteFile(out+".part", []byte("mp"), 0644); err != nil {
				return nil, err
			}
		}
		info, _ := json.Marshal(map[string]any{
			"width":       720,
			"height":      1280,
			"duration":    30.6,
			"description": f.description,
		})
		return append([]byte("[info] downloading\n"), info...), nil
	}

	path := strings.Replace(out, "%(ext)s", argAfter(args, "--audio-format"), 1)
	f.record(path)
	if f.leavePartials {
		if err := os.WriteFile(strings.Replace(out, "%(ext)s", "webm", 1), []byte("webm"), 0644); err != nil {
			return nil, err
		}
	}
	if f.audioFails {
		return nil, errors.New("ERROR: no audio")
	}
	return nil, os.WriteFile(path, []byte("mp3"), 0644)
}

func (f *fakeYtDlp) record(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
}

func (f *fakeYtDlp) written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

func argAfter(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func contains(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

// scriptedModel answers prompts by the instruction they contain.
type scriptedModel struct {
	refine, metric, notes, merge string
	fail                         bool

	mu    sync.Mutex
	calls int
}

func (m *scriptedModel) Name() string { return "scripted" }

func (m *scriptedModel) Generate(ctx context.Context, prompt string) (string, error) {
	m.count()
	if m.fail {
		return "", errors.New("503 model overloaded")
	}
	switch {
	case strings.Contains(prompt, "NOTES FROM AUDIO"):
		return m.merge, nil
	case strings.Contains(prompt, "to grams"):
		return m.metric, nil
	default:
		return m.refine, nil
	}
}

func (m *scriptedModel) GenerateWithAudio(ctx context.Context, prompt, audioPath string) (string, error) {
	m.count()
	if m.fail {
		return "", errors.New("503 model overloaded")
	}
	if _, err := os.Stat(audioPath); err != nil {
		return "", err
	}
	return m.notes, nil
}

func (m *scriptedModel) count() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
}

func (m *scriptedModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type sentVideo struct {
	chatID    int64
	fileName  string
	caption   string
	parseMode string
	width     int
	size      int
}

// chatRecorder plays the chat API.
type chatRecorder struct {
	rejectFormatted bool

	mu      sync.Mutex
	replies []string
	videos  []sentVideo
}

func (c *chatRecorder) Reply(ctx context.Context, chatID int64, replyTo int, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, text)
	return nil
}

func (c *chatRecorder) SendVideo(ctx context.Context, upload delivery.VideoUpload) error {
	data, err := io.ReadAll(upload.Reader)
	if err != nil {
		return err
	}
	if c.rejectFormatted && upload.ParseMode != "" {
		return errors.New("Bad Request: can't parse entities")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.videos = append(c.videos, sentVideo{
		chatID:    upload.ChatID,
		fileName:  filepath.Base(upload.FileName),
		caption:   upload.Caption,
		parseMode: upload.ParseMode,
		width:     upload.Width,
		size:      len(data),
	})
	return nil
}

func (c *chatRecorder) snapshot() ([]string, []sentVideo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.replies...), append([]sentVideo(nil), c.videos...)
}
