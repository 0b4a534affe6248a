package llm

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/socialchef/recipebot/internal/errors"
	"github.com/socialchef/recipebot/internal/httpclient"
	"github.com/socialchef/recipebot/internal/utils"
	"google.golang.org/genai"
)

// contentGenerator is the part of *genai.Models we use.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// fileStore is the part of the Gemini Files API we use.
type fileStore interface {
	Upload(ctx context.Context, path, mimeType string) (*genai.File, error)
	Get(ctx context.Context, name string) (*genai.File, error)
	Delete(ctx context.Context, name string) error
}

type genaiFiles struct {
	files *genai.Files
}

func (g genaiFiles) Upload(ctx context.Context, path, mimeType string) (*genai.File, error) {
	return g.files.UploadFromPath(ctx, path, &genai.UploadFileConfig{MIMEType: mimeType})
}

func (g genaiFiles) Get(ctx context.Context, name string) (*genai.File, error) {
	return g.files.Get(ctx, name, nil)
}

func (g genaiFiles) Delete(ctx context.Context, name string) error {
	_, err := g.files.Delete(ctx, name, nil)
	return err
}

// GeminiModel talks to the Gemini API.
type GeminiModel struct {
	model string
	gen   contentGenerator
	files fileStore
	poll  utils.PollConfig
}

// NewGeminiModel creates a Gemini client over the instrumented HTTP client.
func NewGeminiModel(ctx context.Context, apiKey, model string, timeout time.Duration, poll utils.PollConfig) (*GeminiModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpclient.NewProviderClient("Gemini", timeout),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiModel{
		model: model,
		gen:   client.Models,
		files: genaiFiles{files: client.Files},
		poll:  poll,
	}, nil
}

func (m *GeminiModel) Name() string {
	return string(ProviderGemini)
}

// Generate answers a text-only prompt.
func (m *GeminiModel) Generate(ctx context.Context, prompt string) (string, error) {
	return m.generate(ctx, []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	})
}

// GenerateWithAudio uploads the audio file, waits for Gemini to finish processing it,
// then answers the prompt with the file attached.
func (m *GeminiModel) GenerateWithAudio(ctx context.Context, prompt, audioPath string) (string, error) {
	// 1. Upload
	file, err := m.files.Upload(ctx, audioPath, audioMIMEType(audioPath))
	if err != nil {
		return "", errors.NewModelError("failed to upload audio to gemini", "GEMINI_UPLOAD_ERROR", err)
	}
	defer m.deleteFile(ctx, file.Name)

	// 2. Wait until the file leaves PROCESSING
	if file.State == genai.FileStateProcessing {
		file, err = utils.PollUntil(ctx, m.poll, func(ctx context.Context) (*genai.File, bool, error) {
			f, err := m.files.Get(ctx, file.Name)
			if err != nil {
				return nil, false, err
			}
			return f, f.State != genai.FileStateProcessing, nil
		})
		if err == utils.ErrPollExhausted {
			return "", errors.NewTimeoutError("gemini file still processing", "GEMINI_FILE_TIMEOUT", err)
		}
		if err != nil {
			return "", errors.NewModelError("failed to check gemini file state", "GEMINI_FILE_STATE_ERROR", err)
		}
	}

	if file.State == genai.FileStateFailed {
		return "", errors.NewModelError(fmt.Sprintf("gemini could not process %s", file.Name), "GEMINI_FILE_FAILED", nil)
	}

	// 3. Generate with the file attached
	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromURI(file.URI, file.MIMEType),
	}
	return m.generate(ctx, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)})
}

func (m *GeminiModel) generate(ctx context.Context, contents []*genai.Content) (string, error) {
	res, err := m.gen.GenerateContent(ctx, m.model, contents, nil)
	if err != nil {
		return "", errors.NewModelError("gemini generate failed", "GEMINI_API_ERROR", err)
	}

	text := strings.TrimSpace(res.Text())
	if text == "" {
		return "", errors.NewModelError("gemini returned no text", "GEMINI_EMPTY_RESPONSE", ErrEmptyResponse)
	}
	return text, nil
}

// deleteFile removes an uploaded file; Gemini would expire it anyway.
func (m *GeminiModel) deleteFile(ctx context.Context, name string) {
	if name == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := m.files.Delete(ctx, name); err != nil {
		slog.Debug("Failed to delete gemini file", "file", name, "error", err)
	}
}

func audioMIMEType(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "audio/mpeg"
}
