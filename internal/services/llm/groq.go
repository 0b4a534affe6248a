package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/socialchef/recipebot/internal/errors"
	"github.com/socialchef/recipebot/internal/httpclient"
)

const (
	groqBaseURL            = "https://api.groq.com/openai/v1"
	groqTranscriptionModel = "whisper-large-v3-turbo"
)

// GroqModel uses Groq's OpenAI-compatible API. Audio is transcribed with
// Whisper first and the transcript is handed to the chat model with the prompt.
type GroqModel struct {
	apiKey     string
	model      string
	httpClient *http.Client
	baseURL    string
}

// NewGroqModel creates a Groq model whose requests time out after timeout.
func NewGroqModel(apiKey, model string, timeout time.Duration) *GroqModel {
	return &GroqModel{
		apiKey:     apiKey,
		model:      model,
		httpClient: httpclient.NewProviderClient("Groq", timeout),
		baseURL:    groqBaseURL,
	}
}

func (m *GroqModel) Name() string {
	return string(ProviderGroq)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Generate answers a text-only prompt with a chat completion.
func (m *GroqModel) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:    m.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", errors.NewModelError("failed to encode Groq request", "GROQ_REQUEST_ERROR", err)
	}

	req, err := http.NewRequestWithContext(httpclient.WithProvider(ctx, "Groq"), http.MethodPost, m.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", errors.NewModelError("failed to create Groq request", "GROQ_REQUEST_ERROR", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	respBody, err := m.do(req)
	if err != nil {
		return "", err
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", errors.NewModelError("failed to parse Groq response", "PARSE_RESPONSE_ERROR", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", errors.NewModelError("no choices from Groq", "GROQ_EMPTY_RESPONSE", ErrEmptyResponse)
	}

	text := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.NewModelError("Groq returned no text", "GROQ_EMPTY_RESPONSE", ErrEmptyResponse)
	}
	return text, nil
}

// GenerateWithAudio transcribes the audio, then answers the prompt about the transcript.
func (m *GroqModel) GenerateWithAudio(ctx context.Context, prompt, audioPath string) (string, error) {
	transcript, err := m.transcribe(ctx, audioPath)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(transcript) == "" {
		transcript = "(no speech detected)"
	}

	return m.Generate(ctx, prompt+"\n\nThe audio has been transcribed for you:\n\n---\n\n"+transcript)
}

func (m *GroqModel) transcribe(ctx context.Context, audioPath string) (string, error) {
	// 1. Open audio file
	audioFile, err := os.Open(audioPath)
	if err != nil {
		return "", errors.NewModelError("failed to open audio file", "AUDIO_FILE_ERROR", err)
	}
	defer audioFile.Close()

	// 2. Prepare multipart form via pipe to avoid buffering in memory
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, audioFile); err != nil {
			pw.CloseWithError(err)
			return
		}
		if err := writer.WriteField("model", groqTranscriptionModel); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(writer.Close())
	}()

	// 3. Send to Groq
	req, err := http.NewRequestWithContext(httpclient.WithProvider(ctx, "Groq"), http.MethodPost, m.baseURL+"/audio/transcriptions", pr)
	if err != nil {
		pr.Close()
		return "", errors.NewModelError("failed to create Groq request", "GROQ_REQUEST_ERROR", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	respBody, err := m.do(req)
	if err != nil {
		return "", err
	}

	// 4. Parse response
	var transResp transcriptionResponse
	if err := json.Unmarshal(respBody, &transResp); err != nil {
		return "", errors.NewModelError("failed to parse Groq transcription", "PARSE_RESPONSE_ERROR", err)
	}
	return transResp.Text, nil
}

func (m *GroqModel) do(req *http.Request) ([]byte, error) {
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewModelError("failed to call Groq API", "GROQ_API_ERROR", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewModelError("failed to read Groq response", "READ_RESPONSE_ERROR", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewModelError(fmt.Sprintf("Groq API error (status %d): %s", resp.StatusCode, string(respBody)), "GROQ_API_HTTP_ERROR", nil)
	}
	return respBody, nil
}
