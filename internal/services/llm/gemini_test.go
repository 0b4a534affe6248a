package llm

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/socialchef/recipebot/internal/errors"
	"github.com/socialchef/recipebot/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	args := m.Called(ctx, model, contents, config)
	if res := args.Get(0); res != nil {
		return res.(*genai.GenerateContentResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockFiles struct {
	mock.Mock
}

func (m *MockFiles) Upload(ctx context.Context, path, mimeType string) (*genai.File, error) {
	args := m.Called(ctx, path, mimeType)
	if f := args.Get(0); f != nil {
		return f.(*genai.File), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockFiles) Get(ctx context.Context, name string) (*genai.File, error) {
	args := m.Called(ctx, name)
	if f := args.Get(0); f != nil {
		return f.(*genai.File), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockFiles) Delete(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func newTestGemini(gen *MockGenerator, files *MockFiles) *GeminiModel {
	return &GeminiModel{
		model: "gemini-2.5-flash",
		gen:   gen,
		files: files,
		poll:  utils.PollConfig{Interval: time.Millisecond, MaxAttempts: 3, Timeout: time.Second},
	}
}

func file(state genai.FileState) *genai.File {
	return &genai.File{
		Name:     "files/abc",
		URI:      "https://generativelanguage.googleapis.com/v1beta/files/abc",
		MIMEType: "audio/mpeg",
		State:    state,
	}
}

func TestGeminiGenerate(t *testing.T) {
	t.Run("returns trimmed text", func(t *testing.T) {
		gen := &MockGenerator{}
		gen.On("GenerateContent", mock.Anything, "gemini-2.5-flash", mock.Anything, mock.Anything).
			Return(textResponse("  Pancakes\n1. Mix  "), nil)

		text, err := newTestGemini(gen, &MockFiles{}).Generate(context.Background(), "format this")

		require.NoError(t, err)
		assert.Equal(t, "Pancakes\n1. Mix", text)
		gen.AssertExpectations(t)
	})

	t.Run("api error", func(t *testing.T) {
		gen := &MockGenerator{}
		gen.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, stderrors.New("quota exceeded"))

		_, err := newTestGemini(gen, &MockFiles{}).Generate(context.Background(), "p")

		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeModel))
	})

	t.Run("empty text", func(t *testing.T) {
		gen := &MockGenerator{}
		gen.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(textResponse("   "), nil)

		_, err := newTestGemini(gen, &MockFiles{}).Generate(context.Background(), "p")

		assert.ErrorIs(t, err, ErrEmptyResponse)
	})
}

func TestGeminiGenerateWithAudio(t *testing.T) {
	t.Run("waits for processing then generates", func(t *testing.T) {
		gen := &MockGenerator{}
		files := &MockFiles{}
		files.On("Upload", mock.Anything, "/tmp/audio.mp3", mock.Anything).Return(file(genai.FileStateProcessing), nil)
		files.On("Get", mock.Anything, "files/abc").Return(file(genai.FileStateProcessing), nil).Once()
		files.On("Get", mock.Anything, "files/abc").Return(file(genai.FileStateActive), nil).Once()
		files.On("Delete", mock.Anything, "files/abc").Return(nil)
		gen.On("GenerateContent", mock.Anything, "gemini-2.5-flash", mock.MatchedBy(func(c []*genai.Content) bool {
			return len(c) == 1 && len(c[0].Parts) == 2 && c[0].Parts[1].FileData != nil
		}), mock.Anything).Return(textResponse("- Whisk until glossy"), nil)

		text, err := newTestGemini(gen, files).GenerateWithAudio(context.Background(), "listen", "/tmp/audio.mp3")

		require.NoError(t, err)
		assert.Equal(t, "- Whisk until glossy", text)
		files.AssertNumberOfCalls(t, "Get", 2)
		files.AssertCalled(t, "Delete", mock.Anything, "files/abc")
		gen.AssertExpectations(t)
	})

	t.Run("already active skips polling", func(t *testing.T) {
		gen := &MockGenerator{}
		files := &MockFiles{}
		files.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(file(genai.FileStateActive), nil)
		files.On("Delete", mock.Anything, mock.Anything).Return(nil)
		gen.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(textResponse("notes"), nil)

		_, err := newTestGemini(gen, files).GenerateWithAudio(context.Background(), "listen", "/tmp/audio.mp3")

		require.NoError(t, err)
		files.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("processing forever is a bounded timeout", func(t *testing.T) {
		gen := &MockGenerator{}
		files := &MockFiles{}
		files.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(file(genai.FileStateProcessing), nil)
		files.On("Get", mock.Anything, mock.Anything).Return(file(genai.FileStateProcessing), nil)
		files.On("Delete", mock.Anything, mock.Anything).Return(nil)

		_, err := newTestGemini(gen, files).GenerateWithAudio(context.Background(), "listen", "/tmp/audio.mp3")

		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeTimeout))
		files.AssertNumberOfCalls(t, "Get", 3)
		gen.AssertNotCalled(t, "GenerateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("failed processing", func(t *testing.T) {
		gen := &MockGenerator{}
		files := &MockFiles{}
		files.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(file(genai.FileStateProcessing), nil)
		files.On("Get", mock.Anything, mock.Anything).Return(file(genai.FileStateFailed), nil)
		files.On("Delete", mock.Anything, mock.Anything).Return(nil)

		_, err := newTestGemini(gen, files).GenerateWithAudio(context.Background(), "listen", "/tmp/audio.mp3")

		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeModel))
		gen.AssertNotCalled(t, "GenerateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("upload error", func(t *testing.T) {
		files := &MockFiles{}
		files.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(nil, stderrors.New("403"))

		_, err := newTestGemini(&MockGenerator{}, files).GenerateWithAudio(context.Background(), "listen", "/tmp/audio.mp3")

		require.Error(t, err)
		files.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}
