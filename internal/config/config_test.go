package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromYAML(t *testing.T) {
	path := writeConfig(t, `llm:
  provider: groq
  model: llama-3.1-8b-instant
  poll_interval: 2s
  poll_timeout: 1m
  poll_max_attempts: 10
media:
  work_dir: /tmp/recipes
  download_timeout: 90s
pipeline:
  refine_fallback: true
  missing_video: skip
  concurrency: 2`)

	cfg := &Config{}
	require.NoError(t, cfg.LoadFromYAML(path))

	assert.Equal(t, "groq", cfg.LLM.Provider)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.LLM.Model)
	assert.Equal(t, 2*time.Second, cfg.LLM.PollInterval)
	assert.Equal(t, time.Minute, cfg.LLM.PollTimeout)
	assert.Equal(t, 10, cfg.LLM.PollMaxAttempts)
	assert.Equal(t, "/tmp/recipes", cfg.Media.WorkDir)
	assert.Equal(t, 90*time.Second, cfg.Media.DownloadTimeout)
	assert.True(t, cfg.Pipeline.RefineFallback)
	assert.Equal(t, MissingVideoSkip, cfg.Pipeline.MissingVideo)
	assert.Equal(t, 2, cfg.Pipeline.Concurrency)
}

func TestLoadFromYAMLPartial(t *testing.T) {
	path := writeConfig(t, `llm:
  model: gemini-2.5-pro`)

	cfg := &Config{}
	cfg.SetDefaults()
	require.NoError(t, cfg.LoadFromYAML(path))

	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.Model)
	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, 5*time.Second, cfg.LLM.PollInterval)
	assert.Equal(t, MissingVideoNotify, cfg.Pipeline.MissingVideo)
}

func TestLoadFromYAMLFileNotFound(t *testing.T) {
	cfg := &Config{}
	assert.NoError(t, cfg.LoadFromYAML("non_existent_file.yaml"))
}

func TestLoadFromYAMLInvalid(t *testing.T) {
	path := writeConfig(t, `llm:
  provider: gemini
  invalid_yaml: [unclosed`)

	cfg := &Config{}
	assert.Error(t, cfg.LoadFromYAML(path))
}

func TestSetDefaults(t *testing.T) {
	t.Run("gemini", func(t *testing.T) {
		cfg := &Config{}
		cfg.SetDefaults()

		assert.Equal(t, "development", cfg.Env)
		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
		assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
		assert.Equal(t, 24, cfg.LLM.PollMaxAttempts)
		assert.Equal(t, "yt-dlp", cfg.Media.YtDlpPath)
		assert.Equal(t, "ffmpeg", cfg.Media.FFmpegPath)
		assert.Equal(t, "mp4", cfg.Media.VideoFormat)
		assert.Equal(t, "bestaudio/best", cfg.Media.AudioFormat)
		assert.Equal(t, "mp3", cfg.Media.AudioCodec)
		assert.Equal(t, filepath.Join(os.TempDir(), "recipebot"), cfg.Media.WorkDir)
		assert.False(t, cfg.Pipeline.RefineFallback)
	})

	t.Run("groq picks its own model", func(t *testing.T) {
		cfg := &Config{LLM: LLMConfig{Provider: ProviderGroq}}
		cfg.SetDefaults()
		assert.Equal(t, "llama-3.3-70b-versatile", cfg.LLM.Model)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{TelegramBotToken: "token", GoogleAPIKey: "key"}
		cfg.SetDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing bot token", mutate: func(c *Config) { c.TelegramBotToken = "" }, wantErr: "TELEGRAM_BOT_TOKEN"},
		{name: "missing google key", mutate: func(c *Config) { c.GoogleAPIKey = "" }, wantErr: "GOOGLE_API_KEY"},
		{name: "groq without key", mutate: func(c *Config) { c.LLM.Provider = ProviderGroq }, wantErr: "GROQ_API_KEY"},
		{name: "groq with key", mutate: func(c *Config) { c.LLM.Provider = ProviderGroq; c.GroqKey = "gsk" }},
		{name: "unknown provider", mutate: func(c *Config) { c.LLM.Provider = "cerebras" }, wantErr: "unknown llm provider"},
		{name: "bad missing video policy", mutate: func(c *Config) { c.Pipeline.MissingVideo = "ignore" }, wantErr: "missing_video"},
		{name: "webhook without secret", mutate: func(c *Config) { c.WebhookURL = "https://bot.example.com" }, wantErr: "WEBHOOK_SECRET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `pipeline:
  concurrency: 8`)

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("GOOGLE_API_KEY", "key")
	t.Setenv("TEMP_DIR", "/var/tmp/recipebot")
	t.Setenv("LLM_MODEL", "gemini-2.5-pro")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Pipeline.Concurrency)
	assert.Equal(t, "/var/tmp/recipebot", cfg.Media.WorkDir)
	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.Model)
}

func TestLoadMissingCredentials(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("GOOGLE_API_KEY", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestOTLPHeaders(t *testing.T) {
	cfg := &Config{OtelExporterOTLPHeaders: "Authorization=Bearer%20abc, x-team = kitchen,broken"}

	headers := cfg.OTLPHeaders()
	assert.Equal(t, map[string]string{
		"Authorization": "Bearer abc",
		"x-team":        "kitchen",
	}, headers)

	assert.Nil(t, (&Config{}).OTLPHeaders())
}
