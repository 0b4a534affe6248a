package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"

	MissingVideoNotify = "notify"
	MissingVideoSkip   = "skip"
)

type Config struct {
	Env            string
	ServiceName    string
	ServiceVersion string

	TelegramBotToken string
	GoogleAPIKey     string
	GroqKey          string

	RedisURL string

	WebhookURL    string
	WebhookSecret string

	OtelExporterOTLPEndpoint string
	OtelExporterOTLPHeaders  string
	SentryDSN                string

	Port string

	LLM      LLMConfig
	Media    MediaConfig
	Pipeline PipelineConfig
}

type LLMConfig struct {
	Provider        string        `yaml:"provider"`
	Model           string        `yaml:"model"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	PollTimeout     time.Duration `yaml:"poll_timeout"`
	PollMaxAttempts int           `yaml:"poll_max_attempts"`
}

type MediaConfig struct {
	WorkDir         string        `yaml:"work_dir"`
	YtDlpPath       string        `yaml:"ytdlp_path"`
	FFmpegPath      string        `yaml:"ffmpeg_path"`
	VideoFormat     string        `yaml:"video_format"`
	AudioFormat     string        `yaml:"audio_format"`
	AudioCodec      string        `yaml:"audio_codec"`
	DownloadTimeout time.Duration `yaml:"download_timeout"`
}

type PipelineConfig struct {
	// RefineFallback degrades a failed refine call to the raw description instead of failing the run.
	RefineFallback       bool          `yaml:"refine_fallback"`
	DisableStatusReplies bool          `yaml:"disable_status_replies"`
	MissingVideo         string        `yaml:"missing_video"`
	RunTimeout           time.Duration `yaml:"run_timeout"`
	Concurrency          int           `yaml:"concurrency"`
	SweepInterval        time.Duration `yaml:"sweep_interval"`
	SweepMaxAge          time.Duration `yaml:"sweep_max_age"`
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:                      os.Getenv("ENV"),
		ServiceName:              os.Getenv("SERVICE_NAME"),
		ServiceVersion:           os.Getenv("SERVICE_VERSION"),
		TelegramBotToken:         os.Getenv("TELEGRAM_BOT_TOKEN"),
		GoogleAPIKey:             os.Getenv("GOOGLE_API_KEY"),
		GroqKey:                  os.Getenv("GROQ_API_KEY"),
		RedisURL:                 os.Getenv("REDIS_URL"),
		WebhookURL:               os.Getenv("WEBHOOK_URL"),
		WebhookSecret:            os.Getenv("WEBHOOK_SECRET"),
		OtelExporterOTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OtelExporterOTLPHeaders:  os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"),
		SentryDSN:                os.Getenv("SENTRY_DSN"),
		Port:                     os.Getenv("PORT"),
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	if err := cfg.LoadFromYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load YAML config: %w", err)
	}

	// Env overrides win over the YAML file
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("TEMP_DIR"); v != "" {
		cfg.Media.WorkDir = v
	}

	cfg.SetDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) LoadFromYAML(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File not found is not an error
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var yamlConfig struct {
		LLM      LLMConfig      `yaml:"llm"`
		Media    MediaConfig    `yaml:"media"`
		Pipeline PipelineConfig `yaml:"pipeline"`
	}

	if err := yaml.Unmarshal(data, &yamlConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	c.LLM.merge(yamlConfig.LLM)
	c.Media.merge(yamlConfig.Media)
	c.Pipeline.merge(yamlConfig.Pipeline)

	return nil
}

func (l *LLMConfig) merge(o LLMConfig) {
	if o.Provider != "" {
		l.Provider = o.Provider
	}
	if o.Model != "" {
		l.Model = o.Model
	}
	if o.RequestTimeout > 0 {
		l.RequestTimeout = o.RequestTimeout
	}
	if o.PollInterval > 0 {
		l.PollInterval = o.PollInterval
	}
	if o.PollTimeout > 0 {
		l.PollTimeout = o.PollTimeout
	}
	if o.PollMaxAttempts > 0 {
		l.PollMaxAttempts = o.PollMaxAttempts
	}
}

func (m *MediaConfig) merge(o MediaConfig) {
	if o.WorkDir != "" {
		m.WorkDir = o.WorkDir
	}
	if o.YtDlpPath != "" {
		m.YtDlpPath = o.YtDlpPath
	}
	if o.FFmpegPath != "" {
		m.FFmpegPath = o.FFmpegPath
	}
	if o.VideoFormat != "" {
		m.VideoFormat = o.VideoFormat
	}
	if o.AudioFormat != "" {
		m.AudioFormat = o.AudioFormat
	}
	if o.AudioCodec != "" {
		m.AudioCodec = o.AudioCodec
	}
	if o.DownloadTimeout > 0 {
		m.DownloadTimeout = o.DownloadTimeout
	}
}

func (p *PipelineConfig) merge(o PipelineConfig) {
	if o.RefineFallback {
		p.RefineFallback = true
	}
	if o.DisableStatusReplies {
		p.DisableStatusReplies = true
	}
	if o.MissingVideo != "" {
		p.MissingVideo = o.MissingVideo
	}
	if o.RunTimeout > 0 {
		p.RunTimeout = o.RunTimeout
	}
	if o.Concurrency > 0 {
		p.Concurrency = o.Concurrency
	}
	if o.SweepInterval > 0 {
		p.SweepInterval = o.SweepInterval
	}
	if o.SweepMaxAge > 0 {
		p.SweepMaxAge = o.SweepMaxAge
	}
}

// SetDefaults fills every unset field with its default value.
func (c *Config) SetDefaults() {
	if c.Env == "" {
		c.Env = "development"
	}
	if c.ServiceName == "" {
		c.ServiceName = "socialchef-recipebot"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "1.0.0"
	}
	if c.Port == "" {
		c.Port = "8080"
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderGemini
	}
	if c.LLM.Model == "" {
		switch c.LLM.Provider {
		case ProviderGroq:
			c.LLM.Model = "llama-3.3-70b-versatile"
		default:
			c.LLM.Model = "gemini-2.5-flash"
		}
	}
	if c.LLM.RequestTimeout == 0 {
		c.LLM.RequestTimeout = 2 * time.Minute
	}
	if c.LLM.PollInterval == 0 {
		c.LLM.PollInterval = 5 * time.Second
	}
	if c.LLM.PollTimeout == 0 {
		c.LLM.PollTimeout = 2 * time.Minute
	}
	if c.LLM.PollMaxAttempts == 0 {
		c.LLM.PollMaxAttempts = 24
	}

	if c.Media.WorkDir == "" {
		c.Media.WorkDir = filepath.Join(os.TempDir(), "recipebot")
	}
	if c.Media.YtDlpPath == "" {
		c.Media.YtDlpPath = "yt-dlp"
	}
	if c.Media.FFmpegPath == "" {
		c.Media.FFmpegPath = "ffmpeg"
	}
	if c.Media.VideoFormat == "" {
		c.Media.VideoFormat = "mp4"
	}
	if c.Media.AudioFormat == "" {
		c.Media.AudioFormat = "bestaudio/best"
	}
	if c.Media.AudioCodec == "" {
		c.Media.AudioCodec = "mp3"
	}
	if c.Media.DownloadTimeout == 0 {
		c.Media.DownloadTimeout = 5 * time.Minute
	}

	if c.Pipeline.MissingVideo == "" {
		c.Pipeline.MissingVideo = MissingVideoNotify
	}
	if c.Pipeline.RunTimeout == 0 {
		c.Pipeline.RunTimeout = 15 * time.Minute
	}
	if c.Pipeline.Concurrency == 0 {
		c.Pipeline.Concurrency = 4
	}
	if c.Pipeline.SweepInterval == 0 {
		c.Pipeline.SweepInterval = 30 * time.Minute
	}
	if c.Pipeline.SweepMaxAge == 0 {
		c.Pipeline.SweepMaxAge = 2 * time.Hour
	}
}

func (c *Config) validate() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	switch c.LLM.Provider {
	case ProviderGemini:
		if c.GoogleAPIKey == "" {
			return fmt.Errorf("GOOGLE_API_KEY is required")
		}
	case ProviderGroq:
		if c.GroqKey == "" {
			return fmt.Errorf("GROQ_API_KEY is required")
		}
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	switch c.Pipeline.MissingVideo {
	case MissingVideoNotify, MissingVideoSkip:
	default:
		return fmt.Errorf("pipeline.missing_video must be %q or %q, got %q", MissingVideoNotify, MissingVideoSkip, c.Pipeline.MissingVideo)
	}
	if c.WebhookURL != "" && c.WebhookSecret == "" {
		return fmt.Errorf("WEBHOOK_SECRET is required when WEBHOOK_URL is set")
	}
	return nil
}

// OTLPHeaders parses OTEL_EXPORTER_OTLP_HEADERS ("k1=v1,k2=v2").
func (c *Config) OTLPHeaders() map[string]string {
	return parseHeaders(c.OtelExporterOTLPHeaders)
}
