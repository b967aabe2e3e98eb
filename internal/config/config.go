package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DataDir    string           `mapstructure:"data_dir"`
	Platform   string           `mapstructure:"platform"`
	Server     ServerConfig     `mapstructure:"server"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Article    ArticleConfig    `mapstructure:"article"`
	Media      MediaConfig      `mapstructure:"media"`
	Transcribe TranscribeConfig `mapstructure:"transcribe"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type LLMConfig struct {
	Provider      string `mapstructure:"provider"`
	Model         string `mapstructure:"model"`
	BaseURL       string `mapstructure:"base_url"`
	SummaryPrompt string `mapstructure:"summary_prompt"`
}

type ArticleConfig struct {
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	MinContentChars int    `mapstructure:"min_content_chars"`
	UserAgent       string `mapstructure:"user_agent"`
}

type MediaConfig struct {
	Retries        int `mapstructure:"retries"`
	RetryDelayMS   int `mapstructure:"retry_delay_ms"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

type TranscribeConfig struct {
	YTDLP          string `mapstructure:"yt_dlp"`
	FFmpeg         string `mapstructure:"ffmpeg"`
	FFprobe        string `mapstructure:"ffprobe"`
	ChunkSeconds   int    `mapstructure:"chunk_seconds"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
}

func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	defaultDataDir := filepath.Join(homeDir, ".stashd")

	viper.SetDefault("data_dir", defaultDataDir)
	viper.SetDefault("platform", "x")
	viper.SetDefault("server.addr", "127.0.0.1:8787")
	viper.SetDefault("llm.provider", "anthropic")
	viper.SetDefault("llm.model", "claude-haiku-4-5-20251001")
	viper.SetDefault("article.timeout_seconds", 30)
	viper.SetDefault("article.min_content_chars", 100)
	viper.SetDefault("article.user_agent", "Mozilla/5.0 (X11; Linux x86_64; rv:133.0) Gecko/20100101 Firefox/133.0")
	viper.SetDefault("media.retries", 2)
	viper.SetDefault("media.retry_delay_ms", 1500)
	viper.SetDefault("media.timeout_seconds", 30)
	viper.SetDefault("transcribe.yt_dlp", "yt-dlp")
	viper.SetDefault("transcribe.ffmpeg", "ffmpeg")
	viper.SetDefault("transcribe.ffprobe", "ffprobe")
	viper.SetDefault("transcribe.chunk_seconds", 600)
	// 24 MB working margin under the provider's 25 MB upload cap.
	viper.SetDefault("transcribe.max_upload_bytes", int64(24*1024*1024))

	// Environment variable overrides
	viper.SetEnvPrefix("STASHD")
	viper.AutomaticEnv()
	viper.BindEnv("data_dir", "STASHD_DATA_DIR")
	viper.BindEnv("server.addr", "STASHD_SERVER_ADDR")
	viper.BindEnv("llm.provider", "STASHD_LLM_PROVIDER")
	viper.BindEnv("llm.model", "STASHD_LLM_MODEL")
	viper.BindEnv("llm.base_url", "STASHD_LLM_BASE_URL")

	// Config file
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultDataDir)

	// Read config file if exists (ignore error if not found)
	_ = viper.ReadInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	for _, dir := range []string{cfg.DataDir, cfg.MediaDir(), cfg.ArticlesDir(), cfg.TmpAudioDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "stashd.db")
}

func (c *Config) MediaDir() string {
	return filepath.Join(c.DataDir, "media")
}

func (c *Config) ArticlesDir() string {
	return filepath.Join(c.DataDir, "articles")
}

func (c *Config) TmpAudioDir() string {
	return filepath.Join(c.DataDir, "tmp-audio")
}

func (c *Config) ArticleTimeout() time.Duration {
	return time.Duration(c.Article.TimeoutSeconds) * time.Second
}

func (c *Config) MediaTimeout() time.Duration {
	return time.Duration(c.Media.TimeoutSeconds) * time.Second
}

func (c *Config) MediaRetryDelay() time.Duration {
	return time.Duration(c.Media.RetryDelayMS) * time.Millisecond
}
