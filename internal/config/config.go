// Package config provides configuration management for reelforge using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultTextgenMaxTokens    = 1000
	defaultTextgenTemperature  = 0.7
	defaultTextgenRetries      = 3
	defaultTextgenTimeout      = 30 * time.Second
	defaultTextgenRateLimit    = 5
	defaultTextgenRatePeriod   = time.Second
	defaultTextgenCacheTTL     = 24 * time.Hour
	defaultMaxPromptLength     = 2000
	defaultMinSentences        = 10
	defaultMaxSentences        = 12
	defaultMinWords            = 150
	defaultMaxWords            = 250
	defaultSentenceMinWords    = 10
	defaultSentenceMaxWords    = 20
	defaultPromptMinCount      = 12
	defaultPromptMaxCount      = 36
	defaultPromptsPerSentence  = 2
	defaultPromptMinLength     = 20
	defaultImageConcurrency    = 3
	defaultImageTimeout        = 30 * time.Second
	defaultImageMinBytes       = 1000
	defaultImageRetries        = 3
	defaultSpeechTimeout       = 2 * time.Minute
	defaultSpeechRetries       = 3
	defaultSpeechMinDuration   = 100 * time.Millisecond
	defaultCaptionPollInterval = 3 * time.Second
	defaultCaptionPollTimeout  = 5 * time.Minute
	defaultCaptionLineChars    = 10
	defaultVideoWidth          = 1080
	defaultVideoHeight         = 1920
	defaultVideoFPS            = 30
	defaultMinImageSeconds     = 3 * time.Second
	defaultMinImages           = 3
	defaultMusicVolume         = 0.1
	defaultFontSize            = 100
	defaultPublishTimeout      = 10 * time.Minute
)

// Config holds all configuration for the application.
type Config struct {
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Textgen   TextgenConfig   `mapstructure:"textgen"`
	Script    ScriptConfig    `mapstructure:"script"`
	Prompts   PromptsConfig   `mapstructure:"prompts"`
	Images    ImagesConfig    `mapstructure:"images"`
	Speech    SpeechConfig    `mapstructure:"speech"`
	Captions  CaptionsConfig  `mapstructure:"captions"`
	Video     VideoConfig     `mapstructure:"video"`
	Publish   PublishConfig   `mapstructure:"publish"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// StorageConfig holds file storage configuration.
type StorageConfig struct {
	BaseDir   string `mapstructure:"base_dir"`
	AssetsDir string `mapstructure:"assets_dir"` // scratch files produced mid-run
	SongsDir  string `mapstructure:"songs_dir"`  // music beds, picked at random
	OutputDir string `mapstructure:"output_dir"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// TextgenConfig holds text-generation backend configuration.
type TextgenConfig struct {
	Endpoint        string        `mapstructure:"endpoint"`
	APIKey          string        `mapstructure:"api_key"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Temperature     float64       `mapstructure:"temperature"`
	Stop            []string      `mapstructure:"stop"`
	RetryAttempts   int           `mapstructure:"retry_attempts"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxPromptLength int           `mapstructure:"max_prompt_length"`
	RateLimit       int           `mapstructure:"rate_limit"`   // calls per rate_period, 0 disables
	RatePeriod      time.Duration `mapstructure:"rate_period"`
	CacheEnabled    bool          `mapstructure:"cache_enabled"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"` // 0 = entries never expire
}

// ScriptConfig holds script validation bounds.
type ScriptConfig struct {
	MinSentences     int    `mapstructure:"min_sentences"`
	MaxSentences     int    `mapstructure:"max_sentences"`
	MinWords         int    `mapstructure:"min_words"`
	MaxWords         int    `mapstructure:"max_words"`
	SentenceMinWords int    `mapstructure:"sentence_min_words"`
	SentenceMaxWords int    `mapstructure:"sentence_max_words"`
	Strictness       string `mapstructure:"strictness"` // strict, relaxed
}

// PromptsConfig holds image-prompt generation bounds.
type PromptsConfig struct {
	MinCount    int `mapstructure:"min_count"`
	MaxCount    int `mapstructure:"max_count"`
	PerSentence int `mapstructure:"per_sentence"`
	MinLength   int `mapstructure:"min_length"`
}

// ImagesConfig holds image generation backend configuration.
type ImagesConfig struct {
	Backend       string        `mapstructure:"backend"` // hosted, worker
	Endpoint      string        `mapstructure:"endpoint"`
	APIKey        string        `mapstructure:"api_key"`
	Model         string        `mapstructure:"model"`
	WorkerURL     string        `mapstructure:"worker_url"`
	Concurrency   int           `mapstructure:"concurrency"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MinBytes      int64         `mapstructure:"min_bytes"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
}

// SpeechConfig holds text-to-speech configuration.
type SpeechConfig struct {
	Command       string        `mapstructure:"command"` // external synthesizer binary
	Voice         string        `mapstructure:"voice"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	MinDuration   time.Duration `mapstructure:"min_duration"`
}

// CaptionsConfig holds transcription service configuration.
type CaptionsConfig struct {
	Endpoint     string        `mapstructure:"endpoint"`
	APIKey       string        `mapstructure:"api_key"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	PollTimeout  time.Duration `mapstructure:"poll_timeout"`
	MaxLineChars int           `mapstructure:"max_line_chars"`
}

// VideoConfig holds video assembly configuration.
type VideoConfig struct {
	Width           int           `mapstructure:"width"`
	Height          int           `mapstructure:"height"`
	FPS             int           `mapstructure:"fps"`
	MinImageSeconds time.Duration `mapstructure:"min_image_seconds"`
	MinImages       int           `mapstructure:"min_images"`
	MusicVolume     float64       `mapstructure:"music_volume"`
	Font            string        `mapstructure:"font"`
	FontSize        int           `mapstructure:"font_size"`
	FFmpegPath      string        `mapstructure:"ffmpeg_path"`  // empty = $PATH lookup
	FFprobePath     string        `mapstructure:"ffprobe_path"` // empty = $PATH lookup
	Threads         int           `mapstructure:"threads"`
}

// PublishConfig holds upload configuration.
type PublishConfig struct {
	Mode              string        `mapstructure:"mode"`       // api, automation, auto
	Visibility        string        `mapstructure:"visibility"` // public, unlisted, private
	MadeForKids       bool          `mapstructure:"made_for_kids"`
	ClientID          string        `mapstructure:"client_id"`
	ClientSecret      string        `mapstructure:"client_secret"`
	RefreshToken      string        `mapstructure:"refresh_token"`
	AutomationCommand string        `mapstructure:"automation_command"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// SchedulerConfig holds scheduled generation configuration.
type SchedulerConfig struct {
	Cron string `mapstructure:"cron"` // empty = disabled
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with REELFORGE_ and use underscores
// for nesting. Example: REELFORGE_TEXTGEN_API_KEY=sk-....
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	SetDefaults(v)

	// Config file settings
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/reelforge")
		v.AddConfigPath("$HOME/.reelforge")
	}

	// Environment variable settings
	v.SetEnvPrefix("REELFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found is OK - we'll use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file to ensure defaults are in place.
func SetDefaults(v *viper.Viper) {
	// Storage defaults
	v.SetDefault("storage.base_dir", "./data")
	v.SetDefault("storage.assets_dir", "assets")
	v.SetDefault("storage.songs_dir", "songs")
	v.SetDefault("storage.output_dir", "output")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Textgen defaults
	v.SetDefault("textgen.endpoint", "")
	v.SetDefault("textgen.api_key", "")
	v.SetDefault("textgen.max_tokens", defaultTextgenMaxTokens)
	v.SetDefault("textgen.temperature", defaultTextgenTemperature)
	v.SetDefault("textgen.stop", []string{"###"})
	v.SetDefault("textgen.retry_attempts", defaultTextgenRetries)
	v.SetDefault("textgen.timeout", defaultTextgenTimeout)
	v.SetDefault("textgen.max_prompt_length", defaultMaxPromptLength)
	v.SetDefault("textgen.rate_limit", defaultTextgenRateLimit)
	v.SetDefault("textgen.rate_period", defaultTextgenRatePeriod)
	v.SetDefault("textgen.cache_enabled", true)
	v.SetDefault("textgen.cache_ttl", defaultTextgenCacheTTL)

	// Script defaults
	v.SetDefault("script.min_sentences", defaultMinSentences)
	v.SetDefault("script.max_sentences", defaultMaxSentences)
	v.SetDefault("script.min_words", defaultMinWords)
	v.SetDefault("script.max_words", defaultMaxWords)
	v.SetDefault("script.sentence_min_words", defaultSentenceMinWords)
	v.SetDefault("script.sentence_max_words", defaultSentenceMaxWords)
	v.SetDefault("script.strictness", "strict")

	// Prompts defaults
	v.SetDefault("prompts.min_count", defaultPromptMinCount)
	v.SetDefault("prompts.max_count", defaultPromptMaxCount)
	v.SetDefault("prompts.per_sentence", defaultPromptsPerSentence)
	v.SetDefault("prompts.min_length", defaultPromptMinLength)

	// Images defaults
	v.SetDefault("images.backend", "hosted")
	v.SetDefault("images.endpoint", "")
	v.SetDefault("images.api_key", "")
	v.SetDefault("images.model", "sdxl")
	v.SetDefault("images.worker_url", "")
	v.SetDefault("images.concurrency", defaultImageConcurrency)
	v.SetDefault("images.timeout", defaultImageTimeout)
	v.SetDefault("images.min_bytes", defaultImageMinBytes)
	v.SetDefault("images.retry_attempts", defaultImageRetries)

	// Speech defaults
	v.SetDefault("speech.command", "edge-tts")
	v.SetDefault("speech.voice", "en-US-ChristopherNeural")
	v.SetDefault("speech.timeout", defaultSpeechTimeout)
	v.SetDefault("speech.retry_attempts", defaultSpeechRetries)
	v.SetDefault("speech.min_duration", defaultSpeechMinDuration)

	// Captions defaults
	v.SetDefault("captions.endpoint", "https://api.assemblyai.com/v2")
	v.SetDefault("captions.api_key", "")
	v.SetDefault("captions.poll_interval", defaultCaptionPollInterval)
	v.SetDefault("captions.poll_timeout", defaultCaptionPollTimeout)
	v.SetDefault("captions.max_line_chars", defaultCaptionLineChars)

	// Video defaults
	v.SetDefault("video.width", defaultVideoWidth)
	v.SetDefault("video.height", defaultVideoHeight)
	v.SetDefault("video.fps", defaultVideoFPS)
	v.SetDefault("video.min_image_seconds", defaultMinImageSeconds)
	v.SetDefault("video.min_images", defaultMinImages)
	v.SetDefault("video.music_volume", defaultMusicVolume)
	v.SetDefault("video.font", "")
	v.SetDefault("video.font_size", defaultFontSize)
	v.SetDefault("video.ffmpeg_path", "")
	v.SetDefault("video.ffprobe_path", "")
	v.SetDefault("video.threads", 0)

	// Publish defaults
	v.SetDefault("publish.mode", "auto")
	v.SetDefault("publish.visibility", "unlisted")
	v.SetDefault("publish.made_for_kids", false)
	v.SetDefault("publish.client_id", "")
	v.SetDefault("publish.client_secret", "")
	v.SetDefault("publish.refresh_token", "")
	v.SetDefault("publish.automation_command", "")
	v.SetDefault("publish.timeout", defaultPublishTimeout)

	// Scheduler defaults
	v.SetDefault("scheduler.cron", "")
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Storage validation
	if c.Storage.BaseDir == "" {
		return fmt.Errorf("storage.base_dir is required")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	// Textgen validation
	if c.Textgen.MaxTokens < 1 {
		return fmt.Errorf("textgen.max_tokens must be at least 1")
	}
	if c.Textgen.RetryAttempts < 1 {
		return fmt.Errorf("textgen.retry_attempts must be at least 1")
	}
	if c.Textgen.RateLimit < 0 {
		return fmt.Errorf("textgen.rate_limit must not be negative")
	}
	if c.Textgen.RateLimit > 0 && c.Textgen.RatePeriod <= 0 {
		return fmt.Errorf("textgen.rate_period must be positive when textgen.rate_limit is set")
	}

	// Script validation
	if c.Script.MinSentences < 1 {
		return fmt.Errorf("script.min_sentences must be at least 1")
	}
	if c.Script.MinSentences > c.Script.MaxSentences {
		return fmt.Errorf("script.min_sentences must not exceed script.max_sentences")
	}
	if c.Script.MinWords > c.Script.MaxWords {
		return fmt.Errorf("script.min_words must not exceed script.max_words")
	}
	validStrictness := map[string]bool{"strict": true, "relaxed": true}
	if !validStrictness[c.Script.Strictness] {
		return fmt.Errorf("script.strictness must be one of: strict, relaxed")
	}

	// Prompts validation
	if c.Prompts.MinCount < 1 {
		return fmt.Errorf("prompts.min_count must be at least 1")
	}
	if c.Prompts.MinCount > c.Prompts.MaxCount {
		return fmt.Errorf("prompts.min_count must not exceed prompts.max_count")
	}

	// Images validation
	validBackends := map[string]bool{"hosted": true, "worker": true}
	if !validBackends[c.Images.Backend] {
		return fmt.Errorf("images.backend must be one of: hosted, worker")
	}
	if c.Images.Concurrency < 1 {
		return fmt.Errorf("images.concurrency must be at least 1")
	}

	// Video validation
	if c.Video.Width < 1 || c.Video.Height < 1 {
		return fmt.Errorf("video.width and video.height must be positive")
	}
	if c.Video.FPS < 1 {
		return fmt.Errorf("video.fps must be at least 1")
	}
	if c.Video.MinImages < 1 {
		return fmt.Errorf("video.min_images must be at least 1")
	}

	// Publish validation
	validModes := map[string]bool{"api": true, "automation": true, "auto": true}
	if !validModes[c.Publish.Mode] {
		return fmt.Errorf("publish.mode must be one of: api, automation, auto")
	}
	validVisibility := map[string]bool{"public": true, "unlisted": true, "private": true}
	if !validVisibility[c.Publish.Visibility] {
		return fmt.Errorf("publish.visibility must be one of: public, unlisted, private")
	}

	return nil
}

// AccountsPath returns the directory holding per-platform account files.
func (c *Config) AccountsPath() string {
	return filepath.Join(c.Storage.BaseDir, "accounts")
}

// AssetsPath returns the full path to the scratch assets directory.
func (c *Config) AssetsPath() string {
	return filepath.Join(c.Storage.BaseDir, c.Storage.AssetsDir)
}

// SongsPath returns the full path to the music bed directory.
func (c *Config) SongsPath() string {
	return filepath.Join(c.Storage.BaseDir, c.Storage.SongsDir)
}

// OutputPath returns the full path to the finished video directory.
func (c *Config) OutputPath() string {
	return filepath.Join(c.Storage.BaseDir, c.Storage.OutputDir)
}
