package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "./data", cfg.Storage.BaseDir)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 1000, cfg.Textgen.MaxTokens)
	assert.InDelta(t, 0.7, cfg.Textgen.Temperature, 0.0001)
	assert.Equal(t, []string{"###"}, cfg.Textgen.Stop)
	assert.Equal(t, 3, cfg.Textgen.RetryAttempts)
	assert.Equal(t, 10, cfg.Script.MinSentences)
	assert.Equal(t, 12, cfg.Script.MaxSentences)
	assert.Equal(t, 150, cfg.Script.MinWords)
	assert.Equal(t, 250, cfg.Script.MaxWords)
	assert.Equal(t, "strict", cfg.Script.Strictness)
	assert.Equal(t, 12, cfg.Prompts.MinCount)
	assert.Equal(t, 36, cfg.Prompts.MaxCount)
	assert.Equal(t, 3, cfg.Images.Concurrency)
	assert.Equal(t, int64(1000), cfg.Images.MinBytes)
	assert.Equal(t, 1080, cfg.Video.Width)
	assert.Equal(t, 1920, cfg.Video.Height)
	assert.Equal(t, 30, cfg.Video.FPS)
	assert.Equal(t, 3*time.Second, cfg.Video.MinImageSeconds)
	assert.Equal(t, 3, cfg.Video.MinImages)
	assert.InDelta(t, 0.1, cfg.Video.MusicVolume, 0.0001)
	assert.Equal(t, "auto", cfg.Publish.Mode)
	assert.Equal(t, "unlisted", cfg.Publish.Visibility)
	assert.Equal(t, 10, cfg.Captions.MaxLineChars)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  base_dir: /var/lib/reelforge
logging:
  level: debug
  format: text
script:
  strictness: relaxed
images:
  backend: worker
  worker_url: http://localhost:7860
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/reelforge", cfg.Storage.BaseDir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "relaxed", cfg.Script.Strictness)
	assert.Equal(t, "worker", cfg.Images.Backend)
	assert.Equal(t, "http://localhost:7860", cfg.Images.WorkerURL)
	// Defaults still apply for unset keys.
	assert.Equal(t, 30, cfg.Video.FPS)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("REELFORGE_TEXTGEN_API_KEY", "sk-test")
	t.Setenv("REELFORGE_LOGGING_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.Textgen.APIKey)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		v := viper.New()
		SetDefaults(v)
		var cfg Config
		require.NoError(t, v.Unmarshal(&cfg))
		return &cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(_ *Config) {},
		},
		{
			name:    "empty base dir",
			mutate:  func(c *Config) { c.Storage.BaseDir = "" },
			wantErr: "storage.base_dir",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "logging.level",
		},
		{
			name:    "unknown strictness",
			mutate:  func(c *Config) { c.Script.Strictness = "lenient" },
			wantErr: "script.strictness",
		},
		{
			name:    "min sentences above max",
			mutate:  func(c *Config) { c.Script.MinSentences = 20 },
			wantErr: "script.min_sentences",
		},
		{
			name:    "min words above max",
			mutate:  func(c *Config) { c.Script.MinWords = 500 },
			wantErr: "script.min_words",
		},
		{
			name:    "negative rate limit",
			mutate:  func(c *Config) { c.Textgen.RateLimit = -1 },
			wantErr: "textgen.rate_limit",
		},
		{
			name:    "rate limit without period",
			mutate:  func(c *Config) { c.Textgen.RatePeriod = 0 },
			wantErr: "textgen.rate_period",
		},
		{
			name:    "unknown image backend",
			mutate:  func(c *Config) { c.Images.Backend = "local" },
			wantErr: "images.backend",
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.Images.Concurrency = 0 },
			wantErr: "images.concurrency",
		},
		{
			name:    "unknown publish mode",
			mutate:  func(c *Config) { c.Publish.Mode = "manual" },
			wantErr: "publish.mode",
		},
		{
			name:    "unknown visibility",
			mutate:  func(c *Config) { c.Publish.Visibility = "secret" },
			wantErr: "publish.visibility",
		},
		{
			name:    "zero fps",
			mutate:  func(c *Config) { c.Video.FPS = 0 },
			wantErr: "video.fps",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStoragePaths(t *testing.T) {
	c := Config{Storage: StorageConfig{BaseDir: "/data", AssetsDir: "assets", SongsDir: "songs", OutputDir: "output"}}
	assert.Equal(t, filepath.Join("/data", "accounts"), c.AccountsPath())
	assert.Equal(t, filepath.Join("/data", "assets"), c.AssetsPath())
	assert.Equal(t, filepath.Join("/data", "songs"), c.SongsPath())
	assert.Equal(t, filepath.Join("/data", "output"), c.OutputPath())
}
