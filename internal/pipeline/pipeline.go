// Package pipeline wires the content generation stages into runnable
// factories.
package pipeline

import (
	"errors"
	"log/slog"
	"path/filepath"

	"github.com/reelforge/reelforge/internal/captions"
	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/httpclient"
	"github.com/reelforge/reelforge/internal/images"
	"github.com/reelforge/reelforge/internal/pipeline/core"
	"github.com/reelforge/reelforge/internal/pipeline/stages/assemble"
	"github.com/reelforge/reelforge/internal/pipeline/stages/captiongen"
	"github.com/reelforge/reelforge/internal/pipeline/stages/imagegen"
	"github.com/reelforge/reelforge/internal/pipeline/stages/metadatagen"
	"github.com/reelforge/reelforge/internal/pipeline/stages/postgen"
	"github.com/reelforge/reelforge/internal/pipeline/stages/promptgen"
	"github.com/reelforge/reelforge/internal/pipeline/stages/publish"
	"github.com/reelforge/reelforge/internal/pipeline/stages/scriptgen"
	"github.com/reelforge/reelforge/internal/pipeline/stages/speechgen"
	"github.com/reelforge/reelforge/internal/pipeline/stages/topicgen"
	pub "github.com/reelforge/reelforge/internal/publish"
	"github.com/reelforge/reelforge/internal/speech"
	"github.com/reelforge/reelforge/internal/store"
	"github.com/reelforge/reelforge/internal/textgen"
	"github.com/reelforge/reelforge/internal/video"
)

// BuildDependencies wires every pipeline dependency from configuration.
// A publish configuration without usable credentials or command leaves the
// publisher nil, which turns the publish stage into a no-op.
func BuildDependencies(cfg *config.Config, logger *slog.Logger) (*core.Dependencies, error) {
	hcCfg := httpclient.DefaultConfig()
	hcCfg.Timeout = cfg.Textgen.Timeout
	hcCfg.RetryAttempts = 0 // the domain clients own their retry budgets
	hcCfg.Logger = logger
	hc := httpclient.New(hcCfg)

	backend, err := images.NewBackend(cfg.Images, hc, logger)
	if err != nil {
		return nil, err
	}

	ffprobe := video.NewFFprobe(cfg.Video.FFprobePath)
	ffmpeg := video.NewFFmpeg(cfg.Video.FFmpegPath)

	tg := textgen.New(cfg.Textgen, hc, logger)
	if cfg.Textgen.CacheEnabled {
		cacheDir := filepath.Join(cfg.Storage.BaseDir, "cache", "textgen")
		tg.SetCache(textgen.NewCache(cacheDir, cfg.Textgen.CacheTTL, logger))
	}

	publisher, err := pub.New(cfg.Publish, logger)
	if err != nil {
		switch {
		case errors.Is(err, pub.ErrNoPublisher),
			errors.Is(err, pub.ErrNoCredentials),
			errors.Is(err, pub.ErrNoAutomationCommand):
			logger.Warn("publishing disabled", slog.String("reason", err.Error()))
			publisher = nil
		default:
			return nil, err
		}
	}

	return &core.Dependencies{
		Config:  cfg,
		Store:   store.New(cfg.AccountsPath(), logger),
		Textgen: tg,
		Images: images.NewFetcher(backend, images.FetcherConfig{
			Concurrency:   cfg.Images.Concurrency,
			RetryAttempts: cfg.Images.RetryAttempts,
		}, logger),
		Speech:    speech.New(cfg.Speech, ffprobe, ffmpeg, logger),
		Captions:  captions.NewClient(cfg.Captions, hc, logger),
		Assembler: video.NewAssembler(cfg.Video, logger),
		Publisher: publisher,
		Logger:    logger,
	}, nil
}

// NewVideoFactory builds the full topic-to-upload video pipeline.
func NewVideoFactory(deps *core.Dependencies) *core.Factory {
	f := core.NewFactory(deps)
	f.RegisterStage(topicgen.NewConstructor())
	f.RegisterStage(scriptgen.NewConstructor())
	f.RegisterStage(metadatagen.NewConstructor())
	f.RegisterStage(promptgen.NewConstructor())
	f.RegisterStage(imagegen.NewConstructor())
	f.RegisterStage(speechgen.NewConstructor())
	f.RegisterStage(captiongen.NewConstructor())
	f.RegisterStage(assemble.NewConstructor())
	f.RegisterStage(publish.NewConstructor())
	return f
}

// NewPostFactory builds the short text post pipeline.
func NewPostFactory(deps *core.Dependencies) *core.Factory {
	f := core.NewFactory(deps)
	f.RegisterStage(topicgen.NewConstructor())
	f.RegisterStage(postgen.NewConstructor())
	f.RegisterStage(publish.NewConstructor())
	return f
}
