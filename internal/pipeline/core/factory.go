package core

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/reelforge/reelforge/internal/captions"
	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/images"
	"github.com/reelforge/reelforge/internal/models"
	"github.com/reelforge/reelforge/internal/publish"
	"github.com/reelforge/reelforge/internal/speech"
	"github.com/reelforge/reelforge/internal/store"
	"github.com/reelforge/reelforge/internal/textgen"
	"github.com/reelforge/reelforge/internal/video"
)

// Dependencies bundles all dependencies needed by pipeline stages.
// This reduces parameter count and makes dependency injection cleaner.
type Dependencies struct {
	Config    *config.Config
	Store     *store.Store
	Textgen   *textgen.Client
	Images    *images.Fetcher
	Speech    *speech.Synthesizer
	Captions  *captions.Client
	Assembler *video.Assembler
	// Publisher is nil when publishing is disabled; the publish stage is
	// skipped in that case.
	Publisher publish.Publisher
	Logger    *slog.Logger
}

// StageConstructor is a function that creates a stage given dependencies.
type StageConstructor func(deps *Dependencies) Stage

// Factory creates configured Orchestrator instances with all required stages.
type Factory struct {
	deps              *Dependencies
	stageConstructors []StageConstructor
}

// NewFactory creates a new pipeline Factory.
func NewFactory(deps *Dependencies) *Factory {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Factory{
		deps:              deps,
		stageConstructors: make([]StageConstructor, 0),
	}
}

// RegisterStage adds a stage constructor to the factory.
// Stages are executed in the order they are registered.
func (f *Factory) RegisterStage(constructor StageConstructor) {
	f.stageConstructors = append(f.stageConstructors, constructor)
}

// Create creates a new Orchestrator configured for the given account.
// The returned orchestrator includes all registered stages.
func (f *Factory) Create(account models.Account, platform models.Platform) (*Orchestrator, error) {
	outputDir := f.deps.Config.OutputPath()
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	scratchDir := f.deps.Config.AssetsPath()
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating assets directory: %w", err)
	}
	// Stale entries are leftovers from crashed runs. A live run keeps its
	// scratch under this directory too, so never sweep while one is active.
	if !anyRunActive() {
		SweepScratch(scratchDir, f.deps.Logger)
	}

	stages := make([]Stage, 0, len(f.stageConstructors))
	for _, constructor := range f.stageConstructors {
		stages = append(stages, constructor(f.deps))
	}

	orch := NewOrchestrator(account, platform, stages, outputDir, f.deps.Config.SongsPath(), f.deps.Logger)
	orch.SetScratchDir(scratchDir)
	return orch, nil
}

// SweepScratch removes leftover scratch files from the assets directory.
// Runs normally clean up after themselves; anything still here was left by
// a crashed or killed run. JSON documents are kept.
func SweepScratch(dir string, logger *slog.Logger) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			if logger != nil {
				logger.Warn("failed to remove stale scratch entry",
					slog.String("path", path),
					slog.String("error", err.Error()),
				)
			}
			continue
		}
		removed++
	}
	if removed > 0 && logger != nil {
		logger.Debug("swept stale scratch entries",
			slog.String("dir", dir),
			slog.Int("removed", removed),
		)
	}
}

// OrchestratorFactory defines the interface for creating orchestrators.
type OrchestratorFactory interface {
	Create(account models.Account, platform models.Platform) (*Orchestrator, error)
}

// Ensure Factory implements OrchestratorFactory.
var _ OrchestratorFactory = (*Factory)(nil)
