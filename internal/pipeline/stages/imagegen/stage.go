// Package imagegen implements the image fetch pipeline stage.
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/reelforge/reelforge/internal/pipeline/core"
	"github.com/reelforge/reelforge/internal/pipeline/shared"
)

const (
	// StageID is the unique identifier for this stage.
	StageID = "fetch_images"
	// StageName is the human-readable name for this stage.
	StageName = "Fetch Images"
)

// ErrNoPrompts indicates the prompt stage left nothing to fetch.
var ErrNoPrompts = errors.New("no image prompts to fetch")

// Fetcher downloads images for a prompt list.
type Fetcher interface {
	FetchAll(ctx context.Context, prompts []string, destDir string) ([]string, error)
}

// Stage downloads one image per prompt into the run's scratch directory.
type Stage struct {
	shared.BaseStage
	fetcher Fetcher
	logger  *slog.Logger
}

// New creates a new image fetch stage.
func New(fetcher Fetcher) *Stage {
	return &Stage{
		BaseStage: shared.NewBaseStage(StageID, StageName),
		fetcher:   fetcher,
	}
}

// NewConstructor returns a stage constructor for use with the factory.
func NewConstructor() core.StageConstructor {
	return func(deps *core.Dependencies) core.Stage {
		s := New(deps.Images)
		if deps.Logger != nil {
			s.logger = deps.Logger.With("stage", StageID)
		}
		return s
	}
}

// Execute fetches all prompt images. Individual failures only shrink the
// set; the fetcher errors when nothing at all was downloaded.
func (s *Stage) Execute(ctx context.Context, state *core.State) (*core.StageResult, error) {
	result := shared.NewResult()
	session := state.Session

	if len(session.ImagePrompts) == 0 {
		return result, ErrNoPrompts
	}

	destDir := filepath.Join(state.TempDir, "images")
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return result, fmt.Errorf("creating image directory: %w", err)
	}

	paths, err := s.fetcher.FetchAll(ctx, session.ImagePrompts, destDir)
	if err != nil {
		return result, fmt.Errorf("fetching images: %w", err)
	}
	session.ImagePaths = paths

	if missed := len(session.ImagePrompts) - len(paths); missed > 0 {
		state.AddError(fmt.Errorf("%d of %d images failed to download", missed, len(session.ImagePrompts)))
		s.log(ctx, slog.LevelWarn, "some images failed",
			slog.Int("requested", len(session.ImagePrompts)),
			slog.Int("fetched", len(paths)))
	}

	s.log(ctx, slog.LevelInfo, "images fetched",
		slog.Int("count", len(paths)),
		slog.String("dir", destDir))

	result.RecordsProcessed = len(paths)
	result.Message = fmt.Sprintf("Fetched %d of %d images", len(paths), len(session.ImagePrompts))
	for _, p := range paths {
		result.Artifacts = append(result.Artifacts,
			core.NewArtifact(core.ArtifactTypeImage, StageID).WithFilePath(p))
	}
	return result, nil
}

// log logs a message if the logger is set.
func (s *Stage) log(ctx context.Context, level slog.Level, msg string, attrs ...any) {
	if s.logger != nil {
		s.logger.Log(ctx, level, msg, attrs...)
	}
}

// Ensure Stage implements core.Stage.
var _ core.Stage = (*Stage)(nil)
