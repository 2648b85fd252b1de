// Package speechgen implements the narration synthesis pipeline stage.
package speechgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/reelforge/reelforge/internal/pipeline/core"
	"github.com/reelforge/reelforge/internal/pipeline/shared"
)

const (
	// StageID is the unique identifier for this stage.
	StageID = "synthesize_speech"
	// StageName is the human-readable name for this stage.
	StageName = "Synthesize Speech"

	narrationFile = "narration.mp3"
)

// ErrNoScript indicates the script stage left nothing to narrate.
var ErrNoScript = errors.New("no script to narrate")

// Synthesizer renders text to an audio file.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, dest string) error
}

// Stage renders the script into the narration audio track.
type Stage struct {
	shared.BaseStage
	synth  Synthesizer
	logger *slog.Logger
}

// New creates a new speech synthesis stage.
func New(synth Synthesizer) *Stage {
	return &Stage{
		BaseStage: shared.NewBaseStage(StageID, StageName),
		synth:     synth,
	}
}

// NewConstructor returns a stage constructor for use with the factory.
func NewConstructor() core.StageConstructor {
	return func(deps *core.Dependencies) core.Stage {
		s := New(deps.Speech)
		if deps.Logger != nil {
			s.logger = deps.Logger.With("stage", StageID)
		}
		return s
	}
}

// Execute synthesizes the narration into the scratch directory.
func (s *Stage) Execute(ctx context.Context, state *core.State) (*core.StageResult, error) {
	result := shared.NewResult()
	session := state.Session

	if session.Script == "" {
		return result, ErrNoScript
	}

	dest := filepath.Join(state.TempDir, narrationFile)
	if err := s.synth.Synthesize(ctx, session.Script, dest); err != nil {
		return result, fmt.Errorf("synthesizing narration: %w", err)
	}
	session.SpeechPath = dest

	s.log(ctx, slog.LevelInfo, "narration synthesized", slog.String("path", dest))

	result.RecordsProcessed = 1
	result.Message = "Narration synthesized"
	result.Artifacts = append(result.Artifacts,
		core.NewArtifact(core.ArtifactTypeNarration, StageID).WithFilePath(dest))
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
