// Package assemble implements the video assembly pipeline stage.
package assemble

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/reelforge/reelforge/internal/pipeline/core"
	"github.com/reelforge/reelforge/internal/pipeline/shared"
	"github.com/reelforge/reelforge/internal/video"
)

const (
	// StageID is the unique identifier for this stage.
	StageID = "assemble_video"
	// StageName is the human-readable name for this stage.
	StageName = "Assemble Video"
)

// Assembler renders the final video from its parts.
type Assembler interface {
	Assemble(ctx context.Context, in video.Inputs) error
}

// Stage renders the final video into the output directory.
type Stage struct {
	shared.BaseStage
	assembler Assembler
	pickSong  func(dir string) string
	logger    *slog.Logger
}

// New creates a new assembly stage.
func New(assembler Assembler) *Stage {
	return &Stage{
		BaseStage: shared.NewBaseStage(StageID, StageName),
		assembler: assembler,
		pickSong:  video.PickRandomSong,
	}
}

// NewConstructor returns a stage constructor for use with the factory.
func NewConstructor() core.StageConstructor {
	return func(deps *core.Dependencies) core.Stage {
		s := New(deps.Assembler)
		if deps.Logger != nil {
			s.logger = deps.Logger.With("stage", StageID)
		}
		return s
	}
}

// Execute renders the session's video. The output goes straight to the
// output directory because the scratch directory dies with the run.
func (s *Stage) Execute(ctx context.Context, state *core.State) (*core.StageResult, error) {
	result := shared.NewResult()
	session := state.Session

	if music := s.pickSong(state.SongsDir); music != "" {
		session.MusicPath = music
		s.log(ctx, slog.LevelInfo, "background music selected",
			slog.String("song", filepath.Base(music)))
	} else {
		s.log(ctx, slog.LevelInfo, "no background music available")
	}

	out := filepath.Join(state.OutputDir, fmt.Sprintf("%s.mp4", session.ID))
	err := s.assembler.Assemble(ctx, video.Inputs{
		Images:    session.ImagePaths,
		Narration: session.SpeechPath,
		Music:     session.MusicPath,
		Subtitles: session.CaptionsPath,
		Output:    out,
	})
	if err != nil {
		return result, err
	}
	session.VideoPath = out

	s.log(ctx, slog.LevelInfo, "video assembled", slog.String("path", out))

	result.RecordsProcessed = 1
	result.Message = "Video assembled"
	result.Artifacts = append(result.Artifacts,
		core.NewArtifact(core.ArtifactTypeVideo, StageID).WithFilePath(out))
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
