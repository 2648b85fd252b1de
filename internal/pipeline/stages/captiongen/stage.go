// Package captiongen implements the subtitle generation pipeline stage.
//
// Captions are a nice-to-have: a transcription failure is recorded as a
// non-fatal error and the video ships without subtitles.
package captiongen

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/reelforge/reelforge/internal/captions"
	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/pipeline/core"
	"github.com/reelforge/reelforge/internal/pipeline/shared"
)

const (
	// StageID is the unique identifier for this stage.
	StageID = "generate_captions"
	// StageName is the human-readable name for this stage.
	StageName = "Generate Captions"

	captionsFile = "captions.srt"
)

// Transcriber turns an audio file into SRT text.
type Transcriber interface {
	TranscribeToSRT(ctx context.Context, audioPath string) (string, error)
}

// Stage transcribes the narration and writes rebalanced subtitles.
type Stage struct {
	shared.BaseStage
	transcriber Transcriber
	cfg         config.CaptionsConfig
	logger      *slog.Logger
}

// New creates a new caption generation stage.
func New(transcriber Transcriber, cfg config.CaptionsConfig) *Stage {
	return &Stage{
		BaseStage:   shared.NewBaseStage(StageID, StageName),
		transcriber: transcriber,
		cfg:         cfg,
	}
}

// NewConstructor returns a stage constructor for use with the factory.
func NewConstructor() core.StageConstructor {
	return func(deps *core.Dependencies) core.Stage {
		var transcriber Transcriber
		if deps.Captions != nil {
			transcriber = deps.Captions
		}
		s := New(transcriber, deps.Config.Captions)
		if deps.Logger != nil {
			s.logger = deps.Logger.With("stage", StageID)
		}
		return s
	}
}

// Execute transcribes the narration, rebalances the cue lines, and stores
// the subtitle file path on the session. All failures are non-fatal.
func (s *Stage) Execute(ctx context.Context, state *core.State) (*core.StageResult, error) {
	result := shared.NewResult()
	session := state.Session

	if s.transcriber == nil || s.cfg.APIKey == "" {
		s.log(ctx, slog.LevelInfo, "captions disabled, skipping")
		result.Message = "Captions disabled"
		return result, nil
	}
	if session.SpeechPath == "" {
		s.log(ctx, slog.LevelWarn, "no narration to transcribe, skipping")
		result.Message = "No narration"
		return result, nil
	}

	srtText, err := s.transcriber.TranscribeToSRT(ctx, session.SpeechPath)
	if err != nil {
		return s.skip(ctx, state, result, fmt.Errorf("transcribing narration: %w", err))
	}

	cues, err := captions.ParseSRT(srtText)
	if err != nil {
		return s.skip(ctx, state, result, fmt.Errorf("parsing transcript: %w", err))
	}
	cues = captions.Rebalance(cues, s.cfg.MaxLineChars)

	dest := filepath.Join(state.TempDir, captionsFile)
	if err := os.WriteFile(dest, []byte(captions.FormatSRT(cues)), 0o644); err != nil {
		return s.skip(ctx, state, result, fmt.Errorf("writing subtitles: %w", err))
	}
	session.CaptionsPath = dest

	s.log(ctx, slog.LevelInfo, "captions written",
		slog.Int("cues", len(cues)),
		slog.String("path", dest))

	result.RecordsProcessed = len(cues)
	result.Message = fmt.Sprintf("Wrote %d subtitle cues", len(cues))
	result.Artifacts = append(result.Artifacts,
		core.NewArtifact(core.ArtifactTypeCaptions, StageID).WithFilePath(dest).WithRecordCount(len(cues)))
	return result, nil
}

// skip records a caption failure without failing the pipeline.
func (s *Stage) skip(ctx context.Context, state *core.State, result *core.StageResult, err error) (*core.StageResult, error) {
	state.AddError(err)
	s.log(ctx, slog.LevelWarn, "continuing without captions",
		slog.String("error", err.Error()))
	result.Message = "Captions skipped: " + err.Error()
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
