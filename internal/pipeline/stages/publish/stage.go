// Package publish implements the upload pipeline stage.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/models"
	"github.com/reelforge/reelforge/internal/pipeline/core"
	"github.com/reelforge/reelforge/internal/pipeline/shared"
	pub "github.com/reelforge/reelforge/internal/publish"
)

const (
	// StageID is the unique identifier for this stage.
	StageID = "publish"
	// StageName is the human-readable name for this stage.
	StageName = "Publish"
)

// ErrNoVideo indicates there is nothing to upload.
var ErrNoVideo = errors.New("no video to publish")

// Recorder appends published content to the account history.
type Recorder interface {
	AppendContent(platform models.Platform, id uuid.UUID, record models.ContentRecord) error
}

// Stage uploads the rendered video and records it in the account history.
// The history record is only written after a fully successful upload.
type Stage struct {
	shared.BaseStage
	publisher pub.Publisher
	recorder  Recorder
	cfg       config.PublishConfig
	now       func() time.Time
	logger    *slog.Logger
}

// New creates a new publish stage.
func New(publisher pub.Publisher, recorder Recorder, cfg config.PublishConfig) *Stage {
	return &Stage{
		BaseStage: shared.NewBaseStage(StageID, StageName),
		publisher: publisher,
		recorder:  recorder,
		cfg:       cfg,
		now:       time.Now,
	}
}

// NewConstructor returns a stage constructor for use with the factory.
func NewConstructor() core.StageConstructor {
	return func(deps *core.Dependencies) core.Stage {
		s := New(deps.Publisher, deps.Store, deps.Config.Publish)
		if deps.Logger != nil {
			s.logger = deps.Logger.With("stage", StageID)
		}
		return s
	}
}

// Execute uploads the session's content. With no publisher configured the
// stage is a no-op, leaving the rendered video in the output directory.
func (s *Stage) Execute(ctx context.Context, state *core.State) (*core.StageResult, error) {
	result := shared.NewResult()
	session := state.Session

	if s.publisher == nil {
		s.log(ctx, slog.LevelInfo, "publishing disabled, keeping local copy",
			slog.String("video", session.VideoPath))
		result.Message = "Publishing disabled"
		return result, nil
	}

	textPost := state.Platform == models.PlatformTwitter
	if session.VideoPath == "" && !textPost {
		return result, ErrNoVideo
	}

	upload := pub.Upload{
		Account:     session.Account,
		Platform:    state.Platform,
		VideoPath:   session.VideoPath,
		Title:       session.Metadata.Title,
		Description: session.Metadata.Description,
		Visibility:  s.cfg.Visibility,
		MadeForKids: s.cfg.MadeForKids,
	}
	if textPost && upload.Title == "" {
		upload.Title = session.Script
	}

	receipt, err := s.publisher.Publish(ctx, upload)
	if err != nil {
		return result, fmt.Errorf("publishing (reached %s): %w", receipt.State, err)
	}
	session.PublishedURL = receipt.URL

	record := models.ContentRecord{
		ID:    session.ID.String(),
		Date:  s.now(),
		Title: session.Metadata.Title,
		URL:   receipt.URL,
	}
	if textPost {
		record.Content = session.Script
	}
	if err := s.recorder.AppendContent(state.Platform, session.Account.ID, record); err != nil {
		return result, fmt.Errorf("recording published content: %w", err)
	}
	receipt.State = pub.StateRecordedInCache

	s.log(ctx, slog.LevelInfo, "content published",
		slog.String("url", receipt.URL),
		slog.String("state", receipt.State.String()))

	result.RecordsProcessed = 1
	result.Message = "Published " + receipt.URL
	result.Artifacts = append(result.Artifacts,
		core.NewArtifact(core.ArtifactTypePublication, StageID).
			WithMetadata("url", receipt.URL).
			WithMetadata("state", receipt.State.String()))
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
