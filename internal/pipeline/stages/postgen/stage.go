// Package postgen implements the text post generation stage used for
// platforms that take short text posts instead of videos.
package postgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/reelforge/reelforge/internal/pipeline/core"
	"github.com/reelforge/reelforge/internal/pipeline/shared"
	"github.com/reelforge/reelforge/internal/textgen"
)

const (
	// StageID is the unique identifier for this stage.
	StageID = "generate_post"
	// StageName is the human-readable name for this stage.
	StageName = "Generate Post"

	maxPostLength = 250
)

// ErrEmptyPost indicates the model produced no usable post text.
var ErrEmptyPost = errors.New("generated post is empty")

// Completer produces text from a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt textgen.Prompt) (string, error)
}

// Stage generates a short text post on the session subject.
type Stage struct {
	shared.BaseStage
	completer Completer
	logger    *slog.Logger
}

// New creates a new post generation stage.
func New(completer Completer) *Stage {
	return &Stage{
		BaseStage: shared.NewBaseStage(StageID, StageName),
		completer: completer,
	}
}

// NewConstructor returns a stage constructor for use with the factory.
func NewConstructor() core.StageConstructor {
	return func(deps *core.Dependencies) core.Stage {
		s := New(deps.Textgen)
		if deps.Logger != nil {
			s.logger = deps.Logger.With("stage", StageID)
		}
		return s
	}
}

// Execute generates the post text and stores it as the session script.
func (s *Stage) Execute(ctx context.Context, state *core.State) (*core.StageResult, error) {
	result := shared.NewResult()
	account := state.Session.Account

	raw, err := s.completer.Complete(ctx, buildPrompt(state.Session.Subject, account.Niche))
	if err != nil {
		return result, fmt.Errorf("generating post: %w", err)
	}

	post := CleanPost(raw)
	if post == "" {
		return result, ErrEmptyPost
	}
	state.Session.Script = post

	s.log(ctx, slog.LevelInfo, "post generated", slog.Int("length", len(post)))

	result.RecordsProcessed = 1
	result.Message = post
	result.Artifacts = append(result.Artifacts,
		core.NewArtifact(core.ArtifactTypeScript, StageID).WithRecordCount(1))
	return result, nil
}

// CleanPost normalizes raw model output into post text within the length
// limit.
func CleanPost(raw string) string {
	post := shared.CollapseSpaces(shared.StripQuotes(raw))
	return shared.TruncateAtWord(post, maxPostLength)
}

func buildPrompt(subject, niche string) textgen.Prompt {
	return textgen.Prompt{
		Instruction: fmt.Sprintf(
			"Write a short, punchy social media post about: %s. "+
				"The audience follows content about %s. Stay under %d characters.",
			subject, niche, maxPostLength),
		Format:  "Return only the post text.",
		Example: "Rome wasn't built in a day, but its aqueducts outlasted the empire that built them.",
	}
}

// log logs a message if the logger is set.
func (s *Stage) log(ctx context.Context, level slog.Level, msg string, attrs ...any) {
	if s.logger != nil {
		s.logger.Log(ctx, level, msg, attrs...)
	}
}

// Ensure Stage implements core.Stage.
var _ core.Stage = (*Stage)(nil)
