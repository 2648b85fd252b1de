// Package promptgen implements the image prompt generation pipeline stage.
package promptgen

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/pipeline/core"
	"github.com/reelforge/reelforge/internal/pipeline/shared"
	"github.com/reelforge/reelforge/internal/pipeline/stages/scriptgen"
	"github.com/reelforge/reelforge/internal/prompts"
	"github.com/reelforge/reelforge/internal/textgen"
)

const (
	// StageID is the unique identifier for this stage.
	StageID = "generate_prompts"
	// StageName is the human-readable name for this stage.
	StageName = "Generate Image Prompts"
)

// Completer produces text from a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt textgen.Prompt) (string, error)
}

// Stage derives one image prompt list from the accepted script.
type Stage struct {
	shared.BaseStage
	completer Completer
	cfg       config.PromptsConfig
	logger    *slog.Logger
}

// New creates a new prompt generation stage.
func New(completer Completer, cfg config.PromptsConfig) *Stage {
	return &Stage{
		BaseStage: shared.NewBaseStage(StageID, StageName),
		completer: completer,
		cfg:       cfg,
	}
}

// NewConstructor returns a stage constructor for use with the factory.
func NewConstructor() core.StageConstructor {
	return func(deps *core.Dependencies) core.Stage {
		s := New(deps.Textgen, deps.Config.Prompts)
		if deps.Logger != nil {
			s.logger = deps.Logger.With("stage", StageID)
		}
		return s
	}
}

// Execute asks the model for image prompts, then normalizes whatever comes
// back into exactly the target count. A completer failure still yields a
// full synthesized list, so this stage cannot starve the image fetch.
func (s *Stage) Execute(ctx context.Context, state *core.State) (*core.StageResult, error) {
	result := shared.NewResult()
	session := state.Session

	sentences := s.sentenceCount(state)
	target := prompts.TargetCount(sentences, s.cfg)

	raw, err := s.completer.Complete(ctx, buildPrompt(session.Subject, session.Script, target))
	if err != nil {
		s.log(ctx, slog.LevelWarn, "prompt generation failed, synthesizing",
			slog.String("error", err.Error()))
		raw = ""
	}

	list := prompts.Derive(raw, session.Subject, sentences, s.cfg)
	session.ImagePrompts = list

	s.log(ctx, slog.LevelInfo, "image prompts ready",
		slog.Int("count", len(list)),
		slog.Int("target", target))

	result.RecordsProcessed = len(list)
	result.Message = fmt.Sprintf("Derived %d image prompts", len(list))
	result.Artifacts = append(result.Artifacts,
		core.NewArtifact(core.ArtifactTypePrompts, StageID).WithRecordCount(len(list)))
	return result, nil
}

// sentenceCount reads the count published by the script stage, falling
// back to a naive split when it is absent.
func (s *Stage) sentenceCount(state *core.State) int {
	if v, ok := state.GetMetadata(scriptgen.MetadataSentenceCount); ok {
		if n, ok := v.(int); ok && n > 0 {
			return n
		}
	}
	n := 0
	for _, line := range strings.Split(state.Session.Script, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

func buildPrompt(subject, script string, target int) textgen.Prompt {
	return textgen.Prompt{
		Instruction: fmt.Sprintf(
			"Create %d image generation prompts illustrating a short-form video about: %s. "+
				"Each prompt describes one concrete visual scene from the script. The script is: %s",
			target, subject, script),
		Format:  "Return a JSON array of strings, one prompt per element.",
		Example: `["A Roman aqueduct spanning a green valley at sunrise, professional quality"]`,
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
