// Package scriptgen implements the script generation pipeline stage.
package scriptgen

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"log/slog"

	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/pipeline/core"
	"github.com/reelforge/reelforge/internal/pipeline/shared"
	"github.com/reelforge/reelforge/internal/script"
	"github.com/reelforge/reelforge/internal/textgen"
)

const (
	// StageID is the unique identifier for this stage.
	StageID = "generate_script"
	// StageName is the human-readable name for this stage.
	StageName = "Generate Script"

	// MetadataSentenceCount is the state metadata key under which the
	// accepted script's sentence count is published for later stages.
	MetadataSentenceCount = "script_sentence_count"

	maxAttempts = 5
)

// ErrExhausted indicates no attempt produced a valid script.
var ErrExhausted = errors.New("script generation attempts exhausted")

// Completer produces text from a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt textgen.Prompt) (string, error)
}

// Stage generates and validates the narration script.
type Stage struct {
	shared.BaseStage
	completer Completer
	cfg       config.ScriptConfig
	logger    *slog.Logger
}

// New creates a new script generation stage.
func New(completer Completer, cfg config.ScriptConfig) *Stage {
	return &Stage{
		BaseStage: shared.NewBaseStage(StageID, StageName),
		completer: completer,
		cfg:       cfg,
	}
}

// NewConstructor returns a stage constructor for use with the factory.
func NewConstructor() core.StageConstructor {
	return func(deps *core.Dependencies) core.Stage {
		s := New(deps.Textgen, deps.Config.Script)
		if deps.Logger != nil {
			s.logger = deps.Logger.With("stage", StageID)
		}
		return s
	}
}

// Execute generates scripts until one passes validation. Identical outputs
// across attempts are detected by digest and not re-validated; a relaxed
// pass accepts scripts that only trip soft gates.
func (s *Stage) Execute(ctx context.Context, state *core.State) (*core.StageResult, error) {
	result := shared.NewResult()
	subject := state.Session.Subject

	strictness, err := script.ParseStrictness(s.cfg.Strictness)
	if err != nil {
		return result, err
	}

	seen := make(map[[md5.Size]byte]bool)
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		raw, err := s.completer.Complete(ctx, buildPrompt(subject, s.cfg))
		if err != nil {
			lastErr = err
			s.log(ctx, slog.LevelWarn, "script generation failed",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			continue
		}

		cleaned := script.Clean(raw)
		digest := md5.Sum([]byte(cleaned))
		if seen[digest] {
			lastErr = fmt.Errorf("attempt %d repeated an already rejected script", attempt)
			s.log(ctx, slog.LevelWarn, "duplicate script output",
				slog.Int("attempt", attempt))
			continue
		}
		seen[digest] = true

		validated, err := script.Validate(cleaned, s.cfg, strictness)
		if err != nil {
			lastErr = err
			s.log(ctx, slog.LevelWarn, "script rejected",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			continue
		}

		for _, warning := range validated.Warnings {
			s.log(ctx, slog.LevelWarn, "script accepted with warning",
				slog.String("warning", warning))
		}

		state.Session.Script = cleaned
		state.SetMetadata(MetadataSentenceCount, len(validated.Sentences))

		s.log(ctx, slog.LevelInfo, "script accepted",
			slog.Int("attempt", attempt),
			slog.Int("sentences", len(validated.Sentences)))

		result.RecordsProcessed = len(validated.Sentences)
		result.Message = fmt.Sprintf("Accepted script with %d sentences on attempt %d", len(validated.Sentences), attempt)
		result.Artifacts = append(result.Artifacts,
			core.NewArtifact(core.ArtifactTypeScript, StageID).WithRecordCount(len(validated.Sentences)))
		return result, nil
	}

	return result, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, maxAttempts, lastErr)
}

func buildPrompt(subject string, cfg config.ScriptConfig) textgen.Prompt {
	return textgen.Prompt{
		Instruction: fmt.Sprintf(
			"Write a narration script for a short-form video about: %s. "+
				"Write %d to %d sentences, each %d to %d words, in plain third-person prose. "+
				"No stage directions, no dialogue attribution, no first person.",
			subject, cfg.MinSentences, cfg.MaxSentences, cfg.SentenceMinWords, cfg.SentenceMaxWords),
		Format: "Return only the script sentences, one per line, with no headings or numbering.",
		Example: "The Colosseum held up to eighty thousand spectators in its prime.\n" +
			"Beneath the arena floor, a maze of tunnels hid animals and fighters.",
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
