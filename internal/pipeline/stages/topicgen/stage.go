// Package topicgen implements the topic generation pipeline stage.
package topicgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/reelforge/reelforge/internal/pipeline/core"
	"github.com/reelforge/reelforge/internal/pipeline/shared"
	"github.com/reelforge/reelforge/internal/textgen"
)

const (
	// StageID is the unique identifier for this stage.
	StageID = "generate_topic"
	// StageName is the human-readable name for this stage.
	StageName = "Generate Topic"

	maxTopicLength = 200
)

// ErrEmptyTopic indicates the model produced no usable topic text.
var ErrEmptyTopic = errors.New("generated topic is empty")

// Completer produces text from a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt textgen.Prompt) (string, error)
}

// Stage generates the video subject for the session's account niche.
type Stage struct {
	shared.BaseStage
	completer Completer
	logger    *slog.Logger
}

// New creates a new topic generation stage.
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

// Execute asks the model for a fresh subject, steering it away from topics
// the account has already covered.
func (s *Stage) Execute(ctx context.Context, state *core.State) (*core.StageResult, error) {
	result := shared.NewResult()
	account := state.Session.Account

	raw, err := s.completer.Complete(ctx, buildPrompt(account.Niche, account.Language, recentTitles(state)))
	if err != nil {
		return result, fmt.Errorf("generating topic: %w", err)
	}

	topic := CleanTopic(raw)
	if topic == "" {
		return result, ErrEmptyTopic
	}
	state.Session.Subject = topic

	s.log(ctx, slog.LevelInfo, "topic generated",
		slog.String("topic", topic),
		slog.String("niche", account.Niche))

	result.RecordsProcessed = 1
	result.Message = topic
	result.Artifacts = append(result.Artifacts,
		core.NewArtifact(core.ArtifactTypeSubject, StageID).WithRecordCount(1))
	return result, nil
}

// CleanTopic normalizes raw model output into a single subject line.
func CleanTopic(raw string) string {
	topic := shared.CollapseSpaces(shared.StripQuotes(shared.FirstLine(raw)))
	topic = strings.TrimSuffix(topic, ".")
	topic = shared.TruncateAtWord(topic, maxTopicLength)
	return shared.Capitalize(topic)
}

// recentTitles collects the account's previously published titles so the
// prompt can steer away from repeats.
func recentTitles(state *core.State) []string {
	history := state.Session.Account.History(state.Platform)
	titles := make([]string, 0, len(history))
	for _, rec := range history {
		title := rec.Title
		if title == "" {
			title = rec.Content
		}
		if title != "" {
			titles = append(titles, title)
		}
	}
	// Only the most recent few matter for dedup steering.
	if len(titles) > 10 {
		titles = titles[len(titles)-10:]
	}
	return titles
}

func buildPrompt(niche, language string, recent []string) textgen.Prompt {
	instruction := fmt.Sprintf(
		"Generate one specific, engaging video topic for a short-form video channel about %s. "+
			"Respond in %s. The topic must be a single line under %d characters.",
		niche, languageName(language), maxTopicLength)
	if len(recent) > 0 {
		instruction += " Avoid topics already covered: " + strings.Join(recent, "; ") + "."
	}
	return textgen.Prompt{
		Instruction: instruction,
		Format:      "Return only the topic text, with no numbering, quotes, or explanation.",
		Example:     "The forgotten engineering behind Roman aqueducts",
	}
}

// languageName maps a BCP-47-ish code to a prompt-friendly name, falling
// back to the code itself.
func languageName(code string) string {
	names := map[string]string{
		"en": "English",
		"es": "Spanish",
		"fr": "French",
		"de": "German",
		"pt": "Portuguese",
		"it": "Italian",
	}
	if name, ok := names[strings.ToLower(code)]; ok {
		return name
	}
	if code == "" {
		return "English"
	}
	return code
}

// log logs a message if the logger is set.
func (s *Stage) log(ctx context.Context, level slog.Level, msg string, attrs ...any) {
	if s.logger != nil {
		s.logger.Log(ctx, level, msg, attrs...)
	}
}

// Ensure Stage implements core.Stage.
var _ core.Stage = (*Stage)(nil)
