// Package metadatagen implements the metadata generation pipeline stage.
package metadatagen

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/reelforge/reelforge/internal/models"
	"github.com/reelforge/reelforge/internal/pipeline/core"
	"github.com/reelforge/reelforge/internal/pipeline/shared"
	"github.com/reelforge/reelforge/internal/textgen"
)

const (
	// StageID is the unique identifier for this stage.
	StageID = "generate_metadata"
	// StageName is the human-readable name for this stage.
	StageName = "Generate Metadata"

	maxTitleLength       = 100
	maxDescriptionLength = 500
	// descriptionCutoff is where a too-long description is cut back to a
	// sentence boundary, leaving room to re-append hashtags.
	descriptionCutoff = 450

	titleAttempts = 3
)

var hashtagRe = regexp.MustCompile(`#[\p{L}\d_]+`)

// Completer produces text from a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt textgen.Prompt) (string, error)
}

// Stage generates the upload title and description.
type Stage struct {
	shared.BaseStage
	completer Completer
	logger    *slog.Logger
}

// New creates a new metadata generation stage.
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

// Execute generates a title and description for the session. Title
// generation retries a few times; a failure falls back to a title derived
// from the subject so the pipeline never stops here.
func (s *Stage) Execute(ctx context.Context, state *core.State) (*core.StageResult, error) {
	result := shared.NewResult()
	session := state.Session

	title := s.generateTitle(ctx, session.Subject, session.Account.Niche)
	description := s.generateDescription(ctx, session.Subject, session.Script, session.Account.Niche)

	session.Metadata = models.Metadata{
		Title:       title,
		Description: description,
	}

	s.log(ctx, slog.LevelInfo, "metadata generated",
		slog.String("title", title),
		slog.Int("description_length", len(description)))

	result.RecordsProcessed = 2
	result.Message = title
	result.Artifacts = append(result.Artifacts,
		core.NewArtifact(core.ArtifactTypeMetadata, StageID).WithRecordCount(2))
	return result, nil
}

// generateTitle retries until the model produces a usable title, then
// falls back to the subject itself.
func (s *Stage) generateTitle(ctx context.Context, subject, niche string) string {
	for attempt := 1; attempt <= titleAttempts; attempt++ {
		raw, err := s.completer.Complete(ctx, titlePrompt(subject))
		if err != nil {
			s.log(ctx, slog.LevelWarn, "title generation failed",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			continue
		}
		title := CleanTitle(raw, niche)
		if title != "" {
			return title
		}
		s.log(ctx, slog.LevelWarn, "empty title output", slog.Int("attempt", attempt))
	}
	return FallbackTitle(subject, niche)
}

func (s *Stage) generateDescription(ctx context.Context, subject, script, niche string) string {
	raw, err := s.completer.Complete(ctx, descriptionPrompt(subject, script))
	if err != nil {
		s.log(ctx, slog.LevelWarn, "description generation failed",
			slog.String("error", err.Error()))
		return withinLimitWithHashtag(subject, niche, maxDescriptionLength)
	}
	return CleanDescription(raw, niche)
}

// CleanTitle normalizes a generated title and guarantees it carries a
// hashtag within the length limit.
func CleanTitle(raw, niche string) string {
	title := shared.CollapseSpaces(shared.StripQuotes(shared.FirstLine(raw)))
	if title == "" {
		return ""
	}
	title = shared.TruncateAtWord(title, maxTitleLength)
	return withinLimitWithHashtag(title, niche, maxTitleLength)
}

// FallbackTitle derives a title from the subject when generation fails.
func FallbackTitle(subject, niche string) string {
	title := shared.TruncateAtWord(shared.Capitalize(subject), maxTitleLength)
	return withinLimitWithHashtag(title, niche, maxTitleLength)
}

// CleanDescription normalizes a generated description. Too-long text is
// cut back to a sentence boundary and its hashtags re-appended so they
// survive the truncation.
func CleanDescription(raw, niche string) string {
	desc := strings.TrimSpace(shared.StripQuotes(raw))
	if desc == "" {
		return ""
	}

	tags := hashtagRe.FindAllString(desc, -1)
	if len([]rune(desc)) > maxDescriptionLength {
		desc = truncateAtSentence(desc, descriptionCutoff)
		desc = reappendHashtags(desc, tags, maxDescriptionLength)
	}
	if len(hashtagRe.FindAllString(desc, -1)) == 0 {
		desc = withinLimitWithHashtag(desc, niche, maxDescriptionLength)
	}
	return desc
}

// truncateAtSentence cuts text at the last sentence boundary at or before
// max runes, falling back to a word boundary when no sentence ends there.
func truncateAtSentence(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	cut := string(runes[:max])
	if i := strings.LastIndexAny(cut, ".!?"); i > 0 {
		return strings.TrimSpace(cut[:i+1])
	}
	return shared.TruncateAtWord(text, max)
}

// reappendHashtags adds back tags lost to truncation, keeping within max.
func reappendHashtags(desc string, tags []string, max int) string {
	for _, tag := range tags {
		if strings.Contains(desc, tag) {
			continue
		}
		candidate := desc + "\n" + tag
		if len([]rune(candidate)) > max {
			break
		}
		desc = candidate
	}
	return desc
}

// withinLimitWithHashtag guarantees text carries at least one hashtag,
// trimming to make room when needed.
func withinLimitWithHashtag(text, niche string, max int) string {
	if hashtagRe.MatchString(text) {
		return text
	}
	tag := NicheHashtag(niche)
	if tag == "" {
		return text
	}
	room := max - len([]rune(tag)) - 1
	if len([]rune(text)) > room {
		text = shared.TruncateAtWord(text, room)
	}
	return strings.TrimSpace(text + " " + tag)
}

// NicheHashtag builds a hashtag from the account niche, e.g.
// "ancient history" becomes "#ancienthistory".
func NicheHashtag(niche string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return -1
		}
	}, niche)
	if cleaned == "" {
		return ""
	}
	return "#" + cleaned
}

func titlePrompt(subject string) textgen.Prompt {
	return textgen.Prompt{
		Instruction: fmt.Sprintf(
			"Write a click-worthy title for a short-form video about: %s. "+
				"Keep it under %d characters and include one relevant hashtag.",
			subject, maxTitleLength),
		Format:  "Return only the title on a single line.",
		Example: "Rome's Secret Water Highways #history",
	}
}

func descriptionPrompt(subject, script string) textgen.Prompt {
	return textgen.Prompt{
		Instruction: fmt.Sprintf(
			"Write a video description for a short-form video about: %s. "+
				"Summarize the content in two or three sentences, then add two or three relevant hashtags. "+
				"Keep the whole description under %d characters. The script is: %s",
			subject, maxDescriptionLength, script),
		Format: "Return only the description text.",
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
