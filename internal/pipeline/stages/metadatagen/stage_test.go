package metadatagen

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/reelforge/internal/models"
	"github.com/reelforge/reelforge/internal/pipeline/core"
	"github.com/reelforge/reelforge/internal/textgen"
)

type stubCompleter struct {
	byMarker map[string]string // substring of instruction -> response
	err      error
	calls    int
}

func (s *stubCompleter) Complete(_ context.Context, p textgen.Prompt) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	for marker, response := range s.byMarker {
		if strings.Contains(p.Instruction, marker) {
			return response, nil
		}
	}
	return "", errors.New("no stubbed response")
}

func newTestState() *core.State {
	state := core.NewState(models.NewAccount("historyshorts", "Ancient History", "en"), models.PlatformYouTube)
	state.Session.Subject = "Roman aqueducts"
	state.Session.Script = "Rome built aqueducts. They still stand today."
	return state
}

func TestStage_Interface(t *testing.T) {
	stage := New(nil)
	assert.Equal(t, StageID, stage.ID())
	assert.Equal(t, StageName, stage.Name())
}

func TestExecute(t *testing.T) {
	completer := &stubCompleter{byMarker: map[string]string{
		"title":       `"Rome's Water Highways #history"`,
		"description": "How Rome moved water across empires.\n\n#history #engineering",
	}}
	stage := New(completer)
	state := newTestState()

	result, err := stage.Execute(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, "Rome's Water Highways #history", state.Session.Metadata.Title)
	assert.Contains(t, state.Session.Metadata.Description, "#engineering")
	assert.Equal(t, 2, result.RecordsProcessed)
}

func TestExecuteFallsBackOnCompleterFailure(t *testing.T) {
	completer := &stubCompleter{err: errors.New("endpoint down")}
	stage := New(completer)
	state := newTestState()

	_, err := stage.Execute(context.Background(), state)
	require.NoError(t, err)

	// Fallback title derives from the subject and carries the niche tag.
	assert.Equal(t, "Roman aqueducts #ancienthistory", state.Session.Metadata.Title)
	assert.Contains(t, state.Session.Metadata.Description, "#ancienthistory")
}

func TestCleanTitleAddsHashtag(t *testing.T) {
	assert.Equal(t, "Rome's Water Highways #ancienthistory",
		CleanTitle("Rome's Water Highways", "Ancient History"))
}

func TestCleanTitleKeepsExistingHashtag(t *testing.T) {
	title := CleanTitle("Rome's Water Highways #rome", "Ancient History")
	assert.Equal(t, "Rome's Water Highways #rome", title)
}

func TestCleanTitleLengthLimit(t *testing.T) {
	long := strings.Repeat("water ", 40)
	title := CleanTitle(long, "history")
	assert.LessOrEqual(t, len([]rune(title)), 100)
	assert.Contains(t, title, "#history")
}

func TestCleanDescriptionTruncatesAtSentence(t *testing.T) {
	sentence := "Rome built aqueducts that carried water for many hundreds of miles across the empire. "
	long := strings.Repeat(sentence, 8) + "#history #rome"

	desc := CleanDescription(long, "history")

	assert.LessOrEqual(t, len([]rune(desc)), 500)
	// Cut lands on a sentence boundary before the hashtags are re-added.
	assert.Contains(t, desc, "#history")
	assert.Contains(t, desc, "#rome")
	body := strings.SplitN(desc, "\n", 2)[0]
	assert.True(t, strings.HasSuffix(strings.TrimSpace(body), "."), "expected sentence boundary, got %q", body)
}

func TestCleanDescriptionShortPassesThrough(t *testing.T) {
	assert.Equal(t, "Short and sweet. #history",
		CleanDescription("Short and sweet. #history", "history"))
}

func TestNicheHashtag(t *testing.T) {
	assert.Equal(t, "#ancienthistory", NicheHashtag("Ancient History"))
	assert.Equal(t, "#truecrime2", NicheHashtag("True-Crime 2"))
	assert.Empty(t, NicheHashtag("!!!"))
}

func TestFallbackTitle(t *testing.T) {
	assert.Equal(t, "Roman aqueducts #history", FallbackTitle("Roman aqueducts", "history"))
}
