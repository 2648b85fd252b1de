package scriptgen

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/models"
	"github.com/reelforge/reelforge/internal/pipeline/core"
	"github.com/reelforge/reelforge/internal/textgen"
)

type stubCompleter struct {
	responses []string
	err       error
	calls     int
}

func (s *stubCompleter) Complete(context.Context, textgen.Prompt) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	i := s.calls - 1
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	return s.responses[i], nil
}

func testScriptConfig() config.ScriptConfig {
	return config.ScriptConfig{
		MinSentences:     3,
		MaxSentences:     12,
		MinWords:         15,
		MaxWords:         400,
		SentenceMinWords: 5,
		SentenceMaxWords: 30,
		Strictness:       "strict",
	}
}

const goodScript = "Rome grew from a small village into an empire of millions.\n" +
	"Aqueducts carried fresh water across valleys for hundreds of miles.\n" +
	"Engineers built roads so durable that some still carry traffic today."

func newTestState() *core.State {
	state := core.NewState(models.NewAccount("historyshorts", "history", "en"), models.PlatformYouTube)
	state.Session.Subject = "Roman engineering"
	return state
}

func TestStage_Interface(t *testing.T) {
	stage := New(nil, testScriptConfig())
	assert.Equal(t, StageID, stage.ID())
	assert.Equal(t, StageName, stage.Name())
}

func TestExecuteAcceptsValidScript(t *testing.T) {
	completer := &stubCompleter{responses: []string{goodScript}}
	stage := New(completer, testScriptConfig())
	state := newTestState()

	result, err := stage.Execute(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, 1, completer.calls)
	assert.Equal(t, 3, result.RecordsProcessed)
	assert.Contains(t, state.Session.Script, "Rome grew from a small village")

	count, ok := state.GetMetadata(MetadataSentenceCount)
	require.True(t, ok)
	assert.Equal(t, 3, count)
}

func TestExecuteRetriesUntilValid(t *testing.T) {
	completer := &stubCompleter{responses: []string{
		"Too short.",
		goodScript,
	}}
	stage := New(completer, testScriptConfig())

	_, err := stage.Execute(context.Background(), newTestState())
	require.NoError(t, err)
	assert.Equal(t, 2, completer.calls)
}

func TestExecuteSkipsDuplicateOutputs(t *testing.T) {
	// The model keeps returning the same invalid script; each repeat is
	// detected by digest instead of being re-validated.
	completer := &stubCompleter{responses: []string{"Too short."}}
	stage := New(completer, testScriptConfig())

	_, err := stage.Execute(context.Background(), newTestState())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, maxAttempts, completer.calls)
}

func TestExecuteExhaustsOnCompleterError(t *testing.T) {
	completer := &stubCompleter{err: errors.New("endpoint down")}
	stage := New(completer, testScriptConfig())

	_, err := stage.Execute(context.Background(), newTestState())
	require.ErrorIs(t, err, ErrExhausted)
	assert.Contains(t, err.Error(), "endpoint down")
	assert.Equal(t, maxAttempts, completer.calls)
}

func TestExecuteInvalidStrictness(t *testing.T) {
	cfg := testScriptConfig()
	cfg.Strictness = "pedantic"
	stage := New(&stubCompleter{responses: []string{goodScript}}, cfg)

	_, err := stage.Execute(context.Background(), newTestState())
	assert.Error(t, err)
}

func TestPromptCarriesSubjectAndBounds(t *testing.T) {
	p := buildPrompt("Roman engineering", testScriptConfig())
	assert.Contains(t, p.Instruction, "Roman engineering")
	assert.Contains(t, p.Instruction, "3 to 12 sentences")
	assert.Contains(t, p.Instruction, "5 to 30 words")
}
