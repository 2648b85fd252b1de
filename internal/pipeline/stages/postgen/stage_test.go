package postgen

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
	response string
	err      error
	last     textgen.Prompt
}

func (s *stubCompleter) Complete(_ context.Context, p textgen.Prompt) (string, error) {
	s.last = p
	return s.response, s.err
}

func newTestState() *core.State {
	state := core.NewState(models.NewAccount("historytweets", "ancient history", "en"), models.PlatformTwitter)
	state.Session.Subject = "Roman concrete"
	return state
}

func TestStage_Interface(t *testing.T) {
	stage := New(nil)
	assert.Equal(t, StageID, stage.ID())
	assert.Equal(t, StageName, stage.Name())
}

func TestExecute(t *testing.T) {
	completer := &stubCompleter{response: `"Roman concrete gets stronger with age. Ours cracks in a decade."`}
	stage := New(completer)
	state := newTestState()

	_, err := stage.Execute(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, "Roman concrete gets stronger with age. Ours cracks in a decade.", state.Session.Script)
	assert.Contains(t, completer.last.Instruction, "Roman concrete")
	assert.Contains(t, completer.last.Instruction, "ancient history")
}

func TestExecuteEmptyPost(t *testing.T) {
	stage := New(&stubCompleter{response: "  "})
	_, err := stage.Execute(context.Background(), newTestState())
	assert.ErrorIs(t, err, ErrEmptyPost)
}

func TestExecuteCompleterError(t *testing.T) {
	stage := New(&stubCompleter{err: errors.New("endpoint down")})
	_, err := stage.Execute(context.Background(), newTestState())
	assert.Error(t, err)
}

func TestCleanPostLengthLimit(t *testing.T) {
	post := CleanPost(strings.Repeat("history ", 60))
	assert.LessOrEqual(t, len([]rune(post)), 250)
	assert.NotEmpty(t, post)
}
