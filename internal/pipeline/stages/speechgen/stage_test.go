package speechgen

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/reelforge/internal/models"
	"github.com/reelforge/reelforge/internal/pipeline/core"
	"github.com/reelforge/reelforge/internal/speech"
)

type stubSynth struct {
	text string
	dest string
	err  error
}

func (s *stubSynth) Synthesize(_ context.Context, text, dest string) error {
	s.text, s.dest = text, dest
	return s.err
}

func newTestState(t *testing.T) *core.State {
	t.Helper()
	state := core.NewState(models.NewAccount("historyshorts", "history", "en"), models.PlatformYouTube)
	state.TempDir = t.TempDir()
	state.Session.Script = "Rome rose. Rome fell."
	return state
}

func TestStage_Interface(t *testing.T) {
	stage := New(nil)
	assert.Equal(t, StageID, stage.ID())
	assert.Equal(t, StageName, stage.Name())
}

func TestExecute(t *testing.T) {
	synth := &stubSynth{}
	stage := New(synth)
	state := newTestState(t)

	result, err := stage.Execute(context.Background(), state)
	require.NoError(t, err)

	want := filepath.Join(state.TempDir, "narration.mp3")
	assert.Equal(t, want, state.Session.SpeechPath)
	assert.Equal(t, want, synth.dest)
	assert.Equal(t, "Rome rose. Rome fell.", synth.text)
	require.Len(t, result.Artifacts, 1)
	assert.Equal(t, core.ArtifactTypeNarration, result.Artifacts[0].Type)
}

func TestExecuteNoScript(t *testing.T) {
	stage := New(&stubSynth{})
	state := newTestState(t)
	state.Session.Script = ""

	_, err := stage.Execute(context.Background(), state)
	assert.ErrorIs(t, err, ErrNoScript)
}

func TestExecuteSynthesisFailure(t *testing.T) {
	stage := New(&stubSynth{err: speech.ErrExhausted})
	state := newTestState(t)

	_, err := stage.Execute(context.Background(), state)
	require.ErrorIs(t, err, speech.ErrExhausted)
	assert.Empty(t, state.Session.SpeechPath)
}
