package speech

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/reelforge/internal/config"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"strips symbols", "Rome: the *eternal* city — risen!", "Rome the eternal city risen!"},
		{"keeps sentence punctuation", "Really? Yes, really. Go!", "Really? Yes, really. Go!"},
		{"collapses whitespace", "too   many\n\nspaces here", "too many spaces here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}

type stubProber struct {
	dur time.Duration
	err error
}

func (s stubProber) Duration(context.Context, string) (time.Duration, error) { return s.dur, s.err }

type stubMeter struct {
	mean float64
	err  error
}

func (s stubMeter) MeanVolume(context.Context, string) (float64, error) { return s.mean, s.err }

func speechConfig() config.SpeechConfig {
	return config.SpeechConfig{
		Command:       "edge-tts",
		Voice:         "en-US-ChristopherNeural",
		Timeout:       time.Minute,
		RetryAttempts: 3,
		MinDuration:   100 * time.Millisecond,
	}
}

func newTestSynthesizer(cfg config.SpeechConfig, prober Prober, meter VolumeMeter, run runner) *Synthesizer {
	s := New(cfg, prober, meter, nil)
	s.run = run
	s.retryDelay = time.Millisecond
	return s
}

func writeAudio(dest string, n int) error {
	return os.WriteFile(dest, make([]byte, n), 0o644)
}

func TestSynthesizeSuccess(t *testing.T) {
	var gotArgs []string
	run := func(_ context.Context, name string, args ...string) error {
		assert.Equal(t, "edge-tts", name)
		gotArgs = args
		return writeAudio(args[len(args)-1], 4096)
	}

	s := newTestSynthesizer(speechConfig(), stubProber{dur: 5 * time.Second}, stubMeter{mean: -20}, run)

	dest := filepath.Join(t.TempDir(), "speech.mp3")
	require.NoError(t, s.Synthesize(context.Background(), "Rome rose. *Then* it fell!", dest))

	assert.Contains(t, gotArgs, "--voice")
	assert.Contains(t, gotArgs, "en-US-ChristopherNeural")
	assert.Contains(t, gotArgs, "Rome rose. Then it fell!")
	assert.FileExists(t, dest)
}

func TestSynthesizeRetriesCommandFailure(t *testing.T) {
	calls := 0
	run := func(_ context.Context, _ string, args ...string) error {
		calls++
		if calls < 2 {
			return errors.New("synth crashed")
		}
		return writeAudio(args[len(args)-1], 4096)
	}

	s := newTestSynthesizer(speechConfig(), stubProber{dur: time.Second}, stubMeter{mean: -20}, run)

	dest := filepath.Join(t.TempDir(), "speech.mp3")
	require.NoError(t, s.Synthesize(context.Background(), "Some narration text.", dest))
	assert.Equal(t, 2, calls)
}

func TestSynthesizeRejectsTinyOutput(t *testing.T) {
	run := func(_ context.Context, _ string, args ...string) error {
		return writeAudio(args[len(args)-1], 100)
	}

	cfg := speechConfig()
	cfg.RetryAttempts = 2
	s := newTestSynthesizer(cfg, nil, nil, run)

	dest := filepath.Join(t.TempDir(), "speech.mp3")
	err := s.Synthesize(context.Background(), "Some narration text.", dest)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	// Invalid output is deleted, not left behind.
	assert.NoFileExists(t, dest)
}

func TestSynthesizeRejectsShortDuration(t *testing.T) {
	run := func(_ context.Context, _ string, args ...string) error {
		return writeAudio(args[len(args)-1], 4096)
	}

	cfg := speechConfig()
	cfg.RetryAttempts = 1
	s := newTestSynthesizer(cfg, stubProber{dur: 50 * time.Millisecond}, nil, run)

	err := s.Synthesize(context.Background(), "text", filepath.Join(t.TempDir(), "s.mp3"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestSynthesizeRejectsSilence(t *testing.T) {
	run := func(_ context.Context, _ string, args ...string) error {
		return writeAudio(args[len(args)-1], 4096)
	}

	cfg := speechConfig()
	cfg.RetryAttempts = 1
	s := newTestSynthesizer(cfg, stubProber{dur: time.Second}, stubMeter{mean: -91}, run)

	err := s.Synthesize(context.Background(), "text", filepath.Join(t.TempDir(), "s.mp3"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "silent")
}

func TestSynthesizeNoCommand(t *testing.T) {
	s := New(config.SpeechConfig{}, nil, nil, nil)
	err := s.Synthesize(context.Background(), "text", "out.mp3")
	assert.ErrorIs(t, err, ErrNoCommand)
}
