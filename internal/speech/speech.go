// Package speech synthesizes narration audio by driving an external
// text-to-speech command and validating what it produced. Synthesis is
// delegated entirely to the child process; this package owns input
// cleaning, retries, and output validation.
package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"time"

	"github.com/reelforge/reelforge/internal/config"
)

// Errors returned by synthesis validation.
var (
	ErrNoCommand    = errors.New("speech command not configured")
	ErrAudioMissing = errors.New("synthesized audio missing")
	ErrAudioShort   = errors.New("synthesized audio too short")
	ErrAudioSilent  = errors.New("synthesized audio is silent")
	ErrExhausted    = errors.New("speech synthesis retries exhausted")
)

// minAudioBytes is the smallest output accepted before probing further.
const minAudioBytes = 1024

// silenceFloorDB is the mean-volume level below which output counts as
// silence.
const silenceFloorDB = -60.0

var speechCharRe = regexp.MustCompile(`[^\w\s.!?,]`)
var spaceRe = regexp.MustCompile(`\s+`)

// CleanText strips characters the synthesizer mispronounces or chokes on,
// keeping word characters, whitespace, and sentence punctuation, then
// collapses whitespace runs.
func CleanText(text string) string {
	text = speechCharRe.ReplaceAllString(text, "")
	return spaceRe.ReplaceAllString(text, " ")
}

// Prober measures the duration of an audio file.
type Prober interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// VolumeMeter measures the mean volume of an audio file in dB.
type VolumeMeter interface {
	MeanVolume(ctx context.Context, path string) (float64, error)
}

// runner executes the synthesizer command; swapped in tests.
type runner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, trimOutput(out))
	}
	return nil
}

func trimOutput(out []byte) string {
	const max = 300
	s := string(out)
	if len(s) > max {
		s = s[:max]
	}
	return s
}

// Synthesizer drives the external TTS command.
type Synthesizer struct {
	cfg        config.SpeechConfig
	prober     Prober
	meter      VolumeMeter
	run        runner
	retryDelay time.Duration
	logger     *slog.Logger
}

// New creates a synthesizer. prober and meter validate the output; either
// may be nil to skip that validation.
func New(cfg config.SpeechConfig, prober Prober, meter VolumeMeter, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		cfg:        cfg,
		prober:     prober,
		meter:      meter,
		run:        execRunner,
		retryDelay: time.Second,
		logger:     logger,
	}
}

// Synthesize renders text to an audio file at dest. The command is retried
// with a linearly growing sleep; output that fails validation is deleted
// before the next attempt.
func (s *Synthesizer) Synthesize(ctx context.Context, text, dest string) error {
	if s.cfg.Command == "" {
		return ErrNoCommand
	}

	cleaned := CleanText(text)

	attempts := s.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			s.logger.Debug("retrying speech synthesis",
				slog.Int("attempt", attempt),
				slog.String("reason", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt-1) * s.retryDelay):
			}
		}

		runCtx := ctx
		var cancel context.CancelFunc
		if s.cfg.Timeout > 0 {
			runCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		}
		err := s.run(runCtx, s.cfg.Command, s.args(cleaned, dest)...)
		if cancel != nil {
			cancel()
		}
		if err != nil {
			lastErr = err
			os.Remove(dest)
			continue
		}

		if err := s.validate(ctx, dest); err != nil {
			lastErr = err
			os.Remove(dest)
			continue
		}
		return nil
	}

	return fmt.Errorf("%w: %v", ErrExhausted, lastErr)
}

// args builds the synthesizer invocation (edge-tts argument shape).
func (s *Synthesizer) args(text, dest string) []string {
	args := []string{}
	if s.cfg.Voice != "" {
		args = append(args, "--voice", s.cfg.Voice)
	}
	return append(args, "--text", text, "--write-media", dest)
}

// validate gates the synthesized file: it must exist, be at least 1KB,
// carry a measurable duration, and not be silence.
func (s *Synthesizer) validate(ctx context.Context, dest string) error {
	info, err := os.Stat(dest)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAudioMissing, err)
	}
	if info.Size() < minAudioBytes {
		return fmt.Errorf("%w: %d bytes", ErrAudioShort, info.Size())
	}

	if s.prober != nil {
		dur, err := s.prober.Duration(ctx, dest)
		if err != nil {
			return fmt.Errorf("probing audio duration: %w", err)
		}
		if dur < s.cfg.MinDuration {
			return fmt.Errorf("%w: %s", ErrAudioShort, dur)
		}
	}

	if s.meter != nil {
		mean, err := s.meter.MeanVolume(ctx, dest)
		if err != nil {
			return fmt.Errorf("measuring audio volume: %w", err)
		}
		if mean <= silenceFloorDB {
			return fmt.Errorf("%w: mean volume %.1f dB", ErrAudioSilent, mean)
		}
	}
	return nil
}
