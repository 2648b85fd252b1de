// Package video assembles the final vertical video with ffmpeg and
// measures media with ffprobe. All media processing is delegated to the
// binaries; this package owns argument construction, timing math, and
// output validation.
package video

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// FFprobe wraps the ffprobe binary.
type FFprobe struct {
	// Path to the binary; empty means $PATH lookup.
	Path string

	// output runs the command and returns combined output; swapped in tests.
	output func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewFFprobe creates a prober for the given binary path.
func NewFFprobe(path string) *FFprobe {
	return &FFprobe{Path: path, output: runOutput}
}

func runOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

func (p *FFprobe) binary() string {
	if p.Path != "" {
		return p.Path
	}
	return "ffprobe"
}

// Duration returns the container duration of a media file.
func (p *FFprobe) Duration(ctx context.Context, path string) (time.Duration, error) {
	out, err := p.output(ctx, p.binary(),
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w: %s", path, err, strings.TrimSpace(string(out)))
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing ffprobe duration %q: %w", strings.TrimSpace(string(out)), err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// FFmpeg wraps the ffmpeg binary.
type FFmpeg struct {
	Path string

	output func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewFFmpeg creates a runner for the given binary path.
func NewFFmpeg(path string) *FFmpeg {
	return &FFmpeg{Path: path, output: runOutput}
}

func (f *FFmpeg) binary() string {
	if f.Path != "" {
		return f.Path
	}
	return "ffmpeg"
}

// Run executes ffmpeg with the given arguments.
func (f *FFmpeg) Run(ctx context.Context, args ...string) error {
	out, err := f.output(ctx, f.binary(), args...)
	if err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, tailOf(string(out), 400))
	}
	return nil
}

var meanVolumeRe = regexp.MustCompile(`mean_volume:\s*(-?\d+(?:\.\d+)?)\s*dB`)

// MeanVolume measures a file's mean volume in dB using the volumedetect
// filter.
func (f *FFmpeg) MeanVolume(ctx context.Context, path string) (float64, error) {
	// volumedetect reports on stderr; the null muxer discards output.
	out, _ := f.output(ctx, f.binary(),
		"-hide_banner",
		"-i", path,
		"-af", "volumedetect",
		"-f", "null", "-",
	)

	m := meanVolumeRe.FindSubmatch(out)
	if m == nil {
		return 0, fmt.Errorf("no mean_volume in ffmpeg output for %s", path)
	}
	v, err := strconv.ParseFloat(string(m[1]), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing mean_volume: %w", err)
	}
	return v, nil
}

func tailOf(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
