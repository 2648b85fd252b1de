package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/observability"
)

var (
	// ErrNotEnoughImages is returned when the image set is below the
	// configured minimum and assembly cannot proceed.
	ErrNotEnoughImages = errors.New("not enough images for assembly")

	// ErrNoNarration is returned when no narration audio is provided.
	ErrNoNarration = errors.New("no narration audio for assembly")
)

const (
	fadeDuration = 0.5
	zoomPerFrame = 0.0008
)

// Inputs describes the media going into one assembly run. Music and
// Subtitles are optional; a missing file degrades the output rather than
// failing the run.
type Inputs struct {
	Images    []string
	Narration string
	Music     string
	Subtitles string
	Output    string
}

// Assembler builds the final video from images, narration, music, and
// burned-in subtitles.
type Assembler struct {
	cfg    config.VideoConfig
	ffmpeg *FFmpeg
	probe  *FFprobe
	logger *slog.Logger
}

// NewAssembler creates an assembler using the binaries named in cfg.
func NewAssembler(cfg config.VideoConfig, logger *slog.Logger) *Assembler {
	return &Assembler{
		cfg:    cfg,
		ffmpeg: NewFFmpeg(cfg.FFmpegPath),
		probe:  NewFFprobe(cfg.FFprobePath),
		logger: observability.WithComponent(logger, "video"),
	}
}

// PerImageDuration is how long each image stays on screen: narration time
// split evenly across the images, floored at min so fast narrations do not
// produce strobing slideshows.
func PerImageDuration(narration time.Duration, images int, min time.Duration) time.Duration {
	if images <= 0 {
		return min
	}
	per := narration / time.Duration(images)
	if per < min {
		return min
	}
	return per
}

// Assemble runs ffmpeg over the inputs and writes in.Output. Missing music
// or subtitle files are dropped with a warning; missing images or narration
// abort the run.
func (a *Assembler) Assemble(ctx context.Context, in Inputs) error {
	if len(in.Images) < a.cfg.MinImages {
		return fmt.Errorf("%w: have %d, need %d", ErrNotEnoughImages, len(in.Images), a.cfg.MinImages)
	}
	if in.Narration == "" {
		return ErrNoNarration
	}

	narration, err := a.probe.Duration(ctx, in.Narration)
	if err != nil {
		return fmt.Errorf("probing narration: %w", err)
	}

	in.Music = a.optionalFile(in.Music, "music")
	in.Subtitles = a.optionalFile(in.Subtitles, "subtitles")

	args := BuildArgs(a.cfg, in, narration)

	a.logger.Info("assembling video",
		slog.Int("images", len(in.Images)),
		slog.Duration("narration", narration),
		slog.Bool("music", in.Music != ""),
		slog.Bool("subtitles", in.Subtitles != ""),
		slog.String("output", in.Output))

	if err := a.ffmpeg.Run(ctx, args...); err != nil {
		return fmt.Errorf("assembling %s: %w", in.Output, err)
	}
	if _, err := os.Stat(in.Output); err != nil {
		return fmt.Errorf("assembly produced no output: %w", err)
	}
	return nil
}

// optionalFile returns path if it names an existing file, otherwise "".
func (a *Assembler) optionalFile(path, kind string) string {
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		a.logger.Warn("optional input missing, continuing without it",
			slog.String("kind", kind), slog.String("path", path))
		return ""
	}
	return path
}

// BuildArgs constructs the full ffmpeg argument list for one assembly.
func BuildArgs(cfg config.VideoConfig, in Inputs, narration time.Duration) []string {
	per := PerImageDuration(narration, len(in.Images), cfg.MinImageSeconds)
	perSec := per.Seconds()

	args := []string{"-y", "-hide_banner"}

	for _, img := range in.Images {
		args = append(args, "-loop", "1", "-t", formatSeconds(perSec), "-i", img)
	}
	narrationIdx := len(in.Images)
	args = append(args, "-i", in.Narration)

	musicIdx := -1
	if in.Music != "" {
		musicIdx = narrationIdx + 1
		args = append(args, "-stream_loop", "-1", "-i", in.Music)
	}

	args = append(args, "-filter_complex", buildFilterComplex(cfg, in, perSec, narrationIdx, musicIdx))

	args = append(args, "-map", "[vout]", "-map", "[aout]")
	args = append(args,
		"-t", formatSeconds(narration.Seconds()),
		"-r", fmt.Sprint(cfg.FPS),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-ar", "44100",
		"-movflags", "+faststart",
	)
	if cfg.Threads > 0 {
		args = append(args, "-threads", fmt.Sprint(cfg.Threads))
	}
	return append(args, in.Output)
}

// buildFilterComplex assembles the filtergraph: each image is scaled and
// center-cropped to the target frame, slow-zoomed, faded, then concatenated;
// subtitles are burned over the concat result; narration is mixed with
// attenuated looping music.
func buildFilterComplex(cfg config.VideoConfig, in Inputs, perSec float64, narrationIdx, musicIdx int) string {
	var b strings.Builder
	frames := int(perSec * float64(cfg.FPS))
	if frames < 1 {
		frames = 1
	}

	for i := range in.Images {
		fmt.Fprintf(&b,
			"[%d:v]scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,"+
				"zoompan=z='min(zoom+%g,1.25)':d=%d:s=%dx%d:fps=%d,"+
				"fade=t=in:st=0:d=%g,fade=t=out:st=%s:d=%g,setsar=1[v%d];",
			i, cfg.Width, cfg.Height, cfg.Width, cfg.Height,
			zoomPerFrame, frames, cfg.Width, cfg.Height, cfg.FPS,
			fadeDuration, formatSeconds(perSec-fadeDuration), fadeDuration, i)
	}

	for i := range in.Images {
		fmt.Fprintf(&b, "[v%d]", i)
	}
	fmt.Fprintf(&b, "concat=n=%d:v=1:a=0[vcat];", len(in.Images))

	if in.Subtitles != "" {
		fmt.Fprintf(&b, "[vcat]subtitles=%s:force_style='Alignment=10,FontName=%s,Fontsize=%d'[vout];",
			escapeFilterPath(in.Subtitles), cfg.Font, cfg.FontSize)
	} else {
		b.WriteString("[vcat]null[vout];")
	}

	if musicIdx >= 0 {
		fmt.Fprintf(&b, "[%d:a]volume=%g[bg];[%d:a][bg]amix=inputs=2:duration=first:dropout_transition=0[aout]",
			musicIdx, cfg.MusicVolume, narrationIdx)
	} else {
		fmt.Fprintf(&b, "[%d:a]anull[aout]", narrationIdx)
	}
	return b.String()
}

// escapeFilterPath quotes a path for use inside a filtergraph, where
// colons and quotes are syntax.
func escapeFilterPath(path string) string {
	path = strings.ReplaceAll(path, `\`, `\\`)
	path = strings.ReplaceAll(path, `:`, `\:`)
	path = strings.ReplaceAll(path, `'`, `\'`)
	return "'" + path + "'"
}

func formatSeconds(s float64) string {
	return fmt.Sprintf("%.3f", s)
}

// PickRandomSong returns a random audio file from dir, or "" when the
// directory is missing or holds no usable files.
func PickRandomSong(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var songs []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".mp3", ".wav", ".m4a", ".ogg", ".flac":
			songs = append(songs, filepath.Join(dir, e.Name()))
		}
	}
	if len(songs) == 0 {
		return ""
	}
	return songs[rand.Intn(len(songs))]
}
