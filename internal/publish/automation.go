package publish

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/observability"
)

var urlRe = regexp.MustCompile(`https?://\S+`)

// AutomationPublisher shells out to an external browser-automation command.
// The command receives the upload via REELFORGE_* environment variables and
// prints the published URL on stdout.
type AutomationPublisher struct {
	cfg    config.PublishConfig
	logger *slog.Logger

	// run executes the command and returns stdout; swapped in tests.
	run func(ctx context.Context, name string, args []string, env []string) ([]byte, error)
}

// NewAutomationPublisher creates a command-backed publisher.
func NewAutomationPublisher(cfg config.PublishConfig, logger *slog.Logger) *AutomationPublisher {
	return &AutomationPublisher{
		cfg:    cfg,
		logger: observability.WithComponent(logger, "publish.automation"),
		run: func(ctx context.Context, name string, args []string, env []string) ([]byte, error) {
			cmd := exec.CommandContext(ctx, name, args...)
			cmd.Env = append(os.Environ(), env...)
			return cmd.Output()
		},
	}
}

// Publish runs the automation command and extracts the published URL from
// its output.
func (p *AutomationPublisher) Publish(ctx context.Context, upload Upload) (Receipt, error) {
	receipt := Receipt{State: StateNotStarted}

	if p.cfg.AutomationCommand == "" {
		return receipt, ErrNoAutomationCommand
	}
	// The automation command owns channel selection.
	receipt.State = StateChannelResolved

	// Text-only posts carry no video file.
	if upload.VideoPath != "" {
		if _, err := os.Stat(upload.VideoPath); err != nil {
			return receipt, fmt.Errorf("picking video file: %w", err)
		}
	}
	receipt.State = StateFilePicked

	env := []string{
		"REELFORGE_PLATFORM=" + string(upload.Platform),
		"REELFORGE_ACCOUNT=" + upload.Account.Nickname,
		"REELFORGE_VIDEO=" + upload.VideoPath,
		"REELFORGE_TITLE=" + upload.Title,
		"REELFORGE_DESCRIPTION=" + upload.Description,
	}
	receipt.State = StateMetadataSet

	visibility := upload.Visibility
	if visibility == "" {
		visibility = "public"
	}
	env = append(env, "REELFORGE_VISIBILITY="+visibility)
	receipt.State = StateVisibilitySet

	fields := strings.Fields(p.cfg.AutomationCommand)
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	p.logger.Info("running automation command",
		slog.String("command", fields[0]),
		slog.String("video", upload.VideoPath))

	out, err := p.run(ctx, fields[0], fields[1:], env)
	if err != nil {
		return receipt, fmt.Errorf("automation command: %w", err)
	}
	receipt.State = StateUploaded
	receipt.URL = extractURL(string(out))

	p.logger.Info("automation command finished", slog.String("url", receipt.URL))
	return receipt, nil
}

// extractURL pulls the first URL out of command output. Empty when the
// command printed none.
func extractURL(out string) string {
	return strings.TrimRight(urlRe.FindString(out), ".,;")
}
