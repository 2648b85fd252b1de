// Package publish uploads rendered videos to their destination platform.
// Every publisher walks the same step sequence, so a failed run reports
// exactly how far it got before stopping.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/models"
)

// State tracks publish progression. States are ordered; a publisher only
// ever moves forward through them.
type State int

const (
	StateNotStarted State = iota
	StateChannelResolved
	StateFilePicked
	StateMetadataSet
	StateVisibilitySet
	StateUploaded
	StateRecordedInCache
)

var stateNames = map[State]string{
	StateNotStarted:      "not_started",
	StateChannelResolved: "channel_resolved",
	StateFilePicked:      "file_picked",
	StateMetadataSet:     "metadata_set",
	StateVisibilitySet:   "visibility_set",
	StateUploaded:        "uploaded",
	StateRecordedInCache: "recorded_in_cache",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Upload describes one piece of content to publish.
type Upload struct {
	Account     models.Account
	Platform    models.Platform
	VideoPath   string
	Title       string
	Description string
	Visibility  string
	MadeForKids bool
}

// Receipt reports the outcome of a publish attempt. State is valid even
// when the attempt failed, and names the last step that completed.
type Receipt struct {
	State   State
	VideoID string
	URL     string
}

// Publisher uploads content to a platform.
type Publisher interface {
	Publish(ctx context.Context, upload Upload) (Receipt, error)
}

var (
	// ErrNoCredentials indicates API publishing was requested without a
	// complete credential set.
	ErrNoCredentials = errors.New("missing publish credentials")

	// ErrNoAutomationCommand indicates automation publishing was requested
	// without a command configured.
	ErrNoAutomationCommand = errors.New("no automation command configured")

	// ErrNoPublisher indicates no publish path could be configured.
	ErrNoPublisher = errors.New("no usable publish configuration")
)

// New selects a publisher from configuration. Mode "api" uses the platform
// API, "automation" shells out to an external browser-automation command,
// and "auto" prefers the API when credentials are present.
func New(cfg config.PublishConfig, logger *slog.Logger) (Publisher, error) {
	hasCreds := cfg.ClientID != "" && cfg.ClientSecret != "" && cfg.RefreshToken != ""

	switch cfg.Mode {
	case "api":
		if !hasCreds {
			return nil, fmt.Errorf("%w: api mode needs client_id, client_secret, refresh_token", ErrNoCredentials)
		}
		return NewYouTubePublisher(cfg, logger), nil
	case "automation":
		if cfg.AutomationCommand == "" {
			return nil, ErrNoAutomationCommand
		}
		return NewAutomationPublisher(cfg, logger), nil
	case "auto":
		if hasCreds {
			return NewYouTubePublisher(cfg, logger), nil
		}
		if cfg.AutomationCommand != "" {
			return NewAutomationPublisher(cfg, logger), nil
		}
		return nil, ErrNoPublisher
	default:
		return nil, fmt.Errorf("unknown publish mode %q", cfg.Mode)
	}
}
