package publish

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "not_started", StateNotStarted.String())
	assert.Equal(t, "uploaded", StateUploaded.String())
	assert.Equal(t, "recorded_in_cache", StateRecordedInCache.String())
}

func TestNewModeSelection(t *testing.T) {
	logger := testLogger()
	creds := config.PublishConfig{
		ClientID: "id", ClientSecret: "secret", RefreshToken: "token",
	}

	t.Run("api with credentials", func(t *testing.T) {
		cfg := creds
		cfg.Mode = "api"
		p, err := New(cfg, logger)
		require.NoError(t, err)
		assert.IsType(t, &YouTubePublisher{}, p)
	})

	t.Run("api without credentials", func(t *testing.T) {
		_, err := New(config.PublishConfig{Mode: "api"}, logger)
		assert.ErrorIs(t, err, ErrNoCredentials)
	})

	t.Run("automation", func(t *testing.T) {
		p, err := New(config.PublishConfig{Mode: "automation", AutomationCommand: "upload.sh"}, logger)
		require.NoError(t, err)
		assert.IsType(t, &AutomationPublisher{}, p)
	})

	t.Run("automation without command", func(t *testing.T) {
		_, err := New(config.PublishConfig{Mode: "automation"}, logger)
		assert.ErrorIs(t, err, ErrNoAutomationCommand)
	})

	t.Run("auto prefers api", func(t *testing.T) {
		cfg := creds
		cfg.Mode = "auto"
		cfg.AutomationCommand = "upload.sh"
		p, err := New(cfg, logger)
		require.NoError(t, err)
		assert.IsType(t, &YouTubePublisher{}, p)
	})

	t.Run("auto falls back to automation", func(t *testing.T) {
		p, err := New(config.PublishConfig{Mode: "auto", AutomationCommand: "upload.sh"}, logger)
		require.NoError(t, err)
		assert.IsType(t, &AutomationPublisher{}, p)
	})

	t.Run("auto with nothing", func(t *testing.T) {
		_, err := New(config.PublishConfig{Mode: "auto"}, logger)
		assert.ErrorIs(t, err, ErrNoPublisher)
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := New(config.PublishConfig{Mode: "carrier-pigeon"}, logger)
		assert.Error(t, err)
	})
}

func TestBuildVideo(t *testing.T) {
	v := buildVideo(Upload{
		Account:     models.Account{Language: "en"},
		Title:       "Rome in 60 Seconds",
		Description: "A quick tour. #history",
		Visibility:  "unlisted",
		MadeForKids: true,
	})

	assert.Equal(t, "Rome in 60 Seconds", v.Snippet.Title)
	assert.Equal(t, "A quick tour. #history", v.Snippet.Description)
	assert.Equal(t, "en", v.Snippet.DefaultLanguage)
	assert.Equal(t, "unlisted", v.Status.PrivacyStatus)
	assert.True(t, v.Status.SelfDeclaredMadeForKids)

	// Visibility defaults to public.
	assert.Equal(t, "public", buildVideo(Upload{}).Status.PrivacyStatus)
}

func TestExtractURL(t *testing.T) {
	assert.Equal(t, "https://youtu.be/abc123",
		extractURL("uploading...\ndone: https://youtu.be/abc123.\n"))
	assert.Empty(t, extractURL("no url here"))
}

func newTestAutomation(cmd string) *AutomationPublisher {
	return NewAutomationPublisher(config.PublishConfig{
		Mode:              "automation",
		AutomationCommand: cmd,
	}, testLogger())
}

func testUpload(t *testing.T) Upload {
	t.Helper()
	video := filepath.Join(t.TempDir(), "final.mp4")
	require.NoError(t, os.WriteFile(video, []byte("mp4"), 0o644))
	return Upload{
		Account:   models.Account{Nickname: "historyshorts"},
		Platform:  models.PlatformYouTube,
		VideoPath: video,
		Title:     "Rome in 60 Seconds",
	}
}

func TestAutomationPublish(t *testing.T) {
	p := newTestAutomation("upload.sh --headless")

	var gotName string
	var gotArgs, gotEnv []string
	p.run = func(_ context.Context, name string, args []string, env []string) ([]byte, error) {
		gotName, gotArgs, gotEnv = name, args, env
		return []byte("published: https://www.youtube.com/watch?v=xyz789\n"), nil
	}

	up := testUpload(t)
	receipt, err := p.Publish(context.Background(), up)
	require.NoError(t, err)

	assert.Equal(t, StateUploaded, receipt.State)
	assert.Equal(t, "https://www.youtube.com/watch?v=xyz789", receipt.URL)
	assert.Equal(t, "upload.sh", gotName)
	assert.Equal(t, []string{"--headless"}, gotArgs)
	assert.Contains(t, gotEnv, "REELFORGE_VIDEO="+up.VideoPath)
	assert.Contains(t, gotEnv, "REELFORGE_TITLE=Rome in 60 Seconds")
	assert.Contains(t, gotEnv, "REELFORGE_VISIBILITY=public")
}

func TestAutomationPublishMissingVideo(t *testing.T) {
	p := newTestAutomation("upload.sh")
	receipt, err := p.Publish(context.Background(), Upload{VideoPath: "/nonexistent.mp4"})
	require.Error(t, err)
	// The file step failed, so the receipt stops at the previous step.
	assert.Equal(t, StateChannelResolved, receipt.State)
}

func TestAutomationPublishCommandFailure(t *testing.T) {
	p := newTestAutomation("upload.sh")
	p.run = func(context.Context, string, []string, []string) ([]byte, error) {
		return nil, errors.New("exit status 3")
	}

	receipt, err := p.Publish(context.Background(), testUpload(t))
	require.Error(t, err)
	assert.Equal(t, StateVisibilitySet, receipt.State)
	assert.Empty(t, receipt.URL)
}
