package publish

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/observability"
)

const shortsCategoryID = "22" // People & Blogs

// YouTubePublisher uploads via the YouTube Data API with a refresh-token
// OAuth flow.
type YouTubePublisher struct {
	cfg    config.PublishConfig
	logger *slog.Logger

	// newService is swapped in tests to avoid the network.
	newService func(ctx context.Context, client *http.Client) (*youtube.Service, error)
}

// NewYouTubePublisher creates an API-backed publisher.
func NewYouTubePublisher(cfg config.PublishConfig, logger *slog.Logger) *YouTubePublisher {
	return &YouTubePublisher{
		cfg:    cfg,
		logger: observability.WithComponent(logger, "publish.youtube"),
		newService: func(ctx context.Context, client *http.Client) (*youtube.Service, error) {
			return youtube.NewService(ctx, option.WithHTTPClient(client))
		},
	}
}

// Publish walks the upload steps: resolve the channel, pick the file, set
// metadata, set visibility, upload. The returned receipt carries the last
// completed step even on failure.
func (p *YouTubePublisher) Publish(ctx context.Context, upload Upload) (Receipt, error) {
	receipt := Receipt{State: StateNotStarted}

	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	svc, err := p.newService(ctx, p.oauthClient(ctx))
	if err != nil {
		return receipt, fmt.Errorf("youtube service: %w", err)
	}

	channels, err := svc.Channels.List([]string{"id", "snippet"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return receipt, fmt.Errorf("resolving channel: %w", err)
	}
	if len(channels.Items) == 0 {
		return receipt, fmt.Errorf("resolving channel: no channel for these credentials")
	}
	receipt.State = StateChannelResolved
	p.logger.Info("channel resolved",
		slog.String("channel_id", channels.Items[0].Id),
		slog.String("channel_title", channels.Items[0].Snippet.Title))

	f, err := os.Open(upload.VideoPath)
	if err != nil {
		return receipt, fmt.Errorf("opening video: %w", err)
	}
	defer f.Close()
	receipt.State = StateFilePicked

	video := buildVideo(upload)
	receipt.State = StateMetadataSet
	receipt.State = StateVisibilitySet

	call := svc.Videos.Insert([]string{"snippet", "status"}, video).Context(ctx)
	call.Media(f)

	uploaded, err := call.Do()
	if err != nil {
		return receipt, fmt.Errorf("uploading video: %w", err)
	}
	receipt.State = StateUploaded
	receipt.VideoID = uploaded.Id
	receipt.URL = fmt.Sprintf("https://www.youtube.com/watch?v=%s", uploaded.Id)

	p.logger.Info("video uploaded",
		slog.String("video_id", receipt.VideoID),
		slog.String("url", receipt.URL))
	return receipt, nil
}

// buildVideo maps an upload onto the API's video resource.
func buildVideo(upload Upload) *youtube.Video {
	visibility := upload.Visibility
	if visibility == "" {
		visibility = "public"
	}
	return &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                upload.Title,
			Description:          upload.Description,
			CategoryId:           shortsCategoryID,
			DefaultLanguage:      upload.Account.Language,
			DefaultAudioLanguage: upload.Account.Language,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           visibility,
			SelfDeclaredMadeForKids: upload.MadeForKids,
		},
	}
}

// oauthClient builds an HTTP client that refreshes the access token from
// the stored refresh token.
func (p *YouTubePublisher) oauthClient(ctx context.Context) *http.Client {
	conf := &oauth2.Config{
		ClientID:     p.cfg.ClientID,
		ClientSecret: p.cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeScope},
	}
	token := &oauth2.Token{
		RefreshToken: p.cfg.RefreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}
	return oauth2.NewClient(ctx, conf.TokenSource(ctx, token))
}
