// Package images generates and persists images for a list of prompts.
// Two backend shapes exist: a hosted API that returns a URL to download,
// and a worker endpoint that returns raw PNG bytes directly. Fetching
// fans out across a bounded worker pool; results keep prompt order.
package images

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/httpclient"
)

// Errors returned by backends.
var (
	ErrNotAnImage    = errors.New("response is not an image")
	ErrImageTooSmall = errors.New("image below minimum size")
	ErrNoImageURL    = errors.New("no image url in response")
)

// Backend fetches one image for one prompt and persists it at dest.
type Backend interface {
	Fetch(ctx context.Context, prompt, dest string) error
}

// NewBackend constructs the configured backend.
func NewBackend(cfg config.ImagesConfig, hc *httpclient.Client, logger *slog.Logger) (Backend, error) {
	if hc == nil {
		hc = httpclient.NewWithDefaults()
	}
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Backend {
	case "hosted":
		return &HostedBackend{cfg: cfg, http: hc, logger: logger}, nil
	case "worker":
		return &WorkerBackend{cfg: cfg, http: hc, logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown image backend %q", cfg.Backend)
	}
}

// HostedBackend drives a commercial generation API: POST the prompt, get
// back a hosted URL, download it.
type HostedBackend struct {
	cfg    config.ImagesConfig
	http   *httpclient.Client
	logger *slog.Logger
}

type hostedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
}

type hostedResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// Fetch generates an image and downloads the result to dest.
func (b *HostedBackend) Fetch(ctx context.Context, prompt, dest string) error {
	payload, err := json.Marshal(hostedRequest{Model: b.cfg.Model, Prompt: prompt, N: 1})
	if err != nil {
		return fmt.Errorf("encoding generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.Endpoint, strings.NewReader(string(payload)))
	if err != nil {
		return fmt.Errorf("creating generation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.cfg.APIKey)
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(string(payload))), nil
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling image endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("image endpoint returned %d", resp.StatusCode)
	}

	var decoded hostedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("decoding image response: %w", err)
	}
	if len(decoded.Data) == 0 || decoded.Data[0].URL == "" {
		return ErrNoImageURL
	}

	dl, err := b.http.Get(ctx, decoded.Data[0].URL)
	if err != nil {
		return fmt.Errorf("downloading image: %w", err)
	}
	defer dl.Body.Close()

	return persistImage(dl, dest, b.cfg.MinBytes)
}

// WorkerBackend drives a self-hosted worker that streams PNG bytes back
// directly.
type WorkerBackend struct {
	cfg    config.ImagesConfig
	http   *httpclient.Client
	logger *slog.Logger
}

// Fetch requests raw image bytes and persists them at dest.
func (b *WorkerBackend) Fetch(ctx context.Context, prompt, dest string) error {
	u, err := url.Parse(b.cfg.WorkerURL)
	if err != nil {
		return fmt.Errorf("parsing worker url: %w", err)
	}
	q := u.Query()
	q.Set("prompt", prompt)
	q.Set("model", b.cfg.Model)
	u.RawQuery = q.Encode()

	resp, err := b.http.Get(ctx, u.String())
	if err != nil {
		return fmt.Errorf("calling image worker: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("image worker returned %d", resp.StatusCode)
	}
	return persistImage(resp, dest, b.cfg.MinBytes)
}

// persistImage validates and writes a response body to dest. An invalid
// payload leaves no partial file behind.
func persistImage(resp *http.Response, dest string, minBytes int64) error {
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "image/") {
		return fmt.Errorf("%w: content type %q", ErrNotAnImage, ct)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading image body: %w", err)
	}
	if int64(len(data)) < minBytes {
		return fmt.Errorf("%w: %d bytes", ErrImageTooSmall, len(data))
	}

	if err := os.WriteFile(dest, data, 0o644); err != nil {
		os.Remove(dest)
		return fmt.Errorf("writing image file: %w", err)
	}
	return nil
}
