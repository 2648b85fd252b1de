package captions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/httpclient"
)

// Errors returned by the transcription client.
var (
	ErrNoAPIKey          = errors.New("transcription api key not configured")
	ErrTranscriptFailed  = errors.New("transcription failed")
	ErrTranscriptTimeout = errors.New("transcription polling timed out")
)

// Client drives an AssemblyAI-shaped transcription REST API: upload the
// audio, create a transcript job, poll until it settles, fetch SRT text.
type Client struct {
	cfg    config.CaptionsConfig
	http   *httpclient.Client
	logger *slog.Logger
}

// NewClient creates a transcription client.
func NewClient(cfg config.CaptionsConfig, hc *httpclient.Client, logger *slog.Logger) *Client {
	if hc == nil {
		hc = httpclient.NewWithDefaults()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, http: hc, logger: logger}
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type transcriptRequest struct {
	AudioURL string `json:"audio_url"`
}

type transcriptResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// TranscribeToSRT uploads the audio file and returns the finished SRT text.
func (c *Client) TranscribeToSRT(ctx context.Context, audioPath string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", ErrNoAPIKey
	}

	audioURL, err := c.upload(ctx, audioPath)
	if err != nil {
		return "", err
	}

	id, err := c.submit(ctx, audioURL)
	if err != nil {
		return "", err
	}

	if err := c.poll(ctx, id); err != nil {
		return "", err
	}

	return c.fetchSRT(ctx, id)
}

// upload streams the audio bytes to the service and returns its hosted URL.
func (c *Client) upload(ctx context.Context, audioPath string) (string, error) {
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("reading audio file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/upload", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating upload request: %w", err)
	}
	req.Header.Set("Authorization", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("uploading audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("audio upload returned %d", resp.StatusCode)
	}

	var decoded uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decoding upload response: %w", err)
	}
	if decoded.UploadURL == "" {
		return "", fmt.Errorf("upload response missing url")
	}
	return decoded.UploadURL, nil
}

// submit creates a transcript job and returns its id.
func (c *Client) submit(ctx context.Context, audioURL string) (string, error) {
	payload, err := json.Marshal(transcriptRequest{AudioURL: audioURL})
	if err != nil {
		return "", fmt.Errorf("encoding transcript request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/transcript", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating transcript request: %w", err)
	}
	req.Header.Set("Authorization", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(payload)), nil
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("submitting transcript job: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcript submission returned %d", resp.StatusCode)
	}

	var decoded transcriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decoding transcript response: %w", err)
	}
	if decoded.ID == "" {
		return "", fmt.Errorf("transcript response missing id")
	}
	return decoded.ID, nil
}

// poll waits for the job to reach a terminal status.
func (c *Client) poll(ctx context.Context, id string) error {
	interval := c.cfg.PollInterval
	if interval <= 0 {
		interval = 3 * time.Second
	}
	timeout := c.cfg.PollTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	deadline := time.Now().Add(timeout)
	for {
		status, errMsg, err := c.status(ctx, id)
		if err != nil {
			return err
		}
		switch status {
		case "completed":
			return nil
		case "error":
			return fmt.Errorf("%w: %s", ErrTranscriptFailed, errMsg)
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w after %s", ErrTranscriptTimeout, timeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (c *Client) status(ctx context.Context, id string) (status, errMsg string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint+"/transcript/"+id, nil)
	if err != nil {
		return "", "", fmt.Errorf("creating status request: %w", err)
	}
	req.Header.Set("Authorization", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("polling transcript: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("transcript poll returned %d", resp.StatusCode)
	}

	var decoded transcriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", "", fmt.Errorf("decoding transcript status: %w", err)
	}
	return decoded.Status, decoded.Error, nil
}

// fetchSRT downloads the finished transcript as SRT text.
func (c *Client) fetchSRT(ctx context.Context, id string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint+"/transcript/"+id+"/srt", nil)
	if err != nil {
		return "", fmt.Errorf("creating srt request: %w", err)
	}
	req.Header.Set("Authorization", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching srt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("srt fetch returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading srt body: %w", err)
	}
	return string(data), nil
}
