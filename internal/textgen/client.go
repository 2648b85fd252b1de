// Package textgen calls an external text-generation endpoint and repairs
// its output. Backends reply with plain text, JSON envelopes, concatenated
// JSON chunks, or truncated text; every completion passes through the same
// reassemble/unwrap/truncation gauntlet before a caller sees it.
package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/httpclient"
)

// Errors returned by the client.
var (
	ErrExhausted   = errors.New("text generation retries exhausted")
	ErrNoEndpoint  = errors.New("text generation endpoint not configured")
	ErrShortResult = errors.New("text generation result too short")
)

// minContentLength is the shortest completion accepted as real content.
const minContentLength = 10

// Client generates text through a remote completion endpoint.
type Client struct {
	cfg     config.TextgenConfig
	http    *httpclient.Client
	limiter *Limiter
	cache   *Cache
	logger  *slog.Logger
}

// New creates a text-generation client. A positive rate_limit installs a
// token bucket in front of every backend call.
func New(cfg config.TextgenConfig, hc *httpclient.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if hc == nil {
		hc = httpclient.NewWithDefaults()
	}
	c := &Client{cfg: cfg, http: hc, logger: logger}
	if cfg.RateLimit > 0 {
		c.limiter = NewLimiter(cfg.RateLimit, cfg.RatePeriod)
	}
	return c
}

// SetCache attaches a response cache. Nil disables caching.
func (c *Client) SetCache(cache *Cache) {
	c.cache = cache
}

// completionRequest is the wire shape of a completion call.
type completionRequest struct {
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens"`
	Temperature float64  `json:"temperature"`
	Stop        []string `json:"stop,omitempty"`
}

// Complete renders the prompt, calls the backend, and repairs the reply.
// Malformed or truncated replies are retried up to the configured budget;
// exhausting it is a hard failure the caller must not paper over.
func (c *Client) Complete(ctx context.Context, prompt Prompt) (string, error) {
	if c.cfg.Endpoint == "" {
		return "", ErrNoEndpoint
	}

	rendered := prompt.Render()
	if c.cfg.MaxPromptLength > 0 && len(rendered) > c.cfg.MaxPromptLength {
		cut := c.cfg.MaxPromptLength
		for cut > 0 && !utf8.RuneStart(rendered[cut]) {
			cut--
		}
		rendered = rendered[:cut]
	}

	if c.cache != nil {
		if hit, ok := c.cache.Get(c.cacheKey(rendered)); ok {
			c.logger.Debug("completion served from cache")
			return hit, nil
		}
	}

	attempts := c.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			c.logger.Debug("retrying text generation",
				slog.Int("attempt", attempt),
				slog.String("reason", lastErr.Error()),
			)
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}

		raw, err := c.post(ctx, rendered)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return "", err
			}
			lastErr = err
			continue
		}

		content := StripMarkers(Repair(raw))
		if len(content) < minContentLength {
			lastErr = fmt.Errorf("%w: %d chars", ErrShortResult, len(content))
			continue
		}
		if IsTruncated(content) {
			lastErr = fmt.Errorf("truncated response: %q", tail(content, 40))
			continue
		}
		if c.cache != nil {
			c.cache.Set(c.cacheKey(rendered), content)
		}
		return content, nil
	}

	return "", fmt.Errorf("%w: %v", ErrExhausted, lastErr)
}

// cacheKey identifies a completion by its prompt and every request
// parameter that shapes the reply.
func (c *Client) cacheKey(rendered string) string {
	return fmt.Sprintf("%s|%d|%g|%s", c.cfg.Endpoint, c.cfg.MaxTokens, c.cfg.Temperature, rendered)
}

// post issues one completion call and returns the raw body.
func (c *Client) post(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(completionRequest{
		Prompt:      prompt,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Stop:        c.cfg.Stop,
	})
	if err != nil {
		return "", fmt.Errorf("encoding completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(payload)), nil
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling completion endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion endpoint returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading completion response: %w", err)
	}
	return string(data), nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
