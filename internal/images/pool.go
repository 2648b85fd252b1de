package images

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNoImages is returned when every prompt in a batch failed.
var ErrNoImages = errors.New("no images were generated")

// FetcherConfig bounds the fan-out.
type FetcherConfig struct {
	Concurrency   int
	RetryAttempts int
	// RetryBaseDelay grows linearly with the attempt number.
	RetryBaseDelay time.Duration
}

// Fetcher runs a batch of prompts through a backend with bounded
// concurrency.
type Fetcher struct {
	backend Backend
	cfg     FetcherConfig
	logger  *slog.Logger
}

// NewFetcher creates a fetcher over the given backend.
func NewFetcher(backend Backend, cfg FetcherConfig, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 2 * time.Second
	}
	return &Fetcher{backend: backend, cfg: cfg, logger: logger}
}

// FetchAll generates one image per prompt into destDir, fanning out across
// at most Concurrency workers. Results are indexed by submission order so
// the returned paths match prompt order regardless of completion order.
// Individual failures are logged and excluded; the batch fails only when
// nothing at all succeeded.
func (f *Fetcher) FetchAll(ctx context.Context, prompts []string, destDir string) ([]string, error) {
	if len(prompts) == 0 {
		return nil, ErrNoImages
	}

	type job struct {
		index  int
		prompt string
	}

	jobs := make(chan job)
	paths := make([]string, len(prompts))
	var wg sync.WaitGroup

	for w := 0; w < f.cfg.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				dest := filepath.Join(destDir, uuid.NewString()+".png")
				if err := f.fetchOne(ctx, j.prompt, dest); err != nil {
					f.logger.Warn("image generation failed",
						slog.Int("index", j.index),
						slog.String("error", err.Error()),
					)
					continue
				}
				paths[j.index] = dest
			}
		}()
	}

	for i, p := range prompts {
		select {
		case jobs <- job{index: i, prompt: p}:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	// Compact in submission order, dropping failures.
	var out []string
	for _, p := range paths {
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %d prompts attempted", ErrNoImages, len(prompts))
	}
	return out, nil
}

// fetchOne retries a single prompt with a linearly growing delay.
func (f *Fetcher) fetchOne(ctx context.Context, prompt, dest string) error {
	var lastErr error
	for attempt := 1; attempt <= f.cfg.RetryAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt-1) * f.cfg.RetryBaseDelay):
			}
		}
		if err := f.backend.Fetch(ctx, prompt, dest); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}
