package textgen

import (
	"context"
	"sync"
	"time"
)

// maxWaitSlice caps a single sleep inside Wait so cancellation is noticed
// promptly even for long periods.
const maxWaitSlice = time.Second

// Limiter is a thread-safe sliding-window token bucket. Bursts up to max
// calls are allowed, then calls are held to max per period.
type Limiter struct {
	mu     sync.Mutex
	max    int
	period time.Duration
	calls  []time.Time

	now func() time.Time // injectable for tests
}

// NewLimiter creates a limiter allowing max calls per period.
func NewLimiter(max int, period time.Duration) *Limiter {
	if max < 1 {
		max = 1
	}
	if period <= 0 {
		period = time.Second
	}
	return &Limiter{max: max, period: period, now: time.Now}
}

// Allow reports whether a call may proceed now, consuming a slot if so.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)
	if len(l.calls) < l.max {
		l.calls = append(l.calls, now)
		return true
	}
	return false
}

// Remaining returns how many calls are still allowed in the current window.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(l.now())
	return l.max - len(l.calls)
}

// Wait blocks until a slot is available or the context ends.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		if l.Allow() {
			return nil
		}

		sleep := l.nextFree()
		if sleep > maxWaitSlice {
			sleep = maxWaitSlice
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// nextFree returns how long until the oldest recorded call leaves the window.
func (l *Limiter) nextFree() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.calls) == 0 {
		return time.Millisecond
	}
	wait := l.period - l.now().Sub(l.calls[0])
	if wait <= 0 {
		return time.Millisecond
	}
	return wait
}

// prune drops recorded calls older than the window. Callers hold the lock.
func (l *Limiter) prune(now time.Time) {
	kept := l.calls[:0]
	for _, t := range l.calls {
		if now.Sub(t) < l.period {
			kept = append(kept, t)
		}
	}
	l.calls = kept
}
