package rate

import (
	"sync"
	"time"
)

// DefaultWindow is the provider's quota accounting period.
const DefaultWindow = time.Minute

// Config defines the call budget enforced against the upstream provider.
type Config struct {
	Limit  int           // calls allowed per window
	Window time.Duration // defaults to DefaultWindow
}

// Limiter is a fixed-window call counter. The window restarts on the first
// call made after Window has elapsed since the previous restart, so bursts
// straddling a window boundary can reach 2*Limit.
type Limiter struct {
	mu          sync.Mutex
	limit       int
	window      time.Duration
	count       int
	windowStart time.Time
	now         func() time.Time
}

// New creates a new limiter.
func New(cfg Config) *Limiter {
	return newWithClock(cfg, time.Now)
}

func newWithClock(cfg Config, now func() time.Time) *Limiter {
	window := cfg.Window
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		limit:       cfg.Limit,
		window:      window,
		windowStart: now(),
		now:         now,
	}
}

// Allow consumes one call from the current window. A denied call does not
// count against the budget.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.windowStart) >= l.window {
		l.count = 0
		l.windowStart = now
	}

	if l.count >= l.limit {
		return false
	}
	l.count++
	return true
}

// Usage returns the calls consumed in the current window and the configured limit.
func (l *Limiter) Usage() (used, limit int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count, l.limit
}
