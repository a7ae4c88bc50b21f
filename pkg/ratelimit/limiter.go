package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter spaces out operations
type Limiter interface {
	// Allow reports whether an operation may start now and consumes the slot
	Allow() bool
	// Wait blocks until an operation may start or ctx is done
	Wait(ctx context.Context) error
	// Reset forgets past operations
	Reset()
}

// Spacer lets one operation start per interval. The first operation starts
// immediately. A zero interval disables spacing.
type Spacer struct {
	interval time.Duration
	mu       sync.Mutex
	lim      *rate.Limiter
}

// NewSpacer creates a Spacer for interval
func NewSpacer(interval time.Duration) *Spacer {
	s := &Spacer{interval: interval}
	s.lim = s.newLimiter()
	return s
}

func (s *Spacer) newLimiter() *rate.Limiter {
	if s.interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(s.interval), 1)
}

func (s *Spacer) limiter() *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lim
}

// Interval returns the configured spacing
func (s *Spacer) Interval() time.Duration {
	return s.interval
}

func (s *Spacer) Allow() bool {
	return s.limiter().Allow()
}

func (s *Spacer) Wait(ctx context.Context) error {
	return s.limiter().Wait(ctx)
}

func (s *Spacer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lim = s.newLimiter()
}
