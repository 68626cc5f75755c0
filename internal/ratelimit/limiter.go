package ratelimit

import (
	"context"
	"fmt"
	"time"
)

const (
	DefaultWindow = 60 * time.Second
	DefaultLimit  = 3
)

// RecentCounter counts a sender's creations at or after a point in time.
type RecentCounter interface {
	CountRecentFrom(ctx context.Context, fromUserID int, since time.Time) (int, error)
}

// SlidingWindow bounds how many requests a sender may create within the
// trailing window. It keeps no state of its own; every decision is a fresh
// count against the store, so it holds across service instances.
type SlidingWindow struct {
	counter RecentCounter
	window  time.Duration
	limit   int
}

// NewSlidingWindow builds a limiter. Non-positive window or limit fall back to the defaults.
func NewSlidingWindow(counter RecentCounter, window time.Duration, limit int) *SlidingWindow {
	if window <= 0 {
		window = DefaultWindow
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &SlidingWindow{counter: counter, window: window, limit: limit}
}

// Allow reports whether userID may create another request at now.
func (l *SlidingWindow) Allow(ctx context.Context, userID int, now time.Time) (bool, error) {
	count, err := l.counter.CountRecentFrom(ctx, userID, now.Add(-l.window))
	if err != nil {
		return false, fmt.Errorf("count recent requests: %w", err)
	}
	return count < l.limit, nil
}

// Window returns the trailing interval the limiter counts over.
func (l *SlidingWindow) Window() time.Duration {
	return l.window
}

// Limit returns the number of creations allowed per window.
func (l *SlidingWindow) Limit() int {
	return l.limit
}
