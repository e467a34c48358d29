package utils

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle spaces successive operations at least interval apart.
// The first Wait returns immediately.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle creates a Throttle. A non-positive interval disables pacing.
func NewThrottle(interval time.Duration) *Throttle {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Throttle{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the next operation may start or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}

// StringSet is a set of strings that remembers insertion order.
type StringSet struct {
	seen  map[string]struct{}
	order []string
}

// NewStringSet creates an empty StringSet.
func NewStringSet() *StringSet {
	return &StringSet{seen: make(map[string]struct{})}
}

// Add returns true if s was newly added, false if already present.
func (s *StringSet) Add(v string) bool {
	if _, exists := s.seen[v]; exists {
		return false
	}
	s.seen[v] = struct{}{}
	s.order = append(s.order, v)
	return true
}

// Contains returns true if v has already been added.
func (s *StringSet) Contains(v string) bool {
	_, exists := s.seen[v]
	return exists
}

// Size returns the number of unique values tracked.
func (s *StringSet) Size() int {
	return len(s.order)
}

// Values returns the values in the order they were first added.
func (s *StringSet) Values() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
