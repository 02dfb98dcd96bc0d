// Package ratelimit records Classroom API throttling (HTTP 429) in Redis so
// that operators can see how often and where quota runs out. It only
// observes: requests are never delayed or blocked by this package.
package ratelimit

import (
	"time"
)

// Redis keys for throttle state storage.
const (
	RedisKeyExhaustedCount = "classroom:rate_limit:exhausted_count"
	RedisKeyLastExhausted  = "classroom:rate_limit:last_exhausted"
	RedisKeyLastResource   = "classroom:rate_limit:last_resource"
)

// DefaultHealthWindow is how long after the last throttled call the state
// is reported unhealthy.
const DefaultHealthWindow = 5 * time.Minute

// ThrottleState summarises the throttling observed across all gateway instances.
type ThrottleState struct {
	// ExhaustedCount is the total number of throttled calls recorded.
	ExhaustedCount int64 `json:"exhausted_count"`

	// LastExhaustedAt is when the latest throttled call was recorded.
	// Zero when nothing was recorded yet.
	LastExhaustedAt time.Time `json:"last_exhausted_at,omitempty"`

	// LastResource is the resource of the latest throttled call.
	LastResource string `json:"last_resource,omitempty"`

	// IsHealthy is false while the last throttled call is within the health window.
	IsHealthy bool `json:"is_healthy"`
}

// ThrottledWithin reports whether a throttled call was recorded in the last window.
func (s *ThrottleState) ThrottledWithin(window time.Duration) bool {
	if s.LastExhaustedAt.IsZero() {
		return false
	}
	return time.Since(s.LastExhaustedAt) <= window
}

// TimeSinceLastExhausted returns the time since the latest throttled call,
// or 0 if none was recorded.
func (s *ThrottleState) TimeSinceLastExhausted() time.Duration {
	if s.LastExhaustedAt.IsZero() {
		return 0
	}
	return time.Since(s.LastExhaustedAt)
}

// UpdateHealth updates the IsHealthy field for the given window.
func (s *ThrottleState) UpdateHealth(window time.Duration) {
	s.IsHealthy = !s.ThrottledWithin(window)
}
