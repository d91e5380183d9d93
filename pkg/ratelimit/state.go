// Package ratelimit implements per-client request limiting for the catalog
// API. Counters live in Redis so every API instance shares one budget per
// client and window.
package ratelimit

import (
	"time"
)

// Redis key layout for window counters: <prefix><client>:<window start>.
const DefaultKeyPrefix = "dino:rate_limit:"

// Defaults for the fixed window.
const (
	// DefaultLimit is the number of requests a client may make per window.
	DefaultLimit = 60

	// DefaultWindow is the length of one counting window.
	DefaultWindow = time.Minute

	// WarningRatio marks a client as close to its limit once fewer than
	// this share of its requests remain.
	WarningRatio = 0.1
)

// State is a client's position in the current window.
type State struct {
	// Client identifies the caller, usually its IP address.
	Client string `json:"client"`

	// Limit is the number of requests allowed per window.
	Limit int `json:"limit"`

	// Used counts the requests made in the current window, including
	// the one being decided.
	Used int `json:"used"`

	// ResetAt is when the current window ends.
	ResetAt time.Time `json:"reset_at"`
}

// Remaining returns the requests left in the window, never negative.
func (s *State) Remaining() int {
	if r := s.Limit - s.Used; r > 0 {
		return r
	}
	return 0
}

// Allowed reports whether the last counted request fits the limit.
func (s *State) Allowed() bool {
	return s.Used <= s.Limit
}

// NearLimit reports whether the client is allowed but has less than
// WarningRatio of its budget left.
func (s *State) NearLimit() bool {
	return s.Allowed() && float64(s.Remaining()) < float64(s.Limit)*WarningRatio
}

// TimeUntilReset returns the duration until the window ends relative to
// now. Returns 0 if the window has already ended.
func (s *State) TimeUntilReset(now time.Time) time.Duration {
	d := s.ResetAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// windowStart truncates now to the start of its window.
func windowStart(now time.Time, window time.Duration) time.Time {
	return now.Truncate(window)
}
