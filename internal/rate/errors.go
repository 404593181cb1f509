package rate

import "errors"

var (
	// ErrRateLimited is returned by Allow when the client exhausted its window.
	ErrRateLimited = errors.New("rate limited")
	// ErrUnavailable is returned by Allow when the store failed and FailOpen is off.
	ErrUnavailable = errors.New("rate limit store unavailable")
)
