// Package rate implements the fixed-window request limiter shared by every
// service replica.
//
// # Window semantics
//
// Each call performs one atomic increment on the key
// <prefix>:<client key>:<window index>, where the window index is
// floor(now / window). The first increment sets the key TTL to the window
// length, so counters vanish on their own. A request is rejected when the
// returned count exceeds the limit; the count and the comparison come from the
// same atomic step, so concurrent callers cannot both pass the last slot.
//
// # Store failures
//
// With FailOpen the request is allowed, the decision is flagged Degraded and a
// warning is logged. Without it the limiter returns [ErrUnavailable], never
// [ErrRateLimited].
package rate
