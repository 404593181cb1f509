// Package middleware holds the net/http middleware of the identity service.
//
// [Guard] verifies the bearer token through the engine and stores the
// claims in the request context; [RequireRole] narrows a guarded route to
// some roles. The remaining middleware are transport plumbing:
// correlation ids, client address extraction, request logging, security
// headers, CORS and panic recovery.
//
// The package never parses tokens itself and never touches Redis.
package middleware
