// Package identity is the authentication and session core of the platform's
// user-identity service: account registration, password login, bearer-token
// verification and session revocation.
//
// An [Engine] is assembled with [Builder]. It composes a password hasher, a
// token manager, a Redis-backed session registry and a fixed-window rate
// limiter, and reads accounts through a caller-supplied [CredentialStore].
// Engine methods are safe to call from multiple goroutines.
//
// # Token validity
//
// A token is accepted only when its signature verifies, it is not past its
// own expiry, and its session entry exists and is not revoked. The last check
// is what makes logout immediate across replicas.
//
// # Errors
//
// Operations return errors matching one of the sentinels in errors.go.
// Transports should call [KindOf] and respond with [Kind.Status] and
// [Kind.Message] so that internal error text never reaches clients.
//
// # Architecture boundaries
//
// This package never exposes Redis clients or encoding details. Transport
// concerns (HTTP, headers, client IP extraction) live in httpapi and
// middleware; they hand request metadata to the engine through
// [WithClientIP], [WithUserAgent] and [WithCorrelationID].
package identity
