// Package session provides the Redis-backed session registry that makes
// self-contained tokens revocable.
//
// # Model
//
// One [Entry] per issued token, keyed by the token id (jti), plus a per-account
// index of live token ids. A token is only honoured while its entry exists, is
// not revoked and has not passed its expiry. Absence of an entry is treated the
// same as revocation.
//
// # Failure semantics
//
// [Registry.IsValid] fails closed: when the store cannot be reached it reports
// false together with [ErrUnavailable]. [Registry.Register] and [Registry.Revoke]
// surface store failures to the caller.
//
// # What this package must NOT do
//
//   - Parse or verify tokens.
//   - Keep authoritative state in process memory.
package session
