// Package jwt issues and verifies the signed bearer tokens handed out at login.
//
// Verification here is purely cryptographic and time based; it never consults
// the session registry. Failures are classified as [ErrMalformed],
// [ErrInvalidSignature], [ErrExpired] or [ErrInvalidClaims], with signature
// failures taking precedence over expiry.
//
// Key rotation: set KeyID for new tokens and list every key that should still
// verify in VerifyKeys. Tokens signed by a key removed from VerifyKeys stop
// verifying, which forces re-login for their holders.
package jwt
