// Package password implements slow, salted password hashing with bcrypt
// (default) and Argon2id, and a bounded pool that keeps concurrent hashing
// from saturating the CPU.
//
// # Output formats
//
//	bcrypt:   $2a$<cost>$<salt+hash>
//	argon2id: $argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [New] returns a hasher that writes the configured algorithm and verifies
// either format, so switching algorithms does not lock out existing accounts.
// [Hasher.NeedsUpgrade] reports hashes that should be replaced after the next
// successful login.
//
// # What this package must NOT do
//
//   - Enforce password policy (length, character classes); the Engine does.
//   - Log or return plaintext passwords.
package password
