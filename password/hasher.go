package password

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedHash is returned when a stored hash cannot be parsed.
	ErrMalformedHash = errors.New("malformed password hash")
	// ErrEmptyPassword is returned when hashing an empty password.
	ErrEmptyPassword = errors.New("empty password")
	// ErrPasswordTooLong is returned when the input exceeds the algorithm limit.
	ErrPasswordTooLong = errors.New("password too long")
)

// Algorithm names a supported hashing scheme.
type Algorithm string

const (
	AlgorithmBcrypt   Algorithm = "bcrypt"
	AlgorithmArgon2id Algorithm = "argon2id"
)

// Hasher hashes and verifies passwords. Implementations are safe for
// concurrent use.
type Hasher interface {
	Hash(password string) (string, error)
	// Verify reports whether password matches encoded. A mismatch is
	// (false, nil); errors are reserved for unusable hashes.
	Verify(password, encoded string) (bool, error)
	NeedsUpgrade(encoded string) (bool, error)
}

// Config selects and tunes the hashing algorithm.
type Config struct {
	Algorithm  Algorithm
	BcryptCost int
	Argon2     Argon2Config
}

// DefaultConfig returns bcrypt with cost 12.
func DefaultConfig() Config {
	return Config{
		Algorithm:  AlgorithmBcrypt,
		BcryptCost: DefaultBcryptCost,
		Argon2:     DefaultArgon2Config(),
	}
}

type multiHasher struct {
	primary  Algorithm
	bcrypt   *Bcrypt
	argon2   *Argon2
	hashWith Hasher
}

// New builds the hasher described by cfg. The result hashes with
// cfg.Algorithm and verifies hashes of every supported algorithm; hashes of
// another algorithm always need an upgrade.
func New(cfg Config) (Hasher, error) {
	m := &multiHasher{primary: cfg.Algorithm}

	switch cfg.Algorithm {
	case AlgorithmBcrypt, "":
		m.primary = AlgorithmBcrypt
		b, err := NewBcrypt(cfg.BcryptCost)
		if err != nil {
			return nil, err
		}
		m.bcrypt = b
		m.hashWith = b
		if a, err := NewArgon2(orDefaultArgon2(cfg.Argon2)); err == nil {
			m.argon2 = a
		}
	case AlgorithmArgon2id:
		a, err := NewArgon2(cfg.Argon2)
		if err != nil {
			return nil, err
		}
		m.argon2 = a
		m.hashWith = a
		cost := cfg.BcryptCost
		if cost == 0 {
			cost = DefaultBcryptCost
		}
		if b, err := NewBcrypt(cost); err == nil {
			m.bcrypt = b
		}
	default:
		return nil, fmt.Errorf("unsupported password algorithm %q", cfg.Algorithm)
	}
	return m, nil
}

func (m *multiHasher) Hash(password string) (string, error) {
	return m.hashWith.Hash(password)
}

func (m *multiHasher) Verify(password, encoded string) (bool, error) {
	h, _, err := m.forHash(encoded)
	if err != nil {
		return false, err
	}
	return h.Verify(password, encoded)
}

func (m *multiHasher) NeedsUpgrade(encoded string) (bool, error) {
	h, alg, err := m.forHash(encoded)
	if err != nil {
		return false, err
	}
	if alg != m.primary {
		return true, nil
	}
	return h.NeedsUpgrade(encoded)
}

func (m *multiHasher) forHash(encoded string) (Hasher, Algorithm, error) {
	switch alg := Identify(encoded); {
	case alg == AlgorithmBcrypt && m.bcrypt != nil:
		return m.bcrypt, alg, nil
	case alg == AlgorithmArgon2id && m.argon2 != nil:
		return m.argon2, alg, nil
	default:
		return nil, "", fmt.Errorf("%w: unrecognized format", ErrMalformedHash)
	}
}

// Identify returns the algorithm that produced encoded, or "" if unknown.
func Identify(encoded string) Algorithm {
	switch {
	case strings.HasPrefix(encoded, "$2a$"), strings.HasPrefix(encoded, "$2b$"), strings.HasPrefix(encoded, "$2y$"):
		return AlgorithmBcrypt
	case strings.HasPrefix(encoded, "$"+argon2ID+"$"):
		return AlgorithmArgon2id
	default:
		return ""
	}
}

func orDefaultArgon2(cfg Argon2Config) Argon2Config {
	if cfg == (Argon2Config{}) {
		return DefaultArgon2Config()
	}
	return cfg
}
