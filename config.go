package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/identity/jwt"
	"github.com/MrEthical07/identity/password"
)

// Config holds every engine setting. Start from [DefaultConfig] and override
// fields; [Config.Validate] runs during [Builder.Build].
type Config struct {
	Token     TokenConfig
	Password  PasswordConfig
	RateLimit RateLimitConfig
	Session   SessionConfig
	Account   AccountConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls token signing and lifetime.
type TokenConfig struct {
	TTL           time.Duration
	SigningMethod string // "hs256" (default), "hs384", "hs512" or "ed25519"
	// Secret is the HMAC key, or the Ed25519 private key.
	Secret     []byte
	PublicKey  []byte
	Issuer     string
	Audience   string
	Leeway     time.Duration
	KeyID      string
	VerifyKeys map[string][]byte
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig selects the hashing algorithm and the password policy.
type PasswordConfig struct {
	Algorithm  string // "bcrypt" (default) or "argon2id"
	BcryptCost int
	Argon2     password.Argon2Config

	MinLength         int
	MaxLength         int
	RequireComplexity bool

	// PoolSize bounds concurrent hash operations; 0 means runtime.NumCPU().
	PoolSize       int
	UpgradeOnLogin bool
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig is the per-client fixed window applied to every operation.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	// FailOpen admits requests when the shared store is unreachable. When
	// false such requests fail with ErrDependencyUnavailable.
	FailOpen bool
	Prefix   string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the session registry key layout.
type SessionConfig struct {
	Prefix string
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig controls registration.
type AccountConfig struct {
	DefaultRole      Role
	AllowAdminSignup bool
	// AutoLogin issues a token and registers a session as part of Register.
	AutoLogin bool
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the production defaults. Token.Secret is left empty
// and must be supplied.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			TTL:           24 * time.Hour,
			SigningMethod: "hs256",
		},
		Password: PasswordConfig{
			Algorithm:         string(password.AlgorithmBcrypt),
			BcryptCost:        password.DefaultBcryptCost,
			Argon2:            password.DefaultArgon2Config(),
			MinLength:         8,
			MaxLength:         128,
			RequireComplexity: true,
			UpgradeOnLogin:    true,
		},
		RateLimit: RateLimitConfig{
			Requests: 100,
			Window:   time.Minute,
			FailOpen: true,
			Prefix:   "rate_limit",
		},
		Session: SessionConfig{
			Prefix: "session",
		},
		Account: AccountConfig{
			DefaultRole:      RoleRider,
			AllowAdminSignup: false,
			AutoLogin:        false,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = cloneBytes(cfg.Token.Secret)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	if cfg.Token.VerifyKeys != nil {
		out.Token.VerifyKeys = make(map[string][]byte, len(cfg.Token.VerifyKeys))
		for kid, key := range cfg.Token.VerifyKeys {
			out.Token.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks cross-field invariants.
func (c *Config) Validate() error {
	// Token
	if c.Token.TTL < time.Second {
		return errors.New("Token TTL must be >= 1s")
	}
	method := strings.ToLower(strings.TrimSpace(c.Token.SigningMethod))
	switch jwt.SigningMethod(method) {
	case jwt.MethodHS256, jwt.MethodHS384, jwt.MethodHS512:
		if len(c.Token.Secret) < jwt.MinHMACKeyBytes {
			return fmt.Errorf("Token Secret must be at least %d bytes for %s", jwt.MinHMACKeyBytes, method)
		}
	case jwt.MethodEd25519:
		if len(c.Token.Secret) == 0 {
			return errors.New("ed25519 requires a private key in Token Secret")
		}
		if len(c.Token.PublicKey) == 0 && len(c.Token.VerifyKeys) == 0 {
			return errors.New("ed25519 requires Token PublicKey or VerifyKeys")
		}
	default:
		return errors.New("unsupported Token SigningMethod")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("Token Leeway must be between 0 and 2m")
	}

	// Password
	switch password.Algorithm(c.Password.Algorithm) {
	case password.AlgorithmBcrypt:
		if c.Password.BcryptCost < 10 || c.Password.BcryptCost > 31 {
			return errors.New("Password BcryptCost must be between 10 and 31")
		}
	case password.AlgorithmArgon2id:
		if c.Password.Argon2.Memory < 8*1024 {
			return errors.New("Password Argon2 Memory must be >= 8192 KB")
		}
		if c.Password.Argon2.Time < 1 || c.Password.Argon2.Parallelism < 1 {
			return errors.New("Password Argon2 Time and Parallelism must be >= 1")
		}
	default:
		return errors.New("unsupported Password Algorithm")
	}
	if c.Password.MinLength < 8 {
		return errors.New("Password MinLength must be >= 8")
	}
	if c.Password.MaxLength < c.Password.MinLength {
		return errors.New("Password MaxLength must be >= MinLength")
	}
	if c.Password.PoolSize < 0 {
		return errors.New("Password PoolSize must be >= 0")
	}

	// Rate limit
	if c.RateLimit.Requests <= 0 {
		return errors.New("RateLimit Requests must be > 0")
	}
	if c.RateLimit.Window < time.Second {
		return errors.New("RateLimit Window must be >= 1s")
	}

	// Account
	if !c.Account.DefaultRole.Valid() {
		return errors.New("Account DefaultRole is not a known role")
	}
	if c.Account.DefaultRole == RoleAdmin && !c.Account.AllowAdminSignup {
		return errors.New("Account DefaultRole admin requires AllowAdminSignup")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	return nil
}
