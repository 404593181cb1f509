// Package config loads identityd settings from defaults, a YAML file, a
// .env file, IDENTITY_* environment variables and command-line flags, in
// that order of increasing precedence.
package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/MrEthical07/identity"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "IDENTITY_"

// Config is the complete service configuration.
type Config struct {
	HTTP      HTTP      `koanf:"http" envPrefix:"HTTP_"`
	Redis     Redis     `koanf:"redis" envPrefix:"REDIS_"`
	Database  Database  `koanf:"database" envPrefix:"DATABASE_"`
	Log       Log       `koanf:"log" envPrefix:"LOG_"`
	Metrics   Metrics   `koanf:"metrics" envPrefix:"METRICS_"`
	Tracing   Tracing   `koanf:"tracing" envPrefix:"TRACING_"`
	Token     Token     `koanf:"token" envPrefix:"TOKEN_"`
	Password  Password  `koanf:"password" envPrefix:"PASSWORD_"`
	RateLimit RateLimit `koanf:"rate_limit" envPrefix:"RATE_LIMIT_"`
	Account   Account   `koanf:"account" envPrefix:"ACCOUNT_"`
	Audit     Audit     `koanf:"audit" envPrefix:"AUDIT_"`

	// StartupTimeout bounds connection retries to Redis and PostgreSQL.
	StartupTimeout time.Duration `koanf:"startup_timeout" env:"STARTUP_TIMEOUT"`
}

type HTTP struct {
	Addr            string        `koanf:"addr" env:"ADDR"`
	TrustProxy      bool          `koanf:"trust_proxy" env:"TRUST_PROXY"`
	CORSOrigins     []string      `koanf:"cors_origins" env:"CORS_ORIGINS" envSeparator:","`
	MaxBodyBytes    int64         `koanf:"max_body_bytes" env:"MAX_BODY_BYTES"`
	ReadTimeout     time.Duration `koanf:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `koanf:"write_timeout" env:"WRITE_TIMEOUT"`
	ReadyTimeout    time.Duration `koanf:"ready_timeout" env:"READY_TIMEOUT"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

type Redis struct {
	URL string `koanf:"url" env:"URL"`
}

// Database selects the credential store. An empty URL keeps accounts in
// process memory.
type Database struct {
	URL string `koanf:"url" env:"URL"`
}

type Log struct {
	Level  string `koanf:"level" env:"LEVEL"`
	Format string `koanf:"format" env:"FORMAT"`
}

type Metrics struct {
	Enabled bool   `koanf:"enabled" env:"ENABLED"`
	Addr    string `koanf:"addr" env:"ADDR"`
}

// Tracing exports spans over OTLP/HTTP when Endpoint is set.
type Tracing struct {
	Endpoint    string  `koanf:"endpoint" env:"ENDPOINT"`
	Insecure    bool    `koanf:"insecure" env:"INSECURE"`
	SampleRatio float64 `koanf:"sample_ratio" env:"SAMPLE_RATIO"`
}

type Token struct {
	Secret    string        `koanf:"secret" env:"SECRET"`
	Algorithm string        `koanf:"algorithm" env:"ALGORITHM"`
	TTL       time.Duration `koanf:"ttl" env:"TTL"`
	Issuer    string        `koanf:"issuer" env:"ISSUER"`
	Audience  string        `koanf:"audience" env:"AUDIENCE"`
}

type Password struct {
	Algorithm  string `koanf:"algorithm" env:"ALGORITHM"`
	BcryptCost int    `koanf:"bcrypt_cost" env:"BCRYPT_COST"`
	MinLength  int    `koanf:"min_length" env:"MIN_LENGTH"`
	PoolSize   int    `koanf:"pool_size" env:"POOL_SIZE"`
}

type RateLimit struct {
	Requests int           `koanf:"requests" env:"REQUESTS"`
	Window   time.Duration `koanf:"window" env:"WINDOW"`
	FailOpen bool          `koanf:"fail_open" env:"FAIL_OPEN"`
}

type Account struct {
	DefaultRole      string `koanf:"default_role" env:"DEFAULT_ROLE"`
	AllowAdminSignup bool   `koanf:"allow_admin_signup" env:"ALLOW_ADMIN_SIGNUP"`
	AutoLogin        bool   `koanf:"auto_login" env:"AUTO_LOGIN"`
}

// Audit selects where audit events go: "log", "stdout" or "none".
type Audit struct {
	Sink string `koanf:"sink" env:"SINK"`
}

// Defaults returns the built-in settings.
func Defaults() Config {
	engine := identity.DefaultConfig()
	return Config{
		HTTP: HTTP{
			Addr:            ":8080",
			MaxBodyBytes:    1 << 20,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			ReadyTimeout:    5 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Redis: Redis{URL: "redis://localhost:6379/0"},
		Log:   Log{Level: "info", Format: "json"},
		Metrics: Metrics{
			Enabled: true,
			Addr:    ":9100",
		},
		Tracing: Tracing{SampleRatio: 1},
		Token: Token{
			Algorithm: engine.Token.SigningMethod,
			TTL:       engine.Token.TTL,
			Issuer:    "identity",
		},
		Password: Password{
			Algorithm:  engine.Password.Algorithm,
			BcryptCost: engine.Password.BcryptCost,
			MinLength:  engine.Password.MinLength,
		},
		RateLimit: RateLimit{
			Requests: engine.RateLimit.Requests,
			Window:   engine.RateLimit.Window,
			FailOpen: engine.RateLimit.FailOpen,
		},
		Account: Account{
			DefaultRole: string(engine.Account.DefaultRole),
		},
		Audit:          Audit{Sink: "log"},
		StartupTimeout: 30 * time.Second,
	}
}

// Options says where Load looks. Empty paths are skipped.
type Options struct {
	File   string
	DotEnv string
	Flags  *pflag.FlagSet
	// Environment replaces the process environment when non-nil.
	Environment map[string]string
}

// Load layers every source over [Defaults].
func Load(opts Options) (Config, error) {
	cfg := Defaults()

	if opts.File != "" {
		k := koanf.New(".")
		if err := k.Load(file.Provider(opts.File), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_FILE_INVALID").With("path", opts.File).Wrap(err)
		}
		if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
			return Config{}, oops.Code("CONFIG_FILE_INVALID").With("path", opts.File).Wrap(err)
		}
	}

	if opts.DotEnv != "" {
		// godotenv never overrides variables that are already set.
		if err := godotenv.Load(opts.DotEnv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, oops.Code("CONFIG_DOTENV_INVALID").With("path", opts.DotEnv).Wrap(err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{
		Prefix:      EnvPrefix,
		Environment: opts.Environment,
	}); err != nil {
		return Config{}, oops.Code("CONFIG_ENV_INVALID").Wrap(err)
	}

	if opts.Flags != nil {
		k := koanf.New(".")
		provider := posflag.ProviderWithFlag(opts.Flags, ".", nil, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, oops.Code("CONFIG_FLAGS_INVALID").Wrap(err)
		}
		if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
			return Config{}, oops.Code("CONFIG_FLAGS_INVALID").Wrap(err)
		}
	}

	return cfg, nil
}
