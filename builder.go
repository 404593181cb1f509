package identity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/MrEthical07/identity/internal/audit"
	"github.com/MrEthical07/identity/internal/rate"
	"github.com/MrEthical07/identity/jwt"
	"github.com/MrEthical07/identity/kv"
	"github.com/MrEthical07/identity/password"
	"github.com/MrEthical07/identity/session"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/MrEthical07/identity"

// Builder assembles an [Engine]. Configure it during initialization and call
// Build once.
type Builder struct {
	config Config

	redis       redis.UniversalClient
	store       kv.Store
	credentials CredentialStore
	auditSink   AuditSink
	logger      *slog.Logger
	tracers     trace.TracerProvider
	now         func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing the session registry and rate limiter.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithKVStore sets the shared store directly, taking precedence over
// WithRedis.
func (b *Builder) WithKVStore(store kv.Store) *Builder {
	b.store = store
	return b
}

func (b *Builder) WithCredentialStore(store CredentialStore) *Builder {
	b.credentials = store
	return b
}

// WithAuditSink sets the audit destination. It has no effect unless
// Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func (b *Builder) WithTracerProvider(tp trace.TracerProvider) *Builder {
	b.tracers = tp
	return b
}

// WithClock overrides the time source of the engine and every component it
// builds.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store := b.store
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("redis client or kv store required")
		}
		store = kv.NewRedis(b.redis)
	}
	if b.credentials == nil {
		return nil, errors.New("credential store required")
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := b.now
	if now == nil {
		now = time.Now
	}
	tracers := b.tracers
	if tracers == nil {
		tracers = otel.GetTracerProvider()
	}

	// -------- TOKENS --------
	tokens, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.Token.SigningMethod),
		PrivateKey:    cloneBytes(cfg.Token.Secret),
		PublicKey:     cloneBytes(cfg.Token.PublicKey),
		Issuer:        cfg.Token.Issuer,
		Audience:      cfg.Token.Audience,
		Leeway:        cfg.Token.Leeway,
		KeyID:         cfg.Token.KeyID,
		VerifyKeys:    cfg.Token.VerifyKeys,
	}, jwt.WithClock(now))
	if err != nil {
		return nil, err
	}

	// -------- PASSWORDS --------
	hasher, err := password.New(password.Config{
		Algorithm:  password.Algorithm(cfg.Password.Algorithm),
		BcryptCost: cfg.Password.BcryptCost,
		Argon2:     cfg.Password.Argon2,
	})
	if err != nil {
		return nil, err
	}
	pool := password.NewPool(hasher, cfg.Password.PoolSize)
	dummy, err := pool.Hash(context.Background(), "identity-timing-equalizer")
	if err != nil {
		return nil, err
	}

	// -------- SHARED STORE --------
	limiter, err := rate.New(store, rate.Config{
		Limit:    cfg.RateLimit.Requests,
		Window:   cfg.RateLimit.Window,
		FailOpen: cfg.RateLimit.FailOpen,
		Prefix:   cfg.RateLimit.Prefix,
	}, rate.WithClock(now), rate.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	sessions := session.NewRegistry(store, cfg.Session.Prefix, session.WithClock(now))

	engine := &Engine{
		config:      cfg,
		credentials: b.credentials,
		sessions:    sessions,
		limiter:     limiter,
		hasher:      pool,
		dummyHash:   dummy,
		tokens:      tokens,
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
		logger:  logger,
		tracer:  tracers.Tracer(tracerName),
		now:     now,
	}

	b.built = true

	return engine, nil
}
