package identity

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/identity/internal/audit"
	"github.com/MrEthical07/identity/internal/rate"
	"github.com/MrEthical07/identity/jwt"
	"github.com/MrEthical07/identity/password"
	"github.com/MrEthical07/identity/session"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Engine implements account registration, login, logout and token
// verification. It holds no authoritative state of its own: sessions and
// rate-limit counters live in the shared store, accounts in the credential
// store, so any number of replicas can serve the same clients.
//
// Engine is safe for concurrent use.
type Engine struct {
	config      Config
	credentials CredentialStore
	sessions    *session.Registry
	limiter     *rate.Limiter
	hasher      *password.Pool
	dummyHash   string
	tokens      *jwt.Manager
	audit       *audit.Dispatcher
	metrics     *Metrics
	logger      *slog.Logger
	tracer      trace.Tracer
	now         func() time.Time
	closed      atomic.Bool
}

// Close drains pending audit events. Operations after Close fail with
// [ErrEngineNotReady].
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.closed.Swap(true) {
		return
	}
	e.audit.Close()
}

// Ready checks that the session store and the credential store respond.
func (e *Engine) Ready(ctx context.Context) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.sessions.Ping(ctx); err != nil {
		return unavailable(err)
	}
	if err := e.credentials.Ping(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}

// AuditDropped reports audit events discarded under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return NewMetrics(MetricsConfig{}).Snapshot()
	}
	return e.metrics.Snapshot()
}

// TokenTTL is the lifetime of tokens issued by Login.
func (e *Engine) TokenTTL() time.Duration {
	return e.config.Token.TTL
}

func (e *Engine) ready() error {
	if e == nil || e.tokens == nil || e.closed.Load() {
		return ErrEngineNotReady
	}
	return nil
}

// allow is the rate-limit gate every public operation passes first.
func (e *Engine) allow(ctx context.Context, operation string) error {
	d, err := e.limiter.Allow(ctx, ClientIPFromContext(ctx))
	switch {
	case errors.Is(err, rate.ErrRateLimited):
		e.emitRateLimit(ctx, operation, d.RetryAfter)
		return &RateLimitError{RetryAfter: d.RetryAfter}
	case err != nil:
		e.metrics.Inc(MetricDependencyFailure)
		e.logger.ErrorContext(ctx, "rate limit store unavailable", "operation", operation, "error", err)
		return unavailable(err)
	}
	if d.Degraded {
		e.metrics.Inc(MetricRateLimitDegraded)
	}
	return nil
}

func (e *Engine) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("client.ip", ClientIPFromContext(ctx)),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(KindOf(err)))
	}
	span.End()
}

// issueSession mints a token for account and records its session. When the
// session cannot be recorded the token is discarded.
func (e *Engine) issueSession(ctx context.Context, account *Account) (*LoginResult, error) {
	issued, err := e.tokens.Issue(account.ID, string(account.Role), e.config.Token.TTL)
	if err != nil {
		return nil, err
	}
	if err := e.sessions.Register(ctx, issued.ID, account.ID, issued.IssuedAt, issued.ExpiresAt); err != nil {
		e.metrics.Inc(MetricDependencyFailure)
		return nil, unavailable(err)
	}
	e.metrics.Inc(MetricSessionCreated)

	return &LoginResult{
		Token:     issued.Token,
		TokenType: "bearer",
		ExpiresAt: issued.ExpiresAt,
		Account:   account.View(),
	}, nil
}

// authenticate verifies token cryptographically and against the session
// registry. Every failure matches ErrUnauthorized; registry outages also
// match ErrDependencyUnavailable.
func (e *Engine) authenticate(ctx context.Context, token string) (*Claims, error) {
	claims, err := e.tokens.Verify(token)
	if err != nil {
		return nil, unauthorized(err)
	}
	role := Role(claims.Role)
	if !role.Valid() {
		return nil, unauthorized(jwt.ErrInvalidClaims)
	}

	valid, err := e.sessions.IsValid(ctx, claims.TokenID())
	if err != nil {
		e.metrics.Inc(MetricDependencyFailure)
		return nil, unauthorized(unavailable(err))
	}
	if !valid {
		return nil, unauthorized(session.ErrNotFound)
	}

	out := &Claims{
		AccountID: claims.AccountID(),
		Role:      role,
		TokenID:   claims.TokenID(),
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// lookup maps credential store errors onto the engine taxonomy.
func (e *Engine) lookup(ctx context.Context, accountID string) (*Account, error) {
	account, err := e.credentials.FindByID(ctx, accountID)
	switch {
	case errors.Is(err, ErrAccountNotFound):
		return nil, unauthorized(err)
	case err != nil:
		e.metrics.Inc(MetricDependencyFailure)
		return nil, unavailable(err)
	}
	return account, nil
}
