package identity

import (
	"context"
	"errors"
	"strconv"

	"github.com/MrEthical07/identity/jwt"
	"github.com/MrEthical07/identity/session"
	"go.opentelemetry.io/otel/attribute"
)

// VerifyToken returns the claims of a token whose signature and expiry
// verify and whose session is still registered. Failures match
// [ErrUnauthorized] and keep the cause inspectable, e.g. [jwt.ErrExpired].
// If the session registry is unreachable the token is rejected and the
// error also matches [ErrDependencyUnavailable].
func (e *Engine) VerifyToken(ctx context.Context, token string) (_ *Claims, err error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	ctx, span := e.startSpan(ctx, "identity.VerifyToken")
	defer func() { endSpan(span, err) }()

	if err := e.allow(ctx, "verify_token"); err != nil {
		return nil, err
	}

	start := e.now()
	claims, err := e.authenticate(ctx, token)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricVerifyLatency, e.now().Sub(start))
	}
	if err != nil {
		e.metrics.Inc(MetricVerifyFailure)
		e.emitAudit(ctx, auditEventVerifyFailure, false, "", "", err, func() map[string]string {
			return map[string]string{"reason": verifyFailureReason(err)}
		})
		return nil, err
	}

	span.SetAttributes(attribute.String("account.id", claims.AccountID))
	e.metrics.Inc(MetricVerifySuccess)
	return claims, nil
}

// Logout revokes the session of token. Revoking an already revoked or
// expired-from-storage session succeeds.
func (e *Engine) Logout(ctx context.Context, token string) (err error) {
	if err := e.ready(); err != nil {
		return err
	}
	ctx, span := e.startSpan(ctx, "identity.Logout")
	defer func() { endSpan(span, err) }()

	if err := e.allow(ctx, "logout"); err != nil {
		return err
	}

	claims, err := e.tokens.Verify(token)
	if err != nil {
		return unauthorized(err)
	}
	if err := e.sessions.Revoke(ctx, claims.TokenID()); err != nil {
		e.metrics.Inc(MetricDependencyFailure)
		return unavailable(err)
	}

	e.metrics.Inc(MetricLogout)
	e.metrics.Inc(MetricSessionRevoked)
	e.emitAudit(ctx, auditEventLogout, true, claims.AccountID(), claims.TokenID(), nil, nil)
	return nil
}

// LogoutAll revokes every active session of the token's account, including
// the caller's own, and returns how many were revoked.
func (e *Engine) LogoutAll(ctx context.Context, token string) (_ int, err error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	ctx, span := e.startSpan(ctx, "identity.LogoutAll")
	defer func() { endSpan(span, err) }()

	if err := e.allow(ctx, "logout_all"); err != nil {
		return 0, err
	}
	claims, err := e.authenticate(ctx, token)
	if err != nil {
		return 0, err
	}

	n, err := e.sessions.RevokeAll(ctx, claims.AccountID)
	if err != nil {
		e.metrics.Inc(MetricDependencyFailure)
		return 0, unavailable(err)
	}

	e.metrics.Inc(MetricLogoutAll)
	e.metrics.Add(MetricSessionRevoked, uint64(n))
	e.emitAudit(ctx, auditEventLogoutAll, true, claims.AccountID, claims.TokenID, nil, func() map[string]string {
		return map[string]string{"revoked": strconv.Itoa(n)}
	})
	return n, nil
}

// ListSessions returns the active sessions of the token's account, oldest
// first.
func (e *Engine) ListSessions(ctx context.Context, token string) (_ []SessionInfo, err error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	ctx, span := e.startSpan(ctx, "identity.ListSessions")
	defer func() { endSpan(span, err) }()

	if err := e.allow(ctx, "list_sessions"); err != nil {
		return nil, err
	}
	claims, err := e.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}

	entries, err := e.sessions.Active(ctx, claims.AccountID)
	if err != nil {
		e.metrics.Inc(MetricDependencyFailure)
		return nil, unavailable(err)
	}

	out := make([]SessionInfo, 0, len(entries))
	for _, entry := range entries {
		out = append(out, SessionInfo{
			TokenID:   entry.TokenID,
			IssuedAt:  entry.IssuedAt,
			ExpiresAt: entry.ExpiresAt,
			Current:   entry.TokenID == claims.TokenID,
		})
	}
	e.emitAudit(ctx, auditEventSessionListFetch, true, claims.AccountID, claims.TokenID, nil, nil)
	return out, nil
}

func verifyFailureReason(err error) string {
	switch {
	case errors.Is(err, ErrDependencyUnavailable):
		return "registry_unavailable"
	case errors.Is(err, jwt.ErrExpired):
		return "expired"
	case errors.Is(err, jwt.ErrInvalidSignature):
		return "signature"
	case errors.Is(err, jwt.ErrMalformed):
		return "malformed"
	case errors.Is(err, session.ErrNotFound):
		return "revoked"
	default:
		return "claims"
	}
}
