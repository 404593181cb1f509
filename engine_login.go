package identity

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
)

// Login authenticates email and password and starts a session. An unknown
// email, an inactive account and a wrong password all fail with the same
// [ErrInvalidCredentials] value. No token is returned unless its session
// was recorded.
func (e *Engine) Login(ctx context.Context, email, pw string) (_ *LoginResult, err error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	ctx, span := e.startSpan(ctx, "identity.Login")
	defer func() { endSpan(span, err) }()

	if err := e.allow(ctx, "login"); err != nil {
		return nil, err
	}

	account, err := e.credentials.FindByEmail(ctx, NormalizeEmail(email))
	switch {
	case errors.Is(err, ErrAccountNotFound):
		// Burn the same hashing work as a real comparison.
		_, _ = e.hasher.Verify(ctx, pw, e.dummyHash)
		return nil, e.loginFailed(ctx, "", "unknown_email")
	case err != nil:
		e.metrics.Inc(MetricDependencyFailure)
		return nil, unavailable(err)
	}

	ok, err := e.hasher.Verify(ctx, pw, account.PasswordHash)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		e.logger.ErrorContext(ctx, "stored password hash unusable", "account_id", account.ID, "error", err)
		return nil, e.loginFailed(ctx, account.ID, "bad_hash")
	}
	if !ok {
		return nil, e.loginFailed(ctx, account.ID, "wrong_password")
	}
	if !account.Active {
		return nil, e.loginFailed(ctx, account.ID, "inactive")
	}

	result, err := e.issueSession(ctx, account)
	if err != nil {
		e.emitAudit(ctx, auditEventLoginFailure, false, account.ID, "", err, func() map[string]string {
			return map[string]string{"reason": "session"}
		})
		return nil, err
	}

	span.SetAttributes(attribute.String("account.id", account.ID))
	e.metrics.Inc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, account.ID, "", nil, nil)

	if e.config.Password.UpgradeOnLogin {
		e.upgradeHash(ctx, account, pw)
	}
	return result, nil
}

func (e *Engine) loginFailed(ctx context.Context, accountID, reason string) error {
	e.metrics.Inc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, accountID, "", ErrInvalidCredentials, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return ErrInvalidCredentials
}

// upgradeHash rehashes pw with the configured parameters when the stored
// hash is weaker. Failures are logged and never fail the login.
func (e *Engine) upgradeHash(ctx context.Context, account *Account, pw string) {
	needs, err := e.hasher.NeedsUpgrade(account.PasswordHash)
	if err != nil || !needs {
		return
	}
	hash, err := e.hasher.Hash(ctx, pw)
	if err != nil {
		e.logger.WarnContext(ctx, "password rehash failed", "account_id", account.ID, "error", err)
		return
	}
	updated := *account
	updated.PasswordHash = hash
	updated.UpdatedAt = e.now().UTC()
	if err := e.credentials.Update(ctx, updated); err != nil {
		e.logger.WarnContext(ctx, "storing rehashed password failed", "account_id", account.ID, "error", err)
		return
	}
	e.metrics.Inc(MetricPasswordRehash)
	e.emitAudit(ctx, auditEventPasswordRehash, true, account.ID, "", nil, nil)
}
