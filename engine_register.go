package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/identity/password"
	"github.com/google/uuid"
)

// Register creates an account. The email must not be registered yet; the
// password is hashed before anything is stored. When Account.AutoLogin is
// enabled the result also carries a token for a freshly registered session,
// unless that session could not be recorded; the account stays registered
// either way.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (_ *RegisterResult, err error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	ctx, span := e.startSpan(ctx, "identity.Register")
	defer func() { endSpan(span, err) }()

	if err := e.allow(ctx, "register"); err != nil {
		return nil, err
	}

	account, err := e.validateRegistration(req)
	if err != nil {
		e.registerFailed(ctx, err, "validation")
		return nil, err
	}
	if account.Role == RoleAdmin && !e.config.Account.AllowAdminSignup {
		err = fmt.Errorf("%w: admin accounts cannot self-register", ErrForbidden)
		e.registerFailed(ctx, err, "admin_signup")
		return nil, err
	}

	_, err = e.credentials.FindByEmail(ctx, account.Email)
	switch {
	case err == nil:
		e.metrics.Inc(MetricRegisterConflict)
		err = fmt.Errorf("%w: email already registered", ErrConflict)
		e.registerFailed(ctx, err, "duplicate_email")
		return nil, err
	case !errors.Is(err, ErrAccountNotFound):
		e.metrics.Inc(MetricDependencyFailure)
		err = unavailable(err)
		e.registerFailed(ctx, err, "lookup")
		return nil, err
	}

	hash, err := e.hasher.Hash(ctx, req.Password)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) {
			err = invalid("password", "is too long")
		}
		e.registerFailed(ctx, err, "hash")
		return nil, err
	}

	now := e.now().UTC()
	account.ID = uuid.NewString()
	account.PasswordHash = hash
	account.Active = true
	account.CreatedAt = now
	account.UpdatedAt = now

	created, err := e.credentials.Create(ctx, account)
	switch {
	case errors.Is(err, ErrAccountExists):
		e.metrics.Inc(MetricRegisterConflict)
		err = fmt.Errorf("%w: %w", ErrConflict, err)
		e.registerFailed(ctx, err, "duplicate")
		return nil, err
	case err != nil:
		e.metrics.Inc(MetricDependencyFailure)
		err = unavailable(err)
		e.registerFailed(ctx, err, "create")
		return nil, err
	}

	e.metrics.Inc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, created.ID, "", nil, func() map[string]string {
		return map[string]string{"role": string(created.Role)}
	})
	e.logger.InfoContext(ctx, "account registered", "account_id", created.ID, "role", created.Role)

	result := &RegisterResult{Account: created.View()}
	if !e.config.Account.AutoLogin {
		return result, nil
	}

	// The account is stored at this point. A session failure leaves the
	// result without a token and the client logs in separately.
	login, err := e.issueSession(ctx, &created)
	if err != nil {
		e.logger.WarnContext(ctx, "auto-login after registration failed", "account_id", created.ID, "error", err)
		e.emitAudit(ctx, auditEventLoginFailure, false, created.ID, "", err, func() map[string]string {
			return map[string]string{"source": "register", "reason": "session"}
		})
		return result, nil
	}
	e.metrics.Inc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, created.ID, "", nil, func() map[string]string {
		return map[string]string{"source": "register"}
	})
	result.Login = login
	return result, nil
}

func (e *Engine) registerFailed(ctx context.Context, err error, reason string) {
	e.metrics.Inc(MetricRegisterFailure)
	e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", err, func() map[string]string {
		return map[string]string{"reason": reason}
	})
}
