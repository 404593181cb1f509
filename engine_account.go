package identity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Me returns the account behind token.
func (e *Engine) Me(ctx context.Context, token string) (_ *AccountView, err error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	ctx, span := e.startSpan(ctx, "identity.Me")
	defer func() { endSpan(span, err) }()

	if err := e.allow(ctx, "me"); err != nil {
		return nil, err
	}
	claims, err := e.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	account, err := e.lookup(ctx, claims.AccountID)
	if err != nil {
		return nil, err
	}
	view := account.View()
	return &view, nil
}

// UpdateProfile changes the names and phone of the token's account.
func (e *Engine) UpdateProfile(ctx context.Context, token string, update ProfileUpdate) (_ *AccountView, err error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	ctx, span := e.startSpan(ctx, "identity.UpdateProfile")
	defer func() { endSpan(span, err) }()

	if err := e.allow(ctx, "update_profile"); err != nil {
		return nil, err
	}
	claims, err := e.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	account, err := e.lookup(ctx, claims.AccountID)
	if err != nil {
		return nil, err
	}

	changed := make([]string, 0, 3)
	if update.FirstName != nil {
		if account.FirstName, err = validateName("first_name", *update.FirstName); err != nil {
			return nil, err
		}
		changed = append(changed, "first_name")
	}
	if update.LastName != nil {
		if account.LastName, err = validateName("last_name", *update.LastName); err != nil {
			return nil, err
		}
		changed = append(changed, "last_name")
	}
	if update.Phone != nil {
		if account.Phone, err = normalizePhone(*update.Phone); err != nil {
			return nil, err
		}
		changed = append(changed, "phone")
	}
	if len(changed) == 0 {
		return nil, invalid("", "no fields to update")
	}

	account.UpdatedAt = e.now().UTC()
	if err := e.credentials.Update(ctx, *account); err != nil {
		if errors.Is(err, ErrAccountExists) {
			return nil, fmt.Errorf("%w: %w", ErrConflict, err)
		}
		e.metrics.Inc(MetricDependencyFailure)
		return nil, unavailable(err)
	}

	e.metrics.Inc(MetricProfileUpdated)
	e.emitAudit(ctx, auditEventProfileUpdate, true, account.ID, claims.TokenID, nil, func() map[string]string {
		return map[string]string{"fields": strings.Join(changed, ",")}
	})
	view := account.View()
	return &view, nil
}

// SetAccountActive activates or deactivates accountID. Only admins may call
// it. Deactivation revokes every session of the target account.
func (e *Engine) SetAccountActive(ctx context.Context, adminToken, accountID string, active bool) (err error) {
	if err := e.ready(); err != nil {
		return err
	}
	ctx, span := e.startSpan(ctx, "identity.SetAccountActive")
	defer func() { endSpan(span, err) }()

	if err := e.allow(ctx, "set_account_active"); err != nil {
		return err
	}
	claims, err := e.authenticate(ctx, adminToken)
	if err != nil {
		return err
	}
	if claims.Role != RoleAdmin {
		return fmt.Errorf("%w: admin role required", ErrForbidden)
	}

	target, err := e.credentials.FindByID(ctx, accountID)
	switch {
	case errors.Is(err, ErrAccountNotFound):
		return err
	case err != nil:
		e.metrics.Inc(MetricDependencyFailure)
		return unavailable(err)
	}

	if target.Active != active {
		target.Active = active
		target.UpdatedAt = e.now().UTC()
		if err := e.credentials.Update(ctx, *target); err != nil {
			e.metrics.Inc(MetricDependencyFailure)
			return unavailable(err)
		}
	}

	revoked := 0
	if !active {
		revoked, err = e.sessions.RevokeAll(ctx, target.ID)
		if err != nil {
			e.metrics.Inc(MetricDependencyFailure)
			return unavailable(err)
		}
		e.metrics.Inc(MetricAccountDeactivated)
		e.metrics.Add(MetricSessionRevoked, uint64(revoked))
	}

	e.emitAudit(ctx, auditEventAccountStatus, true, target.ID, "", nil, func() map[string]string {
		return map[string]string{
			"active":   strconv.FormatBool(active),
			"actor_id": claims.AccountID,
			"revoked":  strconv.Itoa(revoked),
		}
	})
	return nil
}
