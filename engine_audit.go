package identity

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventRegisterSuccess  = "register_success"
	auditEventRegisterFailure  = "register_failure"
	auditEventLoginSuccess     = "login_success"
	auditEventLoginFailure     = "login_failure"
	auditEventLogout           = "logout"
	auditEventLogoutAll        = "logout_all"
	auditEventVerifyFailure    = "verify_failure"
	auditEventRateLimited      = "rate_limit_triggered"
	auditEventPasswordRehash   = "password_rehash"
	auditEventProfileUpdate    = "profile_update"
	auditEventAccountStatus    = "account_status_change"
	auditEventSessionListFetch = "session_list"
)

// AuditErrorCode is the coarse failure reason recorded in audit events.
type AuditErrorCode string

const (
	auditErrValidation         AuditErrorCode = "validation"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrUnauthorized       AuditErrorCode = "unauthorized"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrForbidden          AuditErrorCode = "forbidden"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	accountID string,
	tokenID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:     e.now().UTC(),
		EventType:     eventType,
		AccountID:     accountID,
		TokenID:       tokenID,
		IP:            ClientIPFromContext(ctx),
		UserAgent:     userAgentFromContext(ctx),
		CorrelationID: CorrelationIDFromContext(ctx),
		Success:       success,
		Metadata:      metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(ctx context.Context, operation string, retryAfter time.Duration) {
	e.metrics.Inc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimited, false, "", "", ErrRateLimited, func() map[string]string {
		return map[string]string{
			"operation":   operation,
			"retry_after": retryAfter.Round(time.Second).String(),
		}
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.Is(err, ErrConflict), errors.Is(err, ErrAccountExists):
		return auditErrDuplicate
	case errors.Is(err, ErrForbidden):
		return auditErrForbidden
	case errors.Is(err, ErrDependencyUnavailable):
		return auditErrUnavailable
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	default:
		return auditErrInternal
	}
}
