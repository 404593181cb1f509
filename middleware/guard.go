package middleware

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/MrEthical07/identity"
)

// TokenVerifier checks a bearer token. *identity.Engine implements it.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*identity.Claims, error)
}

// ErrorHandler writes the response for a rejected request.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type tokenContextKey struct{}

// TokenFromContext returns the bearer token accepted by [Guard].
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenContextKey{}).(string)
	return token, ok
}

// Guard rejects requests without a valid bearer token. Accepted requests
// carry the verified claims ([identity.ClaimsFromContext]) and the raw
// token ([TokenFromContext]).
func Guard(verifier TokenVerifier, onError ErrorHandler) func(http.Handler) http.Handler {
	if onError == nil {
		onError = plainError
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				onError(w, r, identity.ErrEngineNotReady)
				return
			}

			token, ok := BearerToken(r)
			if !ok {
				onError(w, r, fmt.Errorf("%w: missing bearer token", identity.ErrUnauthorized))
				return
			}

			claims, err := verifier.VerifyToken(r.Context(), token)
			if err != nil {
				onError(w, r, err)
				return
			}

			ctx := identity.WithClaims(r.Context(), claims)
			ctx = context.WithValue(ctx, tokenContextKey{}, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole admits requests whose claims carry one of roles. It must run
// after [Guard].
func RequireRole(onError ErrorHandler, roles ...identity.Role) func(http.Handler) http.Handler {
	if onError == nil {
		onError = plainError
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := identity.ClaimsFromContext(r.Context())
			if !ok {
				onError(w, r, identity.ErrUnauthorized)
				return
			}
			if !slices.Contains(roles, claims.Role) {
				onError(w, r, identity.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
// The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	value := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(value, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

func plainError(w http.ResponseWriter, _ *http.Request, err error) {
	kind := identity.KindOf(err)
	http.Error(w, kind.Message(), kind.Status())
}
