package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrEthical07/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVerifier struct {
	claims *identity.Claims
	err    error
	got    string
}

func (f *fakeVerifier) VerifyToken(_ context.Context, token string) (*identity.Claims, error) {
	f.got = token
	return f.claims, f.err
}

func okHandler(t *testing.T, check func(r *http.Request)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestGuard(t *testing.T) {
	claims := &identity.Claims{AccountID: "a1", Role: identity.RoleRider, TokenID: "t1"}

	tests := []struct {
		name       string
		header     string
		verifier   *fakeVerifier
		wantStatus int
	}{
		{"valid", "Bearer tok", &fakeVerifier{claims: claims}, http.StatusOK},
		{"lower-case scheme", "bearer tok", &fakeVerifier{claims: claims}, http.StatusOK},
		{"missing header", "", &fakeVerifier{claims: claims}, http.StatusUnauthorized},
		{"basic auth", "Basic Zm9vOmJhcg==", &fakeVerifier{claims: claims}, http.StatusUnauthorized},
		{"empty token", "Bearer   ", &fakeVerifier{claims: claims}, http.StatusUnauthorized},
		{"rejected", "Bearer tok", &fakeVerifier{err: identity.ErrUnauthorized}, http.StatusUnauthorized},
		{"registry down", "Bearer tok", &fakeVerifier{err: fmtUnavailable()}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Guard(tt.verifier, nil)(okHandler(t, func(r *http.Request) {
				got, ok := identity.ClaimsFromContext(r.Context())
				require.True(t, ok)
				assert.Equal(t, "a1", got.AccountID)
				token, ok := TokenFromContext(r.Context())
				require.True(t, ok)
				assert.Equal(t, "tok", token)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func fmtUnavailable() error {
	return errors.Join(identity.ErrUnauthorized, identity.ErrDependencyUnavailable)
}

func TestGuardCustomErrorHandler(t *testing.T) {
	var seen error
	h := Guard(&fakeVerifier{err: identity.ErrUnauthorized}, func(w http.ResponseWriter, _ *http.Request, err error) {
		seen = err
		w.WriteHeader(http.StatusTeapot)
	})(okHandler(t, nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer x")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.ErrorIs(t, seen, identity.ErrUnauthorized)
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(nil, identity.RoleAdmin)(okHandler(t, nil))

	run := func(ctx context.Context) int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/", nil).WithContext(ctx))
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, run(context.Background()))
	assert.Equal(t, http.StatusForbidden, run(identity.WithClaims(context.Background(), &identity.Claims{Role: identity.RoleDriver})))
	assert.Equal(t, http.StatusOK, run(identity.WithClaims(context.Background(), &identity.Claims{Role: identity.RoleAdmin})))
}

func TestCorrelationID(t *testing.T) {
	var inCtx string
	h := CorrelationID(okHandler(t, func(r *http.Request) {
		inCtx = identity.CorrelationIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(CorrelationHeader))
	assert.Equal(t, "abc-123", inCtx)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationHeader, "bad value\n")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	generated := rec.Header().Get(CorrelationHeader)
	assert.Len(t, generated, 26, "expected a ULID")
	assert.Equal(t, generated, inCtx)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		headers    map[string]string
		want       string
	}{
		{"remote addr", false, nil, "192.0.2.1"},
		{"ignores forwarded without trust", false, map[string]string{"X-Forwarded-For": "203.0.113.5"}, "192.0.2.1"},
		{"forwarded last hop", true, map[string]string{"X-Forwarded-For": "203.0.113.5, 198.51.100.7"}, "198.51.100.7"},
		{"spoofed leading hop ignored", true, map[string]string{"X-Forwarded-For": "1.2.3.4, 203.0.113.5"}, "203.0.113.5"},
		{"real ip", true, map[string]string{"X-Real-IP": "203.0.113.6"}, "203.0.113.6"},
		{"garbage forwarded", true, map[string]string{"X-Forwarded-For": "nope"}, "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := ClientIP(tt.trustProxy)(okHandler(t, func(r *http.Request) {
				got = identity.ClientIPFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.0.2.1:4242"
			req.Header.Set("User-Agent", "tester")
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := CorrelationID(RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte("{}"))
	})))
	req := httptest.NewRequest(http.MethodPost, "/api/users/register", nil)
	req.Header.Set("User-Agent", "tester")
	h.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "POST", line["method"])
	assert.Equal(t, "/api/users/register", line["path"])
	assert.EqualValues(t, 409, line["status"])
	assert.Equal(t, "tester", line["user_agent"])
	assert.NotEmpty(t, line["correlation_id"])
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler(t, nil)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestCORS(t *testing.T) {
	mw, err := CORS([]string{"https://app.example.com", "https://*.rides.example.com"})
	require.NoError(t, err)
	h := mw(okHandler(t, nil))

	tests := []struct {
		name       string
		method     string
		origin     string
		preflight  bool
		wantAllow  string
		wantStatus int
	}{
		{"exact", http.MethodGet, "https://app.example.com", false, "https://app.example.com", http.StatusOK},
		{"wildcard subdomain", http.MethodGet, "https://eu.rides.example.com", false, "https://eu.rides.example.com", http.StatusOK},
		{"wildcard does not cross dots", http.MethodGet, "https://a.b.rides.example.com", false, "", http.StatusOK},
		{"unknown origin", http.MethodGet, "https://evil.test", false, "", http.StatusOK},
		{"preflight allowed", http.MethodOptions, "https://app.example.com", true, "https://app.example.com", http.StatusNoContent},
		{"preflight denied", http.MethodOptions, "https://evil.test", true, "", http.StatusForbidden},
		{"no origin", http.MethodGet, "", false, "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantAllow, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}

	_, err = CORS([]string{"https://[unterminated"})
	assert.Error(t, err)
}

func TestRecover(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := Recover(logger, nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "panic in handler")
	assert.NotContains(t, rec.Body.String(), "boom")
}
