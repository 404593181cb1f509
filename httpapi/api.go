// Package httpapi serves the identity engine over JSON/HTTP under
// /api/users.
package httpapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/identity"
	"github.com/MrEthical07/identity/middleware"
)

// Service is the engine surface the API needs. *identity.Engine
// implements it.
type Service interface {
	Register(ctx context.Context, req identity.RegisterRequest) (*identity.RegisterResult, error)
	Login(ctx context.Context, email, password string) (*identity.LoginResult, error)
	Logout(ctx context.Context, token string) error
	VerifyToken(ctx context.Context, token string) (*identity.Claims, error)
	LogoutAll(ctx context.Context, token string) (int, error)
	ListSessions(ctx context.Context, token string) ([]identity.SessionInfo, error)
	Me(ctx context.Context, token string) (*identity.AccountView, error)
	UpdateProfile(ctx context.Context, token string, update identity.ProfileUpdate) (*identity.AccountView, error)
	SetAccountActive(ctx context.Context, adminToken, accountID string, active bool) error
}

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

// Options configures [New].
type Options struct {
	ServiceName string
	Version     string
	Logger      *slog.Logger

	// Checks are run concurrently by GET /ready, keyed by dependency name.
	Checks       map[string]Check
	ReadyTimeout time.Duration

	TrustProxy   bool
	CORSOrigins  []string
	MaxBodyBytes int64

	Now func() time.Time
}

const (
	defaultReadyTimeout = 5 * time.Second
	defaultMaxBodyBytes = 1 << 20
)

// API holds the handlers. Use [New] to get the wrapped http.Handler.
type API struct {
	svc    Service
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// New returns the complete handler: routes plus the middleware chain.
func New(svc Service, opts Options) (http.Handler, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = defaultReadyTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "identity"
	}

	a := &API{svc: svc, opts: opts, logger: opts.Logger, now: opts.Now}

	cors, err := middleware.CORS(opts.CORSOrigins)
	if err != nil {
		return nil, err
	}

	var h http.Handler = a.routes()
	h = cors(h)
	h = middleware.SecurityHeaders(h)
	h = middleware.Recover(a.logger, a.writeError)(h)
	h = middleware.RequestLogger(a.logger)(h)
	h = middleware.ClientIP(opts.TrustProxy)(h)
	h = middleware.CorrelationID(h)
	return h, nil
}

type route struct {
	method  string
	path    string
	handler http.HandlerFunc
}

func (a *API) routes() *http.ServeMux {
	table := []route{
		{http.MethodGet, "/health", a.handleHealth},
		{http.MethodGet, "/api/users/health", a.handleHealth},
		{http.MethodGet, "/ready", a.handleReady},
		{http.MethodGet, "/api/users/ready", a.handleReady},

		{http.MethodPost, "/api/users/register", a.handleRegister},
		{http.MethodPost, "/api/users/login", a.handleLogin},
		{http.MethodPost, "/api/users/logout", a.handleLogout},
		{http.MethodPost, "/api/users/verify-token", a.handleVerifyToken},
		{http.MethodPost, "/api/users/logout-all", a.handleLogoutAll},
		{http.MethodGet, "/api/users/sessions", a.handleSessions},
		{http.MethodGet, "/api/users/profile", a.handleProfile},
		{http.MethodPut, "/api/users/profile", a.handleUpdateProfile},
		{http.MethodPut, "/api/users/{id}/status", a.handleSetStatus},
	}

	mux := http.NewServeMux()
	allowed := make(map[string][]string)
	var paths []string
	for _, rt := range table {
		mux.HandleFunc(rt.method+" "+rt.path, rt.handler)
		if _, seen := allowed[rt.path]; !seen {
			paths = append(paths, rt.path)
		}
		allowed[rt.path] = append(allowed[rt.path], rt.method)
	}
	// A known path with the wrong method answers 405 in the JSON error shape.
	for _, path := range paths {
		allow := strings.Join(allowed[path], ", ")
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Allow", allow)
			a.writeStatus(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		})
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		a.writeStatus(w, r, http.StatusNotFound, "NOT_FOUND", "resource not found")
	})
	return mux
}
