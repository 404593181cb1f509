package identity_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/identity"
	"github.com/MrEthical07/identity/credstore/memory"
	"github.com/MrEthical07/identity/jwt"
	"github.com/MrEthical07/identity/kv"
	"github.com/MrEthical07/identity/password"
	"github.com/MrEthical07/identity/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

func TestLoginThenVerifyRoundTrip(t *testing.T) {
	env := newTestEnv(t, nil)
	account := env.register(t, "Rider@Example.com", "")

	if account.Email != "rider@example.com" {
		t.Fatalf("email not normalized: %q", account.Email)
	}
	if account.Role != identity.RoleRider {
		t.Fatalf("default role = %q", account.Role)
	}

	res := env.login(t, "  RIDER@example.com ")
	if res.TokenType != "bearer" || res.Token == "" {
		t.Fatalf("unexpected login result: %+v", res)
	}
	if want := env.clock.Now().Add(time.Hour); !res.ExpiresAt.Equal(want) {
		t.Fatalf("ExpiresAt = %v, want %v", res.ExpiresAt, want)
	}
	if res.Account.ID != account.ID {
		t.Fatalf("login returned account %q, want %q", res.Account.ID, account.ID)
	}

	claims, err := env.engine.VerifyToken(withIP("10.0.0.3"), res.Token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if claims.AccountID != account.ID || claims.Role != identity.RoleRider || claims.TokenID == "" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "a@example.com", "")
	res := env.login(t, "a@example.com")

	if err := env.engine.Logout(withIP("10.0.0.2"), res.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	_, err := env.engine.VerifyToken(withIP("10.0.0.2"), res.Token)
	if !errors.Is(err, identity.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after logout, got %v", err)
	}
	if !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected revoked cause, got %v", err)
	}
}

func TestDoubleLogoutSucceeds(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "a@example.com", "")
	res := env.login(t, "a@example.com")

	for i := 0; i < 2; i++ {
		if err := env.engine.Logout(withIP("10.0.0.2"), res.Token); err != nil {
			t.Fatalf("Logout #%d: %v", i+1, err)
		}
	}
}

func TestLogoutRejectsForgedToken(t *testing.T) {
	env := newTestEnv(t, nil)
	err := env.engine.Logout(withIP("10.0.0.2"), "not-a-token")
	if !errors.Is(err, identity.ErrUnauthorized) || !errors.Is(err, jwt.ErrMalformed) {
		t.Fatalf("expected unauthorized malformed error, got %v", err)
	}
}

func TestWrongPasswordIndistinguishableFromUnknownEmail(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "known@example.com", "")

	_, wrongPassword := env.engine.Login(withIP("10.0.0.2"), "known@example.com", "Wr0ng!Pass")
	_, unknownEmail := env.engine.Login(withIP("10.0.0.2"), "nobody@example.com", testPassword)

	if wrongPassword != identity.ErrInvalidCredentials || unknownEmail != identity.ErrInvalidCredentials {
		t.Fatalf("expected the same ErrInvalidCredentials value, got %v and %v", wrongPassword, unknownEmail)
	}
	if wrongPassword.Error() != unknownEmail.Error() {
		t.Fatalf("messages differ: %q vs %q", wrongPassword, unknownEmail)
	}
}

func TestInactiveAccountLooksLikeWrongPassword(t *testing.T) {
	env := newTestEnv(t, nil)
	account := env.register(t, "a@example.com", "")

	stored, err := env.store.FindByID(context.Background(), account.ID)
	if err != nil {
		t.Fatal(err)
	}
	stored.Active = false
	if err := env.store.Update(context.Background(), *stored); err != nil {
		t.Fatal(err)
	}

	_, err = env.engine.Login(withIP("10.0.0.2"), "a@example.com", testPassword)
	if err != identity.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestRateLimitWindow(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := withIP("203.0.113.9")

	for i := 1; i <= 100; i++ {
		_, err := env.engine.VerifyToken(ctx, "garbage")
		if !errors.Is(err, identity.ErrUnauthorized) {
			t.Fatalf("request %d: expected unauthorized, got %v", i, err)
		}
	}

	_, err := env.engine.VerifyToken(ctx, "garbage")
	var rle *identity.RateLimitError
	if !errors.As(err, &rle) {
		t.Fatalf("request 101: expected RateLimitError, got %v", err)
	}
	if rle.RetryAfter != time.Minute {
		t.Fatalf("RetryAfter = %v, want 1m", rle.RetryAfter)
	}
	if identity.KindOf(err) != identity.KindRateLimited {
		t.Fatalf("KindOf = %s", identity.KindOf(err))
	}

	// Other clients have their own budget.
	if _, err := env.engine.VerifyToken(withIP("203.0.113.10"), "garbage"); errors.Is(err, identity.ErrRateLimited) {
		t.Fatal("unrelated client was rate limited")
	}

	env.clock.Advance(time.Minute)
	_, err = env.engine.VerifyToken(ctx, "garbage")
	if errors.Is(err, identity.ErrRateLimited) {
		t.Fatalf("first request of the next window was rejected: %v", err)
	}
}

func TestRateLimitPrecedesMutation(t *testing.T) {
	env := newTestEnv(t, func(cfg *identity.Config) {
		cfg.RateLimit.Requests = 1
	})
	env.register(t, "first@example.com", "")

	_, err := env.engine.Register(withIP("10.0.0.1"), identity.RegisterRequest{
		Email: "second@example.com", Password: testPassword, FirstName: "S", LastName: "U",
	})
	if !errors.Is(err, identity.ErrRateLimited) {
		t.Fatalf("expected rate limit, got %v", err)
	}
	if n := env.store.Len(); n != 1 {
		t.Fatalf("store has %d accounts, want 1", n)
	}
}

func TestExpiredTokenWithLiveSessionEntry(t *testing.T) {
	env := newTestEnv(t, nil)
	now := env.clock.Now()

	issuer, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    testSecret,
	}, jwt.WithClock(env.clock.Now))
	if err != nil {
		t.Fatal(err)
	}
	issued, err := issuer.Issue("acct-1", "rider", 0)
	if err != nil {
		t.Fatal(err)
	}

	registry := session.NewRegistry(kv.NewRedis(env.client), env.config.Session.Prefix, session.WithClock(env.clock.Now))
	if err := registry.Register(context.Background(), issued.ID, "acct-1", now, now.Add(time.Hour)); err != nil {
		t.Fatalf("Register entry: %v", err)
	}
	if ok, err := registry.IsValid(context.Background(), issued.ID); err != nil || !ok {
		t.Fatalf("entry should be live: ok=%v err=%v", ok, err)
	}

	_, err = env.engine.VerifyToken(withIP("10.0.0.2"), issued.Token)
	if !errors.Is(err, identity.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if !errors.Is(err, jwt.ErrExpired) {
		t.Fatalf("expected expiry cause, got %v", err)
	}
}

func TestTokenExpiresWithClock(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "a@example.com", "")
	res := env.login(t, "a@example.com")

	env.clock.Advance(time.Hour + time.Second)
	_, err := env.engine.VerifyToken(withIP("10.0.0.2"), res.Token)
	if !errors.Is(err, jwt.ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestConcurrentLoginsAreIndependentlyRevocable(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "multi@example.com", "")

	const n = 8
	tokens := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := env.engine.Login(withIP("10.0.0.2"), "multi@example.com", testPassword)
			errs[i] = err
			if err == nil {
				tokens[i] = res.Token
			}
		}(i)
	}
	wg.Wait()

	ids := make(map[string]struct{}, n)
	for i, err := range errs {
		if err != nil {
			t.Fatalf("login %d: %v", i, err)
		}
		claims, err := env.engine.VerifyToken(withIP("10.0.0.2"), tokens[i])
		if err != nil {
			t.Fatalf("verify %d: %v", i, err)
		}
		ids[claims.TokenID] = struct{}{}
	}
	if len(ids) != n {
		t.Fatalf("expected %d distinct token ids, got %d", n, len(ids))
	}

	if err := env.engine.Logout(withIP("10.0.0.2"), tokens[0]); err != nil {
		t.Fatal(err)
	}
	if _, err := env.engine.VerifyToken(withIP("10.0.0.2"), tokens[0]); !errors.Is(err, identity.ErrUnauthorized) {
		t.Fatalf("revoked token still valid: %v", err)
	}
	for i := 1; i < n; i++ {
		if _, err := env.engine.VerifyToken(withIP("10.0.0.2"), tokens[i]); err != nil {
			t.Fatalf("token %d affected by unrelated logout: %v", i, err)
		}
	}

	sessions, err := env.engine.ListSessions(withIP("10.0.0.2"), tokens[1])
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != n-1 {
		t.Fatalf("ListSessions returned %d entries, want %d", len(sessions), n-1)
	}
	current := 0
	for _, s := range sessions {
		if s.Current {
			current++
		}
	}
	if current != 1 {
		t.Fatalf("expected exactly one current session, got %d", current)
	}
}

func TestLogoutAll(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "a@example.com", "")
	env.register(t, "b@example.com", "")
	a1 := env.login(t, "a@example.com")
	a2 := env.login(t, "a@example.com")
	b1 := env.login(t, "b@example.com")

	n, err := env.engine.LogoutAll(withIP("10.0.0.2"), a2.Token)
	if err != nil {
		t.Fatalf("LogoutAll: %v", err)
	}
	if n != 2 {
		t.Fatalf("revoked %d sessions, want 2", n)
	}
	for _, tok := range []string{a1.Token, a2.Token} {
		if _, err := env.engine.VerifyToken(withIP("10.0.0.2"), tok); !errors.Is(err, identity.ErrUnauthorized) {
			t.Fatalf("session survived LogoutAll: %v", err)
		}
	}
	if _, err := env.engine.VerifyToken(withIP("10.0.0.2"), b1.Token); err != nil {
		t.Fatalf("other account affected: %v", err)
	}

	if _, err := env.engine.LogoutAll(withIP("10.0.0.2"), a1.Token); !errors.Is(err, identity.ErrUnauthorized) {
		t.Fatalf("LogoutAll with revoked token: %v", err)
	}
}

func TestVerifyFailsClosedWhenRegistryDown(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "a@example.com", "")
	res := env.login(t, "a@example.com")

	env.redis.SetError("ERR simulated outage")
	_, err := env.engine.VerifyToken(withIP("10.0.0.2"), res.Token)
	if !errors.Is(err, identity.ErrUnauthorized) || !errors.Is(err, identity.ErrDependencyUnavailable) {
		t.Fatalf("expected unauthorized and unavailable, got %v", err)
	}
	if identity.KindOf(err) != identity.KindDependencyUnavailable {
		t.Fatalf("KindOf = %s", identity.KindOf(err))
	}

	env.redis.SetError("")
	if _, err := env.engine.VerifyToken(withIP("10.0.0.2"), res.Token); err != nil {
		t.Fatalf("verify after recovery: %v", err)
	}
}

func TestVerifyRejectsCorruptSessionEntry(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "a@example.com", "")
	res := env.login(t, "a@example.com")

	entryPrefix := env.config.Session.Prefix + ":s:"
	corrupted := 0
	for _, key := range env.redis.Keys() {
		if strings.HasPrefix(key, entryPrefix) {
			if err := env.redis.Set(key, "garbage"); err != nil {
				t.Fatal(err)
			}
			corrupted++
		}
	}
	if corrupted != 1 {
		t.Fatalf("corrupted %d session entries, want 1", corrupted)
	}

	_, err := env.engine.VerifyToken(withIP("10.0.0.2"), res.Token)
	if !errors.Is(err, identity.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if errors.Is(err, identity.ErrDependencyUnavailable) {
		t.Fatalf("corrupt entry reported as an outage: %v", err)
	}
	if identity.KindOf(err) != identity.KindUnauthorized {
		t.Fatalf("KindOf = %s", identity.KindOf(err))
	}
}

func TestLoginReturnsNoTokenWhenSessionNotRecorded(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "a@example.com", "")

	env.redis.SetError("ERR simulated outage")
	res, err := env.engine.Login(withIP("10.0.0.2"), "a@example.com", testPassword)
	if res != nil {
		t.Fatal("token returned without a registered session")
	}
	if !errors.Is(err, identity.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
}

func TestRateLimiterFailOpen(t *testing.T) {
	env := newTestEnv(t, nil)

	env.redis.SetError("ERR simulated outage")
	_, err := env.engine.Register(withIP("10.0.0.1"), identity.RegisterRequest{
		Email: "a@example.com", Password: testPassword, FirstName: "A", LastName: "B",
	})
	if err != nil {
		t.Fatalf("Register with degraded limiter: %v", err)
	}
	if got := env.engine.MetricsSnapshot().Counters[identity.MetricRateLimitDegraded]; got != 1 {
		t.Fatalf("degraded counter = %d, want 1", got)
	}
}

func TestRateLimiterFailClosed(t *testing.T) {
	env := newTestEnv(t, func(cfg *identity.Config) {
		cfg.RateLimit.FailOpen = false
	})

	env.redis.SetError("ERR simulated outage")
	_, err := env.engine.Register(withIP("10.0.0.1"), identity.RegisterRequest{
		Email: "a@example.com", Password: testPassword, FirstName: "A", LastName: "B",
	})
	if !errors.Is(err, identity.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
	if errors.Is(err, identity.ErrRateLimited) {
		t.Fatal("store outage reported as rate limiting")
	}
	if env.store.Len() != 0 {
		t.Fatal("account created while limiter was unavailable")
	}
}

func TestRegisterErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "taken@example.com", "")

	base := identity.RegisterRequest{Password: testPassword, FirstName: "A", LastName: "B"}
	tests := []struct {
		name  string
		edit  func(*identity.RegisterRequest)
		want  error
		field string
	}{
		{"duplicate email", func(r *identity.RegisterRequest) { r.Email = " TAKEN@example.com" }, identity.ErrConflict, ""},
		{"bad email", func(r *identity.RegisterRequest) { r.Email = "not-an-email" }, identity.ErrValidation, "email"},
		{"short password", func(r *identity.RegisterRequest) { r.Email = "x@example.com"; r.Password = "S1!a" }, identity.ErrValidation, "password"},
		{"weak password", func(r *identity.RegisterRequest) { r.Email = "x@example.com"; r.Password = "alllowercase" }, identity.ErrValidation, "password"},
		{"blank name", func(r *identity.RegisterRequest) { r.Email = "x@example.com"; r.FirstName = "  " }, identity.ErrValidation, "first_name"},
		{"bad phone", func(r *identity.RegisterRequest) { r.Email = "x@example.com"; r.Phone = "12" }, identity.ErrValidation, "phone"},
		{"unknown role", func(r *identity.RegisterRequest) { r.Email = "x@example.com"; r.Role = "pilot" }, identity.ErrValidation, "role"},
		{"admin signup", func(r *identity.RegisterRequest) { r.Email = "x@example.com"; r.Role = identity.RoleAdmin }, identity.ErrForbidden, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.edit(&req)
			_, err := env.engine.Register(withIP("10.0.0.1"), req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if tt.field != "" {
				var ve *identity.ValidationError
				if !errors.As(err, &ve) || ve.Field != tt.field {
					t.Fatalf("expected validation error on %q, got %v", tt.field, err)
				}
			}
		})
	}
	if env.store.Len() != 1 {
		t.Fatalf("failed registrations stored accounts: %d", env.store.Len())
	}
}

func TestRegisterDuplicatePhone(t *testing.T) {
	env := newTestEnv(t, nil)
	req := identity.RegisterRequest{Email: "a@example.com", Password: testPassword, FirstName: "A", LastName: "B", Phone: "+1 (555) 000-1234"}
	res, err := env.engine.Register(withIP("10.0.0.1"), req)
	if err != nil {
		t.Fatal(err)
	}
	if res.Account.Phone != "+15550001234" {
		t.Fatalf("phone not normalized: %q", res.Account.Phone)
	}

	req.Email = "b@example.com"
	_, err = env.engine.Register(withIP("10.0.0.1"), req)
	if !errors.Is(err, identity.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterCredentialStoreDown(t *testing.T) {
	env := newTestEnv(t, nil)
	env.store.SetUnavailable(true)

	_, err := env.engine.Register(withIP("10.0.0.1"), identity.RegisterRequest{
		Email: "a@example.com", Password: testPassword, FirstName: "A", LastName: "B",
	})
	if !errors.Is(err, identity.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
	if _, err := env.engine.Login(withIP("10.0.0.2"), "a@example.com", testPassword); !errors.Is(err, identity.ErrDependencyUnavailable) {
		t.Fatalf("login: expected ErrDependencyUnavailable, got %v", err)
	}
}

func TestRegisterAutoLogin(t *testing.T) {
	env := newTestEnv(t, func(cfg *identity.Config) {
		cfg.Account.AutoLogin = true
	})
	res, err := env.engine.Register(withIP("10.0.0.1"), identity.RegisterRequest{
		Email: "a@example.com", Password: testPassword, FirstName: "A", LastName: "B", Role: identity.RoleDriver,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Login == nil {
		t.Fatal("expected a login result")
	}
	claims, err := env.engine.VerifyToken(withIP("10.0.0.1"), res.Login.Token)
	if err != nil {
		t.Fatalf("auto-login token invalid: %v", err)
	}
	if claims.Role != identity.RoleDriver {
		t.Fatalf("role = %s", claims.Role)
	}
}

func TestRegisterAutoLoginSessionOutageKeepsAccount(t *testing.T) {
	env := newTestEnv(t, func(cfg *identity.Config) {
		cfg.Account.AutoLogin = true
	})
	env.redis.SetError("ERR simulated outage")

	res, err := env.engine.Register(withIP("10.0.0.1"), identity.RegisterRequest{
		Email: "a@example.com", Password: testPassword, FirstName: "A", LastName: "B",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.Login != nil {
		t.Fatal("no token may be returned without a recorded session")
	}
	if res.Account.ID == "" {
		t.Fatal("expected the registered account")
	}

	env.redis.SetError("")
	if _, err := env.engine.Login(withIP("10.0.0.2"), "a@example.com", testPassword); err != nil {
		t.Fatalf("Login after outage: %v", err)
	}
	_, err = env.engine.Register(withIP("10.0.0.1"), identity.RegisterRequest{
		Email: "a@example.com", Password: testPassword, FirstName: "A", LastName: "B",
	})
	if !errors.Is(err, identity.ErrConflict) {
		t.Fatalf("second Register err = %v, want ErrConflict", err)
	}
}

func TestRegisterWithoutAutoLogin(t *testing.T) {
	env := newTestEnv(t, nil)
	res, err := env.engine.Register(withIP("10.0.0.1"), identity.RegisterRequest{
		Email: "a@example.com", Password: testPassword, FirstName: "A", LastName: "B",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Login != nil {
		t.Fatal("auto-login is off by default")
	}
	stored, err := env.store.FindByID(context.Background(), res.Account.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.PasswordHash == testPassword || stored.PasswordHash == "" {
		t.Fatal("password stored in plaintext")
	}
}

func TestLoginUpgradesWeakHash(t *testing.T) {
	env := newTestEnv(t, func(cfg *identity.Config) {
		cfg.Password.BcryptCost = 11
	})
	weak, err := password.NewBcrypt(10)
	if err != nil {
		t.Fatal(err)
	}
	hash, err := weak.Hash(testPassword)
	if err != nil {
		t.Fatal(err)
	}
	env.seedAdmin(t, hash)

	env.login(t, "admin@example.com")

	stored, err := env.store.FindByEmail(context.Background(), "admin@example.com")
	if err != nil {
		t.Fatal(err)
	}
	cost, err := bcrypt.Cost([]byte(stored.PasswordHash))
	if err != nil {
		t.Fatal(err)
	}
	if cost != 11 {
		t.Fatalf("stored cost = %d, want 11", cost)
	}
	if got := env.engine.MetricsSnapshot().Counters[identity.MetricPasswordRehash]; got != 1 {
		t.Fatalf("rehash counter = %d", got)
	}
}

func TestAuditEvents(t *testing.T) {
	env := newTestEnv(t, func(cfg *identity.Config) {
		cfg.Audit.Enabled = true
	})
	env.register(t, "a@example.com", "")

	ctx := identity.WithCorrelationID(identity.WithUserAgent(withIP("198.51.100.7"), "test-agent"), "corr-1")
	if _, err := env.engine.Login(ctx, "a@example.com", "Wr0ng!Pass"); err != identity.ErrInvalidCredentials {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-env.audit:
			if ev.EventType != "login_failure" {
				continue
			}
			if ev.Success || ev.IP != "198.51.100.7" || ev.UserAgent != "test-agent" || ev.CorrelationID != "corr-1" {
				t.Fatalf("unexpected event: %+v", ev)
			}
			if ev.Metadata["reason"] != "wrong_password" {
				t.Fatalf("reason = %q", ev.Metadata["reason"])
			}
			return
		case <-deadline:
			t.Fatal("login_failure event not delivered")
		}
	}
}

func TestReadyAndClose(t *testing.T) {
	env := newTestEnv(t, nil)
	if err := env.engine.Ready(context.Background()); err != nil {
		t.Fatalf("Ready: %v", err)
	}

	env.store.SetUnavailable(true)
	if err := env.engine.Ready(context.Background()); !errors.Is(err, identity.ErrDependencyUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	env.store.SetUnavailable(false)

	env.engine.Close()
	env.engine.Close()
	if _, err := env.engine.VerifyToken(context.Background(), "x"); !errors.Is(err, identity.ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady after Close, got %v", err)
	}

	var zero *identity.Engine
	if err := zero.Logout(context.Background(), "x"); !errors.Is(err, identity.ErrEngineNotReady) {
		t.Fatalf("nil engine: %v", err)
	}
}

func TestBuildRequiresDependencies(t *testing.T) {
	if _, err := identity.New().WithConfig(testConfig()).Build(); err == nil {
		t.Fatal("expected error without a store")
	}

	b := identity.New().WithConfig(testConfig()).WithKVStore(kv.NewRedis(nil))
	if _, err := b.Build(); err == nil {
		t.Fatal("expected error without a credential store")
	}
}

func TestLatencyHistogramsAndTokenTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	cfg := testConfig()
	cfg.Token.TTL = 45 * time.Minute
	engine, err := identity.New().
		WithConfig(cfg).
		WithRedis(client).
		WithCredentialStore(memory.New()).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	if got := engine.TokenTTL(); got != 45*time.Minute {
		t.Fatalf("TokenTTL = %s", got)
	}

	ctx := withIP("10.0.0.1")
	if _, err := engine.Register(ctx, identity.RegisterRequest{
		Email: "h@example.com", Password: testPassword, FirstName: "H", LastName: "G",
	}); err != nil {
		t.Fatal(err)
	}
	res, err := engine.Login(ctx, "h@example.com", testPassword)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := engine.VerifyToken(ctx, res.Token); err != nil {
			t.Fatal(err)
		}
	}

	buckets := engine.MetricsSnapshot().Histograms[identity.MetricVerifyLatency]
	var total uint64
	for _, n := range buckets {
		total += n
	}
	if total != 3 {
		t.Fatalf("histogram holds %d observations, want 3", total)
	}
}
