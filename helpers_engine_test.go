package identity_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/identity"
	"github.com/MrEthical07/identity/credstore/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testPassword = "Str0ng!Pass"

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	engine *identity.Engine
	redis  *miniredis.Miniredis
	client *redis.Client
	store  *memory.Store
	clock  *fakeClock
	audit  chan identity.AuditEvent
	config identity.Config
}

func testConfig() identity.Config {
	cfg := identity.DefaultConfig()
	cfg.Token.Secret = testSecret
	cfg.Token.TTL = time.Hour
	cfg.Password.BcryptCost = 10
	cfg.Password.PoolSize = 4
	return cfg
}

func newTestEnv(t testing.TB, mutate func(*identity.Config)) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	clock := newFakeClock()
	store := memory.New()
	sink := make(chan identity.AuditEvent, 256)

	engine, err := identity.New().
		WithConfig(cfg).
		WithRedis(client).
		WithCredentialStore(store).
		WithAuditSink(chanSink(sink)).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{
		engine: engine,
		redis:  mr,
		client: client,
		store:  store,
		clock:  clock,
		audit:  sink,
		config: cfg,
	}
}

type chanSink chan identity.AuditEvent

func (s chanSink) Emit(_ context.Context, event identity.AuditEvent) {
	select {
	case s <- event:
	default:
	}
}

func withIP(ip string) context.Context {
	return identity.WithClientIP(context.Background(), ip)
}

func (env *testEnv) register(t *testing.T, email string, role identity.Role) identity.AccountView {
	t.Helper()
	res, err := env.engine.Register(withIP("10.0.0.1"), identity.RegisterRequest{
		Email:     email,
		Password:  testPassword,
		FirstName: "Test",
		LastName:  "User",
		Role:      role,
	})
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	return res.Account
}

func (env *testEnv) login(t *testing.T, email string) *identity.LoginResult {
	t.Helper()
	res, err := env.engine.Login(withIP("10.0.0.2"), email, testPassword)
	if err != nil {
		t.Fatalf("Login(%s): %v", email, err)
	}
	return res
}

// seedAdmin stores an admin account directly, the way an operator would.
func (env *testEnv) seedAdmin(t *testing.T, hash string) identity.Account {
	t.Helper()
	now := env.clock.Now()
	account, err := env.store.Create(context.Background(), identity.Account{
		ID:           "admin-1",
		Email:        "admin@example.com",
		PasswordHash: hash,
		FirstName:    "Ada",
		LastName:     "Admin",
		Role:         identity.RoleAdmin,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	return account
}
