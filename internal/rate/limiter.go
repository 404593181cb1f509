package rate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/identity/kv"
)

// Config holds limiter tuning parameters.
type Config struct {
	Limit    int
	Window   time.Duration
	FailOpen bool
	Prefix   string
}

// Decision describes the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Count      int64
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	// Degraded is set when the store could not be consulted and the request
	// was let through under the fail-open policy.
	Degraded bool
}

// Limiter enforces a per-client request quota using a shared [kv.Store].
type Limiter struct {
	store  kv.Store
	config Config
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a [Limiter].
type Option func(*Limiter)

// WithClock overrides the time source used to pick windows.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger sets the logger used to report fail-open decisions.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a [Limiter] over store.
func New(store kv.Store, cfg Config, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, errors.New("rate: nil store")
	}
	if cfg.Limit <= 0 {
		return nil, errors.New("rate: limit must be > 0")
	}
	if cfg.Window < time.Millisecond {
		return nil, errors.New("rate: window must be >= 1ms")
	}
	cfg.Prefix = strings.TrimSuffix(strings.TrimSpace(cfg.Prefix), ":")
	if cfg.Prefix == "" {
		cfg.Prefix = "rl"
	}

	l := &Limiter{
		store:  store,
		config: cfg,
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Allow counts one request for clientKey. It returns [ErrRateLimited] with a
// populated RetryAfter when the window quota is exceeded.
func (l *Limiter) Allow(ctx context.Context, clientKey string) (Decision, error) {
	now := l.now()
	index, end := l.window(now)
	key := l.key(clientKey, index)

	count, err := l.store.Increment(ctx, key, l.config.Window)
	if err != nil {
		if l.config.FailOpen {
			l.logger.WarnContext(ctx, "rate limit store unavailable, allowing request",
				"client", clientKey,
				"error", err,
			)
			return Decision{Allowed: true, Limit: l.config.Limit, Remaining: l.config.Limit, Degraded: true}, nil
		}
		return Decision{Limit: l.config.Limit}, errors.Join(ErrUnavailable, err)
	}

	d := Decision{
		Count: count,
		Limit: l.config.Limit,
	}
	if count > int64(l.config.Limit) {
		d.RetryAfter = end.Sub(now)
		return d, ErrRateLimited
	}
	d.Allowed = true
	d.Remaining = l.config.Limit - int(count)
	return d, nil
}

// Config returns the limiter configuration.
func (l *Limiter) Config() Config {
	return l.config
}

func (l *Limiter) window(now time.Time) (int64, time.Time) {
	w := int64(l.config.Window)
	index := now.UnixNano() / w
	return index, time.Unix(0, (index+1)*w)
}

func (l *Limiter) key(clientKey string, index int64) string {
	clientKey = strings.TrimSpace(clientKey)
	if clientKey == "" {
		clientKey = "unknown"
	}
	return l.config.Prefix + ":" + clientKey + ":" + strconv.FormatInt(index, 10)
}
