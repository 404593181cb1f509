package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/MrEthical07/identity/kv"
)

var (
	// ErrUnavailable wraps store failures seen by the registry.
	ErrUnavailable = errors.New("session store unavailable")
	// ErrNotFound is returned by Get when no entry exists for a token id.
	ErrNotFound = errors.New("session not found")
	// ErrInvalidEntry is returned when Register receives an unusable entry.
	ErrInvalidEntry = errors.New("invalid session entry")
)

// Registry tracks issued tokens in a shared [kv.Store].
//
//	entry key: <prefix>:s:<token id>
//	index key: <prefix>:u:<account id>
type Registry struct {
	store  kv.Store
	prefix string
	now    func() time.Time
}

// Option configures a [Registry].
type Option func(*Registry)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRegistry creates a registry over store. An empty prefix defaults to "session".
func NewRegistry(store kv.Store, prefix string, opts ...Option) *Registry {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "session"
	}
	r := &Registry{
		store:  store,
		prefix: prefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register records a new live entry for tokenID. The storage TTL mirrors the
// remaining token lifetime so expired entries disappear on their own.
func (r *Registry) Register(ctx context.Context, tokenID, accountID string, issuedAt, expiresAt time.Time) error {
	if tokenID == "" || accountID == "" {
		return ErrInvalidEntry
	}
	ttl := expiresAt.Sub(r.now())
	if ttl < time.Millisecond {
		return fmt.Errorf("%w: already expired", ErrInvalidEntry)
	}

	data, err := Encode(&Entry{
		AccountID: accountID,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if err := r.store.SetIndexed(ctx, r.entryKey(tokenID), data, ttl, r.indexKey(accountID), tokenID); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// IsValid reports whether tokenID has a live entry. Missing, revoked,
// expired and undecodable entries are all invalid. Store failures yield
// false and an error.
func (r *Registry) IsValid(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	entry, err := r.Get(ctx, tokenID)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrCorruptEntry) {
			return false, nil
		}
		return false, err
	}
	return entry.Live(r.now()), nil
}

// Get loads the entry for tokenID.
func (r *Registry) Get(ctx context.Context, tokenID string) (*Entry, error) {
	data, err := r.store.Get(ctx, r.entryKey(tokenID))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, wrapUnavailable(err)
	}
	entry, err := Decode(data)
	if err != nil {
		return nil, err
	}
	entry.TokenID = tokenID
	return entry, nil
}

// Revoke marks tokenID invalid for every reader of the store. Revoking an
// absent or already revoked entry succeeds.
func (r *Registry) Revoke(ctx context.Context, tokenID string) error {
	if tokenID == "" {
		return nil
	}
	entry, err := r.Get(ctx, tokenID)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil
	case errors.Is(err, ErrCorruptEntry):
		if delErr := r.store.Delete(ctx, r.entryKey(tokenID)); delErr != nil {
			return wrapUnavailable(delErr)
		}
		return nil
	case err != nil:
		return err
	}
	if entry.Revoked {
		return nil
	}

	entry.Revoked = true
	data, err := Encode(entry)
	if err != nil {
		return err
	}
	if _, err := r.store.ReplaceExisting(ctx, r.entryKey(tokenID), data, r.indexKey(entry.AccountID), tokenID); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// RevokeAll revokes every indexed session of accountID and returns how many
// live sessions were revoked.
func (r *Registry) RevokeAll(ctx context.Context, accountID string) (int, error) {
	if accountID == "" {
		return 0, ErrInvalidEntry
	}
	members, err := r.store.SetMembers(ctx, r.indexKey(accountID))
	if err != nil {
		return 0, wrapUnavailable(err)
	}

	now := r.now()
	revoked := 0
	for _, tokenID := range members {
		entry, err := r.Get(ctx, tokenID)
		if err == nil && entry.Live(now) {
			revoked++
		}
		if err := r.Revoke(ctx, tokenID); err != nil {
			return revoked, err
		}
	}
	if err := r.store.SetRemove(ctx, r.indexKey(accountID), members...); err != nil {
		return revoked, wrapUnavailable(err)
	}
	return revoked, nil
}

// Active lists the live sessions of accountID, oldest first. Index members
// whose entries are gone, revoked or expired are pruned.
func (r *Registry) Active(ctx context.Context, accountID string) ([]Entry, error) {
	if accountID == "" {
		return nil, ErrInvalidEntry
	}
	members, err := r.store.SetMembers(ctx, r.indexKey(accountID))
	if err != nil {
		return nil, wrapUnavailable(err)
	}

	now := r.now()
	out := make([]Entry, 0, len(members))
	var stale []string
	for _, tokenID := range members {
		entry, err := r.Get(ctx, tokenID)
		switch {
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrCorruptEntry):
			stale = append(stale, tokenID)
			continue
		case err != nil:
			return nil, err
		}
		if !entry.Live(now) {
			stale = append(stale, tokenID)
			continue
		}
		out = append(out, *entry)
	}
	if len(stale) > 0 {
		if err := r.store.SetRemove(ctx, r.indexKey(accountID), stale...); err != nil {
			return nil, wrapUnavailable(err)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].IssuedAt.Before(out[j].IssuedAt)
	})
	return out, nil
}

// Ping checks store connectivity.
func (r *Registry) Ping(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

func (r *Registry) entryKey(tokenID string) string {
	return r.prefix + ":s:" + tokenID
}

func (r *Registry) indexKey(accountID string) string {
	return r.prefix + ":u:" + accountID
}

func wrapUnavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
