// Package memory is an in-process [identity.CredentialStore] for tests and
// single-node development.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/MrEthical07/identity"
)

// ErrUnavailable is returned by every method while the store is marked
// unavailable.
var ErrUnavailable = errors.New("memory credential store unavailable")

// Store keeps accounts in maps guarded by a RWMutex.
type Store struct {
	mu          sync.RWMutex
	byID        map[string]identity.Account
	byEmail     map[string]string
	byPhone     map[string]string
	unavailable bool
}

func New() *Store {
	return &Store{
		byID:    make(map[string]identity.Account),
		byEmail: make(map[string]string),
		byPhone: make(map[string]string),
	}
}

// SetUnavailable makes every call fail with ErrUnavailable until reset.
func (s *Store) SetUnavailable(down bool) {
	s.mu.Lock()
	s.unavailable = down
	s.mu.Unlock()
}

func (s *Store) FindByEmail(_ context.Context, email string) (*identity.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.unavailable {
		return nil, ErrUnavailable
	}

	id, ok := s.byEmail[identity.NormalizeEmail(email)]
	if !ok {
		return nil, identity.ErrAccountNotFound
	}
	account := s.byID[id]
	return &account, nil
}

func (s *Store) FindByID(_ context.Context, id string) (*identity.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.unavailable {
		return nil, ErrUnavailable
	}

	account, ok := s.byID[id]
	if !ok {
		return nil, identity.ErrAccountNotFound
	}
	return &account, nil
}

func (s *Store) Create(_ context.Context, account identity.Account) (identity.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return identity.Account{}, ErrUnavailable
	}

	account.Email = identity.NormalizeEmail(account.Email)
	if account.ID == "" || account.Email == "" {
		return identity.Account{}, errors.New("memory: account id and email are required")
	}
	if _, ok := s.byID[account.ID]; ok {
		return identity.Account{}, identity.ErrAccountExists
	}
	if _, ok := s.byEmail[account.Email]; ok {
		return identity.Account{}, identity.ErrAccountExists
	}
	if account.Phone != "" {
		if _, ok := s.byPhone[account.Phone]; ok {
			return identity.Account{}, identity.ErrAccountExists
		}
		s.byPhone[account.Phone] = account.ID
	}

	s.byID[account.ID] = account
	s.byEmail[account.Email] = account.ID
	return account, nil
}

// Update replaces the stored account with the same id. The email is
// immutable.
func (s *Store) Update(_ context.Context, account identity.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return ErrUnavailable
	}

	current, ok := s.byID[account.ID]
	if !ok {
		return identity.ErrAccountNotFound
	}
	if account.Phone != current.Phone && account.Phone != "" {
		if owner, taken := s.byPhone[account.Phone]; taken && owner != account.ID {
			return identity.ErrAccountExists
		}
	}

	if current.Phone != "" {
		delete(s.byPhone, current.Phone)
	}
	if account.Phone != "" {
		s.byPhone[account.Phone] = account.ID
	}
	account.Email = current.Email
	account.CreatedAt = current.CreatedAt
	s.byID[account.ID] = account
	return nil
}

func (s *Store) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.unavailable {
		return ErrUnavailable
	}
	return nil
}

// Len returns the number of stored accounts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
