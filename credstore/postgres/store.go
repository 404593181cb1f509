// Package postgres implements [identity.CredentialStore] on PostgreSQL
// using pgx.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/identity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
)

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

// Querier is the subset of *pgxpool.Pool the store uses.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Store persists accounts in the users table.
type Store struct {
	db Querier
}

func New(db Querier) *Store {
	return &Store{db: db}
}

// Open connects a pool to dsn and verifies it with a ping.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, oops.Code("DATABASE_CONFIG_INVALID").Wrap(err)
	}
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DATABASE_CONNECT_FAILED").Wrap(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, oops.Code("DATABASE_CONNECT_FAILED").With("operation", "ping").Wrap(err)
	}
	return pool, nil
}

const selectAccount = `SELECT id, email, password_hash, first_name, last_name, COALESCE(phone, ''),
	role, is_active, is_verified, created_at, updated_at FROM users`

func (s *Store) FindByEmail(ctx context.Context, email string) (*identity.Account, error) {
	row := s.db.QueryRow(ctx, selectAccount+` WHERE email = $1`, identity.NormalizeEmail(email))
	account, err := scanAccount(row)
	if err != nil {
		return nil, lookupError(err, "find account by email")
	}
	return account, nil
}

// FindByID looks up an account by its UUID. An id that is not a UUID cannot
// name a row and reports [identity.ErrAccountNotFound] without a query.
func (s *Store) FindByID(ctx context.Context, id string) (*identity.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, identity.ErrAccountNotFound
	}
	row := s.db.QueryRow(ctx, selectAccount+` WHERE id = $1`, id)
	account, err := scanAccount(row)
	if err != nil {
		return nil, lookupError(err, "find account by id")
	}
	return account, nil
}

func (s *Store) Create(ctx context.Context, account identity.Account) (identity.Account, error) {
	account.Email = identity.NormalizeEmail(account.Email)
	_, err := s.db.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, first_name, last_name, phone, role,
			is_active, is_verified, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10, $11)`,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.FirstName,
		account.LastName,
		account.Phone,
		string(account.Role),
		account.Active,
		account.Verified,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return identity.Account{}, identity.ErrAccountExists
		}
		return identity.Account{}, oops.With("operation", "create account").With("account_id", account.ID).Wrap(err)
	}
	return account, nil
}

// Update writes every mutable column. Email and created_at are immutable.
func (s *Store) Update(ctx context.Context, account identity.Account) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET password_hash = $2, first_name = $3, last_name = $4, phone = NULLIF($5, ''),
			role = $6, is_active = $7, is_verified = $8, updated_at = $9
		 WHERE id = $1`,
		account.ID,
		account.PasswordHash,
		account.FirstName,
		account.LastName,
		account.Phone,
		string(account.Role),
		account.Active,
		account.Verified,
		account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return identity.ErrAccountExists
		}
		return oops.With("operation", "update account").With("account_id", account.ID).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrAccountNotFound
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return oops.With("operation", "ping").Wrap(err)
	}
	return nil
}

func scanAccount(row pgx.Row) (*identity.Account, error) {
	var a identity.Account
	var role string
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.PasswordHash,
		&a.FirstName,
		&a.LastName,
		&a.Phone,
		&role,
		&a.Active,
		&a.Verified,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Role = identity.Role(role)
	return &a, nil
}

func lookupError(err error, operation string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return identity.ErrAccountNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation {
		return identity.ErrAccountNotFound
	}
	return oops.With("operation", operation).Wrap(err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
