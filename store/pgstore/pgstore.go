// Package pgstore keeps identities and services in PostgreSQL through pgx.
package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrEthical07/goFactor/identity"
)

// uniqueViolation is the SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

// Schema creates the tables the store expects. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS gofactor_clients (
	uid          TEXT PRIMARY KEY,
	apikey       TEXT NOT NULL UNIQUE,
	username     TEXT NOT NULL DEFAULT '',
	pass512      TEXT NOT NULL DEFAULT '',
	salt         TEXT NOT NULL,
	public_key   TEXT NOT NULL DEFAULT '',
	totp_key     TEXT NOT NULL DEFAULT '',
	email        TEXT NOT NULL DEFAULT '',
	email_token  TEXT NOT NULL DEFAULT '',
	email_expiry BIGINT NOT NULL DEFAULT 0,
	factors      TEXT[] NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS gofactor_services (
	name          TEXT PRIMARY KEY,
	shared_secret TEXT NOT NULL
);
`

const selectClient = `
SELECT uid, apikey, username, pass512, salt, public_key, totp_key,
       email, email_token, email_expiry, factors
FROM gofactor_clients`

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements identity.Store and identity.ServiceStore.
type Store struct {
	db DB
}

var (
	_ identity.Store        = (*Store)(nil)
	_ identity.ServiceStore = (*Store)(nil)
	_ DB                    = (*pgxpool.Pool)(nil)
)

func New(db DB) *Store {
	return &Store{db: db}
}

// Connect opens a pool for dsn and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", identity.ErrUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", identity.ErrUnavailable, err)
	}
	return pool, nil
}

// Migrate applies Schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, c identity.Client) error {
	if c.UID == "" || c.APIKey == "" {
		return identity.ErrInvalidField
	}
	_, err := s.db.Exec(ctx, `
INSERT INTO gofactor_clients
	(uid, apikey, username, pass512, salt, public_key, totp_key, email, email_token, email_expiry, factors)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.UID, c.APIKey, c.Username, c.Pass512, c.Salt, c.PublicKey, c.TOTPKey,
		c.Email, c.EmailToken, c.EmailExpiry, c.Factors.Names(),
	)
	return mapError(err)
}

func (s *Store) LookupByAdmissionKey(ctx context.Context, apiKey string) (identity.Client, error) {
	return s.scanClient(s.db.QueryRow(ctx, selectClient+` WHERE apikey = $1`, apiKey))
}

func (s *Store) LookupByID(ctx context.Context, uid string) (identity.Client, error) {
	return s.scanClient(s.db.QueryRow(ctx, selectClient+` WHERE uid = $1`, uid))
}

func (s *Store) scanClient(row pgx.Row) (identity.Client, error) {
	var (
		c       identity.Client
		factors []string
	)
	err := row.Scan(
		&c.UID, &c.APIKey, &c.Username, &c.Pass512, &c.Salt, &c.PublicKey, &c.TOTPKey,
		&c.Email, &c.EmailToken, &c.EmailExpiry, &factors,
	)
	if err != nil {
		return identity.Client{}, mapError(err)
	}
	set, err := identity.ParseFactorSet(factors)
	if err != nil {
		return identity.Client{}, fmt.Errorf("%w: %v", identity.ErrUnavailable, err)
	}
	c.Factors = set
	return c, nil
}

func (s *Store) UpdateField(ctx context.Context, uid string, field identity.Field, value string) error {
	if !field.Valid() {
		return identity.ErrInvalidField
	}
	var arg any = value
	if field == identity.FieldEmailExpiry {
		n, err := identity.ParseExpiry(value)
		if err != nil {
			return err
		}
		arg = n
	}
	// Column names come from identity.Field, never from the caller.
	tag, err := s.db.Exec(ctx,
		`UPDATE gofactor_clients SET `+field.Column()+` = $2 WHERE uid = $1`,
		uid, arg,
	)
	return affected(tag, err)
}

func (s *Store) SetTOTPKeyIfAbsent(ctx context.Context, uid, key string) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE gofactor_clients SET totp_key = $2 WHERE uid = $1 AND totp_key = ''`,
		uid, key,
	)
	if err != nil {
		return false, mapError(err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	// Nothing updated: either the uid is unknown or a key is already set.
	var exists bool
	err = s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM gofactor_clients WHERE uid = $1)`, uid,
	).Scan(&exists)
	if err != nil {
		return false, mapError(err)
	}
	if !exists {
		return false, identity.ErrNotFound
	}
	return false, nil
}

func (s *Store) AddFactor(ctx context.Context, uid string, factor identity.Factor) error {
	if !factor.Valid() {
		return identity.ErrUnknownFactor
	}
	tag, err := s.db.Exec(ctx, `
UPDATE gofactor_clients
SET factors = CASE WHEN $2 = ANY(factors) THEN factors ELSE array_append(factors, $2) END
WHERE uid = $1`,
		uid, factor.String(),
	)
	return affected(tag, err)
}

func (s *Store) Delete(ctx context.Context, uid string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM gofactor_clients WHERE uid = $1`, uid)
	return affected(tag, err)
}

func (s *Store) LookupService(ctx context.Context, name string) (identity.Service, error) {
	svc := identity.Service{Name: name}
	err := s.db.QueryRow(ctx,
		`SELECT shared_secret FROM gofactor_services WHERE name = $1`, name,
	).Scan(&svc.SharedSecret)
	if err != nil {
		return identity.Service{}, mapError(err)
	}
	return svc, nil
}

func (s *Store) SaveService(ctx context.Context, svc identity.Service) error {
	if svc.Name == "" {
		return identity.ErrInvalidField
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO gofactor_services (name, shared_secret) VALUES ($1, $2)`,
		svc.Name, svc.SharedSecret,
	)
	return mapError(err)
}

func (s *Store) DeleteService(ctx context.Context, name string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM gofactor_services WHERE name = $1`, name)
	return affected(tag, err)
}

func affected(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrNotFound
	}
	return nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return identity.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return identity.ErrConflict
	}
	return fmt.Errorf("%w: %v", identity.ErrUnavailable, err)
}
