package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Schema creates the tables used by PostgresStore.
const Schema = `
CREATE TABLE IF NOT EXISTS account (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL,
	email         TEXT NOT NULL DEFAULT '',
	display_name  TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL DEFAULT '',
	admin         BOOLEAN NOT NULL DEFAULT FALSE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS account_username_idx ON account (lower(username));

CREATE TABLE IF NOT EXISTS account_attribute (
	account_id TEXT NOT NULL REFERENCES account (id) ON DELETE CASCADE,
	key        TEXT NOT NULL,
	value      BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (account_id, key)
);

CREATE TABLE IF NOT EXISTS setting (
	key        TEXT PRIMARY KEY,
	value      BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db DBTX
}

// NewPostgresStore creates a new PostgreSQL account store
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the store tables if they do not exist yet
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

const selectAccount = `SELECT id, username, email, display_name, password_hash, admin, created_at FROM account`

func scanAccount(row pgx.Row) (Account, error) {
	var acct Account
	err := row.Scan(&acct.ID, &acct.Username, &acct.Email, &acct.DisplayName, &acct.PasswordHash, &acct.Admin, &acct.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("failed to scan account: %w", err)
	}
	return acct, nil
}

func (s *PostgresStore) GetByName(ctx context.Context, name string) (Account, error) {
	return scanAccount(s.db.QueryRow(ctx, selectAccount+` WHERE lower(username) = lower($1)`, name))
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (Account, error) {
	return scanAccount(s.db.QueryRow(ctx, selectAccount+` WHERE id = $1`, id))
}

func (s *PostgresStore) CreateAccount(ctx context.Context, acct Account) (Account, error) {
	if acct.ID == "" {
		acct.ID = uuid.New().String()
	}
	if acct.CreatedAt.IsZero() {
		acct.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO account (id, username, email, display_name, password_hash, admin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		acct.ID, acct.Username, acct.Email, acct.DisplayName, acct.PasswordHash, acct.Admin, acct.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Account{}, ErrAccountExists
		}
		return Account{}, fmt.Errorf("failed to create account: %w", err)
	}
	return acct, nil
}

func (s *PostgresStore) GetAttribute(ctx context.Context, accountID, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(ctx,
		`SELECT value FROM account_attribute WHERE account_id = $1 AND key = $2`,
		accountID, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAttributeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attribute %s: %w", key, err)
	}
	return value, nil
}

func (s *PostgresStore) SetAttribute(ctx context.Context, accountID, key string, value []byte) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO account_attribute (account_id, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (account_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		accountID, key, value)
	if err != nil {
		return fmt.Errorf("failed to set attribute %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) DeleteAttribute(ctx context.Context, accountID, key string) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM account_attribute WHERE account_id = $1 AND key = $2`,
		accountID, key)
	if err != nil {
		return fmt.Errorf("failed to delete attribute %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) GetSetting(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(ctx, `SELECT value FROM setting WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAttributeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, nil
}

func (s *PostgresStore) SetSetting(ctx context.Context, key string, value []byte) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO setting (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}
