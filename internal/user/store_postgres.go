package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// PostgresStore persists users in PostgreSQL. User row, attributes and
// credential are written in one transaction so a half-created account never
// becomes reachable.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the backing tables when they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id              UUID PRIMARY KEY,
			username        TEXT NOT NULL,
			email           TEXT NOT NULL,
			enabled         BOOLEAN NOT NULL,
			email_verified  BOOLEAN NOT NULL,
			first_name      TEXT NOT NULL DEFAULT '',
			last_name       TEXT NOT NULL DEFAULT '',
			credential_hash TEXT NOT NULL,
			created_at      TIMESTAMPTZ NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_idx ON users (LOWER(email));
		CREATE TABLE IF NOT EXISTS user_attributes (
			user_id  UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name     TEXT NOT NULL,
			value    TEXT NOT NULL,
			position INT  NOT NULL,
			PRIMARY KEY (user_id, name, position)
		);
	`)
	if err != nil {
		return fmt.Errorf("ensure user schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, u *User) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create user: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO users (id, username, email, enabled, email_verified, first_name, last_name, credential_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, u.ID, u.Username, u.Email, u.Enabled, u.EmailVerified, u.FirstName, u.LastName, u.CredentialHash, u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrEmailExists
		}
		return fmt.Errorf("insert user: %w", err)
	}

	for name, values := range u.Attributes {
		for position, value := range values {
			_, err = tx.Exec(ctx, `
				INSERT INTO user_attributes (user_id, name, value, position)
				VALUES ($1, $2, $3, $4)
			`, u.ID, name, value, position)
			if err != nil {
				return fmt.Errorf("insert user attribute %s: %w", name, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.get(ctx, `WHERE LOWER(email) = $1`, strings.ToLower(email))
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*User, error) {
	return s.get(ctx, `WHERE id = $1`, id)
}

func (s *PostgresStore) get(ctx context.Context, where string, arg any) (*User, error) {
	u := &User{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, email, enabled, email_verified, first_name, last_name, credential_hash, created_at
		FROM users `+where,
		arg,
	).Scan(&u.ID, &u.Username, &u.Email, &u.Enabled, &u.EmailVerified, &u.FirstName, &u.LastName, &u.CredentialHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT name, value
		FROM user_attributes
		WHERE user_id = $1
		ORDER BY name, position
	`, u.ID)
	if err != nil {
		return nil, fmt.Errorf("select user attributes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan user attribute: %w", err)
		}
		if u.Attributes == nil {
			u.Attributes = make(map[string][]string)
		}
		u.Attributes[name] = append(u.Attributes[name], value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user attributes: %w", err)
	}
	return u, nil
}
