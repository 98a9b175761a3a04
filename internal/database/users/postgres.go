package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mrlokans/authsvc/internal/entities"
)

// Schema creates the users table for the PostgreSQL credential store.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
)`

// pool is the subset of *pgxpool.Pool the repository needs; pgxmock's pool
// satisfies it in tests.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository is the credential store backed by PostgreSQL.
type PostgresRepository struct {
	pool pool
}

// NewPostgresRepository creates a repository over an open pool.
func NewPostgresRepository(p pool) *PostgresRepository {
	return &PostgresRepository{pool: p}
}

// Migrate creates the users table if it does not exist.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate users table: %w", err)
	}
	return nil
}

// FindByIdentifier returns the user whose username or email equals
// identifier. A username match sorts first.
func (r *PostgresRepository) FindByIdentifier(ctx context.Context, identifier string) (*entities.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, username, email, password_hash, created_at, updated_at
		FROM users
		WHERE username = $1 OR email = $1
		ORDER BY (username = $1) DESC
		LIMIT 1
	`, identifier)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by identifier: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by ID.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, username, email, password_hash, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

// Create inserts a new user, mapping a unique violation to ErrExists.
func (r *PostgresRepository) Create(ctx context.Context, username, email, passwordHash string) (*entities.User, error) {
	now := time.Now().UTC()
	user := &entities.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, ErrExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*entities.User, error) {
	var u entities.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
