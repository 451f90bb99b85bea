package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"go-chi-calculations/internal/auth"
)

const uniqueViolation = "23505"

const selectUser = `SELECT id::text, username, email, first_name, last_name, password_hash, is_active, is_verified, created_at, updated_at FROM users`

func (s *Store) CreateUser(ctx context.Context, u *auth.User) error {
	query :=
		`INSERT INTO users (id, username, email, first_name, last_name, password_hash, is_active, is_verified, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.db.ExecContext(ctx, query,
		u.ID.String(), u.Username, u.Email, u.FirstName, u.LastName, u.PasswordHash,
		u.IsActive, u.IsVerified, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return auth.ErrUserExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return s.getUser(ctx, selectUser+` WHERE id = $1`, id.String())
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*auth.User, error) {
	return s.getUser(ctx, selectUser+` WHERE username = $1`, username)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.getUser(ctx, selectUser+` WHERE lower(email) = lower($1)`, email)
}

func (s *Store) getUser(ctx context.Context, query string, arg any) (*auth.User, error) {
	var (
		u                auth.User
		id               string
		created, updated time.Time
	)

	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&id, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash,
		&u.IsActive, &u.IsVerified, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if u.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("bad user id %q: %w", id, err)
	}
	u.CreatedAt = created.UTC()
	u.UpdatedAt = updated.UTC()
	return &u, nil
}
