package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"storefront/internal/identity/models"
	id "storefront/pkg/domain"
	"storefront/pkg/platform/sentinel"
	"storefront/pkg/platform/tx"
)

const uniqueViolation = pq.ErrorCode("23505")

// PostgresStore persists users in the users table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a Postgres-backed user store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts u. The unique index on lower(email) turns a taken address
// into sentinel.ErrAlreadyUsed.
func (s *PostgresStore) Create(ctx context.Context, u *models.User) error {
	_, err := tx.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)`,
		uuid.UUID(u.ID), models.NormalizeEmail(u.Email), u.PasswordHash, u.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			if pqErr.Constraint == "users_pkey" {
				return sentinel.ErrConflict
			}
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindByID returns sentinel.ErrNotFound for unknown users.
func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	return s.findOne(ctx, `WHERE id = $1`, uuid.UUID(userID))
}

// FindByEmail looks a user up case-insensitively.
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, `WHERE lower(email) = $1`, models.NormalizeEmail(email))
}

func (s *PostgresStore) findOne(ctx context.Context, where string, arg any) (*models.User, error) {
	var (
		u   models.User
		uid uuid.UUID
	)
	err := tx.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users `+where, arg,
	).Scan(&uid, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	u.ID = id.UserID(uid)
	return &u, nil
}
