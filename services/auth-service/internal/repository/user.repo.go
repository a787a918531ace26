package repository

import (
	"context"
	"errors"
	"fmt"

	"pulsetrack/services/auth-service/internal/domain"
	"pulsetrack/shared/auth/rbac"
	xerrors "pulsetrack/shared/utils/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user email: %w", err)
	}
	return exists, nil
}

// Create inserts u and fills in the generated id and created_at.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (email, user_name, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, u.Email, u.UserName, u.PasswordHash, string(u.Role)).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if xerrors.IsUniqueViolation(err) {
			return xerrors.ErrUserAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u := new(domain.User)
	var role string
	err := r.db.QueryRow(ctx, `
		SELECT id, email, user_name, password_hash, role, created_at
		FROM users WHERE LOWER(email) = LOWER($1)
	`, email).Scan(&u.ID, &u.Email, &u.UserName, &u.PasswordHash, &role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	u.Role = rbac.Role(role)
	return u, nil
}
