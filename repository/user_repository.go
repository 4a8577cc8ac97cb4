package repository

import (
	"context"

	"juriscite-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository handles database operations for API users
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user; SecretHash must already be hashed
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (email, secret_hash, name, firm_name)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRow(ctx, query, u.Email, u.SecretHash, u.Name, u.FirmName).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `WHERE lower(email) = lower($1)`, email)
}

func (r *UserRepository) getOne(ctx context.Context, where string, arg any) (*models.User, error) {
	u := &models.User{}
	query := `
		SELECT id, email, secret_hash, name, firm_name, created_at, updated_at
		FROM users ` + where

	err := r.db.QueryRow(ctx, query, arg).Scan(
		&u.ID,
		&u.Email,
		&u.SecretHash,
		&u.Name,
		&u.FirmName,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

// UpdateSecret replaces the stored secret hash
func (r *UserRepository) UpdateSecret(ctx context.Context, id uuid.UUID, secretHash string) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET secret_hash = $2, updated_at = NOW() WHERE id = $1`, id, secretHash)
	return err
}
