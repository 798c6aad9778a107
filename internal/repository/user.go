package repository

import (
	"context"

	"storefront/internal/domain"
)

// UserRepository defines persistence operations for User entities.
// Emails are expected to be normalized by the caller; implementations
// enforce uniqueness and report it as domain.ErrUserExists.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}
