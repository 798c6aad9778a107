package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

const testHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

func newTestRepo(t *testing.T) repository.UserRepository {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "data", "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewUserRepository(db)
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	user := &domain.User{Name: "Ann", Email: "ann@x.com", PasswordHash: testHash, IsAdmin: true}
	require.NoError(t, repo.Create(ctx, user))
	require.NotEmpty(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	byEmail, err := repo.GetByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Equal(t, "Ann", byEmail.Name)
	assert.Equal(t, testHash, byEmail.PasswordHash)
	assert.True(t, byEmail.IsAdmin)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann@x.com", byID.Email)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.Create(ctx, &domain.User{Name: "Ann", Email: "ann@x.com", PasswordHash: testHash}))

	err := repo.Create(ctx, &domain.User{Name: "Other", Email: "ANN@x.com", PasswordHash: testHash})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUserExists)
}

func TestUserRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.GetByEmail(ctx, "nobody@x.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	err = repo.UpdatePassword(ctx, "missing", testHash)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserRepository_UpdatePassword(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	user := &domain.User{Name: "Ann", Email: "ann@x.com", PasswordHash: testHash}
	require.NoError(t, repo.Create(ctx, user))

	const newHash = "$2a$10$abcdefghijklmnopqrstuuW7b2b3XN3c8YFQ1Ty4J7bQ5pF0xW1Ee"
	require.NoError(t, repo.UpdatePassword(ctx, user.ID, newHash))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, newHash, got.PasswordHash)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}
