package mongo

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"storefront/internal/domain"
)

// The unique index and the lookups filter on these keys.
func TestUserDocument_FieldNames(t *testing.T) {
	user := &domain.User{
		ID:           "6f1c5e2a-1111-4c2e-9f59-0b1c7c0d8a11",
		Name:         "Ann",
		Email:        "ann@x.com",
		PasswordHash: "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy",
		IsAdmin:      true,
		CreatedAt:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		UpdatedAt:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	raw, err := bson.Marshal(toDocument(user))
	require.NoError(t, err)

	var m bson.M
	require.NoError(t, bson.Unmarshal(raw, &m))
	assert.Equal(t, user.ID, m["_id"])
	assert.Equal(t, user.Email, m["email"])
	assert.Equal(t, user.PasswordHash, m["password_hash"])
	assert.Equal(t, true, m["is_admin"])

	var doc userDocument
	require.NoError(t, bson.Unmarshal(raw, &doc))
	got := fromDocument(doc)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, user.Name, got.Name)
	assert.True(t, user.CreatedAt.Equal(got.CreatedAt))
}

func TestInsertError(t *testing.T) {
	assert.NoError(t, insertError("ann@x.com", nil))

	dup := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key error"}}}
	err := insertError("ann@x.com", dup)
	assert.ErrorIs(t, err, domain.ErrUserExists)
	assert.Contains(t, err.Error(), "ann@x.com")

	// the driver sometimes reports the violation as a command error
	err = insertError("ann@x.com", fmt.Errorf("bulk: %w", mongo.CommandError{Code: 11000}))
	assert.ErrorIs(t, err, domain.ErrUserExists)

	boom := errors.New("connection reset")
	err = insertError("ann@x.com", boom)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrUserExists)
}

func TestFindError(t *testing.T) {
	assert.ErrorIs(t, findError(mongo.ErrNoDocuments), domain.ErrUserNotFound)
	assert.ErrorIs(t, findError(fmt.Errorf("decode: %w", mongo.ErrNoDocuments)), domain.ErrUserNotFound)

	boom := errors.New("server selection timeout")
	err := findError(boom)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrUserNotFound)
}

func TestMatchedOne(t *testing.T) {
	assert.ErrorIs(t, matchedOne(&mongo.UpdateResult{MatchedCount: 0}), domain.ErrUserNotFound)
	assert.ErrorIs(t, matchedOne(nil), domain.ErrUserNotFound)
	// matched but unchanged still counts as found
	assert.NoError(t, matchedOne(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 0}))
}
