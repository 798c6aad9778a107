package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewHasher()

	hash, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)
	assert.True(t, strings.HasPrefix(hash, "$2a$10$"), "unexpected hash format %q", hash)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, Cost, cost)

	assert.True(t, h.Compare("secret1", hash))
	assert.False(t, h.Compare("secret2", hash))
}

func TestHasher_SaltedOutput(t *testing.T) {
	h := NewHasher()

	first, err := h.Hash("secret1")
	require.NoError(t, err)
	second, err := h.Hash("secret1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, h.Compare("secret1", first))
	assert.True(t, h.Compare("secret1", second))
}

func TestHasher_AlreadyHashedIsUnchanged(t *testing.T) {
	h := NewHasher()

	hash, err := h.Hash("secret1")
	require.NoError(t, err)

	again, err := h.Hash(hash)
	require.NoError(t, err)
	assert.Equal(t, hash, again)
	assert.True(t, h.Compare("secret1", again))
}

func TestHasher_CompareAcceptsOtherCosts(t *testing.T) {
	h := NewHasher()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, h.Compare("secret1", string(hash)))
}

func TestHasher_CompareMalformedHash(t *testing.T) {
	h := NewHasher()

	for _, hash := range []string{"", "secret1", "$2a$10$short", strings.Repeat("x", 60)} {
		assert.False(t, h.Compare("secret1", hash), "hash %q", hash)
	}
}

func TestHasher_TooLong(t *testing.T) {
	h := NewHasher()

	_, err := h.Hash(strings.Repeat("a", MaxLength+1))
	assert.Error(t, err)
}

func TestIsHashed(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"bcrypt 2a", "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy", true},
		{"bcrypt 2b", "$2b$12$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy", true},
		{"plaintext", "secret1", false},
		{"wrong prefix", "$1a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy", false},
		{"bad cost", "$2a$xx$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy", false},
		{"too short", "$2a$10$N9qo8uLOickgx2ZMRZoMye", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsHashed(tt.value))
		})
	}
}
