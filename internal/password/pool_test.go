package password

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, workers int) *Pool {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	pool := NewPool(NewHasher(), PoolConfig{MaxConcurrent: workers, Logger: logger})
	require.NoError(t, pool.Start(context.Background()))
	t.Cleanup(pool.Shutdown)
	return pool
}

func TestPool_HashAndCompare(t *testing.T) {
	pool := newTestPool(t, 2)
	ctx := context.Background()

	hash, err := pool.Hash(ctx, "secret1")
	require.NoError(t, err)
	assert.True(t, IsHashed(hash))

	ok, err := pool.Compare(ctx, "secret1", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = pool.Compare(ctx, "wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPool_Concurrent(t *testing.T) {
	pool := newTestPool(t, 2)
	ctx := context.Background()

	var wg sync.WaitGroup
	hashes := make([]string, 6)
	errs := make([]error, len(hashes))
	for i := range hashes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			hashes[i], errs[i] = pool.Hash(ctx, "secret1")
		}(i)
	}
	wg.Wait()

	for i := range hashes {
		require.NoError(t, errs[i])
		ok, err := pool.Compare(ctx, "secret1", hashes[i])
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestPool_NotStarted(t *testing.T) {
	pool := NewPool(NewHasher(), PoolConfig{MaxConcurrent: 1})

	_, err := pool.Hash(context.Background(), "secret1")
	assert.ErrorIs(t, err, ErrPoolStopped)
}

func TestPool_AfterShutdown(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	pool := NewPool(NewHasher(), PoolConfig{MaxConcurrent: 1, Logger: logger})
	require.NoError(t, pool.Start(context.Background()))
	pool.Shutdown()

	_, err := pool.Compare(context.Background(), "secret1", "x")
	assert.ErrorIs(t, err, ErrPoolStopped)
}

func TestPool_CanceledContext(t *testing.T) {
	pool := newTestPool(t, 1)

	// occupy the only worker slot
	pool.sem <- struct{}{}
	defer func() { <-pool.sem }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pool.Hash(ctx, "secret1")
	assert.ErrorIs(t, err, context.Canceled)
}
