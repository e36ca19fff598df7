package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_Allow(t *testing.T) {
	ctx := context.Background()

	t.Run("allows up to the limit", func(t *testing.T) {
		store := NewInMemoryStore()
		for i := 0; i < 3; i++ {
			res, err := store.Allow(ctx, "1.2.3.4", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, res.Allowed, "request %d should be allowed", i+1)
		}

		res, err := store.Allow(ctx, "1.2.3.4", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Equal(t, 0, res.Remaining)
	})

	t.Run("keys are independent", func(t *testing.T) {
		store := NewInMemoryStore()
		for i := 0; i < 3; i++ {
			_, err := store.Allow(ctx, "1.2.3.4", 3, time.Minute)
			require.NoError(t, err)
		}

		res, err := store.Allow(ctx, "5.6.7.8", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("reset clears the window", func(t *testing.T) {
		store := NewInMemoryStore()
		for i := 0; i < 3; i++ {
			_, err := store.Allow(ctx, "1.2.3.4", 3, time.Minute)
			require.NoError(t, err)
		}
		require.NoError(t, store.Reset(ctx, "1.2.3.4"))

		res, err := store.Allow(ctx, "1.2.3.4", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("old entries fall out of the window", func(t *testing.T) {
		store := NewInMemoryStore()
		_, err := store.Allow(ctx, "1.2.3.4", 1, 10*time.Millisecond)
		require.NoError(t, err)

		time.Sleep(20 * time.Millisecond)

		res, err := store.Allow(ctx, "1.2.3.4", 1, 10*time.Millisecond)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})
}

func TestLimiter_FailsOpen(t *testing.T) {
	limiter := NewLimiter(failingStore{}, 10, time.Minute)

	res, err := limiter.Allow(context.Background(), "1.2.3.4")
	require.Error(t, err)
	assert.True(t, res.Allowed)
}

type failingStore struct{}

func (failingStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	return nil, assertErr
}

func (failingStore) Reset(ctx context.Context, key string) error { return assertErr }

var assertErr = context.DeadlineExceeded
