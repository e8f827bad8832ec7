package businessflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourcePoolSelectSender(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyPool", func(t *testing.T) {
		pool := NewSourcePool(newFakeSourceRepo())
		_, err := pool.SelectSender(ctx, nil)
		require.Error(t, err)
		assert.True(t, IsPoolExhausted(err))
	})

	t.Run("OnlyInactiveNumbers", func(t *testing.T) {
		repo := newFakeSourceRepo("+15550000001")
		repo.deactivate("+15550000001")
		_, err := NewSourcePool(repo).SelectSender(ctx, nil)
		assert.True(t, IsPoolExhausted(err))
	})

	t.Run("ExcludesLastSender", func(t *testing.T) {
		repo := newFakeSourceRepo("+15550000001", "+15550000002")
		pool := NewSourcePool(repo)
		exclude := "+15550000001"
		for i := 0; i < 50; i++ {
			source, err := pool.SelectSender(ctx, &exclude)
			require.NoError(t, err)
			assert.Equal(t, "+15550000002", source.PhoneNumber)
		}
	})

	t.Run("ExclusionDroppedWhenItWouldEmptyThePool", func(t *testing.T) {
		repo := newFakeSourceRepo("+15550000001")
		exclude := "+15550000001"
		source, err := NewSourcePool(repo).SelectSender(ctx, &exclude)
		require.NoError(t, err)
		assert.Equal(t, "+15550000001", source.PhoneNumber)
	})

	t.Run("UnknownExclusionIsHarmless", func(t *testing.T) {
		repo := newFakeSourceRepo("+15550000001")
		exclude := "+15559999999"
		source, err := NewSourcePool(repo).SelectSender(ctx, &exclude)
		require.NoError(t, err)
		assert.Equal(t, "+15550000001", source.PhoneNumber)
	})

	t.Run("SkipsInactive", func(t *testing.T) {
		repo := newFakeSourceRepo("+15550000001", "+15550000002", "+15550000003")
		repo.deactivate("+15550000002")
		pool := NewSourcePool(repo)
		for i := 0; i < 50; i++ {
			source, err := pool.SelectSender(ctx, nil)
			require.NoError(t, err)
			assert.NotEqual(t, "+15550000002", source.PhoneNumber)
		}
	})

	t.Run("OffsetMapsToIDOrder", func(t *testing.T) {
		repo := newFakeSourceRepo("+15550000001", "+15550000002", "+15550000003")
		pool := NewSourcePoolWithRand(repo, func(n int64) int64 { return 2 })
		source, err := pool.SelectSender(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, "+15550000003", source.PhoneNumber)
	})

	t.Run("PoolShrinksBetweenReads", func(t *testing.T) {
		repo := newFakeSourceRepo("+15550000001", "+15550000002", "+15550000003")
		pool := NewSourcePoolWithRand(repo, func(n int64) int64 {
			repo.deactivate("+15550000003")
			return n - 1
		})
		source, err := pool.SelectSender(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, "+15550000001", source.PhoneNumber)
	})

	t.Run("CountError", func(t *testing.T) {
		repo := newFakeSourceRepo("+15550000001")
		repo.countErr = errors.New("connection refused")
		_, err := NewSourcePool(repo).SelectSender(ctx, nil)
		require.Error(t, err)
		assert.False(t, IsPoolExhausted(err))
	})
}

func TestSourcePoolDistribution(t *testing.T) {
	repo := newFakeSourceRepo("+15550000001", "+15550000002", "+15550000003")
	pool := NewSourcePool(repo)

	const draws = 3000
	counts := make(map[string]int)
	for i := 0; i < draws; i++ {
		source, err := pool.SelectSender(context.Background(), nil)
		require.NoError(t, err)
		counts[source.PhoneNumber]++
	}

	require.Len(t, counts, 3)
	for phone, n := range counts {
		// expected 1000 each; the band is more than 7 standard deviations wide
		assert.InDelta(t, draws/3, n, 200, "sender %s selected %d times", phone, n)
	}
}
