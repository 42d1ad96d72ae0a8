package tenancy

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleCacheSharedLoadSurvivesFirstCallerCancel(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewRoleCache(client, time.Minute)

	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	loader := func(ctx context.Context) (Access, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
		}
		if err := ctx.Err(); err != nil {
			return Access{}, err
		}
		return Access{UserActive: true, Member: true, Role: "MANAGER"}, nil
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := cache.Fetch(firstCtx, 3, 10, loader)
		firstErr <- err
	}()
	<-started

	type result struct {
		access Access
		err    error
	}
	second := make(chan result, 1)
	go func() {
		access, err := cache.Fetch(context.Background(), 3, 10, loader)
		second <- result{access, err}
	}()

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	// Give the second caller time to join the in-flight load.
	time.Sleep(20 * time.Millisecond)
	close(release)

	res := <-second
	require.NoError(t, res.err, "waiters are not failed by the first caller leaving")
	assert.Equal(t, "MANAGER", res.access.Role)

	cached, err := cache.Fetch(context.Background(), 3, 10, func(context.Context) (Access, error) {
		t.Fatal("entry should be cached")
		return Access{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "MANAGER", cached.Role)
}
