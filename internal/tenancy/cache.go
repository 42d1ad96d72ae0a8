package tenancy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const cachePrefix = "workforce:access"

// RoleCache caches Access lookups in Redis. Every user has a version counter
// embedded in the key, so invalidating a user orphans all their entries.
type RoleCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewRoleCache instantiates the cache helper.
func NewRoleCache(client *redis.Client, ttl time.Duration) *RoleCache {
	return &RoleCache{client: client, ttl: ttl}
}

// Fetch returns the cached access for (userID, tenantID) or populates it
// with loader. Concurrent misses for the same key share one load.
func (c *RoleCache) Fetch(ctx context.Context, userID, tenantID int64, loader func(context.Context) (Access, error)) (Access, error) {
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	ver, err := c.version(ctx, userID)
	if err != nil {
		return Access{}, err
	}
	key := fmt.Sprintf("%s:%d:%d:%d", cachePrefix, userID, tenantID, ver)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var access Access
		if err := json.Unmarshal(payload, &access); err != nil {
			return Access{}, err
		}
		return access, nil
	}
	if !errors.Is(err, redis.Nil) {
		return Access{}, err
	}

	// The shared load outlives the caller that started it; waiters leave
	// through their own ctx below.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		access, err := loader(loadCtx)
		if err != nil {
			return Access{}, err
		}
		raw, err := json.Marshal(access)
		if err != nil {
			return Access{}, err
		}
		if err := c.client.Set(loadCtx, key, raw, c.ttl).Err(); err != nil {
			return Access{}, err
		}
		return access, nil
	})
	select {
	case <-ctx.Done():
		return Access{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Access{}, res.Err
		}
		return res.Val.(Access), nil
	}
}

// Invalidate drops every cached entry of userID.
func (c *RoleCache) Invalidate(ctx context.Context, userID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, c.versionKey(userID)).Err()
}

func (c *RoleCache) version(ctx context.Context, userID int64) (int64, error) {
	ver, err := c.client.Get(ctx, c.versionKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return ver, err
}

func (c *RoleCache) versionKey(userID int64) string {
	return fmt.Sprintf("%s:version:%d", cachePrefix, userID)
}
