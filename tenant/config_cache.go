package tenant

import (
	"context"
	"encoding/json"
	"time"

	"github.com/convocommerce/backend/platform/cache"
)

const configCacheTTL = time.Hour

// ConfigCache fronts tenant lookups with a Valkey-backed cache so the hot
// webhook-intake and journey-routing paths don't hit Postgres on every
// turn. Writers must call Invalidate after any Tenant mutation.
type ConfigCache struct {
	cache *cache.Client
	repo  *GormRepository
}

func NewConfigCache(c *cache.Client, repo *GormRepository) *ConfigCache {
	return &ConfigCache{cache: c, repo: repo}
}

func (c *ConfigCache) key(tenantID string) string {
	return c.cache.Key("tenant-config", tenantID)
}

func (c *ConfigCache) Get(ctx context.Context, tenantID string) (*Tenant, error) {
	key := c.key(tenantID)
	if raw, err := c.cache.Get(ctx, key); err == nil {
		var t Tenant
		if jsonErr := json.Unmarshal([]byte(raw), &t); jsonErr == nil {
			return &t, nil
		}
	}

	t, err := c.repo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(t); err == nil {
		_ = c.cache.SetEx(ctx, key, string(raw), configCacheTTL)
	}
	return t, nil
}

// Invalidate drops the cached entry for a tenant after a write. Deleting
// here (rather than versioning) is safe because tenant-config reads are not
// subject to the same read-after-miss race the RBAC scope cache guards
// against — a stale 1h-old read of tenant config is tolerable, and a short
// window of cache misses after a rare admin edit is not.
func (c *ConfigCache) Invalidate(ctx context.Context, tenantID string) error {
	return c.cache.Del(ctx, c.key(tenantID))
}
