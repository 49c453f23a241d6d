package rbac

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/convocommerce/backend/platform/cache"
)

const (
	scopeCacheTTL   = 5 * time.Minute
	scopeVersionTTL = 2 * scopeCacheTTL
)

// ScopeResolver computes and caches the effective permission set for a
// TenantUser (spec.md §4.2). It implements the "scope cache with
// versioning" invariant: invalidation is an atomic increment of a version
// counter, never a delete, so a concurrent reader already serving version N
// is never left holding a key that a writer yanked out from under it.
type ScopeResolver struct {
	cache *cache.Client
	repo  *GormRepository
}

func NewScopeResolver(c *cache.Client, repo *GormRepository) *ScopeResolver {
	return &ScopeResolver{cache: c, repo: repo}
}

func (s *ScopeResolver) versionKey(tenantUserID string) string {
	return s.cache.Key("scope_version", tenantUserID)
}

func (s *ScopeResolver) scopeKey(tenantUserID string, version int64) string {
	return s.cache.Key("scopes", tenantUserID, fmt.Sprintf("v%d", version))
}

// currentVersion reads (or initializes) the monotone version counter for a
// TenantUser.
func (s *ScopeResolver) currentVersion(ctx context.Context, tenantUserID string) (int64, error) {
	raw, err := s.cache.Get(ctx, s.versionKey(tenantUserID))
	if err == nil {
		var v int64
		if _, scanErr := fmt.Sscanf(raw, "%d", &v); scanErr == nil {
			return v, nil
		}
	}
	// No counter yet: establish it via an atomic increment. Concurrent
	// first-readers may each increment it and so read different versions;
	// each then computes its scope set fresh.
	return s.cache.Incr(ctx, s.versionKey(tenantUserID), scopeVersionTTL)
}

// Invalidate bumps the version counter for a TenantUser. Called after any
// RBAC write: role assign/unassign, role-permission mutation, or
// user-permission mutation (spec.md §4.2).
func (s *ScopeResolver) Invalidate(ctx context.Context, tenantUserID string) error {
	_, err := s.cache.Incr(ctx, s.versionKey(tenantUserID), scopeVersionTTL)
	return err
}

// Resolve computes the effective scope set for a TenantUser, serving from
// cache when possible.
func (s *ScopeResolver) Resolve(ctx context.Context, tenantUserID string) (map[string]bool, error) {
	version, err := s.currentVersion(ctx, tenantUserID)
	if err != nil {
		return nil, fmt.Errorf("rbac: read scope version: %w", err)
	}

	key := s.scopeKey(tenantUserID, version)
	if raw, err := s.cache.Get(ctx, key); err == nil {
		var scopes []string
		if jsonErr := json.Unmarshal([]byte(raw), &scopes); jsonErr == nil {
			return toSet(scopes), nil
		}
	}

	scopes, err := s.compute(ctx, tenantUserID)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(scopes); err == nil {
		_ = s.cache.SetEx(ctx, key, string(raw), scopeCacheTTL)
	}
	return toSet(scopes), nil
}

// compute performs the actual union-then-override computation from
// spec.md §4.2/§3: (1) union of permission.code across all Role ->
// RolePermission for the TenantUser's assigned roles, (2) apply each
// UserPermission override, deny winning over allow.
func (s *ScopeResolver) compute(ctx context.Context, tenantUserID string) ([]string, error) {
	roleIDs, err := s.repo.RoleIDsForTenantUser(ctx, tenantUserID)
	if err != nil {
		return nil, err
	}
	codes, err := s.repo.PermissionCodesForRoles(ctx, roleIDs)
	if err != nil {
		return nil, err
	}

	overrides, err := s.repo.UserPermissionOverrides(ctx, tenantUserID)
	if err != nil {
		return nil, err
	}

	set := ApplyOverrides(codes, overrides)
	result := make([]string, 0, len(set))
	for code := range set {
		result = append(result, code)
	}
	return result, nil
}

// ApplyOverrides merges a role-derived permission set with UserPermission
// overrides, deny always winning over allow — the core of spec.md §3's
// "effective scopes" invariant, factored out so it can be tested without a
// database or cache.
func ApplyOverrides(roleGranted []string, overrides []UserPermission) map[string]bool {
	set := toSet(roleGranted)
	for _, o := range overrides {
		if o.Granted {
			set[o.PermissionCode] = true
		} else {
			delete(set, o.PermissionCode)
		}
	}
	return set
}

// RequiresScopes reports whether `required` is a subset of `have`.
func RequiresScopes(have map[string]bool, required ...string) bool {
	for _, r := range required {
		if !have[r] {
			return false
		}
	}
	return true
}

func toSet(codes []string) map[string]bool {
	set := make(map[string]bool, len(codes))
	for _, c := range codes {
		set[c] = true
	}
	return set
}
