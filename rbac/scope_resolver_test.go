package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyOverrides_DenyWinsOverAllow(t *testing.T) {
	roleGranted := []string{"catalog:view", "orders:view", "payments:withdraw"}
	overrides := []UserPermission{
		{PermissionCode: "payments:withdraw", Granted: false}, // role grants it, override denies it
		{PermissionCode: "handoff:create", Granted: true},     // no role grant, override adds it
	}

	effective := ApplyOverrides(roleGranted, overrides)

	assert.True(t, effective["catalog:view"])
	assert.True(t, effective["orders:view"])
	assert.False(t, effective["payments:withdraw"], "deny override must win over a role grant")
	assert.True(t, effective["handoff:create"], "allow override must add a permission absent from any role")
}

func TestApplyOverrides_NoOverrides(t *testing.T) {
	effective := ApplyOverrides([]string{"catalog:view"}, nil)
	assert.Equal(t, map[string]bool{"catalog:view": true}, effective)
}

func TestRequiresScopes(t *testing.T) {
	have := map[string]bool{"catalog:view": true, "orders:view": true}

	assert.True(t, RequiresScopes(have, "catalog:view"))
	assert.True(t, RequiresScopes(have, "catalog:view", "orders:view"))
	assert.False(t, RequiresScopes(have, "catalog:view", "payments:withdraw"))
	assert.True(t, RequiresScopes(have), "empty requirement set is trivially satisfied")
}

func TestTenantUser_Admitted(t *testing.T) {
	cases := []struct {
		name string
		tu   *TenantUser
		want bool
	}{
		{"nil membership", nil, false},
		{"accepted and active", &TenantUser{IsActive: true, InviteStatus: InviteAccepted}, true},
		{"pending invite", &TenantUser{IsActive: true, InviteStatus: InvitePending}, false},
		{"revoked invite", &TenantUser{IsActive: true, InviteStatus: InviteRevoked}, false},
		{"inactive", &TenantUser{IsActive: false, InviteStatus: InviteAccepted}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.tu.Admitted())
		})
	}
}
