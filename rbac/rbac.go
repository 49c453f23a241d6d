// Package rbac implements the tenant/RBAC context resolver from spec.md
// §4.2: User/TenantUser/Permission/Role/RolePermission/UserPermission,
// the deny-overrides-allow scope algebra, the version-counter scope cache,
// and four-eyes validation for approval operations.
package rbac

import (
	"time"

	"github.com/google/uuid"
)

type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteRevoked  InviteStatus = "revoked"
)

// User is a global identity, independent of any tenant.
type User struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Active       bool   `gorm:"default:true"`
	TwoFactor    bool   `gorm:"column:two_factor_enabled;default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (User) TableName() string { return "users" }

func NewUser(email, passwordHash string) *User {
	return &User{ID: uuid.NewString(), Email: email, PasswordHash: passwordHash, Active: true}
}

// TenantUser associates a User with a Tenant.
type TenantUser struct {
	ID           string `gorm:"primaryKey"`
	TenantID     string `gorm:"uniqueIndex:idx_tenant_user;not null"`
	UserID       string `gorm:"uniqueIndex:idx_tenant_user;not null"`
	InviteStatus InviteStatus `gorm:"default:pending"`
	IsActive     bool         `gorm:"default:true"`
	LastSeenAt   time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (TenantUser) TableName() string { return "tenant_users" }

// Admitted reports whether the membership is allowed to act within the
// tenant (spec.md §4.2: "if missing, inactive, or invite_status != accepted
// -> fail with Forbidden").
func (tu *TenantUser) Admitted() bool {
	return tu != nil && tu.IsActive && tu.InviteStatus == InviteAccepted
}

// Permission is a globally unique capability code, e.g. "catalog:view".
type Permission struct {
	Code        string `gorm:"primaryKey"`
	Description string
}

func (Permission) TableName() string { return "permissions" }

// Role is a per-tenant named collection of permissions. System-seeded roles
// are immutable (cannot be deleted or have their permission set edited
// outside of a migration).
type Role struct {
	ID         string `gorm:"primaryKey"`
	TenantID   string `gorm:"uniqueIndex:idx_role_tenant_name;not null"`
	Name       string `gorm:"uniqueIndex:idx_role_tenant_name;not null"`
	SystemSeeded bool `gorm:"default:false"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Role) TableName() string { return "roles" }

// RolePermission is the Role<->Permission many-to-many join.
type RolePermission struct {
	RoleID         string `gorm:"primaryKey"`
	PermissionCode string `gorm:"primaryKey"`
}

func (RolePermission) TableName() string { return "role_permissions" }

// RoleAssignment assigns a Role to a TenantUser.
type RoleAssignment struct {
	TenantUserID string `gorm:"primaryKey"`
	RoleID       string `gorm:"primaryKey"`
}

func (RoleAssignment) TableName() string { return "role_assignments" }

// UserPermission is an override tied to a TenantUser: granted=true adds a
// permission even without a role grant; granted=false removes it even if a
// role grants it (deny always wins, spec.md §3/§4.2).
type UserPermission struct {
	ID             string `gorm:"primaryKey"`
	TenantUserID   string `gorm:"uniqueIndex:idx_user_permission;not null"`
	PermissionCode string `gorm:"uniqueIndex:idx_user_permission;not null"`
	Granted        bool
	Reason         string
	CreatedAt      time.Time
}

func (UserPermission) TableName() string { return "user_permissions" }
