package rbac

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrNotFound      = errors.New("rbac: not found")
	ErrNotAdmitted   = errors.New("rbac: membership not active or not accepted")
)

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(
		&User{}, &TenantUser{}, &Permission{}, &Role{},
		&RolePermission{}, &RoleAssignment{}, &UserPermission{},
	)
}

func (r *GormRepository) GetUserByID(ctx context.Context, id string) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *GormRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).First(&u, "email = ?", email).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *GormRepository) GetTenantUser(ctx context.Context, tenantID, userID string) (*TenantUser, error) {
	var tu TenantUser
	if err := r.db.WithContext(ctx).First(&tu, "tenant_id = ? AND user_id = ?", tenantID, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tu, nil
}

func (r *GormRepository) TouchLastSeen(ctx context.Context, tenantUserID string) error {
	return r.db.WithContext(ctx).Model(&TenantUser{}).Where("id = ?", tenantUserID).
		Update("last_seen_at", time.Now().UTC()).Error
}

// PermissionCodesForRoles returns the union of permission codes granted by
// the given roles, deduplicated.
func (r *GormRepository) PermissionCodesForRoles(ctx context.Context, roleIDs []string) ([]string, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	var codes []string
	err := r.db.WithContext(ctx).Model(&RolePermission{}).
		Where("role_id IN ?", roleIDs).
		Distinct().Pluck("permission_code", &codes).Error
	return codes, err
}

// RoleIDsForTenantUser returns the roles assigned to a TenantUser.
func (r *GormRepository) RoleIDsForTenantUser(ctx context.Context, tenantUserID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&RoleAssignment{}).
		Where("tenant_user_id = ?", tenantUserID).Pluck("role_id", &ids).Error
	return ids, err
}

// UserPermissionOverrides returns all UserPermission overrides for a
// TenantUser.
func (r *GormRepository) UserPermissionOverrides(ctx context.Context, tenantUserID string) ([]UserPermission, error) {
	var ups []UserPermission
	err := r.db.WithContext(ctx).Where("tenant_user_id = ?", tenantUserID).Find(&ups).Error
	return ups, err
}

func (r *GormRepository) AssignRole(ctx context.Context, tenantUserID, roleID string) error {
	return r.db.WithContext(ctx).Clauses().Create(&RoleAssignment{TenantUserID: tenantUserID, RoleID: roleID}).Error
}

func (r *GormRepository) UnassignRole(ctx context.Context, tenantUserID, roleID string) error {
	return r.db.WithContext(ctx).Delete(&RoleAssignment{}, "tenant_user_id = ? AND role_id = ?", tenantUserID, roleID).Error
}

func (r *GormRepository) SetUserPermission(ctx context.Context, up *UserPermission) error {
	return r.db.WithContext(ctx).Save(up).Error
}
