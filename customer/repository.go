package customer

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&Customer{})
}

func (r *GormRepository) GetByID(ctx context.Context, tenantID, id string) (*Customer, error) {
	var c Customer
	if err := r.db.WithContext(ctx).First(&c, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// GetByPhone looks up a customer scoped to one tenant — never across
// tenants (spec.md §3 Customer invariant).
func (r *GormRepository) GetByPhone(ctx context.Context, tenantID, phone string) (*Customer, error) {
	var c Customer
	if err := r.db.WithContext(ctx).First(&c, "tenant_id = ? AND phone_e164 = ?", tenantID, phone).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// UpsertByPhone finds-or-creates the Customer for (tenant, phone), used by
// webhook intake on every inbound message (spec.md §4.1).
func (r *GormRepository) UpsertByPhone(ctx context.Context, tenantID, phone string) (*Customer, error) {
	existing, err := r.GetByPhone(ctx, tenantID, phone)
	if err == nil {
		existing.LastSeenAt = time.Now().UTC()
		if updErr := r.db.WithContext(ctx).Model(existing).Update("last_seen_at", existing.LastSeenAt).Error; updErr != nil {
			return nil, updErr
		}
		return existing, nil
	}
	if err != ErrNotFound {
		return nil, err
	}
	c := New(tenantID, phone)
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

func (r *GormRepository) Update(ctx context.Context, c *Customer) error {
	c.UpdatedAt = time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&Customer{}).
		Where("id = ? AND tenant_id = ?", c.ID, c.TenantID).Select("*").Updates(c)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
