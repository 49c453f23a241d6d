package tenant

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

// GormRepository persists Tenant and GlobalParty records, grounded on the
// teacher's workspace_gorm.go CRUD shape.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&Tenant{}, &GlobalParty{})
}

func (r *GormRepository) Create(ctx context.Context, t *Tenant) error {
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") || strings.Contains(err.Error(), "duplicate key value") {
			return ErrDuplicateSlug
		}
		return err
	}
	return nil
}

func (r *GormRepository) GetByID(ctx context.Context, id string) (*Tenant, error) {
	var t Tenant
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// GetBySenderNumber resolves the tenant owning a gateway sender number —
// the primary tenant-resolution path for inbound webhooks (spec.md §4.1).
func (r *GormRepository) GetBySenderNumber(ctx context.Context, senderNumber string) (*Tenant, error) {
	var t Tenant
	if err := r.db.WithContext(ctx).First(&t, "gw_sender_number = ?", senderNumber).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *GormRepository) GetBySlug(ctx context.Context, slug string) (*Tenant, error) {
	var t Tenant
	if err := r.db.WithContext(ctx).First(&t, "slug = ?", slug).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *GormRepository) Update(ctx context.Context, t *Tenant) error {
	result := r.db.WithContext(ctx).Model(&Tenant{}).Where("id = ?", t.ID).Select("*").Updates(t)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepository) UpsertGlobalParty(ctx context.Context, encryptedPhone string) (*GlobalParty, error) {
	var gp GlobalParty
	err := r.db.WithContext(ctx).First(&gp, "encrypted_phone = ?", encryptedPhone).Error
	if err == nil {
		return &gp, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	gp = *NewGlobalParty(encryptedPhone)
	if err := r.db.WithContext(ctx).Create(&gp).Error; err != nil {
		return nil, err
	}
	return &gp, nil
}
