package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("catalog: not found")

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(
		&Product{}, &ProductVariant{},
		&Service{}, &ServiceVariant{},
		&AvailabilityWindow{}, &Appointment{},
	)
}

// SearchParams is catalog_search's parameter shape (spec.md §4.5/§4.6):
// free-text query plus optional filters, bounded to six results per reply.
type SearchParams struct {
	TenantID    string
	Query       string
	CategoryTag string
	Limit       int
}

const MaxSearchResults = 6

type SearchResult struct {
	Items         []Product
	TotalEstimate int64
}

func (r *GormRepository) Search(ctx context.Context, p SearchParams) (SearchResult, error) {
	limit := p.Limit
	if limit <= 0 || limit > MaxSearchResults {
		limit = MaxSearchResults
	}

	q := r.db.WithContext(ctx).Model(&Product{}).
		Where("tenant_id = ? AND active = ?", p.TenantID, true)
	if p.CategoryTag != "" {
		q = q.Where("category_tag = ?", p.CategoryTag)
	}
	if p.Query != "" {
		like := "%" + strings.ToLower(p.Query) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return SearchResult{}, err
	}

	var items []Product
	if err := q.Preload("Variants").Order("created_at DESC").Limit(limit).Find(&items).Error; err != nil {
		return SearchResult{}, err
	}

	return SearchResult{Items: items, TotalEstimate: total}, nil
}

func (r *GormRepository) GetItem(ctx context.Context, tenantID, productID string) (Product, error) {
	var p Product
	err := r.db.WithContext(ctx).Preload("Variants").
		Where("tenant_id = ? AND id = ?", tenantID, productID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Product{}, ErrNotFound
	}
	return p, err
}

// GetVariant resolves a product variant and its parent product by variant
// id, tenant-scoped — used when a subflow has already narrowed to one
// purchasable option and needs its price/label to draft an order.
func (r *GormRepository) GetVariant(ctx context.Context, tenantID, variantID string) (ProductVariant, Product, error) {
	var v ProductVariant
	if err := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, variantID).First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProductVariant{}, Product{}, ErrNotFound
		}
		return ProductVariant{}, Product{}, err
	}
	var p Product
	if err := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, v.ProductID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProductVariant{}, Product{}, ErrNotFound
		}
		return ProductVariant{}, Product{}, err
	}
	return v, p, nil
}

func (r *GormRepository) CreateProduct(ctx context.Context, p *Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *GormRepository) UpsertBySKU(ctx context.Context, p *Product) error {
	var existing Product
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND sku = ?", p.TenantID, p.SKU).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return r.CreateProduct(ctx, p)
	case err != nil:
		return err
	default:
		p.ID = existing.ID
		return r.db.WithContext(ctx).Model(&existing).Updates(p).Error
	}
}

// ReserveAvailability atomically books one seat in a window, failing with
// a plain (unwrapped) error if capacity is exhausted by the time the row
// lock is acquired (SELECT ... FOR UPDATE within the transaction).
func (r *GormRepository) ReserveAvailability(ctx context.Context, tenantID, windowID string) (AvailabilityWindow, error) {
	var window AvailabilityWindow
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tenant_id = ? AND id = ?", tenantID, windowID).First(&window).Error; err != nil {
			return err
		}
		if !window.HasCapacity() {
			return fmt.Errorf("catalog: no capacity left in window %s", windowID)
		}
		window.CapacityBooked++
		return tx.Save(&window).Error
	})
	return window, err
}
