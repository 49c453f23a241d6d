package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("wallet: not found")
	ErrInsufficientFunds = errors.New("wallet: insufficient funds")
)

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(
		&SubscriptionTier{}, &Subscription{}, &SubscriptionEvent{}, &SubscriptionDiscount{},
		&TenantWallet{}, &Transaction{}, &WalletAudit{},
	)
}

func (r *GormRepository) GetSubscription(ctx context.Context, tenantID string) (*Subscription, error) {
	var sub Subscription
	err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &sub, err
}

func (r *GormRepository) GetTier(ctx context.Context, tierID string) (*SubscriptionTier, error) {
	var tier SubscriptionTier
	err := r.db.WithContext(ctx).Where("id = ?", tierID).First(&tier).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &tier, err
}

func (r *GormRepository) RecordEvent(ctx context.Context, ev *SubscriptionEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(ev).Error
}

func (r *GormRepository) GetWallet(ctx context.Context, tenantID string) (*TenantWallet, error) {
	var w TenantWallet
	err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &w, err
}

func (r *GormRepository) EnsureWallet(ctx context.Context, tenantID, currency string) (*TenantWallet, error) {
	w, err := r.GetWallet(ctx, tenantID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	w = &TenantWallet{ID: uuid.NewString(), TenantID: tenantID, Currency: currency, CreatedAt: time.Now()}
	if err := r.db.WithContext(ctx).Create(w).Error; err != nil {
		return nil, err
	}
	return w, nil
}

func (r *GormRepository) GetTransaction(ctx context.Context, tenantID, id string) (*Transaction, error) {
	var txn Transaction
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &txn, err
}
