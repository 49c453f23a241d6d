package commerce

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("commerce: order not found")
	ErrCouponNotFound   = errors.New("commerce: coupon not found")
	ErrCouponNotApplicable = errors.New("commerce: coupon not applicable")
)

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&Order{}, &OrderItem{}, &Coupon{})
}

func (r *GormRepository) CreateDraft(ctx context.Context, tenantID, customerID, conversationID string, items []OrderItem) (*Order, error) {
	order := &Order{
		ID:             uuid.NewString(),
		TenantID:       tenantID,
		CustomerID:     customerID,
		ConversationID: conversationID,
		Status:         OrderDraft,
		Currency:       "KES",
		Items:          items,
	}
	for i := range order.Items {
		if order.Items[i].ID == "" {
			order.Items[i].ID = uuid.NewString()
		}
		order.Items[i].TenantID = tenantID
	}
	order.Recalculate()

	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *GormRepository) GetByID(ctx context.Context, tenantID, orderID string) (*Order, error) {
	var order Order
	err := r.db.WithContext(ctx).Preload("Items").
		Where("tenant_id = ? AND id = ?", tenantID, orderID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &order, err
}

// LatestForCustomer returns the customer's most recent order — used when
// order_get_status is called with no order_id and must disambiguate.
func (r *GormRepository) LatestForCustomer(ctx context.Context, tenantID, customerID string) (*Order, error) {
	var order Order
	err := r.db.WithContext(ctx).Preload("Items").
		Where("tenant_id = ? AND customer_id = ?", tenantID, customerID).
		Order("created_at DESC").First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &order, err
}

func (r *GormRepository) UpdateStatus(ctx context.Context, tenantID, orderID string, status OrderStatus) error {
	res := r.db.WithContext(ctx).Model(&Order{}).
		Where("tenant_id = ? AND id = ?", tenantID, orderID).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyCoupon validates the coupon against the order's current subtotal
// and persists the resulting discount/total/coupon_code.
func (r *GormRepository) ApplyCoupon(ctx context.Context, tenantID, orderID, code string) (*Order, error) {
	var coupon Coupon
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND code = ?", tenantID, code).First(&coupon).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCouponNotFound
	}
	if err != nil {
		return nil, err
	}

	order, err := r.GetByID(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}

	if !coupon.Applicable(time.Now(), order.SubtotalCents) {
		return nil, ErrCouponNotApplicable
	}

	order.CouponCode = coupon.Code
	order.DiscountCents = coupon.DiscountFor(order.SubtotalCents)
	order.Recalculate()

	if err := r.db.WithContext(ctx).Save(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *GormRepository) ApplicableOffers(ctx context.Context, tenantID string, subtotalCents int64) ([]Coupon, error) {
	var coupons []Coupon
	if err := r.db.WithContext(ctx).Where("tenant_id = ? AND active = ?", tenantID, true).Find(&coupons).Error; err != nil {
		return nil, err
	}
	now := time.Now()
	var applicable []Coupon
	for _, c := range coupons {
		if c.Applicable(now, subtotalCents) {
			applicable = append(applicable, c)
		}
	}
	return applicable, nil
}
