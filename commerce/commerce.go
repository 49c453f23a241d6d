// Package commerce holds the authoritative Cart/Order model backing the
// sales and orders journeys. Distinct from conversation.CartLine, which is
// a transient working-memory snapshot inside ConversationState — commerce
// entities are the source of truth once an item is actually selected.
// New relative to spec.md's distilled scope (SPEC_FULL.md DOMAIN STACK),
// grounded on the teacher's GORM repository shape.
package commerce

import "time"

type OrderStatus string

const (
	OrderDraft     OrderStatus = "draft"
	OrderPending   OrderStatus = "pending_payment"
	OrderPaid      OrderStatus = "paid"
	OrderFulfilled OrderStatus = "fulfilled"
	OrderCancelled OrderStatus = "cancelled"
)

type Order struct {
	ID             string `gorm:"primaryKey"`
	TenantID       string `gorm:"not null;index:idx_commerce_tenant"`
	CustomerID     string `gorm:"not null;index"`
	ConversationID string `gorm:"index"`
	Status         OrderStatus `gorm:"not null;default:'draft'"`
	SubtotalCents  int64       `gorm:"not null;default:0"`
	DiscountCents  int64       `gorm:"not null;default:0"`
	TotalCents     int64       `gorm:"not null;default:0"`
	Currency       string      `gorm:"not null;default:'KES'"`
	CouponCode     string
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Items []OrderItem `gorm:"foreignKey:OrderID"`
}

type OrderItem struct {
	ID               string `gorm:"primaryKey"`
	OrderID          string `gorm:"not null;index"`
	TenantID         string `gorm:"not null;index"`
	ProductVariantID string `gorm:"not null"`
	Label            string `gorm:"not null"`
	Quantity         int    `gorm:"not null;default:1"`
	UnitPriceCents   int64  `gorm:"not null"`
}

// Recalculate derives SubtotalCents/TotalCents from Items and any applied
// discount — called after every mutation so the persisted totals never
// drift from the line items.
func (o *Order) Recalculate() {
	var subtotal int64
	for _, item := range o.Items {
		subtotal += item.UnitPriceCents * int64(item.Quantity)
	}
	o.SubtotalCents = subtotal
	total := subtotal - o.DiscountCents
	if total < 0 {
		total = 0
	}
	o.TotalCents = total
}

func (o *Order) IsTerminal() bool {
	return o.Status == OrderFulfilled || o.Status == OrderCancelled
}

type CouponType string

const (
	CouponPercentOff CouponType = "percent_off"
	CouponFlatOff    CouponType = "flat_off"
)

type Coupon struct {
	ID         string `gorm:"primaryKey"`
	TenantID   string `gorm:"not null;index:idx_coupon_tenant_code"`
	Code       string `gorm:"not null;uniqueIndex:idx_coupon_tenant_code"`
	Type       CouponType `gorm:"not null"`
	Value      int64      `gorm:"not null"` // percent (0-100) or flat cents, per Type
	Active     bool       `gorm:"default:true"`
	ExpiresAt  *time.Time
	MinOrderCents int64 `gorm:"default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (c Coupon) Applicable(at time.Time, subtotalCents int64) bool {
	if !c.Active {
		return false
	}
	if c.ExpiresAt != nil && at.After(*c.ExpiresAt) {
		return false
	}
	return subtotalCents >= c.MinOrderCents
}

// DiscountFor computes the discount in cents this coupon yields against
// subtotalCents, never exceeding the subtotal itself.
func (c Coupon) DiscountFor(subtotalCents int64) int64 {
	var discount int64
	switch c.Type {
	case CouponPercentOff:
		discount = subtotalCents * c.Value / 100
	case CouponFlatOff:
		discount = c.Value
	}
	if discount > subtotalCents {
		discount = subtotalCents
	}
	return discount
}
