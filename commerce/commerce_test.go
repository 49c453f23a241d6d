package commerce

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrder_Recalculate(t *testing.T) {
	order := &Order{
		DiscountCents: 100,
		Items: []OrderItem{
			{UnitPriceCents: 500, Quantity: 2},
			{UnitPriceCents: 250, Quantity: 1},
		},
	}
	order.Recalculate()
	assert.Equal(t, int64(1250), order.SubtotalCents)
	assert.Equal(t, int64(1150), order.TotalCents)
}

func TestOrder_Recalculate_DiscountNeverNegative(t *testing.T) {
	order := &Order{
		DiscountCents: 10000,
		Items:         []OrderItem{{UnitPriceCents: 100, Quantity: 1}},
	}
	order.Recalculate()
	assert.Equal(t, int64(0), order.TotalCents)
}

func TestCoupon_Applicable(t *testing.T) {
	future := time.Now().Add(24 * time.Hour)
	past := time.Now().Add(-24 * time.Hour)

	t.Run("inactive coupon never applies", func(t *testing.T) {
		c := Coupon{Active: false}
		assert.False(t, c.Applicable(time.Now(), 1000))
	})

	t.Run("expired coupon does not apply", func(t *testing.T) {
		c := Coupon{Active: true, ExpiresAt: &past}
		assert.False(t, c.Applicable(time.Now(), 1000))
	})

	t.Run("below minimum order does not apply", func(t *testing.T) {
		c := Coupon{Active: true, ExpiresAt: &future, MinOrderCents: 2000}
		assert.False(t, c.Applicable(time.Now(), 1000))
	})

	t.Run("valid coupon applies", func(t *testing.T) {
		c := Coupon{Active: true, ExpiresAt: &future, MinOrderCents: 500}
		assert.True(t, c.Applicable(time.Now(), 1000))
	})
}

func TestCoupon_DiscountFor(t *testing.T) {
	t.Run("percent off", func(t *testing.T) {
		c := Coupon{Type: CouponPercentOff, Value: 10}
		assert.Equal(t, int64(100), c.DiscountFor(1000))
	})

	t.Run("flat off capped at subtotal", func(t *testing.T) {
		c := Coupon{Type: CouponFlatOff, Value: 5000}
		assert.Equal(t, int64(1000), c.DiscountFor(1000))
	})
}
