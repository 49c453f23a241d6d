// Package customer holds the Customer entity — a party as known to one
// tenant — and its consent flags (spec.md §3, §4.9).
package customer

import (
	"time"

	"github.com/google/uuid"
)

type Customer struct {
	ID       string `gorm:"primaryKey"`
	TenantID string `gorm:"uniqueIndex:idx_customer_tenant_phone;not null"`
	Phone    string `gorm:"column:phone_e164;uniqueIndex:idx_customer_tenant_phone;not null"`

	DisplayName string
	TimeZone    string
	Tags        string `gorm:"type:text;default:'[]'"` // JSON array

	GlobalPartyID string
	LastSeenAt    time.Time

	// Consent categories, spec.md §4.9. Transactional is non-revocable and
	// always true; kept as a field for symmetry and audit visibility.
	ConsentTransactional bool `gorm:"default:true"`
	ConsentReminder      bool `gorm:"default:true"`
	ConsentPromotional   bool `gorm:"default:false"`

	LanguagePref     string
	MarketingOptIn   bool `gorm:"default:false"`
	NotificationPref string `gorm:"type:text;default:'{}'"` // JSON

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Customer) TableName() string { return "customers" }

func New(tenantID, phone string) *Customer {
	return &Customer{
		ID:                   uuid.NewString(),
		TenantID:             tenantID,
		Phone:                phone,
		ConsentTransactional: true,
		ConsentReminder:      true,
		ConsentPromotional:   false,
		LastSeenAt:           time.Now().UTC(),
	}
}

// ConsentFor reports whether the customer has consented to receive a
// message of the given category.
func (c *Customer) ConsentFor(category MessageCategory) bool {
	switch category {
	case CategoryTransactional:
		return true // non-revocable, spec.md §4.9
	case CategoryReminder:
		return c.ConsentReminder
	case CategoryPromotional:
		return c.ConsentPromotional
	default:
		return false
	}
}

// Unsubscribe flips reminder and promotional consent off atomically —
// the STOP/UNSUBSCRIBE handler (spec.md §4.9). Transactional consent is
// untouched since it cannot be revoked.
func (c *Customer) Unsubscribe() {
	c.ConsentReminder = false
	c.ConsentPromotional = false
}

type MessageCategory string

const (
	CategoryTransactional MessageCategory = "transactional_messages"
	CategoryReminder      MessageCategory = "reminder_messages"
	CategoryPromotional   MessageCategory = "promotional_messages"
)
