// Package tenant holds the Tenant and GlobalParty entities, tenant-config
// caching, and subscription-tier gating described in spec.md §3/§4.1.
package tenant

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive        Status = "active"
	StatusTrial          Status = "trial"
	StatusTrialExpired   Status = "trial_expired"
	StatusSuspended      Status = "suspended"
	StatusCanceled       Status = "canceled"
)

// Operational reports whether the tenant may still receive and send
// messages under the normal subscription gate (spec.md §4.1).
func (s Status) Operational() bool {
	return s == StatusActive || s == StatusTrial
}

// GatewayConfig holds the messaging-provider credentials for one tenant.
// SenderNumber is stored in plaintext (it must be looked up by inbound
// webhooks); the secret fields are expected to already be encrypted by
// platform/crypto before they reach this struct's persisted form.
type GatewayConfig struct {
	SenderNumber       string `gorm:"uniqueIndex;not null"`
	ProviderName       string
	EncryptedCredential string
	EncryptedWebhookSecret string
}

// QuietHours is a daily do-not-disturb window expressed in the tenant's own
// time zone (spec.md §3 Tenant, §4.9).
type QuietHours struct {
	StartHour int
	StartMin  int
	EndHour   int
	EndMin    int
}

type Tenant struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	Slug      string `gorm:"uniqueIndex;not null"`
	Status    Status `gorm:"not null;default:trial"`
	TimeZone  string `gorm:"not null;default:UTC"`

	GatewaySenderNumber        string `gorm:"column:gw_sender_number;uniqueIndex"`
	GatewayProviderName        string `gorm:"column:gw_provider_name"`
	GatewayEncryptedCredential string `gorm:"column:gw_credential"`
	GatewayEncryptedSecret     string `gorm:"column:gw_webhook_secret"`

	QuietHoursStartHour int
	QuietHoursStartMin  int
	QuietHoursEndHour   int
	QuietHoursEndMin    int

	SubscriptionTierID string
	SubscriptionWaived bool `gorm:"default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Tenant) TableName() string { return "tenants" }

func NewTenant(name, slug string) *Tenant {
	return &Tenant{
		ID:       uuid.NewString(),
		Name:     name,
		Slug:     slug,
		Status:   StatusTrial,
		TimeZone: "UTC",
	}
}

func (t *Tenant) QuietHours() QuietHours {
	return QuietHours{
		StartHour: t.QuietHoursStartHour,
		StartMin:  t.QuietHoursStartMin,
		EndHour:   t.QuietHoursEndHour,
		EndMin:    t.QuietHoursEndMin,
	}
}

// Operational mirrors Status.Operational, accounting for a waived
// subscription (spec.md §4.1 "not subscription_waived").
func (t *Tenant) Operational() bool {
	return t.Status.Operational() || t.SubscriptionWaived
}

// GlobalParty links the same phone number across tenants for analytics
// joins only; never exposed outside this package's internal consumers.
type GlobalParty struct {
	ID             string `gorm:"primaryKey"`
	EncryptedPhone string `gorm:"uniqueIndex;not null"`
	CreatedAt      time.Time
}

func (GlobalParty) TableName() string { return "global_parties" }

func NewGlobalParty(encryptedPhone string) *GlobalParty {
	return &GlobalParty{ID: uuid.NewString(), EncryptedPhone: encryptedPhone}
}
