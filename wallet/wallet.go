// Package wallet implements tier-limited feature enforcement and
// tenant-wallet bookkeeping (spec.md §3/§4.11), including the four-eyes
// withdrawal flow. Grounded on the teacher's clients/domain/subscription.go
// (status/expiry shape kept, generalized from a client-channel link to a
// tenant-tier subscription) plus the pack's jackc/pgx raw-SQL
// SELECT ... FOR UPDATE idiom for the wallet balance mutation.
package wallet

import "time"

type SubscriptionStatus string

const (
	SubscriptionActive  SubscriptionStatus = "active"
	SubscriptionPaused  SubscriptionStatus = "paused"
	SubscriptionExpired SubscriptionStatus = "expired"
	SubscriptionRevoked SubscriptionStatus = "revoked"
)

type SubscriptionTier struct {
	ID                string `gorm:"primaryKey"`
	Name              string `gorm:"not null;uniqueIndex"`
	MaxMessagesPerDay int    `gorm:"default:10000"`
	MaxCatalogItems   int    `gorm:"default:1000"`
	MaxStaffUsers     int    `gorm:"default:5"`
	WithdrawalMinCents int64 `gorm:"default:0"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Subscription struct {
	ID         string `gorm:"primaryKey"`
	TenantID   string `gorm:"not null;uniqueIndex"`
	TierID     string `gorm:"not null"`
	Status     SubscriptionStatus `gorm:"not null;default:'active'"`
	ExpiresAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (s Subscription) IsActive() bool {
	if s.Status != SubscriptionActive {
		return false
	}
	if s.ExpiresAt != nil && s.ExpiresAt.Before(time.Now()) {
		return false
	}
	return true
}

type SubscriptionEventType string

const (
	SubEventUpgraded   SubscriptionEventType = "upgraded"
	SubEventDowngraded SubscriptionEventType = "downgraded"
	SubEventRenewed    SubscriptionEventType = "renewed"
	SubEventExpired    SubscriptionEventType = "expired"
	SubEventRevoked    SubscriptionEventType = "revoked"
)

type SubscriptionEvent struct {
	ID             string `gorm:"primaryKey"`
	TenantID       string `gorm:"not null;index"`
	SubscriptionID string `gorm:"not null;index"`
	EventType      SubscriptionEventType `gorm:"not null"`
	FromTierID     string
	ToTierID       string
	CreatedAt      time.Time
}

type SubscriptionDiscount struct {
	ID             string `gorm:"primaryKey"`
	TenantID       string `gorm:"not null;index"`
	SubscriptionID string `gorm:"not null;index"`
	PercentOff     int    `gorm:"not null"`
	ExpiresAt      *time.Time
	CreatedAt      time.Time
}

// TenantWallet's Balance is maintained as a materialized view of
// completed transactions — spec.md §3's invariant that balance must equal
// opening balance plus the signed sum of completed transactions is
// enforced by routing every mutation through the repository's
// transactional debit/credit methods rather than direct field writes.
type TenantWallet struct {
	ID             string `gorm:"primaryKey"`
	TenantID       string `gorm:"not null;uniqueIndex"`
	BalanceCents   int64  `gorm:"not null;default:0"`
	Currency       string `gorm:"not null;default:'KES'"`
	OpeningCents   int64  `gorm:"not null;default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type TransactionType string

const (
	TxnCustomerPayment TransactionType = "customer_payment"
	TxnPlatformFee     TransactionType = "platform_fee"
	TxnWithdrawal      TransactionType = "withdrawal"
	TxnRefund          TransactionType = "refund"
)

type TransactionStatus string

const (
	TxnPending   TransactionStatus = "pending"
	TxnCompleted TransactionStatus = "completed"
	TxnFailed    TransactionStatus = "failed"
)

type Transaction struct {
	ID              string `gorm:"primaryKey"`
	TenantID        string `gorm:"not null;index"`
	WalletID        string `gorm:"not null;index"`
	Type            TransactionType `gorm:"not null"`
	Status          TransactionStatus `gorm:"not null;default:'pending'"`
	AmountCents     int64             `gorm:"not null"`
	PairedTxnID     string            // e.g. platform_fee paired with its customer_payment
	InitiatorUserID string
	ApproverUserID  string
	ExternalRef     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// WalletAudit is the forensic record specific to wallet mutations,
// narrower than audit.AuditLog's generic actor/action/target shape —
// it exists so a wallet balance reconciliation never depends on a join
// against the general-purpose audit trail.
type WalletAudit struct {
	ID            string `gorm:"primaryKey"`
	TenantID      string `gorm:"not null;index"`
	WalletID      string `gorm:"not null;index"`
	TransactionID string `gorm:"not null;index"`
	Action        string `gorm:"not null"`
	ActorUserID   string
	BalanceBefore int64
	BalanceAfter  int64
	CreatedAt     time.Time
}
