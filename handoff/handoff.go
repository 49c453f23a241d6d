// Package handoff records escalation tickets and owns the snapshot a human
// operator picks up when a conversation leaves the bot's hands (spec.md
// §4.7). Grounded on commerce's GORM repository shape — a single
// tenant-scoped table with a narrow, explicit mutation surface.
package handoff

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Status string

const (
	StatusOpen     Status = "open"
	StatusClaimed  Status = "claimed"
	StatusResolved Status = "resolved"
)

// Snapshot is the fixed context captured at escalation time (spec.md
// §4.7): {tenant_id, customer_id, journey, step, last_intent, cart,
// order_id, last_question}.
type Snapshot struct {
	Journey      string   `json:"journey"`
	Step         string   `json:"step"`
	LastIntent   string   `json:"last_intent"`
	Cart         []string `json:"cart"`
	OrderID      string   `json:"order_id"`
	LastQuestion string   `json:"last_question"`
}

type Ticket struct {
	ID             string `gorm:"primaryKey"`
	TenantID       string `gorm:"index:idx_handoff_tenant;not null"`
	CustomerID     string
	ConversationID string
	Reason         string
	SnapshotJSON   string `gorm:"column:snapshot;type:text"`
	Status         Status `gorm:"default:'open'"`
	ExpectedReply  time.Duration
	CreatedAt      time.Time
	ResolvedAt     *time.Time
}

func (Ticket) TableName() string { return "handoff_tickets" }

// DefaultExpectedReply is the timeline communicated to the customer when
// no tenant-specific SLA is configured.
const DefaultExpectedReply = 30 * time.Minute

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&Ticket{})
}

// Create opens a new handoff ticket with its context snapshot, returning
// the ticket id and expected-reply timeline the customer is told about.
func (r *GormRepository) Create(ctx context.Context, tenantID, customerID, conversationID, reason string, snap Snapshot, expectedReply time.Duration) (*Ticket, error) {
	if expectedReply <= 0 {
		expectedReply = DefaultExpectedReply
	}
	body, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	t := &Ticket{
		ID:             uuid.NewString(),
		TenantID:       tenantID,
		CustomerID:     customerID,
		ConversationID: conversationID,
		Reason:         reason,
		SnapshotJSON:   string(body),
		Status:         StatusOpen,
		ExpectedReply:  expectedReply,
		CreatedAt:      time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// ListOpen returns every unresolved ticket for tenantID, most recent
// first, for the operator dashboard's handoff queue view.
func (r *GormRepository) ListOpen(ctx context.Context, tenantID string) ([]Ticket, error) {
	var tickets []Ticket
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status != ?", tenantID, StatusResolved).
		Order("created_at DESC").
		Find(&tickets).Error
	return tickets, err
}

func (r *GormRepository) Resolve(ctx context.Context, tenantID, ticketID string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&Ticket{}).
		Where("tenant_id = ? AND id = ?", tenantID, ticketID).
		Updates(map[string]any{"status": StatusResolved, "resolved_at": now}).Error
}
