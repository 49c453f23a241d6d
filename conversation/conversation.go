// Package conversation holds the Conversation and Message entities, the
// ConversationState working-memory object, and the conversation state
// store (load/save under a per-conversation lock) from spec.md §3/§4.3.
package conversation

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusOpen    Status = "open"
	StatusBot     Status = "bot"
	StatusHandoff Status = "handoff"
	StatusClosed  Status = "closed"
	StatusDormant Status = "dormant"
)

type Conversation struct {
	ID              string `gorm:"primaryKey"`
	TenantID        string `gorm:"index:idx_conv_tenant_customer;not null"`
	CustomerID      string `gorm:"index:idx_conv_tenant_customer;not null"`
	Status          Status `gorm:"default:open"`
	Channel         string `gorm:"default:whatsapp"`
	LastIntent      string
	CurrentOperator string
	Metadata        string `gorm:"type:text;default:'{}'"` // JSON

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Conversation) TableName() string { return "conversations" }

func New(tenantID, customerID string) *Conversation {
	return &Conversation{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		CustomerID: customerID,
		Status:     StatusOpen,
		Channel:    "whatsapp",
	}
}

func (c *Conversation) IsOpen() bool { return c.Status != StatusClosed }

type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

type MessageKind string

const (
	KindCustomerInbound          MessageKind = "customer_inbound"
	KindBotResponse              MessageKind = "bot_response"
	KindAutomatedTransactional   MessageKind = "automated_transactional"
	KindAutomatedReminder        MessageKind = "automated_reminder"
	KindAutomatedReengagement    MessageKind = "automated_reengagement"
	KindScheduledPromotional     MessageKind = "scheduled_promotional"
	KindManualOutbound           MessageKind = "manual_outbound"
)

// Message is an immutable, append-only record of one utterance.
type Message struct {
	ID                string `gorm:"primaryKey"`
	TenantID          string `gorm:"index;not null"`
	ConversationID    string `gorm:"index;not null"`
	Direction         Direction
	Kind              MessageKind
	Text              string
	Payload           string `gorm:"type:text"` // JSON: media, buttons
	ProviderMessageID string `gorm:"index"`
	TemplateRef       string
	CreatedAt         time.Time
}

func (Message) TableName() string { return "messages" }

func NewMessage(tenantID, conversationID string, direction Direction, kind MessageKind, text string) *Message {
	return &Message{
		ID:             uuid.NewString(),
		TenantID:       tenantID,
		ConversationID: conversationID,
		Direction:      direction,
		Kind:           kind,
		Text:           text,
		CreatedAt:      time.Now().UTC(),
	}
}
