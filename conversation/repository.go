package conversation

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("conversation: not found")

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&Conversation{}, &Message{})
}

// GetOpenByCustomer returns the single non-closed Conversation for a
// customer, if any (spec.md §3: "exactly one Conversation exists per
// (tenant, customer) at any time in a non-closed state").
func (r *GormRepository) GetOpenByCustomer(ctx context.Context, tenantID, customerID string) (*Conversation, error) {
	var c Conversation
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND customer_id = ? AND status != ?", tenantID, customerID, StatusClosed).
		Order("created_at DESC").First(&c).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// UpsertOpenConversation finds the open conversation for (tenant,
// customer) or creates a new one (spec.md §4.1 "upsert Conversation").
func (r *GormRepository) UpsertOpenConversation(ctx context.Context, tenantID, customerID string) (*Conversation, error) {
	existing, err := r.GetOpenByCustomer(ctx, tenantID, customerID)
	if err == nil {
		return existing, nil
	}
	if err != ErrNotFound {
		return nil, err
	}
	c := New(tenantID, customerID)
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

func (r *GormRepository) GetByID(ctx context.Context, tenantID, id string) (*Conversation, error) {
	var c Conversation
	if err := r.db.WithContext(ctx).First(&c, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *GormRepository) Update(ctx context.Context, c *Conversation) error {
	c.UpdatedAt = time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&Conversation{}).
		Where("id = ? AND tenant_id = ?", c.ID, c.TenantID).Select("*").Updates(c)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepository) AppendMessage(ctx context.Context, m *Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *GormRepository) GetMessage(ctx context.Context, tenantID, id string) (*Message, error) {
	var m Message
	if err := r.db.WithContext(ctx).First(&m, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// History returns the last `limit` messages for a conversation, oldest
// first, used to rebuild the classifier prompt (spec.md §4.3, default 20).
func (r *GormRepository) History(ctx context.Context, tenantID, conversationID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 20
	}
	var msgs []Message
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND conversation_id = ?", tenantID, conversationID).
		Order("created_at DESC").Limit(limit).Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	// reverse to oldest-first
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
