// Package audit implements the observability entities spec.md §3/§7 names:
// WebhookLog (every gateway delivery attempt), AuditLog (the forensic
// record for RBAC and financial actions), IntentEvent (one row per
// classifier decision), and AnalyticsDaily (per-tenant daily rollup
// counters updated via storage-layer relative increments, per §4.10).
// Grounded on the teacher's pkg/botmonitor/monitor.go (heartbeat/stat-
// increment hook shape, generalized from process-wide bot metrics to
// tenant-scoped persisted rows) and workspace/domain/monitoring/store.go's
// MonitoringStore.IncrementStat pattern.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WebhookStatus string

const (
	WebhookSuccess             WebhookStatus = "success"
	WebhookError               WebhookStatus = "error"
	WebhookUnauthorized        WebhookStatus = "unauthorized"
	WebhookSubscriptionInactive WebhookStatus = "subscription_inactive"
	WebhookDuplicate           WebhookStatus = "duplicate"
)

// WebhookLog records one gateway delivery attempt. Payload is stored
// encrypted at rest by the caller (edge/) before this row is written —
// this package only persists whatever it is handed.
type WebhookLog struct {
	ID          string `gorm:"primaryKey"`
	TenantID    string `gorm:"index:idx_webhooklog_tenant"`
	Provider    string
	DedupKey    string `gorm:"index:idx_webhooklog_dedup"`
	Status      WebhookStatus `gorm:"not null"`
	PayloadEnc  string        `gorm:"type:text"`
	Error       string
	CreatedAt   time.Time
}

func (WebhookLog) TableName() string { return "webhook_logs" }

// AuditLog is the forensic record for RBAC and financial actions:
// actor, action, target, before/after diff, and request provenance.
type AuditLog struct {
	ID         string `gorm:"primaryKey"`
	TenantID   string `gorm:"index:idx_auditlog_tenant"`
	ActorUserID string
	Action     string `gorm:"not null"`
	Target     string
	Before     string `gorm:"type:text"`
	After      string `gorm:"type:text"`
	RequestID  string
	IP         string
	UserAgent  string
	CreatedAt  time.Time
}

func (AuditLog) TableName() string { return "audit_logs" }

// IntentEvent records one classifier decision for a conversation turn,
// feeding the daily analytics rollup and offline model evaluation.
type IntentEvent struct {
	ID             string `gorm:"primaryKey"`
	TenantID       string `gorm:"index:idx_intentevent_tenant"`
	ConversationID string
	Intent         string
	Confidence     float64
	Journey        string
	CreatedAt      time.Time
}

func (IntentEvent) TableName() string { return "intent_events" }

// AnalyticsDaily is a per-tenant daily rollup of message/conversion
// counters. Every mutation goes through IncrementDaily's relative SQL
// update rather than a read-modify-write, per spec.md §4.10.
type AnalyticsDaily struct {
	ID             string `gorm:"primaryKey"`
	TenantID       string `gorm:"uniqueIndex:idx_analytics_tenant_date"`
	Date           time.Time `gorm:"uniqueIndex:idx_analytics_tenant_date"`
	MessagesIn     int64
	MessagesOut    int64
	Conversions    int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (AnalyticsDaily) TableName() string { return "analytics_daily" }

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&WebhookLog{}, &AuditLog{}, &IntentEvent{}, &AnalyticsDaily{})
}

func (r *GormRepository) RecordWebhook(ctx context.Context, log *WebhookLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *GormRepository) RecordAudit(ctx context.Context, entry *AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *GormRepository) RecordIntentEvent(ctx context.Context, ev *IntentEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(ev).Error
}

// IncrementDaily upserts today's AnalyticsDaily row for tenantID and bumps
// field by delta using a single relative SQL expression — never a read in
// application memory followed by a write, per spec.md §4.10's counter
// atomicity requirement.
func (r *GormRepository) IncrementDaily(ctx context.Context, tenantID string, day time.Time, field string, delta int64) error {
	if field != "messages_in" && field != "messages_out" && field != "conversions" {
		return fmt.Errorf("audit: invalid analytics field %q", field)
	}
	date := day.UTC().Truncate(24 * time.Hour)
	now := time.Now().UTC()

	return r.db.WithContext(ctx).Exec(
		`INSERT INTO analytics_daily (id, tenant_id, date, `+field+`, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (tenant_id, date) DO UPDATE SET `+field+` = analytics_daily.`+field+` + excluded.`+field+`, updated_at = excluded.updated_at`,
		uuid.NewString(), tenantID, date, delta, now, now,
	).Error
}
