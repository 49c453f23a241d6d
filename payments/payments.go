// Package payments defines the abstract payment-rail contract the payments
// subflow drives. Implementing any specific rail is explicitly out of
// scope (spec.md's non-goals) — only the contract and a deterministic
// in-process gateway used until a tenant wires a real processor are
// specified here, mirroring how tenant/catalog/commerce model their
// external collaborators as narrow interfaces over GORM-backed state.
package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Method is one of the payment rails a tenant may expose.
type Method string

const (
	MethodSTKPush Method = "stk_push"
	MethodC2B     Method = "c2b"
	MethodPesapal Method = "pesapal"
)

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestCompleted RequestStatus = "completed"
	RequestFailed    RequestStatus = "failed"
)

// Request is the durable record of one initiated payment attempt, keyed by
// the id handed back to the customer-facing subflow as payment_request_id.
type Request struct {
	ID         string `gorm:"primaryKey"`
	TenantID   string `gorm:"index:idx_payment_req_tenant;not null"`
	OrderID    string
	Method     Method
	AmountCents int64
	Status     RequestStatus `gorm:"default:'pending'"`
	ExternalRef string
	NextStep   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Request) TableName() string { return "payment_requests" }

// Gateway is the abstract rail a tenant's payment config resolves to.
// Initiate returns the customer-facing next step text; the concrete
// external call (STK push prompt, C2B paybill instructions, Pesapal
// checkout redirect) is the responsibility of whatever binds this
// interface to an actual processor, outside this module's scope.
type Gateway interface {
	Initiate(ctx context.Context, method Method, orderID string, amountCents int64, phone string) (externalRef, nextStep string, err error)
}

// GormRepository persists payment requests and brokers initiation through
// a configured Gateway.
type GormRepository struct {
	db      *gorm.DB
	gateway Gateway
}

func NewGormRepository(db *gorm.DB, gateway Gateway) *GormRepository {
	return &GormRepository{db: db, gateway: gateway}
}

func (r *GormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&Request{})
}

// AvailableMethods returns the payment rails enabled for a tenant. A real
// deployment would read this from tenant configuration; absent that here,
// every configured gateway method is offered.
func (r *GormRepository) AvailableMethods() []Method {
	return []Method{MethodSTKPush, MethodC2B, MethodPesapal}
}

func (r *GormRepository) Initiate(ctx context.Context, tenantID, orderID string, method Method, amountCents int64, phone string) (*Request, error) {
	externalRef, nextStep, err := r.gateway.Initiate(ctx, method, orderID, amountCents, phone)
	if err != nil {
		return nil, err
	}
	req := &Request{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		OrderID:     orderID,
		Method:      method,
		AmountCents: amountCents,
		Status:      RequestPending,
		ExternalRef: externalRef,
		NextStep:    nextStep,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return nil, err
	}
	return req, nil
}

func (r *GormRepository) MarkStatus(ctx context.Context, tenantID, requestID string, status RequestStatus) error {
	return r.db.WithContext(ctx).
		Model(&Request{}).
		Where("tenant_id = ? AND id = ?", tenantID, requestID).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()}).Error
}

// NoopGateway is a deterministic Gateway used when no real processor is
// configured: it assigns a reference and describes the expected customer
// action per method, without placing any external call.
type NoopGateway struct{}

func (NoopGateway) Initiate(ctx context.Context, method Method, orderID string, amountCents int64, phone string) (string, string, error) {
	ref := uuid.NewString()
	switch method {
	case MethodSTKPush:
		return ref, fmt.Sprintf("Check %s for a push prompt to complete payment.", phone), nil
	case MethodC2B:
		return ref, fmt.Sprintf("Pay via paybill using reference %s.", ref[:8]), nil
	case MethodPesapal:
		return ref, "Complete checkout using the link sent to your WhatsApp.", nil
	default:
		return ref, "Follow the instructions sent to you to complete payment.", nil
	}
}
