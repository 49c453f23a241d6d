package tools

import (
	"context"
	"fmt"
	"sync"
)

// Canonical tool names (spec.md §4.6).
const (
	TenantGetContext          = "tenant_get_context"
	CustomerGetOrCreate       = "customer_get_or_create"
	CustomerUpdatePreferences = "customer_update_preferences"
	CatalogSearch             = "catalog_search"
	CatalogGetItem            = "catalog_get_item"
	OrderCreate               = "order_create"
	OrderGetStatus            = "order_get_status"
	OrderApplyCoupon          = "order_apply_coupon"
	OffersGetApplicable       = "offers_get_applicable"
	PaymentGetMethods         = "payment_get_methods"
	PaymentGetC2BInstructions = "payment_get_c2b_instructions"
	PaymentInitiateSTKPush    = "payment_initiate_stk_push"
	PaymentCreatePesapalCheckout = "payment_create_pesapal_checkout"
	KBRetrieve                = "kb_retrieve"
	HandoffCreateTicket       = "handoff_create_ticket"
)

// KBSnippet is kb_retrieve's result shape — a tenant-scoped snippet with
// its retrieval score, the fixed output every subflow consuming this tool
// type-asserts to.
type KBSnippet struct {
	Snippet string
	Score   float64
	Source  string
}

// Registry holds every canonical tool implementation, keyed by name.
// Journey subflows never call a tool's Go function directly — they call
// through Registry.Invoke so every call goes through the same retry and
// tenant-scoping discipline.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Func
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Func)}
}

func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = fn
}

// Invoke looks up name and calls it with retry-on-RETRYABLE, per spec.md
// §4.6's failure policy. An unregistered tool is itself a PERMANENT error.
func (r *Registry) Invoke(ctx context.Context, name string, tc Context, args map[string]any) (map[string]any, error) {
	r.mu.RLock()
	fn, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, PermanentError(name, fmt.Errorf("tool not registered: %s", name))
	}

	if tc.TenantID == "" {
		return nil, PermanentError(name, fmt.Errorf("missing tenant_id in tool context"))
	}

	return CallWithRetry(ctx, name, func() (map[string]any, error) {
		return fn(ctx, tc, args)
	})
}
