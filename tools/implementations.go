package tools

import (
	"context"
	"fmt"

	"github.com/convocommerce/backend/api"
	"github.com/convocommerce/backend/catalog"
	"github.com/convocommerce/backend/commerce"
	"github.com/convocommerce/backend/customer"
	"github.com/convocommerce/backend/handoff"
	"github.com/convocommerce/backend/kb"
	"github.com/convocommerce/backend/payments"
	"github.com/convocommerce/backend/tenant"
)

// Dependencies bundles every repository a canonical tool needs. RegisterAll
// wires a fresh Registry against them — this is the only place classifier/
// journey output reaches GORM-backed state, per spec.md §4.6.
type Dependencies struct {
	TenantCache *tenant.ConfigCache
	Customers   *customer.GormRepository
	Catalog     *catalog.GormRepository
	Commerce    *commerce.GormRepository
	Payments    *payments.GormRepository
	KB          *kb.GormRepository
	Handoff     *handoff.GormRepository
	Embed       func(ctx context.Context, text string) ([]float32, error)
}

// RegisterAll builds a Registry with every canonical tool bound to deps.
func RegisterAll(deps Dependencies) *Registry {
	r := NewRegistry()

	r.Register(TenantGetContext, tenantGetContext(deps))
	r.Register(CustomerGetOrCreate, customerGetOrCreate(deps))
	r.Register(CustomerUpdatePreferences, customerUpdatePreferences(deps))
	r.Register(CatalogSearch, catalogSearch(deps))
	r.Register(CatalogGetItem, catalogGetItem(deps))
	r.Register(OrderCreate, orderCreate(deps))
	r.Register(OrderGetStatus, orderGetStatus(deps))
	r.Register(OrderApplyCoupon, orderApplyCoupon(deps))
	r.Register(OffersGetApplicable, offersGetApplicable(deps))
	r.Register(PaymentGetMethods, paymentGetMethods(deps))
	r.Register(PaymentInitiateSTKPush, paymentInitiate(deps, payments.MethodSTKPush))
	r.Register(PaymentGetC2BInstructions, paymentInitiate(deps, payments.MethodC2B))
	r.Register(PaymentCreatePesapalCheckout, paymentInitiate(deps, payments.MethodPesapal))
	r.Register(KBRetrieve, kbRetrieve(deps))
	r.Register(HandoffCreateTicket, handoffCreateTicket(deps))

	return r
}

func reqString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", PermanentError(key, fmt.Errorf("missing required arg %q", key))
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", PermanentError(key, fmt.Errorf("arg %q must be a non-empty string", key))
	}
	return s, nil
}

func tenantGetContext(deps Dependencies) Func {
	return func(ctx context.Context, tc Context, args map[string]any) (map[string]any, error) {
		t, err := deps.TenantCache.Get(ctx, tc.TenantID)
		if err != nil {
			return nil, RetryableError(TenantGetContext, err)
		}
		return map[string]any{"tenant": t}, nil
	}
}

func customerGetOrCreate(deps Dependencies) Func {
	return func(ctx context.Context, tc Context, args map[string]any) (map[string]any, error) {
		phone, err := reqString(args, "phone")
		if err != nil {
			return nil, err
		}
		c, err := deps.Customers.UpsertByPhone(ctx, tc.TenantID, phone)
		if err != nil {
			return nil, RetryableError(CustomerGetOrCreate, err)
		}
		return map[string]any{"customer": c}, nil
	}
}

func customerUpdatePreferences(deps Dependencies) Func {
	return func(ctx context.Context, tc Context, args map[string]any) (map[string]any, error) {
		customerID, err := reqString(args, "customer_id")
		if err != nil {
			return nil, err
		}
		c, err := deps.Customers.GetByID(ctx, tc.TenantID, customerID)
		if err != nil {
			return nil, PermanentError(CustomerUpdatePreferences, err)
		}
		if lang, ok := args["language_pref"].(string); ok {
			c.LanguagePref = lang
		}
		if optIn, ok := args["marketing_opt_in"].(bool); ok {
			c.MarketingOptIn = optIn
		}
		if reminder, ok := args["reminder_consent"].(bool); ok {
			c.ConsentReminder = reminder
		}
		if promo, ok := args["promotional_consent"].(bool); ok {
			c.ConsentPromotional = promo
		}
		if err := deps.Customers.Update(ctx, c); err != nil {
			return nil, RetryableError(CustomerUpdatePreferences, err)
		}
		return map[string]any{"customer": c}, nil
	}
}

func catalogSearch(deps Dependencies) Func {
	return func(ctx context.Context, tc Context, args map[string]any) (map[string]any, error) {
		query, _ := args["query"].(string)
		result, err := deps.Catalog.Search(ctx, catalog.SearchParams{
			TenantID: tc.TenantID,
			Query:    query,
			Limit:    catalog.MaxSearchResults,
		})
		if err != nil {
			return nil, RetryableError(CatalogSearch, err)
		}
		return map[string]any{"items": result.Items, "total_estimate": result.TotalEstimate}, nil
	}
}

func catalogGetItem(deps Dependencies) Func {
	return func(ctx context.Context, tc Context, args map[string]any) (map[string]any, error) {
		itemID, err := reqString(args, "item_id")
		if err != nil {
			return nil, err
		}
		item, err := deps.Catalog.GetItem(ctx, tc.TenantID, itemID)
		if err != nil {
			return nil, PermanentError(CatalogGetItem, err)
		}
		return map[string]any{"item": item}, nil
	}
}

func orderCreate(deps Dependencies) Func {
	return func(ctx context.Context, tc Context, args map[string]any) (map[string]any, error) {
		variantID, err := reqString(args, "product_variant_id")
		if err != nil {
			return nil, err
		}
		qty := 1
		if q, ok := args["quantity"].(float64); ok && q > 0 {
			qty = int(q)
		}
		customerID, _ := args["customer_id"].(string)

		variant, product, err := deps.Catalog.GetVariant(ctx, tc.TenantID, variantID)
		if err != nil {
			return nil, PermanentError(OrderCreate, err)
		}

		order, err := deps.Commerce.CreateDraft(ctx, tc.TenantID, customerID, tc.ConversationID, []commerce.OrderItem{
			{
				TenantID:         tc.TenantID,
				ProductVariantID: variant.ID,
				Label:            product.Name + " — " + variant.Label,
				Quantity:         qty,
				UnitPriceCents:   variant.PriceCents,
			},
		})
		if err != nil {
			return nil, RetryableError(OrderCreate, err)
		}
		return map[string]any{"order_id": order.ID, "order": *order}, nil
	}
}

func orderGetStatus(deps Dependencies) Func {
	return func(ctx context.Context, tc Context, args map[string]any) (map[string]any, error) {
		if orderID, ok := args["order_id"].(string); ok && orderID != "" {
			order, err := deps.Commerce.GetByID(ctx, tc.TenantID, orderID)
			if err != nil {
				return nil, PermanentError(OrderGetStatus, err)
			}
			return map[string]any{"orders": []commerce.Order{*order}}, nil
		}
		customerID, err := reqString(args, "customer_id")
		if err != nil {
			return nil, err
		}
		order, err := deps.Commerce.LatestForCustomer(ctx, tc.TenantID, customerID)
		if err != nil {
			return map[string]any{"orders": []commerce.Order{}}, nil
		}
		return map[string]any{"orders": []commerce.Order{*order}}, nil
	}
}

func orderApplyCoupon(deps Dependencies) Func {
	return func(ctx context.Context, tc Context, args map[string]any) (map[string]any, error) {
		orderID, err := reqString(args, "order_id")
		if err != nil {
			return nil, err
		}
		code, err := reqString(args, "code")
		if err != nil {
			return nil, err
		}
		order, err := deps.Commerce.ApplyCoupon(ctx, tc.TenantID, orderID, code)
		if err != nil {
			return nil, PermanentError(OrderApplyCoupon, err)
		}
		return map[string]any{"order": *order}, nil
	}
}

func offersGetApplicable(deps Dependencies) Func {
	return func(ctx context.Context, tc Context, args map[string]any) (map[string]any, error) {
		subtotal := int64(0)
		if orderID, ok := args["order_id"].(string); ok && orderID != "" {
			if order, err := deps.Commerce.GetByID(ctx, tc.TenantID, orderID); err == nil {
				subtotal = order.SubtotalCents
			}
		}
		offers, err := deps.Commerce.ApplicableOffers(ctx, tc.TenantID, subtotal)
		if err != nil {
			return nil, RetryableError(OffersGetApplicable, err)
		}
		return map[string]any{"offers": offers}, nil
	}
}

func paymentGetMethods(deps Dependencies) Func {
	return func(ctx context.Context, tc Context, args map[string]any) (map[string]any, error) {
		methods := deps.Payments.AvailableMethods()
		out := make([]any, len(methods))
		for i, m := range methods {
			out[i] = string(m)
		}
		return map[string]any{"methods": out}, nil
	}
}

func paymentInitiate(deps Dependencies, method payments.Method) Func {
	return func(ctx context.Context, tc Context, args map[string]any) (map[string]any, error) {
		orderID, err := reqString(args, "order_id")
		if err != nil {
			return nil, err
		}
		amount, _ := args["amount_cents"].(int64)
		phone, _ := args["phone"].(string)

		req, err := deps.Payments.Initiate(ctx, tc.TenantID, orderID, method, amount, phone)
		if err != nil {
			return nil, RetryableError(string(method), err)
		}
		return map[string]any{"payment_request_id": req.ID, "next_step": req.NextStep}, nil
	}
}

func kbRetrieve(deps Dependencies) Func {
	return func(ctx context.Context, tc Context, args map[string]any) (map[string]any, error) {
		query, err := reqString(args, "query")
		if err != nil {
			return nil, err
		}
		if deps.Embed == nil {
			return map[string]any{"snippets": []any{}}, nil
		}
		embedding, err := deps.Embed(ctx, query)
		if err != nil {
			return nil, RetryableError(KBRetrieve, err)
		}
		results, err := deps.KB.Retrieve(ctx, tc.TenantID, embedding, 3)
		if err != nil {
			return nil, RetryableError(KBRetrieve, err)
		}
		snippets := make([]KBSnippet, len(results))
		for i, res := range results {
			snippets[i] = KBSnippet{Snippet: res.Snippet.Content, Score: res.Score, Source: res.Snippet.DocumentID}
		}
		return map[string]any{"snippets": snippets}, nil
	}
}

func handoffCreateTicket(deps Dependencies) Func {
	return func(ctx context.Context, tc Context, args map[string]any) (map[string]any, error) {
		reason, _ := args["reason"].(string)
		customerID, _ := args["customer_id"].(string)

		snap := handoff.Snapshot{
			Journey:    asStringArg(args, "journey"),
			Step:       asStringArg(args, "step"),
			LastIntent: asStringArg(args, "last_intent"),
			OrderID:    asStringArg(args, "order_id"),
		}

		ticket, err := deps.Handoff.Create(ctx, tc.TenantID, customerID, tc.ConversationID, reason, snap, 0)
		if err != nil {
			return nil, RetryableError(HandoffCreateTicket, err)
		}
		api.PublishOperatorEvent(api.OperatorEvent{
			Type:           api.EventHandoffOpened,
			TenantID:       tc.TenantID,
			ConversationID: tc.ConversationID,
			TicketID:       ticket.ID,
			Reason:         reason,
		})
		return map[string]any{"ticket_id": ticket.ID, "expected_reply": ticket.ExpectedReply.String()}, nil
	}
}

func asStringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}
