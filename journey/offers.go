package journey

import (
	"context"
	"fmt"

	"github.com/convocommerce/backend/commerce"
	"github.com/convocommerce/backend/conversation"
	"github.com/convocommerce/backend/tools"
)

// Offers implements the offers subflow: only ever present offers returned
// by offers_get_applicable (spec.md §4.5: "never invent an offer"), and
// apply a coupon code when the customer supplies one.
func Offers(ctx context.Context, registry *tools.Registry, st *conversation.State) (Result, error) {
	if couponCode, ok := st.Catalog.LastFilters["coupon_code"]; ok && couponCode != "" && st.CurrentOrderID != "" {
		return applyCoupon(ctx, registry, st, couponCode)
	}

	out, err := registry.Invoke(ctx, tools.OffersGetApplicable, toolContext(st), nil)
	if err != nil {
		if tools.IsRetryable(err) {
			return Result{}, err
		}
		return Result{ResponseText: "I couldn't check offers right now — please try again shortly."}, nil
	}

	offers, _ := out["offers"].([]commerce.Coupon)
	if len(offers) == 0 {
		return Result{ResponseText: "There aren't any active offers for you right now."}, nil
	}

	text := "Here are the offers you qualify for:\n"
	for _, o := range offers {
		text += fmt.Sprintf("- %s\n", o.Code)
	}
	return Result{ResponseText: text}, nil
}

func applyCoupon(ctx context.Context, registry *tools.Registry, st *conversation.State, code string) (Result, error) {
	out, err := registry.Invoke(ctx, tools.OrderApplyCoupon, toolContext(st), map[string]any{
		"order_id": st.CurrentOrderID,
		"code":     code,
	})
	if err != nil {
		return Result{ResponseText: "That code doesn't apply to your order."}, nil
	}
	order := out["order"].(commerce.Order)
	st.OrderTotal = order.TotalCents
	return Result{ResponseText: fmt.Sprintf("Applied %s — your new total is %s %.2f.", code, order.Currency, float64(order.TotalCents)/100)}, nil
}
