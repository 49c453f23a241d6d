package journey

import (
	"fmt"

	"context"

	"github.com/convocommerce/backend/commerce"
	"github.com/convocommerce/backend/conversation"
	"github.com/convocommerce/backend/tools"
)

// Orders implements the orders subflow: order_get_status, disambiguating
// when the customer references multiple orders (spec.md §4.5).
func Orders(ctx context.Context, registry *tools.Registry, st *conversation.State) (Result, error) {
	args := map[string]any{}
	if st.CurrentOrderID != "" {
		args["order_id"] = st.CurrentOrderID
	} else {
		args["customer_id"] = st.CustomerID
	}

	out, err := registry.Invoke(ctx, tools.OrderGetStatus, toolContext(st), args)
	if err != nil {
		if tools.IsRetryable(err) {
			return Result{}, err
		}
		return Result{ResponseText: "I couldn't find that order. Could you share the order number?"}, nil
	}

	orders, ok := out["orders"].([]commerce.Order)
	if !ok || len(orders) == 0 {
		return Result{ResponseText: "I don't see any orders on file yet."}, nil
	}
	if len(orders) > 1 {
		text := "You have a few recent orders — which one did you mean?\n"
		for i, o := range orders {
			text += fmt.Sprintf("%d. Order %s — %s (%s %.2f)\n", i+1, o.ID, o.Status, o.Currency, float64(o.TotalCents)/100)
		}
		return Result{ResponseText: text}, nil
	}

	o := orders[0]
	return Result{ResponseText: fmt.Sprintf("Order %s is currently %s. Total: %s %.2f.", o.ID, o.Status, o.Currency, float64(o.TotalCents)/100)}, nil
}
