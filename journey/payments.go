package journey

import (
	"context"
	"fmt"

	"github.com/convocommerce/backend/conversation"
	"github.com/convocommerce/backend/tools"
)

// Payments implements the payments subflow: payment_get_methods, then a
// method router to one of stk_push / c2b_instructions / pesapal_checkout.
// The payment is initiated in the same turn, with no separate confirmation
// step beforehand; the amount is stated back to the customer in the reply
// that follows initiation. The chosen method's payment_request_id is
// persisted on the conversation state (spec.md §4.5).
func Payments(ctx context.Context, registry *tools.Registry, st *conversation.State) (Result, error) {
	if !st.Persona.PaymentsEnabled {
		return Result{ResponseText: "Online payments aren't set up for this account yet."}, nil
	}
	if st.CurrentOrderID == "" || st.OrderTotal <= 0 {
		return Result{ResponseText: "I don't have an order to charge yet — let's pick something first."}, nil
	}

	if st.PaymentRequestID != "" && st.PaymentStatus == "pending" {
		return Result{ResponseText: "Your previous payment request is still pending — check your phone for the prompt."}, nil
	}

	methodsOut, err := registry.Invoke(ctx, tools.PaymentGetMethods, toolContext(st), map[string]any{
		"order_id": st.CurrentOrderID,
	})
	if err != nil {
		if tools.IsRetryable(err) {
			return Result{}, err
		}
		return Result{ResponseText: "I couldn't load payment options right now — please try again."}, nil
	}

	methods := asStrings(methodsOut["methods"])
	if len(methods) == 0 {
		return Result{ResponseText: "There's no payment method available for this order right now."}, nil
	}

	amount := fmt.Sprintf("%.2f", float64(st.OrderTotal)/100)
	method := methods[0]

	var toolName string
	args := map[string]any{"order_id": st.CurrentOrderID, "amount_cents": st.OrderTotal}
	switch method {
	case "stk_push":
		toolName = tools.PaymentInitiateSTKPush
		args["phone"] = st.CustomerPhone
	case "c2b":
		toolName = tools.PaymentGetC2BInstructions
	case "pesapal":
		toolName = tools.PaymentCreatePesapalCheckout
	default:
		return Result{ResponseText: "That payment method isn't supported yet."}, nil
	}

	out, err := registry.Invoke(ctx, toolName, toolContext(st), args)
	if err != nil {
		if tools.IsRetryable(err) {
			return Result{}, err
		}
		return Result{ResponseText: "I couldn't start that payment — please try again shortly."}, nil
	}

	requestID := asString(out["payment_request_id"])
	nextStep := asString(out["next_step"])
	st.PaymentRequestID = requestID
	st.PaymentStatus = "pending"

	return Result{ResponseText: fmt.Sprintf("Confirming a charge of %s for your order. %s", amount, nextStep)}, nil
}
