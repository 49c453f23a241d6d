package journey

import (
	"context"

	"github.com/convocommerce/backend/classifier"
	"github.com/convocommerce/backend/conversation"
	"github.com/convocommerce/backend/tools"
)

// Governance implements the governance/unknown subflow: a canned
// clarification for low-confidence intents, or a handoff when the
// customer explicitly asks for a human (spec.md §4.5, §4.7).
func Governance(ctx context.Context, registry *tools.Registry, st *conversation.State) (Result, error) {
	if classifier.Intent(st.Classifier.Intent) == classifier.IntentRequestHuman {
		return Result{
			Escalate:         true,
			EscalationReason: "customer_requested_human",
			ResponseText:     "Sure, I'm connecting you with a member of our team.",
		}, nil
	}

	switch classifier.Route(st.Classifier.IntentConfidence) {
	case classifier.RouteClarify:
		return Result{ResponseText: "Could you tell me a bit more about what you're looking for — are you shopping, checking an order, or have a question?"}, nil
	default:
		return Result{ResponseText: "I'm not sure I follow — could you rephrase that, or let me know if you'd like to speak with someone on our team?"}, nil
	}
}
