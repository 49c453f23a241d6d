package journey

import (
	"context"
	"fmt"

	"github.com/convocommerce/backend/classifier"
	"github.com/convocommerce/backend/conversation"
	"github.com/convocommerce/backend/tools"
)

// Result is a subflow's fixed output: a customer-facing response and
// whether escalation is required before the reply can be sent. Subflows
// apply their ConversationState mutations to st in place.
type Result struct {
	ResponseText    string
	Escalate        bool
	EscalationReason string
}

// SubflowFunc is the shape every journey subflow implements: a
// deterministic sequence of tool calls via registry, reading and mutating
// st in place.
type SubflowFunc func(ctx context.Context, registry *tools.Registry, st *conversation.State) (Result, error)

// Router dispatches a classified turn to its subflow via a fixed table,
// per spec.md §4.5 — generalized from the teacher orchestrator's
// tool-name-keyed loop into an intent-journey-keyed dispatch table, since
// no further LLM reasoning happens once a journey is selected.
type Router struct {
	registry *tools.Registry
	subflows map[classifier.Journey]SubflowFunc
}

func NewRouter(registry *tools.Registry) *Router {
	return &Router{
		registry: registry,
		subflows: map[classifier.Journey]SubflowFunc{
			classifier.JourneySales:      Sales,
			classifier.JourneySupport:    Support,
			classifier.JourneyOrders:     Orders,
			classifier.JourneyOffers:     Offers,
			classifier.JourneyPrefs:      Preferences,
			classifier.JourneyPayments:   Payments,
			classifier.JourneyGovernance: Governance,
		},
	}
}

// Dispatch runs the subflow selected by st.Classifier.Journey. An unknown
// journey value falls back to Governance's canned-clarification path
// rather than erroring, per spec.md §4.5's "Governance / unknown" subflow.
func (r *Router) Dispatch(ctx context.Context, st *conversation.State) (Result, error) {
	journey := classifier.Journey(st.Classifier.Journey)
	fn, ok := r.subflows[journey]
	if !ok {
		fn = Governance
	}
	return fn(ctx, r.registry, st)
}

func toolContext(st *conversation.State) tools.Context {
	return tools.Context{TenantID: st.TenantID, RequestID: st.RequestID, ConversationID: st.ConversationID}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}

func asStrings(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

var errNoClearItem = fmt.Errorf("journey: no unambiguous item selected")
