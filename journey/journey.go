// Package journey implements the per-turn state machine and subflow
// dispatch from spec.md §4.5: a validated classifier result plus
// ConversationState selects one deterministic subflow, each a fixed
// sequence of tool calls ending in a response_text. Grounded on the
// teacher's botengine/application/orchestrator.go tool-execution loop —
// this package keeps its iterate-call-tools-then-respond shape but
// generalizes the dispatch from a single-tool-at-a-time LLM loop to a
// fixed intent-enum → subflow dispatch table, since spec.md forbids any
// further LLM invocation once a subflow starts (save for a constrained
// response wrapper in Support).
package journey

import "github.com/convocommerce/backend/classifier"

// Phase is the tagged-variant conversation phase (spec.md §4.5). Modeled
// as a closed string enum rather than a class hierarchy so every
// transition is a plain switch, matching how conversation.Status and
// classifier.Intent are already expressed in this codebase.
type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseClassifying      Phase = "classifying"
	PhaseClarifying       Phase = "clarifying"
	PhaseExecuting        Phase = "executing"
	PhaseFormatting       Phase = "formatting"
	PhaseAwaitingCustomer Phase = "awaiting_customer"
	PhaseHandoff          Phase = "handoff"
	PhaseClosed           Phase = "closed"
)

// NextPhase implements spec.md §4.5's fixed transition table. Conversation
// close takes priority over everything (any → closed); escalate takes
// priority over every other transition (any → handoff).
func NextPhase(current Phase, routing classifier.RoutingDecision, subflowComplete, outboundEnqueued, escalate, conversationClosed bool) Phase {
	switch {
	case conversationClosed:
		return PhaseClosed
	case escalate:
		return PhaseHandoff
	}

	switch current {
	case PhaseIdle:
		return PhaseClassifying
	case PhaseClassifying:
		switch routing {
		case classifier.RouteClarify:
			return PhaseClarifying
		case classifier.RouteFollowJourney, classifier.RouteUnknown:
			return PhaseExecuting
		}
	case PhaseClarifying:
		return PhaseClassifying
	case PhaseExecuting:
		if subflowComplete {
			return PhaseFormatting
		}
		return PhaseExecuting
	case PhaseFormatting:
		if outboundEnqueued {
			return PhaseAwaitingCustomer
		}
		return PhaseFormatting
	case PhaseAwaitingCustomer:
		return PhaseClassifying
	}
	return current
}

// SelectJourney applies spec.md §4.5's tie-break policy: prefer
// suggested_journey if it matches the currently active journey; otherwise,
// among tied candidates, pick the lexicographically earliest enumerator so
// behavior stays deterministic across retries.
func SelectJourney(suggested classifier.Journey, activeJourney classifier.Journey, tied []classifier.Journey) classifier.Journey {
	if len(tied) == 0 {
		return suggested
	}
	for _, candidate := range tied {
		if candidate == activeJourney {
			return candidate
		}
	}
	earliest := tied[0]
	for _, candidate := range tied[1:] {
		if candidate < earliest {
			earliest = candidate
		}
	}
	return earliest
}
