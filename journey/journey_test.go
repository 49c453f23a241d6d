package journey

import (
	"testing"

	"github.com/convocommerce/backend/classifier"
	"github.com/stretchr/testify/assert"
)

func TestNextPhase(t *testing.T) {
	cases := []struct {
		name               string
		current            Phase
		routing            classifier.RoutingDecision
		subflowComplete    bool
		outboundEnqueued   bool
		escalate           bool
		conversationClosed bool
		want               Phase
	}{
		{name: "idle starts classifying", current: PhaseIdle, want: PhaseClassifying},
		{name: "classify to clarify", current: PhaseClassifying, routing: classifier.RouteClarify, want: PhaseClarifying},
		{name: "classify to executing on follow", current: PhaseClassifying, routing: classifier.RouteFollowJourney, want: PhaseExecuting},
		{name: "classify to executing on unknown", current: PhaseClassifying, routing: classifier.RouteUnknown, want: PhaseExecuting},
		{name: "clarifying loops back to classifying", current: PhaseClarifying, want: PhaseClassifying},
		{name: "executing stays until subflow complete", current: PhaseExecuting, subflowComplete: false, want: PhaseExecuting},
		{name: "executing advances to formatting", current: PhaseExecuting, subflowComplete: true, want: PhaseFormatting},
		{name: "formatting stays until outbound enqueued", current: PhaseFormatting, outboundEnqueued: false, want: PhaseFormatting},
		{name: "formatting advances to awaiting customer", current: PhaseFormatting, outboundEnqueued: true, want: PhaseAwaitingCustomer},
		{name: "awaiting customer loops back to classifying", current: PhaseAwaitingCustomer, want: PhaseClassifying},
		{name: "escalate overrides executing", current: PhaseExecuting, escalate: true, want: PhaseHandoff},
		{name: "escalate overrides clarifying", current: PhaseClarifying, escalate: true, want: PhaseHandoff},
		{name: "conversation closed overrides escalate", current: PhaseExecuting, escalate: true, conversationClosed: true, want: PhaseClosed},
		{name: "closed from any phase", current: PhaseAwaitingCustomer, conversationClosed: true, want: PhaseClosed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NextPhase(tc.current, tc.routing, tc.subflowComplete, tc.outboundEnqueued, tc.escalate, tc.conversationClosed)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSelectJourney(t *testing.T) {
	t.Run("no tie returns suggested", func(t *testing.T) {
		got := SelectJourney(classifier.JourneySales, classifier.JourneySupport, nil)
		assert.Equal(t, classifier.JourneySales, got)
	})

	t.Run("prefers active journey among tied candidates", func(t *testing.T) {
		tied := []classifier.Journey{classifier.JourneySupport, classifier.JourneyOrders, classifier.JourneySales}
		got := SelectJourney(classifier.JourneySales, classifier.JourneyOrders, tied)
		assert.Equal(t, classifier.JourneyOrders, got)
	})

	t.Run("falls back to lexicographically earliest when active journey not tied", func(t *testing.T) {
		tied := []classifier.Journey{classifier.JourneySupport, classifier.JourneyOffers, classifier.JourneySales}
		got := SelectJourney(classifier.JourneyGovernance, classifier.JourneyPrefs, tied)
		assert.Equal(t, classifier.JourneyOffers, got)
	})

	t.Run("single tied candidate wins regardless of suggestion", func(t *testing.T) {
		tied := []classifier.Journey{classifier.JourneyPayments}
		got := SelectJourney(classifier.JourneySales, classifier.JourneyOrders, tied)
		assert.Equal(t, classifier.JourneyPayments, got)
	})
}
