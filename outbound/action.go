// Package outbound implements the formatter, idempotent delivery, and
// consent/quiet-hours/rate-limit gates a subflow result must pass through
// before it reaches the customer (spec.md §4.8/§4.9). Grounded on the
// teacher's infrastructure/whatsapp/adapter/messaging.go (the
// SendMessage/SendMedia payload-construction shape, generalized from
// whatsmeow's waE2E.Message variants into the channel-agnostic BotAction
// tagged variant spec.md §9 mandates) and pkg/chatpresence (presence
// tracking dropped — this module never reached whatsmeow directly and had
// no spec grounding, so it is replaced rather than adapted).
package outbound

import "github.com/convocommerce/backend/journey"

// ActionKind tags a BotAction's payload shape, per spec.md §9's mandate
// to represent bot output as a tagged variant the formatter pattern-
// matches rather than a bare string.
type ActionKind string

const (
	ActionText         ActionKind = "text"
	ActionList         ActionKind = "list"
	ActionButtons      ActionKind = "buttons"
	ActionProductCards ActionKind = "product_cards"
	ActionHandoff      ActionKind = "handoff"
)

// ListItem is one row of an ActionList payload.
type ListItem struct {
	ID          string
	Title       string
	Description string
}

// Button is one option of an ActionButtons payload.
type Button struct {
	ID    string
	Label string
}

// ProductCard is one tile of an ActionProductCards payload.
type ProductCard struct {
	ID         string
	Title      string
	PriceLabel string
	ImageURL   string
}

// BotAction is a subflow's reply, tagged by Kind; the formatter only reads
// the fields relevant to Kind.
type BotAction struct {
	Kind ActionKind

	Text string

	ListTitle string
	ListItems []ListItem

	Buttons []Button

	Cards []ProductCard

	HandoffReason string
}

// FromJourneyResult translates a journey.Result into a BotAction. This is
// the explicit translation layer between the journey router (which still
// returns a bare customer-facing string, since no subflow currently needs
// to produce a list/button/card payload) and the outbound pipeline, so
// that adding real structured payloads later is additive to this function
// rather than to every subflow.
func FromJourneyResult(r journey.Result) BotAction {
	if r.Escalate {
		return BotAction{Kind: ActionHandoff, Text: r.ResponseText, HandoffReason: r.EscalationReason}
	}
	return BotAction{Kind: ActionText, Text: r.ResponseText}
}
