package outbound

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// MaxItemsPerPayload is the hard cap spec.md §4.5/§8 places on any single
// outbound payload in the sales subflow: never more than six items
// (product cards or list rows) in one WhatsApp reply.
const MaxItemsPerPayload = 6

// PayloadKind mirrors ActionKind for the wire-level payload the gateway
// sends; kept distinct from ActionKind so a multi-payload split (e.g. a
// ProductCards action with 14 items becomes three capped payloads) doesn't
// need to invent a new ActionKind.
type PayloadKind = ActionKind

// Payload is one gateway-ready message. Exactly one of the per-kind
// fields is populated, matching Kind.
type Payload struct {
	Kind PayloadKind

	Text string

	ListTitle string
	ListItems []ListItem

	Buttons []Button

	Cards []ProductCard
}

// Format turns a BotAction into one or more channel-compatible payloads,
// splitting List/ProductCards content that exceeds MaxItemsPerPayload into
// successive payloads rather than truncating — spec.md §8's "WhatsApp cap"
// property says no single payload may enumerate more than six items, not
// that content beyond six is dropped.
func Format(action BotAction) []Payload {
	switch action.Kind {
	case ActionList:
		return chunkList(action.ListTitle, action.ListItems)
	case ActionProductCards:
		return chunkCards(action.Cards)
	case ActionButtons:
		buttons := action.Buttons
		if len(buttons) > 3 {
			buttons = buttons[:3] // WhatsApp interactive-button messages cap at 3 options
		}
		return []Payload{{Kind: ActionButtons, Text: action.Text, Buttons: buttons}}
	case ActionHandoff:
		return []Payload{{Kind: ActionText, Text: action.Text}}
	default:
		return []Payload{{Kind: ActionText, Text: action.Text}}
	}
}

func chunkList(title string, items []ListItem) []Payload {
	if len(items) == 0 {
		return []Payload{{Kind: ActionList, ListTitle: title, ListItems: nil}}
	}
	var out []Payload
	for start := 0; start < len(items); start += MaxItemsPerPayload {
		end := start + MaxItemsPerPayload
		if end > len(items) {
			end = len(items)
		}
		out = append(out, Payload{Kind: ActionList, ListTitle: title, ListItems: items[start:end]})
	}
	return out
}

func chunkCards(cards []ProductCard) []Payload {
	if len(cards) == 0 {
		return []Payload{{Kind: ActionProductCards, Cards: nil}}
	}
	var out []Payload
	for start := 0; start < len(cards); start += MaxItemsPerPayload {
		end := start + MaxItemsPerPayload
		if end > len(cards) {
			end = len(cards)
		}
		out = append(out, Payload{Kind: ActionProductCards, Cards: cards[start:end]})
	}
	return out
}

// IdempotencyKey computes the outbound dedup identity spec.md §4.8/§5
// requires: (conversation_id, turn_number, payload_hash). A retried
// delivery attempt for the same turn and payload content always derives
// the same key.
func IdempotencyKey(conversationID string, turnNumber int, payload Payload) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("outbound: hash payload: %w", err)
	}
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("%s:%d:%s", conversationID, turnNumber, hex.EncodeToString(sum[:])), nil
}
