package conversation

import "time"

// Persona carries the tenant/bot-level configuration a turn is rendered
// against (spec.md §3 ConversationState).
type Persona struct {
	BotName            string
	BotIntro           string
	ToneStyle          string
	DefaultLanguage    string
	AllowedLanguages   []string
	MaxChattinessLevel int
	CatalogLinkBase    string
	PaymentsEnabled    bool
	ComplianceFlags    map[string]bool
	HandoffPolicy      string
}

// Preferences mirrors the customer-facing preference fields carried in
// working memory so the pipeline doesn't re-fetch the Customer row every
// turn.
type Preferences struct {
	LanguagePref     string
	MarketingOptIn   bool
	NotificationPref map[string]bool
}

// ClassifierOutputs holds this turn's classifier results (spec.md §4.4).
type ClassifierOutputs struct {
	Intent              string
	IntentConfidence    float64
	Journey             string
	ResponseLanguage    string
	LanguageConfidence  float64
	GovernorClass       string
	GovernorConfidence  float64
}

// CatalogCursor tracks the customer's current browse position so a
// follow-up turn ("the second one", "show me more") can be resolved
// without re-running product search.
type CatalogCursor struct {
	LastQuery           string
	LastFilters         map[string]string
	LastResultIDs       []string
	EstimatedTotal      int
	SelectedItemIDs     []string
	ShortlistRejections int
}

// RejectionCount reports how many times the customer has dismissed the
// current shortlist in a row (spec.md §4.5's "repeated two shortlist
// rejections" deep-link trigger).
func (c CatalogCursor) RejectionCount() int {
	return c.ShortlistRejections
}

// CartLine is a working-memory snapshot of one cart line; the authoritative
// record lives in commerce.Order and its OrderItems.
type CartLine struct {
	ProductID string
	VariantID string
	Quantity  int
	UnitPrice int64 // minor units
}

// KeyFact is one append-only extracted fact about the customer or
// conversation (spec.md §4.3).
type KeyFact struct {
	Fact            string
	Confidence      float64
	ExtractedAt     time.Time
	SourceMessageID string
}

// State is the canonical per-conversation working memory that drives one
// turn and persists across turns (spec.md §3 ConversationState).
type State struct {
	TenantID       string
	ConversationID string
	RequestID      string
	CustomerID     string
	CustomerPhone  string

	Persona     Persona
	Preferences Preferences

	Classifier ClassifierOutputs

	Catalog CatalogCursor
	Cart    []CartLine

	CurrentOrderID string
	OrderTotal     int64

	PaymentRequestID string
	PaymentStatus    string

	KBSnippets []string

	EscalationFlag bool
	EscalationReason string
	HandoffTicketID  string

	TurnCount   int
	CasualTurns int
	SpamTurns   int

	KeyFacts []KeyFact

	ResponseText string

	UpdatedAt time.Time
}

// NewState seeds a fresh ConversationState for the first inbound message
// of a conversation.
func NewState(tenantID, conversationID, customerID, customerPhone string, persona Persona) *State {
	return &State{
		TenantID:       tenantID,
		ConversationID: conversationID,
		CustomerID:     customerID,
		CustomerPhone:  customerPhone,
		Persona:        persona,
		UpdatedAt:      time.Now().UTC(),
	}
}

// AppendFact appends an extracted fact. Key facts are never rewritten or
// removed, only added to (spec.md §4.3 "append-only list").
func (s *State) AppendFact(fact string, confidence float64, sourceMessageID string) {
	s.KeyFacts = append(s.KeyFacts, KeyFact{
		Fact:            fact,
		Confidence:      confidence,
		ExtractedAt:     time.Now().UTC(),
		SourceMessageID: sourceMessageID,
	})
}

// ShouldSummarize reports whether enough messages have elapsed to trigger
// the key-facts summarization task (default every M=20 messages).
func ShouldSummarize(turnCount, every int) bool {
	if every <= 0 {
		every = 20
	}
	return turnCount > 0 && turnCount%every == 0
}
