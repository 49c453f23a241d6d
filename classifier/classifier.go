// Package classifier implements the three single-purpose LLM-backed
// classifiers from spec.md §4.4 (intent, language policy, conversation
// governor), each returning a fixed JSON shape validated against a schema
// before use, plus the provider-agnostic Provider interface and a
// credential-hash-keyed provider registry.
package classifier

import (
	"context"
)

// Fixed thresholds from spec.md §4.4. Exact values, not configurable.
const (
	IntentHighConfidence = 0.70
	IntentLowConfidence  = 0.50
	LanguageSwitchConfidence = 0.75
)

type Intent string

const (
	IntentGreeting           Intent = "GREETING"
	IntentProductSearch      Intent = "PRODUCT_SEARCH"
	IntentProductDetail      Intent = "PRODUCT_DETAIL"
	IntentOrderStatus        Intent = "ORDER_STATUS"
	IntentBookAppointment    Intent = "BOOK_APPOINTMENT"
	IntentSupportQuestion    Intent = "SUPPORT_QUESTION"
	IntentOfferInquiry       Intent = "OFFER_INQUIRY"
	IntentApplyCoupon        Intent = "APPLY_COUPON"
	IntentUpdatePreferences  Intent = "UPDATE_PREFERENCES"
	IntentStopUnsubscribe    Intent = "STOP_UNSUBSCRIBE"
	IntentPaymentInitiate    Intent = "PAYMENT_INITIATE"
	IntentRequestHuman       Intent = "REQUEST_HUMAN"
	IntentSmallTalk          Intent = "SMALL_TALK"
	IntentOther              Intent = "OTHER"
	IntentUnknown            Intent = "UNKNOWN"
)

// KnownIntents is the fixed enumerated set the intent classifier must
// choose from.
var KnownIntents = map[Intent]bool{
	IntentGreeting: true, IntentProductSearch: true, IntentProductDetail: true,
	IntentOrderStatus: true, IntentBookAppointment: true, IntentSupportQuestion: true,
	IntentOfferInquiry: true, IntentApplyCoupon: true, IntentUpdatePreferences: true,
	IntentStopUnsubscribe: true, IntentPaymentInitiate: true, IntentRequestHuman: true,
	IntentSmallTalk: true, IntentOther: true,
}

type Journey string

const (
	JourneySales      Journey = "sales"
	JourneySupport    Journey = "support"
	JourneyOrders     Journey = "orders"
	JourneyOffers     Journey = "offers"
	JourneyPrefs      Journey = "prefs"
	JourneyPayments   Journey = "payments"
	JourneyGovernance Journey = "governance"
)

// IntentResult is the intent classifier's fixed JSON shape (spec.md §4.4).
type IntentResult struct {
	Intent           Intent            `json:"intent"`
	Confidence       float64           `json:"confidence"`
	Notes            string            `json:"notes"`
	SuggestedJourney Journey           `json:"suggested_journey"`
	Slots            map[string]any    `json:"slots"`
}

// RoutingDecision is the outcome of applying spec.md §4.4's exact
// thresholds to an IntentResult.
type RoutingDecision string

const (
	RouteFollowJourney RoutingDecision = "follow_journey"
	RouteClarify       RoutingDecision = "clarify"
	RouteUnknown       RoutingDecision = "unknown"
)

// Route applies the exact routing thresholds: >=0.70 follow the suggested
// journey, [0.50,0.70) ask one clarifying question and re-classify,
// <0.50 unknown handler.
func Route(confidence float64) RoutingDecision {
	switch {
	case confidence >= IntentHighConfidence:
		return RouteFollowJourney
	case confidence >= IntentLowConfidence:
		return RouteClarify
	default:
		return RouteUnknown
	}
}

// Language is the fixed enumerated set the language classifier chooses
// from.
type Language string

const (
	LangEnglish Language = "en"
	LangSwahili Language = "sw"
	LangSheng   Language = "sheng"
	LangMixed   Language = "mixed"
)

type LanguageResult struct {
	ResponseLanguage     Language `json:"response_language"`
	Confidence           float64  `json:"confidence"`
	ShouldAskLanguageQ   bool     `json:"should_ask_language_question"`
}

// ResolveLanguage implements spec.md §4.4's switch rule: confidence>=0.75
// AND response_language in tenant.allowed_languages switches; otherwise the
// explicit customer preference wins, falling back to the tenant default.
func ResolveLanguage(result LanguageResult, allowedLanguages []string, customerPref, tenantDefault string) string {
	if result.Confidence >= LanguageSwitchConfidence && contains(allowedLanguages, string(result.ResponseLanguage)) {
		return string(result.ResponseLanguage)
	}
	if customerPref != "" {
		return customerPref
	}
	return tenantDefault
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// GovernorClass is the fixed enumerated set the conversation governor
// classifier chooses from.
type GovernorClass string

const (
	GovernorBusiness GovernorClass = "business"
	GovernorCasual   GovernorClass = "casual"
	GovernorSpam     GovernorClass = "spam"
	GovernorAbuse    GovernorClass = "abuse"
)

type RecommendedAction string

const (
	ActionProceed  RecommendedAction = "proceed"
	ActionRedirect RecommendedAction = "redirect"
	ActionLimit    RecommendedAction = "limit"
	ActionStop     RecommendedAction = "stop"
	ActionHandoff  RecommendedAction = "handoff"
)

type GovernorResult struct {
	Classification     GovernorClass     `json:"classification"`
	Confidence         float64           `json:"confidence"`
	RecommendedAction  RecommendedAction `json:"recommended_action"`
}

// ChattinessBudget maps tenant.max_chattiness_level (spec.md §4.4: 0=strict,
// 1=one greeting, 2=two casual turns (default), 3=four casual turns) to the
// casual-turn budget before redirecting to business.
func ChattinessBudget(level int) int {
	switch level {
	case 0:
		return 0
	case 1:
		return 1
	case 3:
		return 4
	default:
		return 2
	}
}

// GovernorOutcome is the governor's effect on ConversationState counters
// and flow (spec.md §4.4).
type GovernorOutcome struct {
	Proceed        bool
	RedirectToBusiness bool
	Disengage      bool
	StopImmediately bool
	IncrementCasual bool
	IncrementSpam   bool
}

// ApplyGovernor computes the state effect of a GovernorResult given the
// conversation's current casual/spam turn counters and the tenant's
// chattiness level.
func ApplyGovernor(result GovernorResult, casualTurns, spamTurns, chattinessLevel int) GovernorOutcome {
	switch result.Classification {
	case GovernorBusiness:
		return GovernorOutcome{Proceed: true}
	case GovernorCasual:
		budget := ChattinessBudget(chattinessLevel)
		next := casualTurns + 1
		return GovernorOutcome{IncrementCasual: true, RedirectToBusiness: next >= budget}
	case GovernorSpam:
		next := spamTurns + 1
		return GovernorOutcome{IncrementSpam: true, Disengage: next > 2}
	case GovernorAbuse:
		return GovernorOutcome{StopImmediately: true}
	default:
		return GovernorOutcome{Proceed: true}
	}
}

// ChatTurn is one turn of conversation history passed to a provider.
type ChatTurn struct {
	Role string
	Text string
}

// UsageStats mirrors the teacher's token/cost accounting shape, generalized
// across providers.
type UsageStats struct {
	Model        string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// Provider is the thin, provider-agnostic interface every LLM backend must
// implement to serve the three classifiers. JSON-schema-constrained
// completion is the only capability the classifiers need — no tool calling,
// no streaming.
type Provider interface {
	CompleteJSON(ctx context.Context, req JSONRequest) (string, *UsageStats, error)
}

// JSONRequest asks a provider for a strict-schema JSON completion.
type JSONRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	History      []ChatTurn
	SchemaName   string
	Schema       map[string]any
}
