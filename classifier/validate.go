package classifier

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const maxNotesLength = 512

// ValidateIntentResult enforces spec.md §4.4's rejection rules beyond what
// the provider's strict JSON schema already guarantees: out-of-enum
// values, over-length strings, and out-of-range numbers. On any violation
// the caller must fall back to {intent: UNKNOWN, confidence: 0.0}.
func ValidateIntentResult(r IntentResult) error {
	return validation.Errors{
		"intent":     validation.Validate(r.Intent, validation.Required, validation.In(enumIntents()...)),
		"confidence": validation.Validate(r.Confidence, validation.Min(0.0), validation.Max(1.0)),
		"notes":      validation.Validate(r.Notes, validation.Length(0, maxNotesLength)),
		"suggested_journey": validation.Validate(r.SuggestedJourney, validation.Required, validation.In(
			JourneySales, JourneySupport, JourneyOrders, JourneyOffers, JourneyPrefs, JourneyGovernance,
		)),
	}.Filter()
}

func ValidateLanguageResult(r LanguageResult) error {
	return validation.Errors{
		"response_language": validation.Validate(r.ResponseLanguage, validation.Required, validation.In(
			LangEnglish, LangSwahili, LangSheng, LangMixed,
		)),
		"confidence": validation.Validate(r.Confidence, validation.Min(0.0), validation.Max(1.0)),
	}.Filter()
}

func ValidateGovernorResult(r GovernorResult) error {
	return validation.Errors{
		"classification": validation.Validate(r.Classification, validation.Required, validation.In(
			GovernorBusiness, GovernorCasual, GovernorSpam, GovernorAbuse,
		)),
		"confidence": validation.Validate(r.Confidence, validation.Min(0.0), validation.Max(1.0)),
		"recommended_action": validation.Validate(r.RecommendedAction, validation.Required, validation.In(
			ActionProceed, ActionRedirect, ActionLimit, ActionStop, ActionHandoff,
		)),
	}.Filter()
}

func enumIntents() []interface{} {
	out := make([]interface{}, 0, len(KnownIntents))
	for i := range KnownIntents {
		out = append(out, i)
	}
	return out
}
