package classifier

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
)

// fallbackIntent is the spec.md §4.4-mandated result when a provider's
// output fails schema decode or post-schema validation: the classifier
// never surfaces a malformed result to the journey router.
var fallbackIntent = IntentResult{Intent: IntentUnknown, Confidence: 0.0, SuggestedJourney: JourneyGovernance}

var fallbackLanguage = LanguageResult{ResponseLanguage: LangEnglish, Confidence: 0.0}

var fallbackGovernor = GovernorResult{Classification: GovernorBusiness, Confidence: 0.0, RecommendedAction: ActionProceed}

// ClassifyIntent runs the intent classifier against provider and returns the
// spec-mandated UNKNOWN fallback (logged, never an error) on any decode or
// validation failure, per spec.md §4.4.
func ClassifyIntent(ctx context.Context, provider Provider, systemPrompt, userPrompt string, history []ChatTurn) IntentResult {
	req := JSONRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		History:      history,
		SchemaName:   "intent_result",
		Schema:       intentSchema,
	}

	raw, usage, err := provider.CompleteJSON(ctx, req)
	if err != nil {
		logrus.WithError(err).Warn("classifier: intent completion failed, falling back to UNKNOWN")
		return fallbackIntent
	}

	var result IntentResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		logrus.WithError(err).WithField("raw", raw).Warn("classifier: intent decode failed, falling back to UNKNOWN")
		return fallbackIntent
	}

	if err := ValidateIntentResult(result); err != nil {
		logrus.WithError(err).WithField("raw", raw).Warn("classifier: intent result rejected, falling back to UNKNOWN")
		return fallbackIntent
	}

	result.Slots = SanitizeSlots(result.Slots)

	logFields := logrus.Fields{"intent": result.Intent, "confidence": result.Confidence}
	if usage != nil {
		logFields["input_tokens"] = usage.InputTokens
		logFields["output_tokens"] = usage.OutputTokens
	}
	logrus.WithFields(logFields).Debug("classifier: intent classified")

	return result
}

// ClassifyLanguage runs the language-policy classifier, falling back to
// {en, confidence 0.0} on any decode or validation failure.
func ClassifyLanguage(ctx context.Context, provider Provider, systemPrompt, userPrompt string, history []ChatTurn) LanguageResult {
	req := JSONRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		History:      history,
		SchemaName:   "language_result",
		Schema:       languageSchema,
	}

	raw, _, err := provider.CompleteJSON(ctx, req)
	if err != nil {
		logrus.WithError(err).Warn("classifier: language completion failed, falling back")
		return fallbackLanguage
	}

	var result LanguageResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		logrus.WithError(err).WithField("raw", raw).Warn("classifier: language decode failed, falling back")
		return fallbackLanguage
	}

	if err := ValidateLanguageResult(result); err != nil {
		logrus.WithError(err).WithField("raw", raw).Warn("classifier: language result rejected, falling back")
		return fallbackLanguage
	}

	return result
}

// ClassifyGovernor runs the conversation-governor classifier, falling back
// to {business, confidence 0.0, proceed} on any decode or validation
// failure — a conservative default that never mistakenly stops a
// legitimate conversation due to a malformed classifier response.
func ClassifyGovernor(ctx context.Context, provider Provider, systemPrompt, userPrompt string, history []ChatTurn) GovernorResult {
	req := JSONRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		History:      history,
		SchemaName:   "governor_result",
		Schema:       governorSchema,
	}

	raw, _, err := provider.CompleteJSON(ctx, req)
	if err != nil {
		logrus.WithError(err).Warn("classifier: governor completion failed, falling back")
		return fallbackGovernor
	}

	var result GovernorResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		logrus.WithError(err).WithField("raw", raw).Warn("classifier: governor decode failed, falling back")
		return fallbackGovernor
	}

	if err := ValidateGovernorResult(result); err != nil {
		logrus.WithError(err).WithField("raw", raw).Warn("classifier: governor result rejected, falling back")
		return fallbackGovernor
	}

	return result
}
