package journey

import (
	"context"

	"github.com/convocommerce/backend/classifier"
	"github.com/convocommerce/backend/conversation"
	"github.com/convocommerce/backend/tools"
)

// Preferences implements the preferences & consent subflow. STOP/
// UNSUBSCRIBE is processed immediately with no other side effects this
// turn, and its confirmation is always sent regardless of the customer's
// promotional/reminder consent flags, since it is itself transactional
// (spec.md §4.5).
func Preferences(ctx context.Context, registry *tools.Registry, st *conversation.State) (Result, error) {
	if classifier.Intent(st.Classifier.Intent) == classifier.IntentStopUnsubscribe {
		_, err := registry.Invoke(ctx, tools.CustomerUpdatePreferences, toolContext(st), map[string]any{
			"customer_id":         st.CustomerID,
			"marketing_opt_in":    false,
			"reminder_consent":    false,
			"promotional_consent": false,
		})
		if err != nil && tools.IsRetryable(err) {
			return Result{}, err
		}
		st.Preferences.MarketingOptIn = false
		return Result{ResponseText: "You've been unsubscribed from promotional and reminder messages. You'll still receive order updates."}, nil
	}

	args := map[string]any{"customer_id": st.CustomerID}
	if lang, ok := st.Catalog.LastFilters["language_pref"]; ok {
		args["language_pref"] = lang
		st.Preferences.LanguagePref = lang
	}

	_, err := registry.Invoke(ctx, tools.CustomerUpdatePreferences, toolContext(st), args)
	if err != nil {
		if tools.IsRetryable(err) {
			return Result{}, err
		}
		return Result{ResponseText: "I couldn't save that preference — please try again."}, nil
	}

	return Result{ResponseText: "Got it, I've updated your preferences."}, nil
}
