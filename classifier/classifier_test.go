package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoute(t *testing.T) {
	cases := []struct {
		name       string
		confidence float64
		want       RoutingDecision
	}{
		{"high exact boundary", 0.70, RouteFollowJourney},
		{"well above boundary", 0.95, RouteFollowJourney},
		{"mid exact boundary", 0.50, RouteClarify},
		{"mid range", 0.60, RouteClarify},
		{"just below mid", 0.49, RouteUnknown},
		{"zero", 0.0, RouteUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Route(tc.confidence))
		})
	}
}

func TestResolveLanguage(t *testing.T) {
	allowed := []string{"en", "sw"}

	t.Run("high confidence switch within allowed set", func(t *testing.T) {
		got := ResolveLanguage(LanguageResult{ResponseLanguage: LangSwahili, Confidence: 0.9}, allowed, "", "en")
		assert.Equal(t, "sw", got)
	})

	t.Run("high confidence but not allowed falls back to customer pref", func(t *testing.T) {
		got := ResolveLanguage(LanguageResult{ResponseLanguage: LangSheng, Confidence: 0.9}, allowed, "en", "en")
		assert.Equal(t, "en", got)
	})

	t.Run("low confidence keeps customer preference", func(t *testing.T) {
		got := ResolveLanguage(LanguageResult{ResponseLanguage: LangSwahili, Confidence: 0.5}, allowed, "en", "en")
		assert.Equal(t, "en", got)
	})

	t.Run("low confidence and no preference falls back to tenant default", func(t *testing.T) {
		got := ResolveLanguage(LanguageResult{ResponseLanguage: LangSwahili, Confidence: 0.5}, allowed, "", "en")
		assert.Equal(t, "en", got)
	})

	t.Run("boundary confidence switches", func(t *testing.T) {
		got := ResolveLanguage(LanguageResult{ResponseLanguage: LangSwahili, Confidence: LanguageSwitchConfidence}, allowed, "", "en")
		assert.Equal(t, "sw", got)
	})
}

func TestChattinessBudget(t *testing.T) {
	assert.Equal(t, 0, ChattinessBudget(0))
	assert.Equal(t, 1, ChattinessBudget(1))
	assert.Equal(t, 2, ChattinessBudget(2))
	assert.Equal(t, 4, ChattinessBudget(3))
	assert.Equal(t, 2, ChattinessBudget(99))
}

func TestApplyGovernor(t *testing.T) {
	t.Run("business always proceeds", func(t *testing.T) {
		out := ApplyGovernor(GovernorResult{Classification: GovernorBusiness}, 5, 5, 2)
		assert.True(t, out.Proceed)
	})

	t.Run("casual redirects once budget is exhausted", func(t *testing.T) {
		out := ApplyGovernor(GovernorResult{Classification: GovernorCasual}, 1, 0, 2)
		assert.True(t, out.IncrementCasual)
		assert.True(t, out.RedirectToBusiness, "2nd casual turn at chattiness level 2 (budget 2) should redirect")
	})

	t.Run("casual within budget does not redirect", func(t *testing.T) {
		out := ApplyGovernor(GovernorResult{Classification: GovernorCasual}, 0, 0, 2)
		assert.True(t, out.IncrementCasual)
		assert.False(t, out.RedirectToBusiness)
	})

	t.Run("strict chattiness redirects on first casual turn", func(t *testing.T) {
		out := ApplyGovernor(GovernorResult{Classification: GovernorCasual}, 0, 0, 0)
		assert.True(t, out.RedirectToBusiness)
	})

	t.Run("spam disengages after 2 turns", func(t *testing.T) {
		out := ApplyGovernor(GovernorResult{Classification: GovernorSpam}, 0, 2, 2)
		assert.True(t, out.IncrementSpam)
		assert.True(t, out.Disengage)
	})

	t.Run("spam under threshold does not disengage", func(t *testing.T) {
		out := ApplyGovernor(GovernorResult{Classification: GovernorSpam}, 0, 1, 2)
		assert.False(t, out.Disengage)
	})

	t.Run("abuse stops immediately", func(t *testing.T) {
		out := ApplyGovernor(GovernorResult{Classification: GovernorAbuse}, 0, 0, 2)
		assert.True(t, out.StopImmediately)
	})
}

func TestSanitizeSlots(t *testing.T) {
	t.Run("drops keys with invalid characters", func(t *testing.T) {
		out := SanitizeSlots(map[string]any{"valid_key": "ok", "bad-key!": "dropped"})
		_, hasValid := out["valid_key"]
		_, hasBad := out["bad-key!"]
		assert.True(t, hasValid)
		assert.False(t, hasBad)
	})

	t.Run("truncates long strings to the value limit", func(t *testing.T) {
		long := make([]byte, 600)
		for i := range long {
			long[i] = 'a'
		}
		out := SanitizeSlots(map[string]any{"note": string(long) + "--drop table"})
		assert.LessOrEqual(t, len(out["note"].(string)), maxSlotValueChars)
	})

	t.Run("rejects out-of-range numbers", func(t *testing.T) {
		out := SanitizeSlots(map[string]any{"qty": 3.0, "huge": 1e20})
		_, hasQty := out["qty"]
		_, hasHuge := out["huge"]
		assert.True(t, hasQty)
		assert.False(t, hasHuge)
	})

	t.Run("caps at 20 entries", func(t *testing.T) {
		raw := make(map[string]any, 30)
		for i := 0; i < 30; i++ {
			raw[string(rune('a'+i%26))+"_field"] = "v"
		}
		out := SanitizeSlots(raw)
		assert.LessOrEqual(t, len(out), maxSlots)
	})
}

func TestValidateIntentResult(t *testing.T) {
	t.Run("valid result passes", func(t *testing.T) {
		err := ValidateIntentResult(IntentResult{
			Intent: IntentGreeting, Confidence: 0.8, SuggestedJourney: JourneySales,
		})
		assert.NoError(t, err)
	})

	t.Run("unknown intent is rejected", func(t *testing.T) {
		err := ValidateIntentResult(IntentResult{
			Intent: Intent("NOT_A_REAL_INTENT"), Confidence: 0.8, SuggestedJourney: JourneySales,
		})
		assert.Error(t, err)
	})

	t.Run("out of range confidence is rejected", func(t *testing.T) {
		err := ValidateIntentResult(IntentResult{
			Intent: IntentGreeting, Confidence: 1.5, SuggestedJourney: JourneySales,
		})
		assert.Error(t, err)
	})
}
