package classifier

// JSON schemas for the three classifiers, authored as plain
// map[string]any (OpenAI and Gemini providers each adapt this shape to
// their own strict-schema wire format). additionalProperties:false rejects
// unknown fields per spec.md §4.4.

var intentSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"intent": map[string]any{
			"type": "string",
			"enum": intentEnumValues(),
		},
		"confidence": map[string]any{"type": "number"},
		"notes":      map[string]any{"type": "string"},
		"suggested_journey": map[string]any{
			"type": "string",
			"enum": []string{"sales", "support", "orders", "offers", "prefs", "governance"},
		},
		"slots": map[string]any{"type": "object"},
	},
	"required":             []string{"intent", "confidence", "notes", "suggested_journey", "slots"},
	"additionalProperties": false,
}

var languageSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"response_language": map[string]any{
			"type": "string",
			"enum": []string{"en", "sw", "sheng", "mixed"},
		},
		"confidence":                   map[string]any{"type": "number"},
		"should_ask_language_question": map[string]any{"type": "boolean"},
	},
	"required":             []string{"response_language", "confidence", "should_ask_language_question"},
	"additionalProperties": false,
}

var governorSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"classification": map[string]any{
			"type": "string",
			"enum": []string{"business", "casual", "spam", "abuse"},
		},
		"confidence": map[string]any{"type": "number"},
		"recommended_action": map[string]any{
			"type": "string",
			"enum": []string{"proceed", "redirect", "limit", "stop", "handoff"},
		},
	},
	"required":             []string{"classification", "confidence", "recommended_action"},
	"additionalProperties": false,
}

func intentEnumValues() []string {
	values := make([]string, 0, len(KnownIntents))
	for i := range KnownIntents {
		values = append(values, string(i))
	}
	return values
}
