package classifier

import (
	"fmt"
	"strings"
	"time"
)

// PersonaPrompt carries the tenant/persona fields a classifier's system
// prompt is assembled from. It mirrors the subset of conversation.Persona
// relevant to classification, kept here rather than imported to avoid
// coupling the classifier package to the conversation package's full state
// shape.
type PersonaPrompt struct {
	BotName          string
	ToneStyle        string
	DefaultLanguage  string
	AllowedLanguages []string
	TimeZone         string
	ComplianceFlags  []string
}

// BuildIntentSystemPrompt assembles the intent classifier's system prompt:
// persona identity, compliance constraints, current time, and a strict
// instruction to return only the fixed JSON shape — grounded on the
// teacher's Prompter.BuildSystemInstructions sectional-assembly style,
// generalized from a freeform chat persona into a single-purpose
// classifier's instructions.
func BuildIntentSystemPrompt(persona PersonaPrompt, knownIntents []string) string {
	var sb strings.Builder

	writeIdentitySections(&sb, persona)

	sb.WriteString("\n\n### TASK\nClassify the customer's message into exactly one of these intents:\n")
	for _, intent := range knownIntents {
		sb.WriteString(fmt.Sprintf("- %s\n", intent))
	}
	sb.WriteString("\nAlso suggest which journey should handle this turn (sales, support, orders, offers, prefs, governance), ")
	sb.WriteString("extract any action slots as a flat key/value map, and return your confidence in [0,1].\n")
	sb.WriteString("Respond with JSON only, matching the provided schema exactly. Do not include any text outside the JSON object.")

	return sb.String()
}

// BuildLanguageSystemPrompt assembles the language-policy classifier's
// system prompt.
func BuildLanguageSystemPrompt(persona PersonaPrompt) string {
	var sb strings.Builder

	writeIdentitySections(&sb, persona)

	sb.WriteString("\n\n### TASK\nDetermine which language the customer is writing in and whether the assistant should switch to respond in it.\n")
	sb.WriteString(fmt.Sprintf("Allowed languages: %s. Tenant default: %s.\n", strings.Join(persona.AllowedLanguages, ", "), persona.DefaultLanguage))
	sb.WriteString("Respond with JSON only, matching the provided schema exactly.")

	return sb.String()
}

// BuildGovernorSystemPrompt assembles the conversation-governor classifier's
// system prompt.
func BuildGovernorSystemPrompt(persona PersonaPrompt) string {
	var sb strings.Builder

	writeIdentitySections(&sb, persona)

	sb.WriteString("\n\n### TASK\nClassify this turn as business, casual, spam, or abuse, and recommend an action ")
	sb.WriteString("(proceed, redirect, limit, stop, handoff).\n")
	sb.WriteString("business: on-topic with the tenant's offering. casual: small talk, tolerated within the tenant's chattiness budget. ")
	sb.WriteString("spam: repetitive or irrelevant noise. abuse: harassment, threats, or illegal requests — always recommend stop.\n")
	sb.WriteString("Respond with JSON only, matching the provided schema exactly.")

	return sb.String()
}

func writeIdentitySections(sb *strings.Builder, persona PersonaPrompt) {
	if persona.BotName != "" {
		sb.WriteString(fmt.Sprintf("You are %s", persona.BotName))
		if persona.ToneStyle != "" {
			sb.WriteString(fmt.Sprintf(", a %s assistant", persona.ToneStyle))
		}
		sb.WriteString(".\n")
	}

	if len(persona.ComplianceFlags) > 0 {
		sb.WriteString("\n### COMPLIANCE CONSTRAINTS\n")
		for _, flag := range persona.ComplianceFlags {
			sb.WriteString(fmt.Sprintf("- %s\n", flag))
		}
	}

	tz := persona.TimeZone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	sb.WriteString(fmt.Sprintf("\nCurrent time (%s): %s.", tz, time.Now().In(loc).Format(time.RFC3339)))
}
