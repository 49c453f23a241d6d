package journey

import (
	"context"

	"github.com/convocommerce/backend/conversation"
	"github.com/convocommerce/backend/tools"
)

// supportRetrievalThreshold is the default minimum relevance score a KB
// snippet needs before Support will answer from it instead of escalating
// (spec.md §4.5, "tenant-configured threshold, default 0.6").
const supportRetrievalThreshold = 0.6

// Support implements the support subflow: kb_retrieve against the
// tenant's isolated vector namespace, escalating when nothing scores high
// enough to ground an answer.
func Support(ctx context.Context, registry *tools.Registry, st *conversation.State) (Result, error) {
	query := st.Preferences.LanguagePref
	if query == "" {
		query = st.Classifier.Intent
	}

	out, err := registry.Invoke(ctx, tools.KBRetrieve, toolContext(st), map[string]any{"query": query})
	if err != nil {
		if tools.IsRetryable(err) {
			return Result{}, err
		}
		return escalateNoAuthoritativeInfo(), nil
	}

	raw, _ := out["snippets"].([]tools.KBSnippet)
	best := bestSnippet(raw)
	if best == nil || best.Score < supportRetrievalThreshold {
		return escalateNoAuthoritativeInfo(), nil
	}

	st.KBSnippets = append(st.KBSnippets, best.Snippet)
	return Result{ResponseText: best.Snippet}, nil
}

func bestSnippet(snippets []tools.KBSnippet) *tools.KBSnippet {
	var best *tools.KBSnippet
	for i := range snippets {
		if best == nil || snippets[i].Score > best.Score {
			best = &snippets[i]
		}
	}
	return best
}

func escalateNoAuthoritativeInfo() Result {
	return Result{
		Escalate:         true,
		EscalationReason: "missing_authoritative_info",
		ResponseText:     "Let me connect you with someone from our team who can help with that.",
	}
}
