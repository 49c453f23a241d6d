// Package pipeline composes the per-turn path spec.md §4 describes end to
// end: acquire the conversation lock, load or seed ConversationState,
// run the three classifiers, dispatch to the matching journey subflow,
// and deliver the resulting BotAction — persisting state before release.
// Grounded on the teacher's workspace/application/message_processor.go
// ProcessFinal: load session -> build classifier input -> run bot ->
// persist session/memory -> release, generalized from its single
// in-process session map onto conversation.Store's locked Valkey-backed
// ConversationState and from its one botengine call onto the three
// discrete classifiers feeding journey.Router.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/convocommerce/backend/classifier"
	"github.com/convocommerce/backend/conversation"
	"github.com/convocommerce/backend/customer"
	"github.com/convocommerce/backend/journey"
	"github.com/convocommerce/backend/outbound"
	"github.com/convocommerce/backend/tenant"
	"github.com/convocommerce/backend/wallet"
)

// historyWindow bounds how many prior messages are replayed into the
// classifier prompt on a cold (no live state) turn, per spec.md §4.3.
const historyWindow = 20

// Pipeline implements edge.InboundProcessor, wiring conversation state,
// the classifier registry, the journey router, and outbound delivery
// into the one place classifier/journey/tools/outbound output actually
// reaches the customer.
type Pipeline struct {
	Store         *conversation.Store
	Conversations *conversation.GormRepository
	Customers     *customer.GormRepository
	TenantCache   *tenant.ConfigCache
	Wallets       *wallet.GormRepository
	Classifiers   *classifier.Registry
	Router        *journey.Router
	Deliverer     *outbound.Deliverer

	// AIBackend/AIAPIKey select which classifier.Registry.Get client to
	// resolve; a single process-wide credential today, per-tenant
	// credential resolution is a straightforward extension of
	// tenant.ConfigCache once multi-key billing exists.
	AIBackend string
	AIAPIKey  string
}

// ProcessInboundMessage runs one full turn for messageID: classify,
// route, deliver, persist. Errors are returned for the worker queue's
// retry policy to act on; a customer-visible failure never panics the
// job goroutine. The turn does not run inside a job database transaction.
func (p *Pipeline) ProcessInboundMessage(ctx context.Context, tenantID, conversationID, messageID string) error {
	lock, err := p.Store.AcquireLock(ctx, conversationID, 0, 0)
	if err != nil {
		return fmt.Errorf("pipeline: acquire lock: %w", err)
	}
	defer func() {
		if unlockErr := lock.Unlock(ctx); unlockErr != nil {
			logrus.WithError(unlockErr).Warn("pipeline: failed to release conversation lock")
		}
	}()

	msg, err := p.Conversations.GetMessage(ctx, tenantID, messageID)
	if err != nil {
		return fmt.Errorf("pipeline: load inbound message: %w", err)
	}

	conv, err := p.Conversations.GetByID(ctx, tenantID, conversationID)
	if err != nil {
		return fmt.Errorf("pipeline: load conversation: %w", err)
	}

	t, err := p.TenantCache.Get(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("pipeline: load tenant: %w", err)
	}

	cust, err := p.Customers.GetByID(ctx, tenantID, conv.CustomerID)
	if err != nil {
		return fmt.Errorf("pipeline: load customer: %w", err)
	}

	st, err := p.Store.Load(ctx, tenantID, conversationID)
	if err != nil {
		return fmt.Errorf("pipeline: load conversation state: %w", err)
	}
	if st == nil {
		st = p.rebuildState(ctx, t, conv, cust)
	}
	st.RequestID = uuid.NewString()

	history, err := p.Conversations.History(ctx, tenantID, conversationID, historyWindow)
	if err != nil {
		logrus.WithError(err).Warn("pipeline: failed to load history for classifier prompt")
	}
	turns := toChatTurns(history)

	provider, err := p.Classifiers.Get(p.AIBackend, p.AIAPIKey)
	if err != nil {
		return fmt.Errorf("pipeline: resolve classifier provider: %w", err)
	}

	intent := classifier.ClassifyIntent(ctx, provider, intentSystemPrompt(st), msg.Text, turns)
	lang := classifier.ClassifyLanguage(ctx, provider, languageSystemPrompt(st), msg.Text, turns)
	governor := classifier.ClassifyGovernor(ctx, provider, governorSystemPrompt(st), msg.Text, turns)

	st.Classifier = conversation.ClassifierOutputs{
		Intent:             string(intent.Intent),
		IntentConfidence:   intent.Confidence,
		Journey:            string(intent.SuggestedJourney),
		ResponseLanguage:   classifier.ResolveLanguage(lang, st.Persona.AllowedLanguages, st.Preferences.LanguagePref, st.Persona.DefaultLanguage),
		LanguageConfidence: lang.Confidence,
		GovernorClass:      string(governor.Classification),
		GovernorConfidence: governor.Confidence,
	}

	outcome := classifier.ApplyGovernor(governor, st.CasualTurns, st.SpamTurns, st.Persona.MaxChattinessLevel)
	if outcome.IncrementCasual {
		st.CasualTurns++
	}
	if outcome.IncrementSpam {
		st.SpamTurns++
	}

	var action outbound.BotAction
	switch {
	case outcome.StopImmediately:
		action = outbound.BotAction{Kind: outbound.ActionHandoff, Text: "", HandoffReason: "governor: abuse detected"}
		st.EscalationFlag = true
		st.EscalationReason = "abuse"
	case outcome.Disengage:
		action = outbound.BotAction{Kind: outbound.ActionText, Text: ""}
	case outcome.RedirectToBusiness:
		action = outbound.BotAction{Kind: outbound.ActionText, Text: redirectPrompt(st.Persona)}
	default:
		action = p.dispatch(ctx, intent, st)
	}

	st.TurnCount++
	st.ResponseText = action.Text

	if err := p.Store.Save(ctx, st, 0); err != nil {
		logrus.WithError(err).Error("pipeline: failed to persist conversation state")
	}

	if action.Kind == "" {
		return nil
	}

	return p.deliver(ctx, t, cust, conv, st, action)
}

// dispatch applies spec.md §4.4's exact routing thresholds before handing
// off to the journey router: below the clarify threshold, no subflow
// runs at all this turn.
func (p *Pipeline) dispatch(ctx context.Context, intent classifier.IntentResult, st *conversation.State) outbound.BotAction {
	switch classifier.Route(intent.Confidence) {
	case classifier.RouteUnknown:
		return outbound.BotAction{Kind: outbound.ActionText, Text: fallbackClarification(st.Persona)}
	case classifier.RouteClarify:
		return outbound.BotAction{Kind: outbound.ActionText, Text: clarifyingQuestion(st.Persona)}
	default:
		result, err := p.Router.Dispatch(ctx, st)
		if err != nil {
			logrus.WithError(err).Error("pipeline: journey dispatch failed")
			return outbound.BotAction{Kind: outbound.ActionText, Text: fallbackClarification(st.Persona)}
		}
		return outbound.FromJourneyResult(result)
	}
}

func (p *Pipeline) deliver(ctx context.Context, t *tenant.Tenant, cust *customer.Customer, conv *conversation.Conversation, st *conversation.State, action outbound.BotAction) error {
	if p.Deliverer == nil {
		return nil
	}

	limit := int64(0)
	if sub, err := p.Wallets.GetSubscription(ctx, t.ID); err == nil && sub != nil {
		if tier, err := p.Wallets.GetTier(ctx, sub.TierID); err == nil && tier != nil {
			limit = int64(tier.MaxMessagesPerDay)
		}
	}

	category := customer.CategoryTransactional
	if action.Kind == outbound.ActionHandoff {
		category = customer.CategoryReminder
	}

	_, err := p.Deliverer.Deliver(ctx, outbound.Input{
		Tenant:         t,
		Customer:       cust,
		ConversationID: conv.ID,
		TurnNumber:     st.TurnCount,
		Category:       category,
		DailyLimit:     limit,
		Action:         action,
	})
	return err
}

// rebuildState seeds fresh working memory when no live cached state
// exists, per spec.md §4.3's "rebuild from persisted history" rule.
func (p *Pipeline) rebuildState(ctx context.Context, t *tenant.Tenant, conv *conversation.Conversation, cust *customer.Customer) *conversation.State {
	persona := conversation.Persona{
		DefaultLanguage:    "en",
		AllowedLanguages:   []string{"en", "sw"},
		MaxChattinessLevel: 2,
	}
	st := conversation.NewState(t.ID, conv.ID, cust.ID, cust.Phone, persona)
	st.Preferences = conversation.Preferences{LanguagePref: cust.LanguagePref, MarketingOptIn: cust.MarketingOptIn}
	return st
}

func toChatTurns(msgs []conversation.Message) []classifier.ChatTurn {
	turns := make([]classifier.ChatTurn, 0, len(msgs))
	for _, m := range msgs {
		role := "user"
		if m.Direction == conversation.DirectionOut {
			role = "assistant"
		}
		turns = append(turns, classifier.ChatTurn{Role: role, Text: m.Text})
	}
	return turns
}

func intentSystemPrompt(st *conversation.State) string {
	return fmt.Sprintf("Classify the customer's intent for %s. Casual turns so far: %d.", st.Persona.BotName, st.CasualTurns)
}

func languageSystemPrompt(st *conversation.State) string {
	return fmt.Sprintf("Classify the response language. Tenant default: %s. Allowed: %v.", st.Persona.DefaultLanguage, st.Persona.AllowedLanguages)
}

func governorSystemPrompt(st *conversation.State) string {
	return fmt.Sprintf("Classify the conversation's business-relevance. Chattiness budget: %d.", classifier.ChattinessBudget(st.Persona.MaxChattinessLevel))
}

func fallbackClarification(p conversation.Persona) string {
	return "Sorry, could you rephrase that? I want to make sure I help with the right thing."
}

func clarifyingQuestion(p conversation.Persona) string {
	return "Just to confirm — are you looking to browse products, check an order, or something else?"
}

func redirectPrompt(p conversation.Persona) string {
	name := p.BotName
	if name == "" {
		name = "our assistant"
	}
	return fmt.Sprintf("Happy to chat, but let's get you sorted — what can %s help you with today?", name)
}
