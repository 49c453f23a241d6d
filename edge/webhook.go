// Package edge implements the inbound webhook intake surface spec.md §4.1
// describes: a thin, fast HTTP handler that resolves the tenant,
// authenticates the gateway call, deduplicates, and enqueues the heavy
// lifting onto the `messaging` worker queue — never doing LLM or commerce
// work itself (target p95 < 500ms). Grounded on the teacher's
// ui/rest/app.go route-registration idiom and infrastructure/whatsapp's
// webhook-forwarding handler shape, generalized from a single hardcoded
// provider into the tenant-resolved, signature-verified, multi-tenant
// intake spec.md names.
package edge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/convocommerce/backend/audit"
	"github.com/convocommerce/backend/conversation"
	"github.com/convocommerce/backend/customer"
	"github.com/convocommerce/backend/outbound"
	"github.com/convocommerce/backend/platform/apierr"
	"github.com/convocommerce/backend/platform/cache"
	"github.com/convocommerce/backend/platform/crypto"
	"github.com/convocommerce/backend/tenant"
	"github.com/convocommerce/backend/worker"
)

// dedupTTL is the cache lifetime for an inbound dedup key — at least the
// provider's maximum retry window, per spec.md §5 (">=24h").
const dedupTTL = 24 * time.Hour

// suppressionWindow bounds how often the "business temporarily
// unavailable" apology is sent to the same customer while the tenant's
// subscription is inactive (spec.md §4.1).
const suppressionWindow = 24 * time.Hour

// InboundPayload is the minimal shape this handler needs out of a gateway
// delivery; real per-provider parsing (Twilio/WhatsApp Cloud API) is an
// external collaborator per spec.md §1 and is expected to normalize into
// this shape before calling Handle.
type InboundPayload struct {
	ProviderMessageID string `json:"provider_message_id"`
	FromE164          string `json:"from"`
	ToE164            string `json:"to"`
	Body              string `json:"body"`
}

// Handler wires the tenant/customer/conversation/audit repositories, the
// cache, and the worker Manager into one fiber.Handler mounted at the
// gateway callback path.
type Handler struct {
	tenants       *tenant.GormRepository
	customers     *customer.GormRepository
	conversations *conversation.GormRepository
	audits        *audit.GormRepository
	cache         *cache.Client
	secrets       *crypto.Box
	deliverer     *outbound.Deliverer
	jobs          *worker.Manager

	// URLTenantSelector resolves a tenant from a URL path parameter (the
	// fallback lookup spec.md §4.1 names) when the recipient-number
	// lookup misses — e.g. a provider that doesn't echo the `to` number.
	URLTenantSelector func(c *fiber.Ctx) string
}

func NewHandler(
	tenants *tenant.GormRepository,
	customers *customer.GormRepository,
	conversations *conversation.GormRepository,
	audits *audit.GormRepository,
	cacheClient *cache.Client,
	secrets *crypto.Box,
	deliverer *outbound.Deliverer,
	jobs *worker.Manager,
) *Handler {
	return &Handler{
		tenants:       tenants,
		customers:     customers,
		conversations: conversations,
		audits:        audits,
		cache:         cacheClient,
		secrets:       secrets,
		deliverer:     deliverer,
		jobs:          jobs,
	}
}

// RegisterRoutes mounts the gateway callback endpoint.
func (h *Handler) RegisterRoutes(router fiber.Router) {
	router.Post("/webhooks/gateway", h.Handle)
	router.Post("/webhooks/gateway/:tenantSelector", h.Handle)
}

// Handle implements spec.md §4.1's exact algorithm: resolve tenant,
// verify signature, dedup, persist, upsert customer/conversation, enqueue,
// record the WebhookLog transition at every step.
func (h *Handler) Handle(c *fiber.Ctx) error {
	ctx := c.Context()
	body := c.Body()

	var payload InboundPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		status, envelope := apierr.ToEnvelope(apierr.InvalidInput("malformed webhook body"))
		return c.Status(status).JSON(envelope)
	}

	t, err := h.resolveTenant(ctx, c, payload.ToE164)
	if err != nil || t == nil {
		h.record(ctx, "", "", audit.WebhookUnauthorized, body, "tenant not resolved")
		return c.SendStatus(fiber.StatusNotFound)
	}

	secret, err := h.secrets.Decrypt(t.GatewayEncryptedSecret)
	if err != nil || !crypto.VerifyHMAC([]byte(secret), body, c.Get("X-Gateway-Signature")) {
		h.record(ctx, t.ID, "", audit.WebhookUnauthorized, body, "signature mismatch")
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	dedupKey := h.dedupKey(payload)
	fresh, err := h.cache.SetNX(ctx, h.cache.Key("webhook-dedup", dedupKey), "1", dedupTTL)
	if err != nil {
		logrus.WithError(err).Error("[edge] dedup check failed")
	} else if !fresh {
		h.record(ctx, t.ID, dedupKey, audit.WebhookDuplicate, body, "")
		return c.SendStatus(fiber.StatusOK)
	}

	if !t.Operational() {
		h.handleSubscriptionInactive(ctx, t, payload)
		h.record(ctx, t.ID, dedupKey, audit.WebhookSubscriptionInactive, body, "")
		return c.SendStatus(fiber.StatusOK)
	}

	logID, err := h.ingest(ctx, t, payload, dedupKey)
	if err != nil {
		h.record(ctx, t.ID, dedupKey, audit.WebhookError, body, err.Error())
		// The gateway retries on 500. The dedup key is released here so that
		// retry is ingested again; once ingest succeeds the key stays set and
		// any later retry is recorded as a duplicate.
		_ = h.cache.Del(ctx, h.cache.Key("webhook-dedup", dedupKey))
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	_ = logID
	h.record(ctx, t.ID, dedupKey, audit.WebhookSuccess, body, "")

	return c.SendStatus(fiber.StatusOK)
}

func (h *Handler) resolveTenant(ctx context.Context, c *fiber.Ctx, toE164 string) (*tenant.Tenant, error) {
	if toE164 != "" {
		if t, err := h.tenants.GetBySenderNumber(ctx, toE164); err == nil && t != nil {
			return t, nil
		}
	}
	if h.URLTenantSelector != nil {
		if selector := h.URLTenantSelector(c); selector != "" {
			return h.tenants.GetBySlug(ctx, selector)
		}
	}
	return nil, fmt.Errorf("edge: no tenant resolved for recipient %q", toE164)
}

func (h *Handler) dedupKey(p InboundPayload) string {
	if p.ProviderMessageID != "" {
		return "pmid:" + p.ProviderMessageID
	}
	coarse := time.Now().UTC().Truncate(time.Minute).Format(time.RFC3339)
	sum := sha256.Sum256([]byte(p.FromE164 + "|" + p.ToE164 + "|" + p.Body + "|" + coarse))
	return "hash:" + hex.EncodeToString(sum[:])
}

// ingest persists the inbound message and enqueues per-turn processing.
func (h *Handler) ingest(ctx context.Context, t *tenant.Tenant, p InboundPayload, dedupKey string) (string, error) {
	cust, err := h.customers.UpsertByPhone(ctx, t.ID, p.FromE164)
	if err != nil {
		return "", fmt.Errorf("edge: upsert customer: %w", err)
	}

	conv, err := h.conversations.UpsertOpenConversation(ctx, t.ID, cust.ID)
	if err != nil {
		return "", fmt.Errorf("edge: upsert conversation: %w", err)
	}

	msg := conversation.NewMessage(t.ID, conv.ID, conversation.DirectionIn, conversation.KindCustomerInbound, p.Body)
	msg.ProviderMessageID = p.ProviderMessageID
	if err := h.conversations.AppendMessage(ctx, msg); err != nil {
		return "", fmt.Errorf("edge: append inbound message: %w", err)
	}

	messageID := msg.ID
	if h.jobs != nil {
		h.jobs.Dispatch(worker.Job{
			Queue:      "messaging",
			ShardKey:   conv.ID,
			MaxRetries: 3,
			Handler: func(jobCtx context.Context) error {
				return h.processInboundMessage(jobCtx, t.ID, conv.ID, messageID)
			},
		})
	}

	return messageID, nil
}

// processInboundMessage is the `process_inbound_message(message_id)` task
// spec.md §4.1 enqueues; the actual per-turn pipeline (conversation lock →
// classifier → journey → tools → outbound) lives in worker's pipeline and
// is invoked from here once constructed by cmd/'s dependency wiring. Kept
// as a seam so edge/ never imports classifier/journey directly.
type InboundProcessor interface {
	ProcessInboundMessage(ctx context.Context, tenantID, conversationID, messageID string) error
}

var globalProcessor InboundProcessor

// SetInboundProcessor installs the per-turn pipeline; called once by cmd/
// during startup wiring.
func SetInboundProcessor(p InboundProcessor) { globalProcessor = p }

func (h *Handler) processInboundMessage(ctx context.Context, tenantID, conversationID, messageID string) error {
	if globalProcessor == nil {
		return fmt.Errorf("edge: no inbound processor installed")
	}
	return globalProcessor.ProcessInboundMessage(ctx, tenantID, conversationID, messageID)
}

// handleSubscriptionInactive sends the single automated apology subject to
// a per-(tenant,customer) 24h suppression window (spec.md §4.1).
func (h *Handler) handleSubscriptionInactive(ctx context.Context, t *tenant.Tenant, p InboundPayload) {
	cust, err := h.customers.UpsertByPhone(ctx, t.ID, p.FromE164)
	if err != nil {
		logrus.WithError(err).Error("[edge] subscription-inactive: upsert customer failed")
		return
	}

	suppressKey := h.cache.Key("subscription-apology", t.ID, cust.ID)
	fresh, err := h.cache.SetNX(ctx, suppressKey, "1", suppressionWindow)
	if err != nil || !fresh {
		return
	}

	if h.deliverer == nil {
		return
	}
	action := outbound.BotAction{Kind: outbound.ActionText, Text: "This business is temporarily unavailable. We'll be back soon."}
	_, _ = h.deliverer.Deliver(ctx, outbound.Input{
		Tenant:         t,
		Customer:       cust,
		ConversationID: "",
		TurnNumber:     0,
		Category:       customer.CategoryTransactional,
		Action:         action,
	})
}

func (h *Handler) record(ctx context.Context, tenantID, dedupKey string, status audit.WebhookStatus, body []byte, errMsg string) {
	if h.audits == nil {
		return
	}
	var payloadEnc string
	if h.secrets != nil && len(body) > 0 {
		enc, err := h.secrets.Encrypt(string(body))
		if err != nil {
			logrus.WithError(err).Error("[edge] failed to encrypt webhook payload")
		}
		payloadEnc = enc
	}
	if err := h.audits.RecordWebhook(ctx, &audit.WebhookLog{
		TenantID:   tenantID,
		DedupKey:   dedupKey,
		Status:     status,
		Error:      errMsg,
		PayloadEnc: payloadEnc,
	}); err != nil {
		logrus.WithError(err).Error("[edge] failed to record webhook log")
	}
}
