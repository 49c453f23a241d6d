package outbound

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/convocommerce/backend/customer"
	"github.com/convocommerce/backend/platform/cache"
	"github.com/convocommerce/backend/platform/timeutil"
	"github.com/convocommerce/backend/tenant"
)

// dedupTTL bounds how long an outbound idempotency key is remembered —
// well beyond any retry window, per spec.md §5's idempotency requirement.
const dedupTTL = 24 * time.Hour

// retryDelays mirrors the tool contract layer's backoff schedule
// (tools.go's retryDelays) — spec.md §4.8 gives delivery the same 3x
// retry-with-backoff policy as a tool call.
var retryDelays = []time.Duration{1 * time.Second, 5 * time.Second, 15 * time.Second}

// DeliveryError is the typed failure spec.md §4.8 says escalation policy
// may consume once delivery retries are exhausted.
type DeliveryError struct {
	Reason string
}

func (e *DeliveryError) Error() string { return "outbound: delivery failed: " + e.Reason }

// Outcome classifies what Deliver actually did with the turn's reply.
type Outcome string

const (
	OutcomeSent       Outcome = "sent"
	OutcomeDuplicate  Outcome = "duplicate"
	OutcomeSuppressed Outcome = "suppressed" // consent denied
	OutcomeDeferred   Outcome = "deferred"   // quiet hours or rate limit
)

type DeliveryResult struct {
	Outcome     Outcome
	NotBefore   time.Time // set when Outcome == OutcomeDeferred
	MessageIDs  []string  // provider message ids, one per sent Payload
}

// Deliverer applies the consent, quiet-hours, and daily-limit gates
// (spec.md §4.9) and then sends every payload through Gateway with
// idempotency and retry (spec.md §4.8).
type Deliverer struct {
	cache   *cache.Client
	gateway Gateway
}

func NewDeliverer(c *cache.Client, gateway Gateway) *Deliverer {
	return &Deliverer{cache: c, gateway: gateway}
}

// Input bundles everything one delivery attempt needs to apply its gates.
type Input struct {
	Tenant         *tenant.Tenant
	Customer       *customer.Customer
	ConversationID string
	TurnNumber     int
	Category       customer.MessageCategory
	// DailyLimit is the tenant's configured MaxMessagesPerDay
	// (wallet.SubscriptionTier); zero means unlimited.
	DailyLimit int64
	Action     BotAction
	Now        time.Time
}

// Deliver runs the consent gate, then the quiet-hours gate, then the
// sliding-window rate limit, then formats and sends every payload with
// per-payload idempotency and retry. STOP/UNSUBSCRIBE must be applied to
// Customer by the caller (journey.Preferences) before this is invoked, so
// a transactional confirmation sent in the same turn is never itself
// suppressed by the consent flags it just flipped.
func (d *Deliverer) Deliver(ctx context.Context, in Input) (DeliveryResult, error) {
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	if !in.Customer.ConsentFor(in.Category) {
		return DeliveryResult{Outcome: OutcomeSuppressed}, nil
	}

	transactional := in.Category == customer.CategoryTransactional
	if !transactional {
		qh, err := tenantQuietHours(in.Tenant)
		if err == nil && qh.Contains(now) {
			return DeliveryResult{Outcome: OutcomeDeferred, NotBefore: qh.NextPermittedInstant(now)}, nil
		}
	}

	if in.DailyLimit > 0 {
		window := 24 * time.Hour
		key := d.cache.Key("outbound-rate", in.Tenant.ID, timeutil.SlidingWindowKey(now, window))
		count, err := d.cache.Incr(ctx, key, window)
		if err == nil {
			if count > in.DailyLimit {
				return DeliveryResult{Outcome: OutcomeDeferred, NotBefore: now.Add(timeutil.WindowRemaining(now, window))}, nil
			}
			if float64(count) >= 0.8*float64(in.DailyLimit) {
				// 80% threshold: reaching it is not logged or reported;
				// the count is not returned to the caller.
				_ = count
			}
		}
	}

	payloads := Format(in.Action)
	result := DeliveryResult{Outcome: OutcomeSent}

	for _, payload := range payloads {
		key, err := IdempotencyKey(in.ConversationID, in.TurnNumber, payload)
		if err != nil {
			return result, err
		}
		dedupKey := d.cache.Key("outbound-dedup", key)

		fresh, err := d.cache.SetNX(ctx, dedupKey, "1", dedupTTL)
		if err != nil {
			return result, fmt.Errorf("outbound: dedup check: %w", err)
		}
		if !fresh {
			result.Outcome = OutcomeDuplicate
			continue
		}

		msgID, err := d.sendWithRetry(ctx, in.Tenant.ID, in.Customer.Phone, payload)
		if err != nil {
			return result, err
		}
		result.MessageIDs = append(result.MessageIDs, msgID)
	}

	return result, nil
}

func (d *Deliverer) sendWithRetry(ctx context.Context, tenantID, recipient string, payload Payload) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= len(retryDelays); attempt++ {
		msgID, err := d.gateway.Send(ctx, tenantID, recipient, payload)
		if err == nil {
			return msgID, nil
		}
		lastErr = err
		if attempt == len(retryDelays) {
			break
		}
		delay := retryDelays[attempt]
		jitter := time.Duration(rand.Int63n(int64(delay) / 2))
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay + jitter):
		}
	}
	return "", &DeliveryError{Reason: lastErr.Error()}
}

var errNoTimeZone = errors.New("outbound: tenant has no time zone configured")

// tenantQuietHours bridges tenant.Tenant.QuietHours() (a package-local
// struct with no location) into platform/timeutil.QuietHours (which needs
// one to correctly handle a midnight-crossing window in the customer's
// actual wall-clock time).
func tenantQuietHours(t *tenant.Tenant) (timeutil.QuietHours, error) {
	if t.TimeZone == "" {
		return timeutil.QuietHours{}, errNoTimeZone
	}
	loc, err := time.LoadLocation(t.TimeZone)
	if err != nil {
		return timeutil.QuietHours{}, fmt.Errorf("outbound: load tenant time zone %q: %w", t.TimeZone, err)
	}
	tq := t.QuietHours()
	return timeutil.QuietHours{
		StartHour: tq.StartHour,
		StartMin:  tq.StartMin,
		EndHour:   tq.EndHour,
		EndMin:    tq.EndMin,
		Location:  loc,
	}, nil
}
