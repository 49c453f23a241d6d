package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/convocommerce/backend/platform/cache"
	"github.com/google/uuid"
)

const (
	// DefaultInactivityTTL expires live state after 30 min of inactivity
	// (spec.md §4.3); a follow-up message rebuilds state from persisted
	// history.
	DefaultInactivityTTL = 30 * time.Minute

	// DefaultLockHold is the bounded hold time for the per-conversation
	// advisory lock (spec.md §5).
	DefaultLockHold = 10 * time.Second

	// DefaultLockAcquireTimeout bounds how long a contender waits before
	// backing off.
	DefaultLockAcquireTimeout = 3 * time.Second
)

var ErrLockTimeout = errors.New("conversation: could not acquire conversation lock")

// Store provides load/save for ConversationState with a per-conversation
// advisory lock (spec.md §4.3). It keeps no message history; the bounded
// history window for prompt rebuilding comes from GormRepository.History.
type Store struct {
	cache *cache.Client
}

func NewStore(c *cache.Client) *Store {
	return &Store{cache: c}
}

func (s *Store) stateKey(tenantID, conversationID string) string {
	return s.cache.Key("state", tenantID, conversationID)
}

func (s *Store) lockKey(conversationID string) string {
	return s.cache.Key("lock", "conversation", conversationID)
}

// Lock is a cluster-wide advisory lock on one conversation, held for the
// duration of a turn. It is released via Unlock (typically deferred).
type Lock struct {
	store          *Store
	conversationID string
	token          string
}

// AcquireLock blocks (polling) until the conversation's lock is free or
// acquireTimeout elapses, in which case the caller should back off and
// either queue behind the lock or merge into the in-progress turn
// depending on the arrival window (spec.md §5).
func (s *Store) AcquireLock(ctx context.Context, conversationID string, hold, acquireTimeout time.Duration) (*Lock, error) {
	if hold <= 0 {
		hold = DefaultLockHold
	}
	if acquireTimeout <= 0 {
		acquireTimeout = DefaultLockAcquireTimeout
	}

	token := uuid.NewString()
	key := s.lockKey(conversationID)
	deadline := time.Now().Add(acquireTimeout)
	backoff := 25 * time.Millisecond

	for {
		ok, err := s.cache.SetNX(ctx, key, token, hold)
		if err != nil {
			return nil, fmt.Errorf("conversation: acquire lock: %w", err)
		}
		if ok {
			return &Lock{store: s, conversationID: conversationID, token: token}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 250*time.Millisecond {
			backoff *= 2
		}
	}
}

// Unlock releases the conversation lock. It does not verify token
// ownership against the stored value — the hold TTL is the real safety
// net against a held-forever lock from a crashed worker.
func (l *Lock) Unlock(ctx context.Context) error {
	return l.store.cache.Del(ctx, l.store.lockKey(l.conversationID))
}

// Load fetches the cached ConversationState, or nil if no live state
// exists (expired or never created) — the caller then rebuilds it from
// persisted history.
func (s *Store) Load(ctx context.Context, tenantID, conversationID string) (*State, error) {
	raw, err := s.cache.Get(ctx, s.stateKey(tenantID, conversationID))
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil, nil
		}
		return nil, err
	}
	var st State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("conversation: decode state: %w", err)
	}
	return &st, nil
}

// Save persists the ConversationState with the inactivity TTL.
func (s *Store) Save(ctx context.Context, st *State, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultInactivityTTL
	}
	st.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("conversation: encode state: %w", err)
	}
	return s.cache.SetEx(ctx, s.stateKey(st.TenantID, st.ConversationID), string(raw), ttl)
}

// Evict removes live state, e.g. when a Conversation closes.
func (s *Store) Evict(ctx context.Context, tenantID, conversationID string) error {
	return s.cache.Del(ctx, s.stateKey(tenantID, conversationID))
}
