package conversation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// InboundMerge is one or more raw inbound texts arriving close enough
// together (within the merge window, spec.md §5) to be folded into a
// single turn.
type InboundMerge struct {
	TenantID       string
	ConversationID string
	MessageIDs     []string
	Text           string
}

type mergeEntry struct {
	tenantID   string
	messageIDs []string
	texts      []string
	timer      *time.Timer
}

type inflightEntry struct {
	cancel context.CancelFunc
	token  uint64
}

// MergeDebouncer folds inbound messages that arrive within the configured
// merge window (default 2s, spec.md §5 "arrival window") into the
// in-progress turn for a conversation, instead of starting a second turn.
type MergeDebouncer struct {
	mu       sync.Mutex
	entries  map[string]*mergeEntry
	inflight map[string]inflightEntry
	seq      uint64
	flushFn  func(ctx context.Context, merge InboundMerge)
}

func NewMergeDebouncer(flushFn func(ctx context.Context, merge InboundMerge)) *MergeDebouncer {
	return &MergeDebouncer{
		entries:  make(map[string]*mergeEntry),
		inflight: make(map[string]inflightEntry),
		flushFn:  flushFn,
	}
}

// Enqueue records one inbound message for a conversation and schedules the
// merged flush after `window`. A message arriving while a previous flush
// for the same conversation is still in flight cancels that in-flight
// processing, per spec.md §5's merge-vs-queue tie-break.
func (d *MergeDebouncer) Enqueue(ctx context.Context, tenantID, conversationID, messageID, text string, window time.Duration) {
	if window <= 0 {
		d.flushFn(ctx, InboundMerge{TenantID: tenantID, ConversationID: conversationID, MessageIDs: []string{messageID}, Text: text})
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.inflight[conversationID]; ok && prev.cancel != nil {
		prev.cancel()
		delete(d.inflight, conversationID)
	}

	e, ok := d.entries[conversationID]
	if !ok {
		e = &mergeEntry{tenantID: tenantID}
		d.entries[conversationID] = e
	}
	e.messageIDs = append(e.messageIDs, messageID)
	if text != "" {
		e.texts = append(e.texts, text)
	}

	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(window, func() {
		d.flush(conversationID)
	})
}

func (d *MergeDebouncer) flush(conversationID string) {
	d.mu.Lock()
	e, ok := d.entries[conversationID]
	if !ok {
		d.mu.Unlock()
		return
	}
	delete(d.entries, conversationID)
	d.mu.Unlock()

	merge := InboundMerge{
		TenantID:       e.tenantID,
		ConversationID: conversationID,
		MessageIDs:     e.messageIDs,
		Text:           strings.Join(e.texts, "\n"),
	}

	logrus.WithFields(logrus.Fields{
		"conversation_id": conversationID,
		"merged_messages": len(e.messageIDs),
	}).Info("flushing merged inbound turn")

	ctx, cancel := context.WithCancel(context.Background())
	d.mu.Lock()
	d.seq++
	token := d.seq
	d.inflight[conversationID] = inflightEntry{cancel: cancel, token: token}
	d.mu.Unlock()

	go func() {
		defer func() {
			d.mu.Lock()
			if cur, ok := d.inflight[conversationID]; ok && cur.token == token {
				delete(d.inflight, conversationID)
			}
			d.mu.Unlock()
			cancel()
		}()
		d.flushFn(ctx, merge)
	}()
}
