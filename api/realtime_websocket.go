package api

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
	valkeylib "github.com/valkey-io/valkey-go"

	"github.com/convocommerce/backend/platform/cache"
)

// OperatorEvent is one realtime notification pushed to the operator
// dashboard: a handoff ticket opening/closing or a customer typing
// indicator. The dashboard UI itself is a spec.md Non-goal; this feed
// backing it is an explicit SUPPLEMENTED FEATURE, grounded on the
// teacher's ui/websocket/websocket.go Hub — kept near-verbatim for the
// register/unregister/broadcast plumbing and the Valkey pub/sub
// cross-instance fanout, generalized from the teacher's device-list
// broadcast shape onto {handoff_ticket_opened, handoff_ticket_resolved,
// typing} events scoped by tenant.
type OperatorEvent struct {
	Type           string `json:"type"`
	TenantID       string `json:"tenant_id"`
	ConversationID string `json:"conversation_id,omitempty"`
	TicketID       string `json:"ticket_id,omitempty"`
	Reason         string `json:"reason,omitempty"`
	SenderID       string `json:"sender_id,omitempty"`
}

const (
	EventHandoffOpened   = "handoff_ticket_opened"
	EventHandoffResolved = "handoff_ticket_resolved"
	EventTyping          = "typing"
)

type client struct{ tenantID string }

// Hub fans out OperatorEvents to every connected operator-dashboard socket
// for the relevant tenant, propagating across instances via the shared
// cache client's pub/sub channel.
type Hub struct {
	clients    map[*websocket.Conn]client
	register   chan registration
	unregister chan *websocket.Conn
	broadcast  chan OperatorEvent

	cache    *cache.Client
	channel  string
	serverID string
}

type registration struct {
	conn     *websocket.Conn
	tenantID string
}

func NewHub(cacheClient *cache.Client, serverID string) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]client),
		register:   make(chan registration),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan OperatorEvent),
		cache:      cacheClient,
		channel:    "operator-events",
		serverID:   serverID,
	}
}

// Publish enqueues ev for delivery to every connected operator client
// scoped to ev.TenantID, local and cross-instance.
func (h *Hub) Publish(ev OperatorEvent) { h.broadcast <- ev }

// Run is the Hub's single-goroutine event loop; call it once at startup.
func (h *Hub) Run() {
	if h.cache != nil {
		go h.subscribeRemote()
	}

	for {
		select {
		case reg := <-h.register:
			h.clients[reg.conn] = client{tenantID: reg.tenantID}
			logrus.Debug("[api] operator socket registered")

		case conn := <-h.unregister:
			delete(h.clients, conn)
			logrus.Debug("[api] operator socket unregistered")

		case ev := <-h.broadcast:
			h.deliverLocal(ev)
			h.publishRemote(ev)
		}
	}
}

func (h *Hub) deliverLocal(ev OperatorEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		logrus.WithError(err).Error("[api] marshal operator event failed")
		return
	}
	for conn, c := range h.clients {
		if c.tenantID != ev.TenantID {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logrus.WithError(err).Warn("[api] operator socket write failed, closing")
			_ = conn.Close()
			delete(h.clients, conn)
		}
	}
}

func (h *Hub) publishRemote(ev OperatorEvent) {
	if h.cache == nil {
		return
	}
	ev.SenderID = h.serverID
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	cmd := h.cache.Inner().B().Publish().Channel(h.channel).Message(string(data)).Build()
	if err := h.cache.Inner().Do(context.Background(), cmd).Error(); err != nil {
		logrus.WithError(err).Error("[api] publish operator event failed")
	}
}

func (h *Hub) subscribeRemote() {
	err := h.cache.Inner().Receive(context.Background(), h.cache.Inner().B().Subscribe().Channel(h.channel).Build(), func(msg valkeylib.PubSubMessage) {
		var ev OperatorEvent
		if err := json.Unmarshal([]byte(msg.Message), &ev); err != nil {
			return
		}
		if ev.SenderID == h.serverID {
			return
		}
		h.deliverLocal(ev)
	})
	if err != nil {
		logrus.WithError(err).Error("[api] operator event subscriber stopped")
	}
}

// RegisterRoutes mounts the operator dashboard's realtime feed at
// /operator/ws, scoped to the caller's authenticated tenant.
func (h *Hub) RegisterRoutes(router fiber.Router, tenantOf func(c *fiber.Ctx) string) {
	router.Use("/operator/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return c.SendStatus(fiber.StatusUpgradeRequired)
		}
		c.Locals("tenant_id", tenantOf(c))
		return c.Next()
	})

	router.Get("/operator/ws", websocket.New(func(conn *websocket.Conn) {
		tid, _ := conn.Locals("tenant_id").(string)

		defer func() {
			h.unregister <- conn
			_ = conn.Close()
		}()
		h.register <- registration{conn: conn, tenantID: tid}

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}
