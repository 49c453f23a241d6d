package outbound

import "context"

// Gateway is the abstract per-tenant credentialed messaging client a
// Payload is sent through. Implementing a real Twilio/WhatsApp-cloud-API
// binding is out of scope (spec.md §1 treats external gateway HTTP
// bindings as an external collaborator) — only the contract and a
// logging-only default are specified here, mirroring payments.Gateway's
// abstract-rail pattern.
type Gateway interface {
	Send(ctx context.Context, tenantID, recipientNumber string, payload Payload) (providerMessageID string, err error)
}

// LoggingGateway is the deterministic Gateway used until a tenant's real
// provider binding is wired: it assigns a synthetic provider message id
// and never places an external call, so local development and tests can
// exercise the full delivery/idempotency/retry path without credentials.
type LoggingGateway struct {
	idFunc func() string
}

func NewLoggingGateway(idFunc func() string) *LoggingGateway {
	return &LoggingGateway{idFunc: idFunc}
}

func (g *LoggingGateway) Send(ctx context.Context, tenantID, recipientNumber string, payload Payload) (string, error) {
	return g.idFunc(), nil
}
