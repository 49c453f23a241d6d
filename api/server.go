// Package api implements the operator REST surface spec.md §6 names:
// tenant-scoped, scope-enforced endpoints for handoff queue management
// and withdrawal four-eyes approval, rendered through the standardized
// {error:{code,message,details}} envelope. Grounded on the teacher's
// ui/rest/app.go InitRestApp-per-domain route registration idiom,
// generalized from its utils.ResponseData envelope onto platform/apierr.
package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/convocommerce/backend/handoff"
	"github.com/convocommerce/backend/platform/apierr"
	"github.com/convocommerce/backend/rbac"
	"github.com/convocommerce/backend/wallet"
)

// Server bundles every operator-facing repository the REST surface needs.
// cmd/serve.go constructs one of these during startup wiring.
type Server struct {
	Resolver *rbac.Resolver

	Handoffs *handoff.GormRepository
	Ledger   *wallet.Ledger
	Wallets  *wallet.GormRepository
	RBAC     *rbac.GormRepository
	Scopes   *rbac.ScopeResolver

	Hub *Hub
}

// RegisterRoutes mounts the operator REST surface and the realtime feed
// under router, all behind Resolver.Authenticate(); /healthz is public.
func (s *Server) RegisterRoutes(router fiber.Router) {
	router.Use(Recovery())

	operator := router.Group("/operator", s.Resolver.Authenticate())

	if s.Hub != nil {
		s.Hub.RegisterRoutes(router, func(c *fiber.Ctx) string { return rbac.TenantIDFromCtx(c) })
	}

	operator.Get("/handoffs", rbac.RequireScopes("handoff:read"), s.listHandoffs)
	operator.Post("/handoffs/:id/resolve", rbac.RequireScopes("handoff:resolve"), s.resolveHandoff)

	operator.Post("/finance/withdrawals", rbac.RequireScopes("finance:withdraw:initiate"), s.initiateWithdrawal)
	operator.Post("/finance/withdrawals/:id/approve", rbac.RequireScopes("finance:withdraw:approve"), s.approveWithdrawal)
	operator.Post("/finance/withdrawals/:id/fail", rbac.RequireScopes("finance:withdraw:approve"), s.failWithdrawal)

	operator.Post("/rbac/role-assignments", rbac.RequireScopes("rbac:manage"), s.assignRole)
	operator.Delete("/rbac/role-assignments/:roleID", rbac.RequireScopes("rbac:manage"), s.unassignRole)

	router.Get("/healthz", s.health)
}

func (s *Server) listHandoffs(c *fiber.Ctx) error {
	tenantID := rbac.TenantIDFromCtx(c)
	tickets, err := s.Handoffs.ListOpen(c.Context(), tenantID)
	if err != nil {
		return sendErr(c, apierr.Internal(err.Error()))
	}
	return c.JSON(fiber.Map{"tickets": tickets})
}

func (s *Server) resolveHandoff(c *fiber.Ctx) error {
	tenantID := rbac.TenantIDFromCtx(c)
	ticketID := c.Params("id")

	if err := s.Handoffs.Resolve(c.Context(), tenantID, ticketID); err != nil {
		return sendErr(c, apierr.ResourceNotFound("handoff ticket not found"))
	}

	if s.Hub != nil {
		s.Hub.Publish(OperatorEvent{Type: EventHandoffResolved, TenantID: tenantID, TicketID: ticketID})
	}
	return c.SendStatus(fiber.StatusOK)
}

type withdrawalRequest struct {
	AmountCents int64 `json:"amount_cents"`
	MinCents    int64 `json:"min_cents"`
}

func (s *Server) initiateWithdrawal(c *fiber.Ctx) error {
	var req withdrawalRequest
	if err := c.BodyParser(&req); err != nil {
		return sendErr(c, apierr.InvalidInput("malformed withdrawal request"))
	}

	tenantID := rbac.TenantIDFromCtx(c)
	userID := rbac.UserIDFromCtx(c)

	txn, err := s.Ledger.InitiateWithdrawal(c.Context(), tenantID, userID, req.AmountCents, req.MinCents)
	if err != nil {
		return sendErr(c, apierr.InvalidInput(err.Error()))
	}
	return c.Status(fiber.StatusCreated).JSON(txn)
}

func (s *Server) approveWithdrawal(c *fiber.Ctx) error {
	tenantID := rbac.TenantIDFromCtx(c)
	approverID := rbac.UserIDFromCtx(c)
	transactionID := c.Params("id")

	txn, err := s.Wallets.GetTransaction(c.Context(), tenantID, transactionID)
	if err != nil {
		return sendErr(c, apierr.ResourceNotFound("withdrawal not found"))
	}

	if err := rbac.ValidateFourEyes(c.Context(), s.RBAC, txn.InitiatorUserID, approverID); err != nil {
		if typed, ok := err.(*apierr.Typed); ok {
			return sendErr(c, typed)
		}
		return sendErr(c, apierr.Internal(err.Error()))
	}

	if err := s.Ledger.CompleteWithdrawal(c.Context(), tenantID, transactionID, approverID); err != nil {
		return sendErr(c, apierr.Conflict(err.Error()))
	}
	return c.SendStatus(fiber.StatusOK)
}

func (s *Server) failWithdrawal(c *fiber.Ctx) error {
	tenantID := rbac.TenantIDFromCtx(c)
	approverID := rbac.UserIDFromCtx(c)
	transactionID := c.Params("id")

	if err := s.Ledger.FailWithdrawal(c.Context(), tenantID, transactionID, approverID); err != nil {
		return sendErr(c, apierr.Conflict(err.Error()))
	}
	return c.SendStatus(fiber.StatusOK)
}

type assignRoleRequest struct {
	TenantUserID string `json:"tenant_user_id"`
	RoleID       string `json:"role_id"`
}

func (s *Server) assignRole(c *fiber.Ctx) error {
	var req assignRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return sendErr(c, apierr.InvalidInput("malformed role assignment request"))
	}
	if err := s.RBAC.AssignRole(c.Context(), req.TenantUserID, req.RoleID); err != nil {
		return sendErr(c, apierr.Internal(err.Error()))
	}
	if err := s.Scopes.Invalidate(c.Context(), req.TenantUserID); err != nil {
		return sendErr(c, apierr.Internal(err.Error()))
	}
	return c.SendStatus(fiber.StatusOK)
}

func (s *Server) unassignRole(c *fiber.Ctx) error {
	tenantUserID := c.Query("tenant_user_id")
	roleID := c.Params("roleID")
	if err := s.RBAC.UnassignRole(c.Context(), tenantUserID, roleID); err != nil {
		return sendErr(c, apierr.Internal(err.Error()))
	}
	if err := s.Scopes.Invalidate(c.Context(), tenantUserID); err != nil {
		return sendErr(c, apierr.Internal(err.Error()))
	}
	return c.SendStatus(fiber.StatusOK)
}

// health runs every probe in HealthChecks and returns 503 naming the first
// one that fails. cmd/serve.go registers storage and cache probes only; no
// job-broker or worker-liveness probe is registered.
func (s *Server) health(c *fiber.Ctx) error {
	for name, check := range HealthChecks {
		if err := check(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "failed": name})
		}
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// HealthChecks is populated by cmd/serve.go with one liveness probe per
// checked dependency (currently the database and the cache).
var HealthChecks = map[string]func() error{}

// globalHub lets packages outside api/ (the per-turn pipeline, which
// creates handoff tickets) publish realtime events without importing the
// fiber-facing Server — set once by cmd/serve.go at startup.
var globalHub *Hub

func SetGlobalHub(h *Hub) { globalHub = h }

// PublishOperatorEvent is the seam the composition pipeline calls after
// creating or resolving a handoff ticket.
func PublishOperatorEvent(ev OperatorEvent) {
	if globalHub != nil {
		globalHub.Publish(ev)
	}
}

func sendErr(c *fiber.Ctx, err *apierr.Typed) error {
	status, envelope := apierr.ToEnvelope(err)
	return c.Status(status).JSON(envelope)
}
