package rbac

import (
	"strings"

	"github.com/convocommerce/backend/platform/apierr"
	"github.com/gofiber/fiber/v2"
)

const (
	localMembership = "rbac_membership"
	localScopes     = "rbac_scopes"
	localUserID     = "rbac_user_id"
	localTenantID   = "rbac_tenant_id"
)

// Resolver is the fiber-facing half of spec.md §4.2: it authenticates the
// caller, resolves the tenant from a header, loads the membership, and
// attaches {tenant, membership, scopes} to the request context.
type Resolver struct {
	signer    *TokenSigner
	repo      *GormRepository
	scopes    *ScopeResolver
	tenantHdr string
}

func NewResolver(signer *TokenSigner, repo *GormRepository, scopes *ScopeResolver) *Resolver {
	return &Resolver{signer: signer, repo: repo, scopes: scopes, tenantHdr: "X-Tenant-ID"}
}

// Authenticate is mounted ahead of every operator/integrator route.
func (r *Resolver) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return sendErr(c, apierr.InvalidAPIKey("missing or malformed authorization header"))
		}

		claims, err := r.signer.Validate(parts[1])
		if err != nil {
			return sendErr(c, apierr.InvalidAPIKey("invalid or expired token"))
		}

		tenantID := c.Get(r.tenantHdr)
		if tenantID == "" {
			return sendErr(c, apierr.InvalidInput("missing tenant selector header"))
		}

		membership, err := r.repo.GetTenantUser(c.Context(), tenantID, claims.UserID)
		if err != nil || !membership.Admitted() {
			return sendErr(c, apierr.InsufficientPermissions("caller is not an active accepted member of this tenant"))
		}

		scopes, err := r.scopes.Resolve(c.Context(), membership.ID)
		if err != nil {
			return sendErr(c, apierr.Internal("failed to resolve scopes"))
		}

		_ = r.repo.TouchLastSeen(c.Context(), membership.ID)

		c.Locals(localMembership, membership)
		c.Locals(localScopes, scopes)
		c.Locals(localUserID, claims.UserID)
		c.Locals(localTenantID, tenantID)
		return c.Next()
	}
}

// RequireScopes fails with Forbidden if the locally-attached scope set
// doesn't contain every scope in `required`.
func RequireScopes(required ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scopes, ok := c.Locals(localScopes).(map[string]bool)
		if !ok || !RequiresScopes(scopes, required...) {
			return sendErr(c, apierr.InsufficientPermissions("missing required scope"))
		}
		return c.Next()
	}
}

// RequireSameTenant performs the object-level check: the referenced
// entity's tenant must equal request.tenant (spec.md §4.2).
func RequireSameTenant(entityTenantID string, c *fiber.Ctx) error {
	requestTenant, _ := c.Locals(localTenantID).(string)
	if requestTenant == "" || requestTenant != entityTenantID {
		return apierr.ResourceNotFound("resource not found in this tenant")
	}
	return nil
}

func TenantIDFromCtx(c *fiber.Ctx) string {
	tid, _ := c.Locals(localTenantID).(string)
	return tid
}

func UserIDFromCtx(c *fiber.Ctx) string {
	uid, _ := c.Locals(localUserID).(string)
	return uid
}

func MembershipFromCtx(c *fiber.Ctx) *TenantUser {
	m, _ := c.Locals(localMembership).(*TenantUser)
	return m
}

func sendErr(c *fiber.Ctx, err *apierr.Typed) error {
	status, envelope := apierr.ToEnvelope(err)
	return c.Status(status).JSON(envelope)
}
