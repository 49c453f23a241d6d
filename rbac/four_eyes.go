package rbac

import (
	"context"

	"github.com/convocommerce/backend/platform/apierr"
)

// ValidateFourEyes enforces spec.md §4.2's four-eyes rule: an approval
// operation requires two distinct user ids, both referencing existing
// active Users. Callers are responsible for writing the AuditLog entry
// that must always record both ids, win or lose.
func ValidateFourEyes(ctx context.Context, repo *GormRepository, initiatorID, approverID string) error {
	if initiatorID == approverID {
		return apierr.FourEyesViolation("approver must be a different user than the initiator")
	}

	initiator, err := repo.GetUserByID(ctx, initiatorID)
	if err != nil || !initiator.Active {
		return apierr.FourEyesViolation("initiator is not an existing active user")
	}

	approver, err := repo.GetUserByID(ctx, approverID)
	if err != nil || !approver.Active {
		return apierr.FourEyesViolation("approver is not an existing active user")
	}

	return nil
}
