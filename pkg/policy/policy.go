// Package policy holds the tenant isolation rules shared by the users and
// team endpoints.
package policy

import (
	"context"
	"errors"
	"fmt"

	"sales-tracker-backend/pkg/database"
	"sales-tracker-backend/pkg/models"
	"sales-tracker-backend/pkg/utils"
)

// Policy 组织隔离规则
type Policy struct {
	// OrglessPeerAccess lets two users without an organization see each other
	OrglessPeerAccess bool
	// UnscopedListing lets an orgless manager list every user
	UnscopedListing bool
}

// HasRole reports whether the caller holds one of roles
func HasRole(caller *models.UserProfile, roles ...models.Role) bool {
	if caller == nil {
		return false
	}
	for _, r := range roles {
		if caller.Role == r {
			return true
		}
	}
	return false
}

// SameOrganization 判断两个用户是否属于同一组织
func (p Policy) SameOrganization(caller *models.UserProfile, target *models.User) bool {
	switch {
	case caller.OrganizationID == nil && target.OrganizationID == nil:
		return p.OrglessPeerAccess
	case caller.OrganizationID == nil || target.OrganizationID == nil:
		return false
	}
	return *caller.OrganizationID == *target.OrganizationID
}

// RequireSameOrganization loads the target user and checks it shares the
// caller's organization.
func (p Policy) RequireSameOrganization(ctx context.Context, db database.DatabaseInterface, caller *models.UserProfile, targetID string) (*models.User, error) {
	target, err := db.GetUserByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, utils.NewAppError(utils.CodeNotFound, "User not found")
		}
		return nil, fmt.Errorf("load target user: %w", err)
	}
	if !p.SameOrganization(caller, target) {
		return nil, utils.NewAppError(utils.CodeForbidden, "Cannot access users from other organizations")
	}
	return target, nil
}

// ListingScope returns the organization filter for user listings; nil
// means every user.
func (p Policy) ListingScope(caller *models.UserProfile) (*string, error) {
	if caller.OrganizationID != nil {
		return caller.OrganizationID, nil
	}
	if p.UnscopedListing {
		return nil, nil
	}
	return nil, utils.NewAppError(utils.CodeNoOrganization, "User is not part of an organization")
}
