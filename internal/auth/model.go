package auth

import (
	"time"

	"github.com/google/uuid"
)

// User represents a row in the users table. Superusers belong to no
// organization; everyone else belongs to exactly one.
type User struct {
	ID               uuid.UUID
	Name             string
	OrganizationID   *uuid.UUID
	OrganizationName *string // populated by List only
	IsSuperuser      bool
	ApiKeyPrefix     string
	ApiKeyHash       string
	CreatedAt        time.Time
	RevokedAt        *time.Time
}

// Identity is stored in the request context after authentication.
type Identity struct {
	UserID           uuid.UUID
	UserName         string
	OrganizationID   *uuid.UUID // nil for superuser
	OrganizationName *string    // nil for superuser
	IsSuperuser      bool
}

// CanAccess reports whether the identity may act on the given organization.
func (i *Identity) CanAccess(orgID uuid.UUID) bool {
	if i.IsSuperuser {
		return true
	}
	return i.OrganizationID != nil && *i.OrganizationID == orgID
}
