package organization

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrOrganizationNotFound is returned when an organization record is not found.
var ErrOrganizationNotFound = errors.New("organization not found")

// ErrDuplicateOrganizationName is returned when an organization with the same name already exists.
var ErrDuplicateOrganizationName = errors.New("organization name already exists")

// ErrOrganizationHasUsers is returned when attempting to delete an organization that still has users.
var ErrOrganizationHasUsers = errors.New("organization has users")

// Repository provides CRUD operations on the organizations table.
type Repository interface {
	Create(ctx context.Context, org *Organization) error
	GetByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	List(ctx context.Context) ([]Organization, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// Lock takes a row lock on the organization for the rest of the
	// enclosing transaction. Writers that must not race per organization
	// call it first.
	Lock(ctx context.Context, id uuid.UUID) error
}
