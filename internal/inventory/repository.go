package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an inventory row is missing, soft-deleted, or
// not owned by the organization in question.
var ErrNotFound = errors.New("inventory item not found")

// ErrUnsupportedKind is returned for a kind that has no inventory table.
var ErrUnsupportedKind = errors.New("unsupported inventory kind")

// Repository provides the reads used for usage counting and the writes used
// for guarded creation. Every read excludes soft-deleted rows.
type Repository interface {
	ActiveBusinessIDs(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error)
	ActivePropertyIDs(ctx context.Context, businessIDs []uuid.UUID) ([]uuid.UUID, error)
	ActiveUnitIDs(ctx context.Context, propertyIDs []uuid.UUID) ([]uuid.UUID, error)
	CountActiveTenants(ctx context.Context, unitIDs []uuid.UUID) (int, error)

	// OrganizationOf returns the organization that transitively owns the active row.
	OrganizationOf(ctx context.Context, kind Kind, id uuid.UUID) (uuid.UUID, error)
	Create(ctx context.Context, item *Item) error
	SoftDelete(ctx context.Context, kind Kind, id uuid.UUID) error
}
