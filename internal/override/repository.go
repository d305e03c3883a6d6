package override

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrOverrideNotFound is returned when an organization has no override row.
var ErrOverrideNotFound = errors.New("override not found")

// ErrUnknownReference is returned when an override references a missing organization or tier.
var ErrUnknownReference = errors.New("override references unknown organization or tier")

// Repository provides operations on the organization_overrides table.
type Repository interface {
	GetByOrganization(ctx context.Context, orgID uuid.UUID) (*Override, error)
	// Upsert creates or replaces the single override of o.OrganizationID.
	Upsert(ctx context.Context, o *Override) error
	Delete(ctx context.Context, orgID uuid.UUID) error
}
