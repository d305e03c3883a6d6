package tier

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrTierNotFound is returned when a tier record is not found.
var ErrTierNotFound = errors.New("tier not found")

// ErrDuplicateTierSlug is returned when a tier with the same slug already exists.
var ErrDuplicateTierSlug = errors.New("tier slug already exists")

// ErrTierHasSubscribers is returned when attempting to delete a tier that organizations still reference.
var ErrTierHasSubscribers = errors.New("tier has subscribers")

// ErrVersionConflict is returned when an update was based on a stale tier version.
var ErrVersionConflict = errors.New("tier version conflict")

// Repository provides CRUD operations on the tiers table.
type Repository interface {
	Create(ctx context.Context, t *Tier) error
	GetByID(ctx context.Context, id uuid.UUID) (*Tier, error)
	GetBySlug(ctx context.Context, slug string) (*Tier, error)
	List(ctx context.Context) ([]Tier, error)
	// Update applies fields when the stored version equals expectedVersion,
	// snapshotting the prior row into the version history.
	Update(ctx context.Context, id uuid.UUID, expectedVersion int, fields UpdateFields) (*Tier, error)
	ListVersions(ctx context.Context, id uuid.UUID) ([]VersionRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
