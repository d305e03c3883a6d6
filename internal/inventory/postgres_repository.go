package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rentdesk/rentdesk/internal/database"
	"github.com/rentdesk/rentdesk/internal/tier"
)

// PostgresRepository implements Repository on top of a database.Querier.
type PostgresRepository struct {
	q database.Querier
}

// NewRepository creates a new Repository backed by the given pool or transaction.
func NewRepository(q database.Querier) *PostgresRepository {
	return &PostgresRepository{q: q}
}

// ActiveBusinessIDs returns the ids of the organization's non-deleted businesses.
func (r *PostgresRepository) ActiveBusinessIDs(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error) {
	return r.ids(ctx, `
		SELECT id FROM businesses
		WHERE organization_id = $1 AND deleted_at IS NULL`, orgID)
}

// ActivePropertyIDs returns the ids of non-deleted properties under the given businesses.
func (r *PostgresRepository) ActivePropertyIDs(ctx context.Context, businessIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(businessIDs) == 0 {
		return []uuid.UUID{}, nil
	}
	return r.ids(ctx, `
		SELECT id FROM properties
		WHERE business_id = ANY($1) AND deleted_at IS NULL`, businessIDs)
}

// ActiveUnitIDs returns the ids of non-deleted units under the given properties.
func (r *PostgresRepository) ActiveUnitIDs(ctx context.Context, propertyIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(propertyIDs) == 0 {
		return []uuid.UUID{}, nil
	}
	return r.ids(ctx, `
		SELECT id FROM units
		WHERE property_id = ANY($1) AND deleted_at IS NULL`, propertyIDs)
}

// CountActiveTenants counts non-deleted tenant access rows on the given units.
func (r *PostgresRepository) CountActiveTenants(ctx context.Context, unitIDs []uuid.UUID) (int, error) {
	if len(unitIDs) == 0 {
		return 0, nil
	}
	var count int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM tenant_access
		WHERE unit_id = ANY($1) AND deleted_at IS NULL`, unitIDs).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting tenant access rows: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) ids(ctx context.Context, query string, arg any) ([]uuid.UUID, error) {
	rows, err := r.q.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("querying ids: %w", err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ids: %w", err)
	}
	return ids, nil
}

// ownerQueries resolve the owning organization of an active row, requiring
// every ancestor to be active as well.
var ownerQueries = map[Kind]string{
	tier.ResourceBusiness: `
		SELECT b.organization_id FROM businesses b
		WHERE b.id = $1 AND b.deleted_at IS NULL`,
	tier.ResourceProperty: `
		SELECT b.organization_id FROM properties p
		JOIN businesses b ON b.id = p.business_id
		WHERE p.id = $1 AND p.deleted_at IS NULL AND b.deleted_at IS NULL`,
	tier.ResourceUnit: `
		SELECT b.organization_id FROM units u
		JOIN properties p ON p.id = u.property_id
		JOIN businesses b ON b.id = p.business_id
		WHERE u.id = $1 AND u.deleted_at IS NULL AND p.deleted_at IS NULL AND b.deleted_at IS NULL`,
	tier.ResourceTenant: `
		SELECT b.organization_id FROM tenant_access ta
		JOIN units u ON u.id = ta.unit_id
		JOIN properties p ON p.id = u.property_id
		JOIN businesses b ON b.id = p.business_id
		WHERE ta.id = $1 AND ta.deleted_at IS NULL AND u.deleted_at IS NULL
		  AND p.deleted_at IS NULL AND b.deleted_at IS NULL`,
}

// OrganizationOf returns the organization that owns the active row.
func (r *PostgresRepository) OrganizationOf(ctx context.Context, kind Kind, id uuid.UUID) (uuid.UUID, error) {
	query, ok := ownerQueries[kind]
	if !ok {
		return uuid.Nil, ErrUnsupportedKind
	}

	var orgID uuid.UUID
	if err := r.q.QueryRow(ctx, query, id).Scan(&orgID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrNotFound
		}
		return uuid.Nil, fmt.Errorf("resolving owner of %s: %w", kind, err)
	}
	return orgID, nil
}

// Create inserts a row into the table for item.Kind.
func (r *PostgresRepository) Create(ctx context.Context, item *Item) error {
	t, ok := tables[item.Kind]
	if !ok {
		return ErrUnsupportedKind
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, name)
		VALUES ($1, $2)
		RETURNING id, created_at`, t.name, t.parentColumn)

	if err := r.q.QueryRow(ctx, query, item.ParentID, item.Name).Scan(&item.ID, &item.CreatedAt); err != nil {
		return fmt.Errorf("inserting %s: %w", item.Kind, err)
	}
	return nil
}

// SoftDelete marks a row deleted. Soft-deleted rows never count against limits.
func (r *PostgresRepository) SoftDelete(ctx context.Context, kind Kind, id uuid.UUID) error {
	t, ok := tables[kind]
	if !ok {
		return ErrUnsupportedKind
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = $1
		WHERE id = $2 AND deleted_at IS NULL`, t.name)

	result, err := r.q.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("soft deleting %s: %w", kind, err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
