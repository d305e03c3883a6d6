package override

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rentdesk/rentdesk/internal/database"
)

// PostgresRepository implements Repository on top of a database.Querier.
type PostgresRepository struct {
	q database.Querier
}

// NewPostgresRepository creates a new Repository backed by the given pool or transaction.
func NewPostgresRepository(q database.Querier) *PostgresRepository {
	return &PostgresRepository{q: q}
}

const allColumns = `id, organization_id, tier_id, tier_version,
	custom_monthly_price, custom_annual_price,
	custom_max_businesses, custom_max_properties, custom_max_units,
	custom_max_tenants, custom_max_users, custom_max_payment_methods,
	custom_features, has_custom_pricing, has_custom_limits,
	created_at, updated_at`

func scanOverride(row pgx.Row) (*Override, error) {
	var o Override
	err := row.Scan(
		&o.ID, &o.OrganizationID, &o.TierID, &o.TierVersion,
		&o.CustomMonthlyPrice, &o.CustomAnnualPrice,
		&o.CustomLimits.MaxBusinesses, &o.CustomLimits.MaxProperties, &o.CustomLimits.MaxUnits,
		&o.CustomLimits.MaxTenants, &o.CustomLimits.MaxUsers, &o.CustomLimits.MaxPaymentMethods,
		&o.CustomFeatures, &o.HasCustomPricing, &o.HasCustomLimits,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOverrideNotFound
		}
		return nil, fmt.Errorf("scanning override row: %w", err)
	}
	return &o, nil
}

// GetByOrganization retrieves the override of an organization.
func (r *PostgresRepository) GetByOrganization(ctx context.Context, orgID uuid.UUID) (*Override, error) {
	query := fmt.Sprintf(`SELECT %s FROM organization_overrides WHERE organization_id = $1`, allColumns)
	return scanOverride(r.q.QueryRow(ctx, query, orgID))
}

// Upsert inserts the override or replaces every field of the existing one.
// The hint columns are recomputed from the fields before writing.
func (r *PostgresRepository) Upsert(ctx context.Context, o *Override) error {
	o.RefreshHints()

	var customFeatures any
	if o.CustomFeatures != nil {
		customFeatures = o.CustomFeatures
	}

	query := fmt.Sprintf(`
		INSERT INTO organization_overrides (organization_id, tier_id, tier_version,
			custom_monthly_price, custom_annual_price,
			custom_max_businesses, custom_max_properties, custom_max_units,
			custom_max_tenants, custom_max_users, custom_max_payment_methods,
			custom_features, has_custom_pricing, has_custom_limits)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (organization_id) DO UPDATE SET
			tier_id = EXCLUDED.tier_id,
			tier_version = EXCLUDED.tier_version,
			custom_monthly_price = EXCLUDED.custom_monthly_price,
			custom_annual_price = EXCLUDED.custom_annual_price,
			custom_max_businesses = EXCLUDED.custom_max_businesses,
			custom_max_properties = EXCLUDED.custom_max_properties,
			custom_max_units = EXCLUDED.custom_max_units,
			custom_max_tenants = EXCLUDED.custom_max_tenants,
			custom_max_users = EXCLUDED.custom_max_users,
			custom_max_payment_methods = EXCLUDED.custom_max_payment_methods,
			custom_features = EXCLUDED.custom_features,
			has_custom_pricing = EXCLUDED.has_custom_pricing,
			has_custom_limits = EXCLUDED.has_custom_limits,
			updated_at = NOW()
		RETURNING %s`, allColumns)

	saved, err := scanOverride(r.q.QueryRow(ctx, query,
		o.OrganizationID, o.TierID, o.TierVersion,
		o.CustomMonthlyPrice, o.CustomAnnualPrice,
		o.CustomLimits.MaxBusinesses, o.CustomLimits.MaxProperties, o.CustomLimits.MaxUnits,
		o.CustomLimits.MaxTenants, o.CustomLimits.MaxUsers, o.CustomLimits.MaxPaymentMethods,
		customFeatures, o.HasCustomPricing, o.HasCustomLimits,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrUnknownReference
		}
		return fmt.Errorf("upserting override: %w", err)
	}

	*o = *saved
	return nil
}

// Delete removes the override of an organization.
func (r *PostgresRepository) Delete(ctx context.Context, orgID uuid.UUID) error {
	result, err := r.q.Exec(ctx, `DELETE FROM organization_overrides WHERE organization_id = $1`, orgID)
	if err != nil {
		return fmt.Errorf("deleting override: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrOverrideNotFound
	}
	return nil
}
