package tier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

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

// allColumns is the ordered list of columns scanned from the tiers table.
const allColumns = `id, slug, display_name, description, monthly_price, annual_price,
	max_businesses, max_properties, max_units, max_tenants, max_users, max_payment_methods,
	features, version, is_active, created_at, updated_at`

// scanTier scans a single Tier from a row.
func scanTier(row pgx.Row) (*Tier, error) {
	var t Tier
	err := row.Scan(
		&t.ID, &t.Slug, &t.DisplayName, &t.Description,
		&t.MonthlyPrice, &t.AnnualPrice,
		&t.Limits.MaxBusinesses, &t.Limits.MaxProperties, &t.Limits.MaxUnits,
		&t.Limits.MaxTenants, &t.Limits.MaxUsers, &t.Limits.MaxPaymentMethods,
		&t.Features, &t.Version, &t.IsActive,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTierNotFound
		}
		return nil, fmt.Errorf("scanning tier row: %w", err)
	}
	if t.Features == nil {
		t.Features = map[string]bool{}
	}
	return &t, nil
}

// Create inserts a new tier record at version 1.
func (r *PostgresRepository) Create(ctx context.Context, t *Tier) error {
	if t.Features == nil {
		t.Features = map[string]bool{}
	}

	query := fmt.Sprintf(`
		INSERT INTO tiers (slug, display_name, description, monthly_price, annual_price,
			max_businesses, max_properties, max_units, max_tenants, max_users, max_payment_methods,
			features, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING %s`, allColumns)

	created, err := scanTier(r.q.QueryRow(ctx, query,
		t.Slug, t.DisplayName, t.Description, t.MonthlyPrice, t.AnnualPrice,
		t.Limits.MaxBusinesses, t.Limits.MaxProperties, t.Limits.MaxUnits,
		t.Limits.MaxTenants, t.Limits.MaxUsers, t.Limits.MaxPaymentMethods,
		t.Features, t.IsActive,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateTierSlug
		}
		return fmt.Errorf("inserting tier: %w", err)
	}

	*t = *created
	return nil
}

// GetByID retrieves a single tier by its UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Tier, error) {
	query := fmt.Sprintf(`SELECT %s FROM tiers WHERE id = $1`, allColumns)
	return scanTier(r.q.QueryRow(ctx, query, id))
}

// GetBySlug retrieves a single tier by its slug.
func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (*Tier, error) {
	query := fmt.Sprintf(`SELECT %s FROM tiers WHERE slug = $1`, allColumns)
	return scanTier(r.q.QueryRow(ctx, query, slug))
}

// List retrieves all tiers ordered by monthly price, then slug.
func (r *PostgresRepository) List(ctx context.Context) ([]Tier, error) {
	query := fmt.Sprintf(`SELECT %s FROM tiers ORDER BY monthly_price ASC, slug ASC`, allColumns)

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing tiers: %w", err)
	}
	defer rows.Close()

	var tiers []Tier
	for rows.Next() {
		t, err := scanTier(rows)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tier rows: %w", err)
	}

	if tiers == nil {
		tiers = []Tier{}
	}

	return tiers, nil
}

// Update modifies non-nil fields on a tier inside a transaction. The current row
// is locked, its version compared with expectedVersion, and the prior state is
// written to tier_versions before the version is incremented.
func (r *PostgresRepository) Update(ctx context.Context, id uuid.UUID, expectedVersion int, fields UpdateFields) (*Tier, error) {
	var updated *Tier
	err := database.InTx(ctx, r.q, func(q database.Querier) error {
		current, err := scanTier(q.QueryRow(ctx,
			fmt.Sprintf(`SELECT %s FROM tiers WHERE id = $1 FOR UPDATE`, allColumns), id))
		if err != nil {
			return err
		}
		if current.Version != expectedVersion {
			return ErrVersionConflict
		}
		if fields.IsEmpty() {
			updated = current
			return nil
		}

		snapshot, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("encoding tier snapshot: %w", err)
		}
		_, err = q.Exec(ctx,
			`INSERT INTO tier_versions (tier_id, version, snapshot) VALUES ($1, $2, $3)`,
			current.ID, current.Version, snapshot)
		if err != nil {
			return fmt.Errorf("recording tier version: %w", err)
		}

		setClauses, args := buildSetClauses(fields)
		setClauses = append(setClauses, "version = version + 1", "updated_at = NOW()")
		args = append(args, id)

		query := fmt.Sprintf(`
			UPDATE tiers
			SET %s
			WHERE id = $%d
			RETURNING %s`,
			strings.Join(setClauses, ", "), len(args), allColumns)

		updated, err = scanTier(q.QueryRow(ctx, query, args...))
		if err != nil {
			return fmt.Errorf("updating tier: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// buildSetClauses returns the SET fragments and positional args for the non-nil fields.
func buildSetClauses(fields UpdateFields) ([]string, []any) {
	var setClauses []string
	var args []any

	add := func(column string, value any) {
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if fields.DisplayName != nil {
		add("display_name", *fields.DisplayName)
	}
	if fields.Description != nil {
		add("description", *fields.Description)
	}
	if fields.MonthlyPrice != nil {
		add("monthly_price", *fields.MonthlyPrice)
	}
	if fields.AnnualPrice != nil {
		add("annual_price", *fields.AnnualPrice)
	}
	if fields.MaxBusinesses != nil {
		add("max_businesses", *fields.MaxBusinesses)
	}
	if fields.MaxProperties != nil {
		add("max_properties", *fields.MaxProperties)
	}
	if fields.MaxUnits != nil {
		add("max_units", *fields.MaxUnits)
	}
	if fields.MaxTenants != nil {
		add("max_tenants", *fields.MaxTenants)
	}
	if fields.MaxUsers != nil {
		add("max_users", *fields.MaxUsers)
	}
	if fields.MaxPaymentMethods != nil {
		add("max_payment_methods", *fields.MaxPaymentMethods)
	}
	if fields.Features != nil {
		add("features", fields.Features)
	}
	if fields.IsActive != nil {
		add("is_active", *fields.IsActive)
	}

	return setClauses, args
}

// ListVersions returns the version history of a tier, newest first.
func (r *PostgresRepository) ListVersions(ctx context.Context, id uuid.UUID) ([]VersionRecord, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}

	rows, err := r.q.Query(ctx, `
		SELECT id, tier_id, version, snapshot, created_at
		FROM tier_versions
		WHERE tier_id = $1
		ORDER BY version DESC`, id)
	if err != nil {
		return nil, fmt.Errorf("listing tier versions: %w", err)
	}
	defer rows.Close()

	versions := []VersionRecord{}
	for rows.Next() {
		var v VersionRecord
		if err := rows.Scan(&v.ID, &v.TierID, &v.Version, &v.Snapshot, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning tier version row: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tier version rows: %w", err)
	}

	return versions, nil
}

// Delete removes a tier by its UUID. Returns ErrTierHasSubscribers if any
// organization override still references it; deactivate such tiers instead.
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	var count int
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM organization_overrides WHERE tier_id = $1`, id,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking subscribers for tier: %w", err)
	}
	if count > 0 {
		return ErrTierHasSubscribers
	}

	result, err := r.q.Exec(ctx, `DELETE FROM tiers WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrTierHasSubscribers
		}
		return fmt.Errorf("deleting tier: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrTierNotFound
	}

	return nil
}
