package addon

import (
	"context"
	"errors"
	"fmt"
	"time"

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

const productColumns = `id, slug, name, resource_type, units_per_addon, unit_price, is_active, created_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Slug, &p.Name, &p.ResourceType, &p.UnitsPerAddon, &p.UnitPrice, &p.IsActive, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("scanning addon product row: %w", err)
	}
	return &p, nil
}

// CreateProduct inserts a new add-on product.
func (r *PostgresRepository) CreateProduct(ctx context.Context, p *Product) error {
	if p.UnitsPerAddon < 1 {
		p.UnitsPerAddon = 1
	}

	query := fmt.Sprintf(`
		INSERT INTO addon_products (slug, name, resource_type, units_per_addon, unit_price, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s`, productColumns)

	created, err := scanProduct(r.q.QueryRow(ctx, query,
		p.Slug, p.Name, p.ResourceType, p.UnitsPerAddon, p.UnitPrice, p.IsActive))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateProductSlug
		}
		return fmt.Errorf("inserting addon product: %w", err)
	}

	*p = *created
	return nil
}

// GetProductByID retrieves a single add-on product by its UUID.
func (r *PostgresRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM addon_products WHERE id = $1`, productColumns)
	return scanProduct(r.q.QueryRow(ctx, query, id))
}

// GetProductBySlug retrieves a single add-on product by its slug.
func (r *PostgresRepository) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM addon_products WHERE slug = $1`, productColumns)
	return scanProduct(r.q.QueryRow(ctx, query, slug))
}

// ListProducts retrieves all add-on products ordered by slug.
func (r *PostgresRepository) ListProducts(ctx context.Context) ([]Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM addon_products ORDER BY slug ASC`, productColumns)

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing addon products: %w", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating addon product rows: %w", err)
	}

	return products, nil
}

// purchaseColumns selects a purchase joined with its product (alias ap / p).
const purchaseColumns = `ap.id, ap.organization_id, ap.addon_product_id, p.slug, p.resource_type,
	p.units_per_addon, ap.quantity, ap.status, ap.next_billing_date, ap.cancelled_at,
	ap.created_at, ap.updated_at`

const purchaseFrom = `FROM addon_purchases ap JOIN addon_products p ON p.id = ap.addon_product_id`

func scanPurchase(row pgx.Row) (*Purchase, error) {
	var p Purchase
	err := row.Scan(
		&p.ID, &p.OrganizationID, &p.ProductID, &p.ProductSlug, &p.ResourceType,
		&p.UnitsPerAddon, &p.Quantity, &p.Status, &p.NextBillingDate, &p.CancelledAt,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPurchaseNotFound
		}
		return nil, fmt.Errorf("scanning addon purchase row: %w", err)
	}
	return &p, nil
}

// CreatePurchase inserts a purchase and fills the joined product fields.
func (r *PostgresRepository) CreatePurchase(ctx context.Context, p *Purchase) error {
	if p.Status == "" {
		p.Status = StatusActive
	}

	var id uuid.UUID
	err := r.q.QueryRow(ctx, `
		INSERT INTO addon_purchases (organization_id, addon_product_id, quantity, status, next_billing_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		p.OrganizationID, p.ProductID, p.Quantity, p.Status, p.NextBillingDate,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrProductNotFound
		}
		return fmt.Errorf("inserting addon purchase: %w", err)
	}

	created, err := scanPurchase(r.q.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s %s WHERE ap.id = $1`, purchaseColumns, purchaseFrom), id))
	if err != nil {
		return fmt.Errorf("fetching created addon purchase: %w", err)
	}
	*p = *created
	return nil
}

// ListPurchases returns the organization's active and cancelled purchases, newest first.
func (r *PostgresRepository) ListPurchases(ctx context.Context, orgID uuid.UUID) ([]Purchase, error) {
	query := fmt.Sprintf(`SELECT %s %s
		WHERE ap.organization_id = $1 AND ap.status <> 'expired'
		ORDER BY ap.created_at DESC`, purchaseColumns, purchaseFrom)

	rows, err := r.q.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("listing addon purchases: %w", err)
	}
	defer rows.Close()

	purchases := []Purchase{}
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		purchases = append(purchases, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating addon purchase rows: %w", err)
	}

	return purchases, nil
}

// Cancel marks an active purchase cancelled. The purchase keeps its
// next_billing_date, so it stays in effect until that date.
func (r *PostgresRepository) Cancel(ctx context.Context, orgID, purchaseID uuid.UUID, at time.Time) (*Purchase, error) {
	result, err := r.q.Exec(ctx, `
		UPDATE addon_purchases
		SET status = 'cancelled', cancelled_at = $1, updated_at = NOW()
		WHERE id = $2 AND organization_id = $3 AND status = 'active'`,
		at, purchaseID, orgID)
	if err != nil {
		return nil, fmt.Errorf("cancelling addon purchase: %w", err)
	}

	p, err := scanPurchase(r.q.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s %s WHERE ap.id = $1 AND ap.organization_id = $2`, purchaseColumns, purchaseFrom),
		purchaseID, orgID))
	if err != nil {
		return nil, err
	}

	if result.RowsAffected() == 0 {
		return nil, ErrAlreadyCancelled
	}
	return p, nil
}

// ExpireLapsed marks cancelled purchases whose billing date has passed as expired.
func (r *PostgresRepository) ExpireLapsed(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.q.Exec(ctx, `
		UPDATE addon_purchases
		SET status = 'expired', updated_at = NOW()
		WHERE status = 'cancelled' AND next_billing_date <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("expiring lapsed addon purchases: %w", err)
	}
	return result.RowsAffected(), nil
}
