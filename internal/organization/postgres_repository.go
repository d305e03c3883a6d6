package organization

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

// NewRepository creates a new Repository backed by the given pool or transaction.
func NewRepository(q database.Querier) *PostgresRepository {
	return &PostgresRepository{q: q}
}

// Create inserts a new organization record.
func (r *PostgresRepository) Create(ctx context.Context, o *Organization) error {
	query := `
		INSERT INTO organizations (name)
		VALUES ($1)
		RETURNING id, created_at, updated_at`

	err := r.q.QueryRow(ctx, query, o.Name).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateOrganizationName
		}
		return fmt.Errorf("inserting organization: %w", err)
	}

	return nil
}

// GetByID retrieves a single organization by its UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM organizations
		WHERE id = $1`

	var o Organization
	err := r.q.QueryRow(ctx, query, id).Scan(&o.ID, &o.Name, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("querying organization: %w", err)
	}

	return &o, nil
}

// List retrieves all organizations ordered by creation time.
func (r *PostgresRepository) List(ctx context.Context) ([]Organization, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM organizations
		ORDER BY created_at ASC`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing organizations: %w", err)
	}
	defer rows.Close()

	var orgs []Organization
	for rows.Next() {
		var o Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning organization row: %w", err)
		}
		orgs = append(orgs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating organization rows: %w", err)
	}

	if orgs == nil {
		orgs = []Organization{}
	}

	return orgs, nil
}

// Delete removes an organization by its UUID. Returns ErrOrganizationHasUsers if
// users still reference it (FK RESTRICT).
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.q.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrOrganizationHasUsers
		}
		return fmt.Errorf("deleting organization: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrOrganizationNotFound
	}

	return nil
}

// Lock selects the organization row FOR UPDATE. It only serializes callers when
// the repository was built on a transaction.
func (r *PostgresRepository) Lock(ctx context.Context, id uuid.UUID) error {
	var locked uuid.UUID
	err := r.q.QueryRow(ctx, `SELECT id FROM organizations WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrganizationNotFound
		}
		return fmt.Errorf("locking organization: %w", err)
	}
	return nil
}
