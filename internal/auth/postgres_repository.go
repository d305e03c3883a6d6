package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rentdesk/rentdesk/internal/database"
)

// ErrUnknownOrganization is returned when a user references a missing organization.
var ErrUnknownOrganization = errors.New("organization does not exist")

// PostgresRepository implements UserRepository on top of a database.Querier.
type PostgresRepository struct {
	q database.Querier
}

// NewRepository creates a new UserRepository backed by the given pool or transaction.
func NewRepository(q database.Querier) *PostgresRepository {
	return &PostgresRepository{q: q}
}

const userColumns = `id, name, organization_id, is_superuser, api_key_prefix, api_key_hash,
	created_at, revoked_at`

// Create inserts a new user record.
func (r *PostgresRepository) Create(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (name, organization_id, is_superuser, api_key_prefix, api_key_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.q.QueryRow(ctx, query,
		u.Name,
		u.OrganizationID,
		u.IsSuperuser,
		u.ApiKeyPrefix,
		u.ApiKeyHash,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrUnknownOrganization
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

// GetByID retrieves a single user by its UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)

	var u User
	err := r.q.QueryRow(ctx, query, id).Scan(
		&u.ID, &u.Name, &u.OrganizationID, &u.IsSuperuser,
		&u.ApiKeyPrefix, &u.ApiKeyHash,
		&u.CreatedAt, &u.RevokedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}

	return &u, nil
}

// FindByPrefix returns active (non-revoked) users matching the given API key prefix.
func (r *PostgresRepository) FindByPrefix(ctx context.Context, prefix string) ([]User, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM users
		WHERE api_key_prefix = $1 AND revoked_at IS NULL`, userColumns)

	rows, err := r.q.Query(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("finding users by prefix: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var u User
		err := rows.Scan(
			&u.ID, &u.Name, &u.OrganizationID, &u.IsSuperuser,
			&u.ApiKeyPrefix, &u.ApiKeyHash,
			&u.CreatedAt, &u.RevokedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user rows: %w", err)
	}

	return users, nil
}

// List retrieves all users with their organization name, ordered by creation time.
func (r *PostgresRepository) List(ctx context.Context) ([]User, error) {
	query := `
		SELECT u.id, u.name, u.organization_id, u.is_superuser, u.api_key_prefix,
		       u.api_key_hash, u.created_at, u.revoked_at, o.name
		FROM users u
		LEFT JOIN organizations o ON u.organization_id = o.id
		ORDER BY u.created_at ASC`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var u User
		err := rows.Scan(
			&u.ID, &u.Name, &u.OrganizationID, &u.IsSuperuser,
			&u.ApiKeyPrefix, &u.ApiKeyHash,
			&u.CreatedAt, &u.RevokedAt,
			&u.OrganizationName,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user rows: %w", err)
	}

	return users, nil
}

// Revoke sets revoked_at on a user. Returns ErrUserNotFound if the user
// does not exist, and ErrUserRevoked if already revoked.
func (r *PostgresRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	result, err := r.q.Exec(ctx, `
		UPDATE users
		SET revoked_at = NOW()
		WHERE id = $1 AND revoked_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("revoking user: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		err := r.q.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)", id).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking user existence: %w", err)
		}
		if !exists {
			return ErrUserNotFound
		}
		return ErrUserRevoked
	}

	return nil
}

// CountAll returns the total number of users in the table (including revoked).
func (r *PostgresRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	if err := r.q.QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}

// CountActiveByOrganization counts the organization's non-revoked users.
func (r *PostgresRepository) CountActiveByOrganization(ctx context.Context, orgID uuid.UUID) (int, error) {
	var count int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM users
		WHERE organization_id = $1 AND revoked_at IS NULL`, orgID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting organization users: %w", err)
	}
	return count, nil
}
