package entitlement

import (
	"context"

	"github.com/google/uuid"

	"github.com/rentdesk/rentdesk/internal/addon"
	"github.com/rentdesk/rentdesk/internal/auth"
	"github.com/rentdesk/rentdesk/internal/database"
	"github.com/rentdesk/rentdesk/internal/inventory"
	"github.com/rentdesk/rentdesk/internal/organization"
	"github.com/rentdesk/rentdesk/internal/override"
	"github.com/rentdesk/rentdesk/internal/tier"
)

// Locker takes the per-organization write lock.
type Locker interface {
	Lock(ctx context.Context, id uuid.UUID) error
}

// Sources groups the stores the Service reads, all bound to one Querier.
type Sources struct {
	Tiers         tier.Repository
	Overrides     override.Repository
	Addons        addon.Repository
	Inventory     inventory.Repository
	Users         UserCounter
	Organizations Locker
}

// SourcesFunc binds Sources to a pool or a transaction.
type SourcesFunc func(q database.Querier) Sources

// PostgresSources returns the Postgres-backed Sources on q.
func PostgresSources(q database.Querier) Sources {
	return Sources{
		Tiers:         tier.NewPostgresRepository(q),
		Overrides:     override.NewPostgresRepository(q),
		Addons:        addon.NewPostgresRepository(q),
		Inventory:     inventory.NewRepository(q),
		Users:         auth.NewRepository(q),
		Organizations: organization.NewRepository(q),
	}
}

// TxRunner runs fn in a transaction. *database.DB implements it.
type TxRunner interface {
	InTx(ctx context.Context, fn func(q database.Querier) error) error
}
