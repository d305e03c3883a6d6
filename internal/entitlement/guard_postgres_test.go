package entitlement_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentdesk/rentdesk/internal/addon"
	"github.com/rentdesk/rentdesk/internal/database"
	"github.com/rentdesk/rentdesk/internal/entitlement"
	"github.com/rentdesk/rentdesk/internal/inventory"
	"github.com/rentdesk/rentdesk/internal/organization"
	"github.com/rentdesk/rentdesk/internal/override"
	"github.com/rentdesk/rentdesk/internal/testutil"
	"github.com/rentdesk/rentdesk/internal/tier"
)

// guardEnv is an organization subscribed to a tier capped at maxProperties,
// with one business to hang properties under.
type guardEnv struct {
	pool     *pgxpool.Pool
	svc      *entitlement.Service
	orgID    uuid.UUID
	business uuid.UUID
}

func newGuardEnv(t *testing.T, maxProperties int) *guardEnv {
	t.Helper()

	pool := testutil.NewPool(t)
	ctx := context.Background()

	db, err := database.New(ctx, testutil.DatabaseURL(t))
	require.NoError(t, err)
	t.Cleanup(db.Close)

	tr := &tier.Tier{
		Slug:        "solo",
		DisplayName: "Solo",
		Limits: tier.Limits{
			MaxBusinesses: 1,
			MaxProperties: maxProperties,
			MaxUnits:      10,
			MaxTenants:    10,
			MaxUsers:      1,
		},
		IsActive: true,
	}
	require.NoError(t, tier.NewPostgresRepository(pool).Create(ctx, tr))

	org := &organization.Organization{Name: "acme"}
	require.NoError(t, organization.NewRepository(pool).Create(ctx, org))
	require.NoError(t, override.NewPostgresRepository(pool).Upsert(ctx, &override.Override{
		OrganizationID: org.ID,
		TierID:         tr.ID,
		TierVersion:    tr.Version,
	}))

	biz := &inventory.Item{Kind: tier.ResourceBusiness, ParentID: org.ID, Name: "Harbor Holdings"}
	require.NoError(t, inventory.NewRepository(pool).Create(ctx, biz))

	return &guardEnv{
		pool:     pool,
		svc:      entitlement.NewService(db, db.Pool(), entitlement.PostgresSources, nil, entitlement.Options{}),
		orgID:    org.ID,
		business: biz.ID,
	}
}

// createPropertiesConcurrently starts n Guard calls at once. Each insert
// sleeps first, widening the window between the cap check and the write.
func (e *guardEnv) createPropertiesConcurrently(n int) []error {
	ctx := context.Background()
	start := make(chan struct{})
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs[i] = e.svc.Guard(ctx, e.orgID, tier.ResourceProperty, func(q database.Querier) error {
				if _, err := q.Exec(ctx, `SELECT pg_sleep(0.05)`); err != nil {
					return err
				}
				return inventory.NewRepository(q).Create(ctx, &inventory.Item{
					Kind:     tier.ResourceProperty,
					ParentID: e.business,
					Name:     fmt.Sprintf("Property %d", i),
				})
			})
		}()
	}
	close(start)
	wg.Wait()
	return errs
}

func (e *guardEnv) activeProperties(t *testing.T) int {
	t.Helper()
	ids, err := inventory.NewRepository(e.pool).ActivePropertyIDs(context.Background(), []uuid.UUID{e.business})
	require.NoError(t, err)
	return len(ids)
}

func tally(t *testing.T, errs []error) (ok, limited int) {
	t.Helper()
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		if assert.ErrorIs(t, err, entitlement.ErrLimitReached) {
			limited++
		}
	}
	return ok, limited
}

func TestGuard_ConcurrentCreatorsCannotShareLastSlot(t *testing.T) {
	const creators = 8
	env := newGuardEnv(t, 1)

	ok, limited := tally(t, env.createPropertiesConcurrently(creators))

	assert.Equal(t, 1, ok)
	assert.Equal(t, creators-1, limited)
	assert.Equal(t, 1, env.activeProperties(t))
}

func TestGuard_ConcurrentCreatorsRespectAddonBonus(t *testing.T) {
	const creators = 6
	env := newGuardEnv(t, 1)
	ctx := context.Background()

	addons := addon.NewPostgresRepository(env.pool)
	product := &addon.Product{
		Slug:          "extra-property",
		Name:          "Extra property",
		ResourceType:  tier.ResourceProperty,
		UnitsPerAddon: 2,
		IsActive:      true,
	}
	require.NoError(t, addons.CreateProduct(ctx, product))
	require.NoError(t, addons.CreatePurchase(ctx, &addon.Purchase{
		OrganizationID:  env.orgID,
		ProductID:       product.ID,
		Quantity:        1,
		NextBillingDate: time.Now().AddDate(0, 1, 0),
	}))

	ok, limited := tally(t, env.createPropertiesConcurrently(creators))

	assert.Equal(t, 3, ok)
	assert.Equal(t, creators-3, limited)
	assert.Equal(t, 3, env.activeProperties(t))
}

func TestGuard_FailedCreateRollsBack(t *testing.T) {
	env := newGuardEnv(t, 2)
	ctx := context.Background()

	err := env.svc.Guard(ctx, env.orgID, tier.ResourceProperty, func(q database.Querier) error {
		if err := inventory.NewRepository(q).Create(ctx, &inventory.Item{
			Kind: tier.ResourceProperty, ParentID: env.business, Name: "Half written",
		}); err != nil {
			return err
		}
		return fmt.Errorf("downstream write failed")
	})
	require.Error(t, err)
	assert.Zero(t, env.activeProperties(t))

	err = env.svc.Guard(ctx, uuid.New(), tier.ResourceProperty, func(database.Querier) error {
		t.Fatal("create must not run for an unknown organization")
		return nil
	})
	assert.ErrorIs(t, err, organization.ErrOrganizationNotFound)
}
