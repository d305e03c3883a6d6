package tier_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentdesk/rentdesk/internal/organization"
	"github.com/rentdesk/rentdesk/internal/override"
	"github.com/rentdesk/rentdesk/internal/testutil"
	"github.com/rentdesk/rentdesk/internal/tier"
)

func newTestTier(slug string, monthly int64) *tier.Tier {
	return &tier.Tier{
		Slug:         slug,
		DisplayName:  "Tier " + slug,
		Description:  "Test tier",
		MonthlyPrice: monthly,
		AnnualPrice:  monthly * 10,
		Limits: tier.Limits{
			MaxBusinesses:     1,
			MaxProperties:     5,
			MaxUnits:          50,
			MaxTenants:        100,
			MaxUsers:          3,
			MaxPaymentMethods: 2,
		},
		Features: map[string]bool{"online_payments": true},
		IsActive: true,
	}
}

func intPtr(v int) *int { return &v }

func TestPostgresRepository_Create(t *testing.T) {
	repo := tier.NewPostgresRepository(testutil.NewPool(t))
	ctx := context.Background()

	tr := newTestTier("starter", 1900)
	require.NoError(t, repo.Create(ctx, tr))

	assert.NotEqual(t, uuid.Nil, tr.ID)
	assert.Equal(t, 1, tr.Version)
	assert.Equal(t, 5, tr.Limits.MaxProperties)
	assert.True(t, tr.Features["online_payments"])
	assert.False(t, tr.CreatedAt.IsZero())

	err := repo.Create(ctx, newTestTier("starter", 2900))
	assert.ErrorIs(t, err, tier.ErrDuplicateTierSlug)
}

func TestPostgresRepository_GetAndList(t *testing.T) {
	repo := tier.NewPostgresRepository(testutil.NewPool(t))
	ctx := context.Background()

	pro := newTestTier("pro", 9900)
	free := newTestTier("free", 0)
	free.Features = nil
	require.NoError(t, repo.Create(ctx, pro))
	require.NoError(t, repo.Create(ctx, free))

	got, err := repo.GetBySlug(ctx, "pro")
	require.NoError(t, err)
	assert.Equal(t, pro.ID, got.ID)

	got, err = repo.GetByID(ctx, free.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.Features)
	assert.Empty(t, got.Features)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, tier.ErrTierNotFound)
	_, err = repo.GetBySlug(ctx, "missing")
	assert.ErrorIs(t, err, tier.ErrTierNotFound)

	tiers, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, tiers, 2)
	assert.Equal(t, "free", tiers[0].Slug)
	assert.Equal(t, "pro", tiers[1].Slug)
}

func TestPostgresRepository_ListEmpty(t *testing.T) {
	repo := tier.NewPostgresRepository(testutil.NewPool(t))

	tiers, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tiers)
	assert.Empty(t, tiers)
}

func TestPostgresRepository_UpdateRecordsVersions(t *testing.T) {
	repo := tier.NewPostgresRepository(testutil.NewPool(t))
	ctx := context.Background()

	tr := newTestTier("growth", 4900)
	require.NoError(t, repo.Create(ctx, tr))

	name := "Growth Plus"
	updated, err := repo.Update(ctx, tr.ID, 1, tier.UpdateFields{
		DisplayName:   &name,
		MaxProperties: intPtr(10),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "Growth Plus", updated.DisplayName)
	assert.Equal(t, 10, updated.Limits.MaxProperties)
	assert.Equal(t, 50, updated.Limits.MaxUnits)

	updated, err = repo.Update(ctx, tr.ID, 2, tier.UpdateFields{Features: map[string]bool{"tenant_portal": true}})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Version)
	assert.Equal(t, map[string]bool{"tenant_portal": true}, updated.Features)

	versions, err := repo.ListVersions(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[0].Version)
	assert.Equal(t, "Growth Plus", versions[0].Snapshot.DisplayName)
	assert.Equal(t, 1, versions[1].Version)
	assert.Equal(t, "Tier growth", versions[1].Snapshot.DisplayName)
	assert.Equal(t, 5, versions[1].Snapshot.Limits.MaxProperties)
}

func TestPostgresRepository_UpdateVersionConflict(t *testing.T) {
	repo := tier.NewPostgresRepository(testutil.NewPool(t))
	ctx := context.Background()

	tr := newTestTier("growth", 4900)
	require.NoError(t, repo.Create(ctx, tr))

	name := "Stale"
	_, err := repo.Update(ctx, tr.ID, 7, tier.UpdateFields{DisplayName: &name})
	assert.ErrorIs(t, err, tier.ErrVersionConflict)

	got, err := repo.GetByID(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
	assert.Equal(t, "Tier growth", got.DisplayName)

	_, err = repo.Update(ctx, uuid.New(), 1, tier.UpdateFields{DisplayName: &name})
	assert.ErrorIs(t, err, tier.ErrTierNotFound)
}

func TestPostgresRepository_UpdateNoFieldsKeepsVersion(t *testing.T) {
	repo := tier.NewPostgresRepository(testutil.NewPool(t))
	ctx := context.Background()

	tr := newTestTier("growth", 4900)
	require.NoError(t, repo.Create(ctx, tr))

	got, err := repo.Update(ctx, tr.ID, 1, tier.UpdateFields{})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)

	versions, err := repo.ListVersions(ctx, tr.ID)
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestPostgresRepository_ListVersionsUnknownTier(t *testing.T) {
	repo := tier.NewPostgresRepository(testutil.NewPool(t))

	_, err := repo.ListVersions(context.Background(), uuid.New())
	assert.ErrorIs(t, err, tier.ErrTierNotFound)
}

func TestPostgresRepository_Delete(t *testing.T) {
	pool := testutil.NewPool(t)
	repo := tier.NewPostgresRepository(pool)
	ctx := context.Background()

	unused := newTestTier("unused", 0)
	subscribed := newTestTier("subscribed", 4900)
	require.NoError(t, repo.Create(ctx, unused))
	require.NoError(t, repo.Create(ctx, subscribed))

	org := &organization.Organization{Name: "acme"}
	require.NoError(t, organization.NewRepository(pool).Create(ctx, org))
	require.NoError(t, override.NewPostgresRepository(pool).Upsert(ctx, &override.Override{
		OrganizationID: org.ID,
		TierID:         subscribed.ID,
		TierVersion:    subscribed.Version,
	}))

	assert.ErrorIs(t, repo.Delete(ctx, subscribed.ID), tier.ErrTierHasSubscribers)
	require.NoError(t, repo.Delete(ctx, unused.ID))
	assert.ErrorIs(t, repo.Delete(ctx, unused.ID), tier.ErrTierNotFound)
}
