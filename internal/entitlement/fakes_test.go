package entitlement_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rentdesk/rentdesk/internal/addon"
	"github.com/rentdesk/rentdesk/internal/database"
	"github.com/rentdesk/rentdesk/internal/entitlement"
	"github.com/rentdesk/rentdesk/internal/inventory"
	"github.com/rentdesk/rentdesk/internal/override"
	"github.com/rentdesk/rentdesk/internal/tier"
)

// --- tiers ---

type fakeTiers struct {
	byID map[uuid.UUID]*tier.Tier
}

func newFakeTiers(tiers ...*tier.Tier) *fakeTiers {
	f := &fakeTiers{byID: map[uuid.UUID]*tier.Tier{}}
	for _, t := range tiers {
		f.byID[t.ID] = t
	}
	return f
}

func (f *fakeTiers) Create(_ context.Context, t *tier.Tier) error {
	f.byID[t.ID] = t
	return nil
}

func (f *fakeTiers) GetByID(_ context.Context, id uuid.UUID) (*tier.Tier, error) {
	t, ok := f.byID[id]
	if !ok {
		return nil, tier.ErrTierNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTiers) GetBySlug(_ context.Context, slug string) (*tier.Tier, error) {
	for _, t := range f.byID {
		if t.Slug == slug {
			cp := *t
			return &cp, nil
		}
	}
	return nil, tier.ErrTierNotFound
}

func (f *fakeTiers) List(_ context.Context) ([]tier.Tier, error) { return nil, nil }

func (f *fakeTiers) Update(_ context.Context, _ uuid.UUID, _ int, _ tier.UpdateFields) (*tier.Tier, error) {
	return nil, nil
}

func (f *fakeTiers) ListVersions(_ context.Context, _ uuid.UUID) ([]tier.VersionRecord, error) {
	return nil, nil
}

func (f *fakeTiers) Delete(_ context.Context, _ uuid.UUID) error { return nil }

// --- overrides ---

type fakeOverrides struct {
	mu    sync.Mutex
	byOrg map[uuid.UUID]*override.Override
	gets  int
}

func newFakeOverrides() *fakeOverrides {
	return &fakeOverrides{byOrg: map[uuid.UUID]*override.Override{}}
}

func (f *fakeOverrides) GetByOrganization(_ context.Context, orgID uuid.UUID) (*override.Override, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	o, ok := f.byOrg[orgID]
	if !ok {
		return nil, override.ErrOverrideNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOverrides) Upsert(_ context.Context, o *override.Override) error {
	f.byOrg[o.OrganizationID] = o
	return nil
}

func (f *fakeOverrides) Delete(_ context.Context, orgID uuid.UUID) error {
	delete(f.byOrg, orgID)
	return nil
}

// --- add-ons ---

type fakeAddons struct {
	purchases []addon.Purchase
	lists     int
}

func (f *fakeAddons) CreateProduct(_ context.Context, _ *addon.Product) error { return nil }
func (f *fakeAddons) GetProductByID(_ context.Context, _ uuid.UUID) (*addon.Product, error) {
	return nil, addon.ErrProductNotFound
}
func (f *fakeAddons) GetProductBySlug(_ context.Context, _ string) (*addon.Product, error) {
	return nil, addon.ErrProductNotFound
}
func (f *fakeAddons) ListProducts(_ context.Context) ([]addon.Product, error) { return nil, nil }

func (f *fakeAddons) CreatePurchase(_ context.Context, p *addon.Purchase) error {
	f.purchases = append(f.purchases, *p)
	return nil
}

func (f *fakeAddons) ListPurchases(_ context.Context, orgID uuid.UUID) ([]addon.Purchase, error) {
	f.lists++
	var out []addon.Purchase
	for _, p := range f.purchases {
		if p.OrganizationID == orgID && p.Status != addon.StatusExpired {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeAddons) Cancel(_ context.Context, orgID, purchaseID uuid.UUID, at time.Time) (*addon.Purchase, error) {
	for i := range f.purchases {
		p := &f.purchases[i]
		if p.ID == purchaseID && p.OrganizationID == orgID {
			p.Status = addon.StatusCancelled
			p.CancelledAt = &at
			cp := *p
			return &cp, nil
		}
	}
	return nil, addon.ErrPurchaseNotFound
}

func (f *fakeAddons) ExpireLapsed(_ context.Context, _ time.Time) (int64, error) { return 0, nil }

// --- inventory ---

type invRow struct {
	id      uuid.UUID
	parent  uuid.UUID
	deleted bool
}

type fakeInventory struct {
	mu    sync.Mutex
	rows  map[tier.Resource][]invRow
	calls map[string]int
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{rows: map[tier.Resource][]invRow{}, calls: map[string]int{}}
}

// add inserts a row of kind under parent and returns its id.
func (f *fakeInventory) add(kind tier.Resource, parent uuid.UUID, deleted bool) uuid.UUID {
	id := uuid.New()
	f.rows[kind] = append(f.rows[kind], invRow{id: id, parent: parent, deleted: deleted})
	return id
}

func (f *fakeInventory) active(kind tier.Resource, parents []uuid.UUID) []uuid.UUID {
	set := make(map[uuid.UUID]bool, len(parents))
	for _, p := range parents {
		set[p] = true
	}
	ids := []uuid.UUID{}
	for _, r := range f.rows[kind] {
		if set[r.parent] && !r.deleted {
			ids = append(ids, r.id)
		}
	}
	return ids
}

func (f *fakeInventory) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeInventory) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeInventory) ActiveBusinessIDs(_ context.Context, orgID uuid.UUID) ([]uuid.UUID, error) {
	f.record("businesses")
	return f.active(tier.ResourceBusiness, []uuid.UUID{orgID}), nil
}

func (f *fakeInventory) ActivePropertyIDs(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	f.record("properties")
	return f.active(tier.ResourceProperty, ids), nil
}

func (f *fakeInventory) ActiveUnitIDs(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	f.record("units")
	return f.active(tier.ResourceUnit, ids), nil
}

func (f *fakeInventory) CountActiveTenants(_ context.Context, ids []uuid.UUID) (int, error) {
	f.record("tenants")
	return len(f.active(tier.ResourceTenant, ids)), nil
}

func (f *fakeInventory) OrganizationOf(_ context.Context, _ inventory.Kind, _ uuid.UUID) (uuid.UUID, error) {
	return uuid.Nil, inventory.ErrNotFound
}

func (f *fakeInventory) Create(_ context.Context, item *inventory.Item) error {
	item.ID = f.add(item.Kind, item.ParentID, false)
	return nil
}

func (f *fakeInventory) SoftDelete(_ context.Context, _ inventory.Kind, _ uuid.UUID) error {
	return nil
}

// --- users, locker, runner ---

type fakeUsers struct {
	count int
	err   error
}

func (f *fakeUsers) CountActiveByOrganization(_ context.Context, _ uuid.UUID) (int, error) {
	return f.count, f.err
}

type fakeLocker struct {
	mu     sync.Mutex
	locked []uuid.UUID
	err    error
}

func (f *fakeLocker) Lock(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locked = append(f.locked, id)
	return f.err
}

type fakeRunner struct {
	txs int
}

func (f *fakeRunner) InTx(_ context.Context, fn func(q database.Querier) error) error {
	f.txs++
	return fn(nil)
}

// --- fixture ---

type fixture struct {
	tiers     *fakeTiers
	overrides *fakeOverrides
	addons    *fakeAddons
	inventory *fakeInventory
	users     *fakeUsers
	locker    *fakeLocker
	runner    *fakeRunner
	now       time.Time
}

func newFixture(tiers ...*tier.Tier) *fixture {
	return &fixture{
		tiers:     newFakeTiers(tiers...),
		overrides: newFakeOverrides(),
		addons:    &fakeAddons{},
		inventory: newFakeInventory(),
		users:     &fakeUsers{},
		locker:    &fakeLocker{},
		runner:    &fakeRunner{},
		now:       time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) sources(database.Querier) entitlement.Sources {
	return entitlement.Sources{
		Tiers:         f.tiers,
		Overrides:     f.overrides,
		Addons:        f.addons,
		Inventory:     f.inventory,
		Users:         f.users,
		Organizations: f.locker,
	}
}

func (f *fixture) service(defaultTierSlug string) *entitlement.Service {
	return entitlement.NewService(f.runner, nil, f.sources, nil, entitlement.Options{
		DefaultTierSlug: defaultTierSlug,
		Now:             func() time.Time { return f.now },
	})
}

// subscribe gives orgID an override on t with no customizations.
func (f *fixture) subscribe(orgID uuid.UUID, t *tier.Tier) *override.Override {
	o := &override.Override{ID: uuid.New(), OrganizationID: orgID, TierID: t.ID, TierVersion: t.Version}
	f.overrides.byOrg[orgID] = o
	return o
}

// addProperties creates n properties under a fresh business of orgID, plus
// deleted soft-deleted ones.
func (f *fixture) addProperties(orgID uuid.UUID, n, deleted int) {
	biz := f.inventory.add(tier.ResourceBusiness, orgID, false)
	for i := 0; i < n; i++ {
		f.inventory.add(tier.ResourceProperty, biz, false)
	}
	for i := 0; i < deleted; i++ {
		f.inventory.add(tier.ResourceProperty, biz, true)
	}
}

func newTier(slug string, maxProperties int) *tier.Tier {
	return &tier.Tier{
		ID:          uuid.New(),
		Slug:        slug,
		DisplayName: slug,
		Limits: tier.Limits{
			MaxBusinesses: 2,
			MaxProperties: maxProperties,
			MaxUnits:      50,
			MaxTenants:    100,
			MaxUsers:      3,
		},
		Features: map[string]bool{"online_payments": true},
		Version:  1,
		IsActive: true,
	}
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }
