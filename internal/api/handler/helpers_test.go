package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/rentdesk/rentdesk/internal/addon"
	"github.com/rentdesk/rentdesk/internal/api/middleware"
	"github.com/rentdesk/rentdesk/internal/auth"
	"github.com/rentdesk/rentdesk/internal/catalog"
	"github.com/rentdesk/rentdesk/internal/database"
	"github.com/rentdesk/rentdesk/internal/entitlement"
	"github.com/rentdesk/rentdesk/internal/events"
	"github.com/rentdesk/rentdesk/internal/inventory"
	"github.com/rentdesk/rentdesk/internal/organization"
	"github.com/rentdesk/rentdesk/internal/override"
	"github.com/rentdesk/rentdesk/internal/tier"
)

// --- Requests ---

func makeChiRequest(method, path string, body []byte, params map[string]string) (*http.Request, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()

	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	return req, w
}

func makeAuthRequest(method, path string, body []byte, params map[string]string, identity *auth.Identity) (*http.Request, *httptest.ResponseRecorder) {
	req, w := makeChiRequest(method, path, body, params)
	if identity != nil {
		req = req.WithContext(middleware.WithIdentity(req.Context(), identity))
	}
	return req, w
}

// makeOrgRequest builds a request as it looks after RequireOrganizationAccess.
func makeOrgRequest(method, path string, body []byte, params map[string]string, orgID uuid.UUID, identity *auth.Identity) (*http.Request, *httptest.ResponseRecorder) {
	req, w := makeAuthRequest(method, path, body, params, identity)
	return req.WithContext(middleware.WithOrganizationID(req.Context(), orgID)), w
}

func parseEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var env map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &env)
	require.NoError(t, err, "failed to parse response body")
	return env
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	env := parseEnvelope(t, w)
	errObj, ok := env["error"].(map[string]interface{})
	require.True(t, ok, "response has no error object: %s", w.Body.String())
	return errObj["code"].(string)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func superuserIdentity() *auth.Identity {
	return &auth.Identity{UserID: uuid.New(), UserName: "superuser", IsSuperuser: true}
}

func orgIdentity(orgID uuid.UUID) *auth.Identity {
	name := "acme"
	return &auth.Identity{
		UserID:           uuid.New(),
		UserName:         "manager",
		OrganizationID:   &orgID,
		OrganizationName: &name,
	}
}

func sampleTier(id uuid.UUID) *tier.Tier {
	now := time.Now().UTC()
	return &tier.Tier{
		ID:           id,
		Slug:         "growth",
		DisplayName:  "Growth",
		Description:  "For growing portfolios",
		MonthlyPrice: 4900,
		AnnualPrice:  49000,
		Limits: tier.Limits{
			MaxBusinesses:     2,
			MaxProperties:     10,
			MaxUnits:          100,
			MaxTenants:        200,
			MaxUsers:          5,
			MaxPaymentMethods: 3,
		},
		Features:  map[string]bool{"online_payments": true},
		Version:   1,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	return cat
}

// --- Mocks ---

type mockEntitlements struct {
	resolveFn         func(ctx context.Context, orgID uuid.UUID) (*entitlement.Settings, error)
	usageFn           func(ctx context.Context, orgID uuid.UUID) (entitlement.Usage, error)
	checkLimitsFn     func(ctx context.Context, orgID uuid.UUID) (entitlement.LimitReport, error)
	capacityFn        func(ctx context.Context, orgID uuid.UUID, r tier.Resource) (entitlement.Capacity, error)
	capacityAllFn     func(ctx context.Context, orgID uuid.UUID) ([]entitlement.Capacity, error)
	featureStatusFn   func(ctx context.Context, orgID uuid.UUID, key string) (entitlement.Status, error)
	featureStatusesFn func(ctx context.Context, orgID uuid.UUID, keys ...string) (map[string]entitlement.Status, error)
	guardFn           func(ctx context.Context, orgID uuid.UUID, r tier.Resource, create func(q database.Querier) error) error
	// sources is handed to fn by Locked when lockedFn is nil.
	sources  entitlement.Sources
	lockedFn func(ctx context.Context, orgID uuid.UUID, fn func(src entitlement.Sources) error) error
	catalog  *catalog.Catalog
}

func (m *mockEntitlements) ResolveEffectiveSettings(ctx context.Context, orgID uuid.UUID) (*entitlement.Settings, error) {
	return m.resolveFn(ctx, orgID)
}

func (m *mockEntitlements) Usage(ctx context.Context, orgID uuid.UUID) (entitlement.Usage, error) {
	return m.usageFn(ctx, orgID)
}

func (m *mockEntitlements) CheckLimits(ctx context.Context, orgID uuid.UUID) (entitlement.LimitReport, error) {
	return m.checkLimitsFn(ctx, orgID)
}

func (m *mockEntitlements) Capacity(ctx context.Context, orgID uuid.UUID, r tier.Resource) (entitlement.Capacity, error) {
	return m.capacityFn(ctx, orgID, r)
}

func (m *mockEntitlements) CapacityAll(ctx context.Context, orgID uuid.UUID) ([]entitlement.Capacity, error) {
	return m.capacityAllFn(ctx, orgID)
}

func (m *mockEntitlements) FeatureStatus(ctx context.Context, orgID uuid.UUID, key string) (entitlement.Status, error) {
	return m.featureStatusFn(ctx, orgID, key)
}

func (m *mockEntitlements) FeatureStatuses(ctx context.Context, orgID uuid.UUID, keys ...string) (map[string]entitlement.Status, error) {
	return m.featureStatusesFn(ctx, orgID, keys...)
}

func (m *mockEntitlements) Guard(ctx context.Context, orgID uuid.UUID, r tier.Resource, create func(q database.Querier) error) error {
	if m.guardFn != nil {
		return m.guardFn(ctx, orgID, r, create)
	}
	return create(nil)
}

func (m *mockEntitlements) Locked(ctx context.Context, orgID uuid.UUID, fn func(src entitlement.Sources) error) error {
	if m.lockedFn != nil {
		return m.lockedFn(ctx, orgID, fn)
	}
	return fn(m.sources)
}

func (m *mockEntitlements) Catalog() *catalog.Catalog { return m.catalog }

type mockPublisher struct {
	published []events.Event
}

func (m *mockPublisher) Publish(_ context.Context, e events.Event) error {
	m.published = append(m.published, e)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

func (m *mockPublisher) types() []events.Type {
	out := make([]events.Type, 0, len(m.published))
	for _, e := range m.published {
		out = append(out, e.Type)
	}
	return out
}

type mockTierRepo struct {
	createFn       func(ctx context.Context, t *tier.Tier) error
	getByIDFn      func(ctx context.Context, id uuid.UUID) (*tier.Tier, error)
	getBySlugFn    func(ctx context.Context, slug string) (*tier.Tier, error)
	listFn         func(ctx context.Context) ([]tier.Tier, error)
	updateFn       func(ctx context.Context, id uuid.UUID, expectedVersion int, fields tier.UpdateFields) (*tier.Tier, error)
	listVersionsFn func(ctx context.Context, id uuid.UUID) ([]tier.VersionRecord, error)
	deleteFn       func(ctx context.Context, id uuid.UUID) error
}

func (m *mockTierRepo) Create(ctx context.Context, t *tier.Tier) error { return m.createFn(ctx, t) }
func (m *mockTierRepo) GetByID(ctx context.Context, id uuid.UUID) (*tier.Tier, error) {
	return m.getByIDFn(ctx, id)
}
func (m *mockTierRepo) GetBySlug(ctx context.Context, slug string) (*tier.Tier, error) {
	return m.getBySlugFn(ctx, slug)
}
func (m *mockTierRepo) List(ctx context.Context) ([]tier.Tier, error) { return m.listFn(ctx) }
func (m *mockTierRepo) Update(ctx context.Context, id uuid.UUID, expectedVersion int, fields tier.UpdateFields) (*tier.Tier, error) {
	return m.updateFn(ctx, id, expectedVersion, fields)
}
func (m *mockTierRepo) ListVersions(ctx context.Context, id uuid.UUID) ([]tier.VersionRecord, error) {
	return m.listVersionsFn(ctx, id)
}
func (m *mockTierRepo) Delete(ctx context.Context, id uuid.UUID) error { return m.deleteFn(ctx, id) }

type mockOrgRepo struct {
	createFn  func(ctx context.Context, o *organization.Organization) error
	getByIDFn func(ctx context.Context, id uuid.UUID) (*organization.Organization, error)
	listFn    func(ctx context.Context) ([]organization.Organization, error)
	deleteFn  func(ctx context.Context, id uuid.UUID) error
}

func (m *mockOrgRepo) Create(ctx context.Context, o *organization.Organization) error {
	return m.createFn(ctx, o)
}
func (m *mockOrgRepo) GetByID(ctx context.Context, id uuid.UUID) (*organization.Organization, error) {
	return m.getByIDFn(ctx, id)
}
func (m *mockOrgRepo) List(ctx context.Context) ([]organization.Organization, error) {
	return m.listFn(ctx)
}
func (m *mockOrgRepo) Delete(ctx context.Context, id uuid.UUID) error { return m.deleteFn(ctx, id) }
func (m *mockOrgRepo) Lock(_ context.Context, _ uuid.UUID) error      { return nil }

type mockOverrideRepo struct {
	getFn    func(ctx context.Context, orgID uuid.UUID) (*override.Override, error)
	upsertFn func(ctx context.Context, o *override.Override) error
	deleteFn func(ctx context.Context, orgID uuid.UUID) error
}

func (m *mockOverrideRepo) GetByOrganization(ctx context.Context, orgID uuid.UUID) (*override.Override, error) {
	return m.getFn(ctx, orgID)
}
func (m *mockOverrideRepo) Upsert(ctx context.Context, o *override.Override) error {
	return m.upsertFn(ctx, o)
}
func (m *mockOverrideRepo) Delete(ctx context.Context, orgID uuid.UUID) error {
	return m.deleteFn(ctx, orgID)
}

type mockAddonRepo struct {
	createProductFn    func(ctx context.Context, p *addon.Product) error
	getProductBySlugFn func(ctx context.Context, slug string) (*addon.Product, error)
	listProductsFn     func(ctx context.Context) ([]addon.Product, error)
	createPurchaseFn   func(ctx context.Context, p *addon.Purchase) error
	listPurchasesFn    func(ctx context.Context, orgID uuid.UUID) ([]addon.Purchase, error)
	cancelFn           func(ctx context.Context, orgID, purchaseID uuid.UUID, at time.Time) (*addon.Purchase, error)
}

func (m *mockAddonRepo) CreateProduct(ctx context.Context, p *addon.Product) error {
	return m.createProductFn(ctx, p)
}
func (m *mockAddonRepo) GetProductByID(_ context.Context, _ uuid.UUID) (*addon.Product, error) {
	return nil, addon.ErrProductNotFound
}
func (m *mockAddonRepo) GetProductBySlug(ctx context.Context, slug string) (*addon.Product, error) {
	return m.getProductBySlugFn(ctx, slug)
}
func (m *mockAddonRepo) ListProducts(ctx context.Context) ([]addon.Product, error) {
	return m.listProductsFn(ctx)
}
func (m *mockAddonRepo) CreatePurchase(ctx context.Context, p *addon.Purchase) error {
	return m.createPurchaseFn(ctx, p)
}
func (m *mockAddonRepo) ListPurchases(ctx context.Context, orgID uuid.UUID) ([]addon.Purchase, error) {
	return m.listPurchasesFn(ctx, orgID)
}
func (m *mockAddonRepo) Cancel(ctx context.Context, orgID, purchaseID uuid.UUID, at time.Time) (*addon.Purchase, error) {
	return m.cancelFn(ctx, orgID, purchaseID, at)
}
func (m *mockAddonRepo) ExpireLapsed(_ context.Context, _ time.Time) (int64, error) { return 0, nil }

type mockInventoryRepo struct {
	organizationOfFn func(ctx context.Context, kind inventory.Kind, id uuid.UUID) (uuid.UUID, error)
	createFn         func(ctx context.Context, item *inventory.Item) error
	softDeleteFn     func(ctx context.Context, kind inventory.Kind, id uuid.UUID) error
}

func (m *mockInventoryRepo) ActiveBusinessIDs(_ context.Context, _ uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}
func (m *mockInventoryRepo) ActivePropertyIDs(_ context.Context, _ []uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}
func (m *mockInventoryRepo) ActiveUnitIDs(_ context.Context, _ []uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}
func (m *mockInventoryRepo) CountActiveTenants(_ context.Context, _ []uuid.UUID) (int, error) {
	return 0, nil
}
func (m *mockInventoryRepo) OrganizationOf(ctx context.Context, kind inventory.Kind, id uuid.UUID) (uuid.UUID, error) {
	return m.organizationOfFn(ctx, kind, id)
}
func (m *mockInventoryRepo) Create(ctx context.Context, item *inventory.Item) error {
	return m.createFn(ctx, item)
}
func (m *mockInventoryRepo) SoftDelete(ctx context.Context, kind inventory.Kind, id uuid.UUID) error {
	return m.softDeleteFn(ctx, kind, id)
}

type mockUserRepo struct {
	createFn  func(ctx context.Context, u *auth.User) error
	getByIDFn func(ctx context.Context, id uuid.UUID) (*auth.User, error)
	listFn    func(ctx context.Context) ([]auth.User, error)
	revokeFn  func(ctx context.Context, id uuid.UUID) error
}

func (m *mockUserRepo) Create(ctx context.Context, u *auth.User) error { return m.createFn(ctx, u) }
func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return m.getByIDFn(ctx, id)
}
func (m *mockUserRepo) FindByPrefix(_ context.Context, _ string) ([]auth.User, error) {
	return nil, nil
}
func (m *mockUserRepo) List(ctx context.Context) ([]auth.User, error)  { return m.listFn(ctx) }
func (m *mockUserRepo) Revoke(ctx context.Context, id uuid.UUID) error { return m.revokeFn(ctx, id) }
func (m *mockUserRepo) CountAll(_ context.Context) (int, error)        { return 0, nil }
func (m *mockUserRepo) CountActiveByOrganization(_ context.Context, _ uuid.UUID) (int, error) {
	return 0, nil
}

type mockKeyGenerator struct {
	err error
}

func (m *mockKeyGenerator) GenerateKey() (string, string, string, error) {
	if m.err != nil {
		return "", "", "", m.err
	}
	return "rd_abcdefgh_secret", "rd_abcdefgh", "hash", nil
}
