package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rentdesk/rentdesk/internal/addon"
	"github.com/rentdesk/rentdesk/internal/api/handler"
	"github.com/rentdesk/rentdesk/internal/api/middleware"
	"github.com/rentdesk/rentdesk/internal/auth"
	"github.com/rentdesk/rentdesk/internal/database"
	"github.com/rentdesk/rentdesk/internal/events"
	"github.com/rentdesk/rentdesk/internal/inventory"
	"github.com/rentdesk/rentdesk/internal/organization"
	"github.com/rentdesk/rentdesk/internal/override"
	"github.com/rentdesk/rentdesk/internal/tier"
)

// ReportsFeature gates the organization reports.
const ReportsFeature = "advanced_reports"

// RouterDeps holds all dependencies needed by the router. The authenticated
// API is mounted only when Authenticator and Entitlements are set.
type RouterDeps struct {
	DBPinger    handler.DBPinger
	Version     string
	OpenAPISpec []byte
	// Metrics defaults to the Prometheus default registry handler.
	Metrics http.Handler

	Authenticator middleware.Authenticator
	KeyGenerator  handler.KeyGenerator
	Entitlements  handler.Entitlements
	// Events defaults to events.NopPublisher.
	Events events.Publisher

	Tiers         tier.Repository
	Organizations organization.Repository
	Overrides     override.Repository
	Addons        addon.Repository
	Inventory     inventory.Repository
	InventoryTx   func(q database.Querier) inventory.Repository
	Users         auth.UserRepository
	UsersTx       func(q database.Querier) auth.UserRepository
}

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)

	healthHandler := handler.NewHealthHandler(deps.DBPinger, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)

	if len(deps.OpenAPISpec) > 0 {
		openapiHandler := handler.NewOpenAPIHandler(deps.OpenAPISpec)
		r.Get("/openapi.json", openapiHandler.ServeJSON)
		r.Get("/openapi.yaml", openapiHandler.ServeYAML)
	}

	metricsHandler := deps.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	if deps.Authenticator == nil || deps.Entitlements == nil {
		return r
	}

	publisher := deps.Events
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	tierHandler := handler.NewTierHandler(deps.Tiers, publisher)
	orgHandler := handler.NewOrganizationHandler(deps.Organizations)
	overrideHandler := handler.NewOverrideHandler(deps.Entitlements, deps.Overrides, publisher)
	addonHandler := handler.NewAddonHandler(deps.Entitlements, deps.Addons, publisher)
	entHandler := handler.NewEntitlementHandler(deps.Entitlements)
	invHandler := handler.NewInventoryHandler(deps.Entitlements, deps.Inventory, deps.InventoryTx, publisher)
	userHandler := handler.NewUserHandler(deps.KeyGenerator, deps.Users, deps.UsersTx, deps.Organizations, deps.Entitlements, publisher)

	superuser := middleware.RequireSuperuser()

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(deps.Authenticator))

		r.Route("/tiers", func(r chi.Router) {
			r.Get("/", tierHandler.List)
			r.Get("/{id}", tierHandler.GetByID)
			r.Group(func(r chi.Router) {
				r.Use(superuser)
				r.Post("/", tierHandler.Create)
				r.Patch("/{id}", tierHandler.Update)
				r.Delete("/{id}", tierHandler.Delete)
				r.Get("/{id}/versions", tierHandler.Versions)
			})
		})

		r.Route("/addon-products", func(r chi.Router) {
			r.Get("/", addonHandler.ListProducts)
			r.With(superuser).Post("/", addonHandler.CreateProduct)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(superuser)
			r.Post("/", userHandler.Create)
			r.Get("/", userHandler.List)
			r.Delete("/{id}", userHandler.Delete)
		})

		r.Route("/organizations", func(r chi.Router) {
			r.With(superuser).Post("/", orgHandler.Create)
			r.With(superuser).Get("/", orgHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Use(middleware.RequireOrganizationAccess("id"))

				r.With(superuser).Delete("/", orgHandler.Delete)

				r.Route("/override", func(r chi.Router) {
					r.Use(superuser)
					r.Put("/", overrideHandler.Put)
					r.Get("/", overrideHandler.Get)
					r.Delete("/", overrideHandler.Delete)
				})

				r.Get("/entitlements", entHandler.Get)
				r.Get("/usage", entHandler.Usage)
				r.Get("/limits", entHandler.Limits)
				r.Get("/can-add/{resource}", entHandler.CanAdd)
				r.Get("/features", entHandler.Features)
				r.Get("/features/{key}", entHandler.Feature)
				r.With(middleware.RequireFeature(deps.Entitlements, ReportsFeature)).
					Get("/reports/capacity", entHandler.CapacityReport)

				r.Post("/addons", addonHandler.Purchase)
				r.Get("/addons", addonHandler.ListPurchases)
				r.Post("/addons/{purchaseId}/cancel", addonHandler.Cancel)

				mountInventory(r, invHandler)
			})
		})
	})

	return r
}

// mountInventory registers create and delete routes for every inventory kind.
// A kind is created under its parent's item path and deleted by its own id.
func mountInventory(r chi.Router, h *handler.InventoryHandler) {
	collections := []struct {
		kind inventory.Kind
		path string
	}{
		{tier.ResourceBusiness, "businesses"},
		{tier.ResourceProperty, "properties"},
		{tier.ResourceUnit, "units"},
		{tier.ResourceTenant, "tenants"},
	}
	paths := make(map[inventory.Kind]string, len(collections))
	for _, c := range collections {
		paths[c.kind] = c.path
	}

	for _, c := range collections {
		create := "/" + c.path
		if parent, ok := inventory.ParentKind(c.kind); ok {
			create = "/" + paths[parent] + "/{" + handler.IDParam(parent) + "}" + create
		}
		r.Post(create, h.Create(c.kind))
		r.Delete("/"+c.path+"/{"+handler.IDParam(c.kind)+"}", h.Delete(c.kind))
	}
}
