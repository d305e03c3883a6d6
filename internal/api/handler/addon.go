package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rentdesk/rentdesk/internal/addon"
	"github.com/rentdesk/rentdesk/internal/api/middleware"
	"github.com/rentdesk/rentdesk/internal/api/response"
	"github.com/rentdesk/rentdesk/internal/api/validation"
	"github.com/rentdesk/rentdesk/internal/entitlement"
	"github.com/rentdesk/rentdesk/internal/events"
	"github.com/rentdesk/rentdesk/internal/metrics"
	"github.com/rentdesk/rentdesk/internal/tier"
)

type addonProductResponse struct {
	ID            string `json:"id"`
	Slug          string `json:"slug"`
	Name          string `json:"name"`
	ResourceType  string `json:"resourceType"`
	UnitsPerAddon int    `json:"unitsPerAddon"`
	UnitPrice     int64  `json:"unitPrice"`
	IsActive      bool   `json:"isActive"`
	CreatedAt     string `json:"createdAt"`
}

func toAddonProductResponse(p *addon.Product) addonProductResponse {
	return addonProductResponse{
		ID:            p.ID.String(),
		Slug:          p.Slug,
		Name:          p.Name,
		ResourceType:  string(p.ResourceType),
		UnitsPerAddon: p.UnitsPerAddon,
		UnitPrice:     p.UnitPrice,
		IsActive:      p.IsActive,
		CreatedAt:     p.CreatedAt.UTC().Format(timeFormat),
	}
}

type addonPurchaseResponse struct {
	ID              string  `json:"id"`
	ProductSlug     string  `json:"productSlug"`
	ResourceType    string  `json:"resourceType"`
	Quantity        int     `json:"quantity"`
	Units           int     `json:"units"`
	Status          string  `json:"status"`
	InEffect        bool    `json:"inEffect"`
	NextBillingDate string  `json:"nextBillingDate"`
	CancelledAt     *string `json:"cancelledAt"`
	CreatedAt       string  `json:"createdAt"`
}

func toAddonPurchaseResponse(p *addon.Purchase, now time.Time) addonPurchaseResponse {
	resp := addonPurchaseResponse{
		ID:              p.ID.String(),
		ProductSlug:     p.ProductSlug,
		ResourceType:    string(p.ResourceType),
		Quantity:        p.Quantity,
		Units:           p.Units(),
		Status:          string(p.Status),
		InEffect:        p.InEffect(now),
		NextBillingDate: p.NextBillingDate.UTC().Format(timeFormat),
		CreatedAt:       p.CreatedAt.UTC().Format(timeFormat),
	}
	if p.CancelledAt != nil {
		c := p.CancelledAt.UTC().Format(timeFormat)
		resp.CancelledAt = &c
	}
	return resp
}

// AddonHandler handles the add-on product catalog and organization purchases.
type AddonHandler struct {
	ent    Entitlements
	repo   addon.Repository
	events events.Publisher
	now    func() time.Time
}

// NewAddonHandler creates a new AddonHandler. repo serves reads outside the
// organization lock.
func NewAddonHandler(ent Entitlements, repo addon.Repository, publisher events.Publisher) *AddonHandler {
	return &AddonHandler{ent: ent, repo: repo, events: publisher, now: time.Now}
}

// CreateProduct handles POST /addon-products.
func (h *AddonHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req validation.CreateAddonProductRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p := &addon.Product{
		Slug:          strings.TrimSpace(req.Slug),
		Name:          strings.TrimSpace(req.Name),
		ResourceType:  tier.Resource(req.ResourceType),
		UnitsPerAddon: req.UnitsPerAddon,
		UnitPrice:     req.UnitPrice,
		IsActive:      req.IsActive == nil || *req.IsActive,
	}

	if err := h.repo.CreateProduct(r.Context(), p); err != nil {
		if errors.Is(err, addon.ErrDuplicateProductSlug) {
			response.Err(w, http.StatusConflict, "DUPLICATE_SLUG", fmt.Sprintf("An add-on product with slug %q already exists", p.Slug), requestID)
			return
		}
		slog.Error("failed to create addon product", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create add-on product", requestID)
		return
	}

	response.Success(w, http.StatusCreated, toAddonProductResponse(p), requestID)
}

// ListProducts handles GET /addon-products. Organization users only see
// products that can be bought.
func (h *AddonHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	products, err := h.repo.ListProducts(r.Context())
	if err != nil {
		slog.Error("failed to list addon products", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list add-on products", requestID)
		return
	}

	all := isSuperuser(r)
	items := make([]addonProductResponse, 0, len(products))
	for i := range products {
		if all || products[i].IsActive {
			items = append(items, toAddonProductResponse(&products[i]))
		}
	}
	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// Purchase handles POST /organizations/{id}/addons.
func (h *AddonHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	orgID, ok := scopedOrganization(w, r)
	if !ok {
		return
	}

	var req validation.PurchaseAddonRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var p *addon.Purchase
	err := h.ent.Locked(r.Context(), orgID, func(src entitlement.Sources) error {
		var err error
		p, err = addon.NewLedger(src.Addons, h.now).Purchase(r.Context(), orgID, req.ProductSlug, req.Quantity)
		return err
	})
	if err != nil {
		writeEntitlementError(w, r, err, "Failed to purchase add-on")
		return
	}

	metrics.AddonPurchasesTotal.WithLabelValues(p.ProductSlug, "purchase").Inc()
	events.Notify(r.Context(), h.events, events.ForOrganization(events.AddonPurchased, orgID))
	response.Success(w, http.StatusCreated, toAddonPurchaseResponse(p, h.now()), requestID)
}

// ListPurchases handles GET /organizations/{id}/addons.
func (h *AddonHandler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	orgID, ok := scopedOrganization(w, r)
	if !ok {
		return
	}

	purchases, err := addon.NewLedger(h.repo, h.now).List(r.Context(), orgID)
	if err != nil {
		slog.Error("failed to list addon purchases", "error", err, "organizationId", orgID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list add-ons", requestID)
		return
	}

	now := h.now()
	items := make([]addonPurchaseResponse, 0, len(purchases))
	for i := range purchases {
		items = append(items, toAddonPurchaseResponse(&purchases[i], now))
	}
	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// Cancel handles POST /organizations/{id}/addons/{purchaseId}/cancel. The
// purchase keeps raising caps until its next billing date.
func (h *AddonHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	orgID, ok := scopedOrganization(w, r)
	if !ok {
		return
	}
	purchaseID, ok := pathID(w, r, "purchaseId")
	if !ok {
		return
	}

	var p *addon.Purchase
	err := h.ent.Locked(r.Context(), orgID, func(src entitlement.Sources) error {
		var err error
		p, err = addon.NewLedger(src.Addons, h.now).Cancel(r.Context(), orgID, purchaseID)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, addon.ErrPurchaseNotFound):
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Add-on purchase not found", requestID)
		case errors.Is(err, addon.ErrAlreadyCancelled):
			response.Err(w, http.StatusConflict, "ALREADY_CANCELLED", "Add-on purchase is already cancelled", requestID)
		default:
			writeEntitlementError(w, r, err, "Failed to cancel add-on")
		}
		return
	}

	metrics.AddonPurchasesTotal.WithLabelValues(p.ProductSlug, "cancel").Inc()
	events.Notify(r.Context(), h.events, events.ForOrganization(events.AddonCancelled, orgID))
	response.Success(w, http.StatusOK, toAddonPurchaseResponse(p, h.now()), requestID)
}
