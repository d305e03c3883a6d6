package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rentdesk/rentdesk/internal/api/middleware"
	"github.com/rentdesk/rentdesk/internal/api/response"
	"github.com/rentdesk/rentdesk/internal/catalog"
	"github.com/rentdesk/rentdesk/internal/database"
	"github.com/rentdesk/rentdesk/internal/entitlement"
	"github.com/rentdesk/rentdesk/internal/tier"
)

// Entitlements is the part of *entitlement.Service the HTTP layer uses. It
// also satisfies middleware.FeatureChecker.
type Entitlements interface {
	ResolveEffectiveSettings(ctx context.Context, orgID uuid.UUID) (*entitlement.Settings, error)
	Usage(ctx context.Context, orgID uuid.UUID) (entitlement.Usage, error)
	CheckLimits(ctx context.Context, orgID uuid.UUID) (entitlement.LimitReport, error)
	Capacity(ctx context.Context, orgID uuid.UUID, r tier.Resource) (entitlement.Capacity, error)
	CapacityAll(ctx context.Context, orgID uuid.UUID) ([]entitlement.Capacity, error)
	FeatureStatus(ctx context.Context, orgID uuid.UUID, key string) (entitlement.Status, error)
	FeatureStatuses(ctx context.Context, orgID uuid.UUID, keys ...string) (map[string]entitlement.Status, error)
	Guard(ctx context.Context, orgID uuid.UUID, r tier.Resource, create func(q database.Querier) error) error
	Locked(ctx context.Context, orgID uuid.UUID, fn func(src entitlement.Sources) error) error
	Catalog() *catalog.Catalog
}

type tierRef struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	DisplayName string `json:"displayName"`
	Version     int    `json:"version"`
}

type settingsResponse struct {
	OrganizationID   string                `json:"organizationId"`
	Tier             tierRef               `json:"tier"`
	PinnedVersion    *int                  `json:"pinnedVersion"`
	UsesDefaultTier  bool                  `json:"usesDefaultTier"`
	HasCustomPricing bool                  `json:"hasCustomPricing"`
	HasCustomLimits  bool                  `json:"hasCustomLimits"`
	Effective        entitlement.Effective `json:"effective"`
}

type limitsResponse struct {
	entitlement.LimitReport
	Messages []string `json:"messages"`
}

type canAddResponse struct {
	entitlement.Capacity
	CanAdd bool `json:"canAdd"`
}

type featureResponse struct {
	Key         string             `json:"key"`
	Name        string             `json:"name,omitempty"`
	UpgradeType string             `json:"upgradeType,omitempty"`
	MinimumTier string             `json:"minimumTier,omitempty"`
	Status      entitlement.Status `json:"status"`
}

// EntitlementHandler serves the read-only entitlement endpoints of an organization.
type EntitlementHandler struct {
	ent Entitlements
}

// NewEntitlementHandler creates a new EntitlementHandler.
func NewEntitlementHandler(ent Entitlements) *EntitlementHandler {
	return &EntitlementHandler{ent: ent}
}

// Get handles GET /organizations/{id}/entitlements.
func (h *EntitlementHandler) Get(w http.ResponseWriter, r *http.Request) {
	orgID, ok := scopedOrganization(w, r)
	if !ok {
		return
	}

	settings, err := h.ent.ResolveEffectiveSettings(r.Context(), orgID)
	if err != nil {
		writeEntitlementError(w, r, err, "Failed to resolve entitlements")
		return
	}

	resp := settingsResponse{
		OrganizationID: orgID.String(),
		Tier: tierRef{
			ID:          settings.Tier.ID.String(),
			Slug:        settings.Tier.Slug,
			DisplayName: settings.Tier.DisplayName,
			Version:     settings.Tier.Version,
		},
		UsesDefaultTier: settings.Override == nil,
		Effective:       settings.Effective,
	}
	if o := settings.Override; o != nil {
		pinned := o.TierVersion
		resp.PinnedVersion = &pinned
		resp.HasCustomPricing = o.HasCustomPricing
		resp.HasCustomLimits = o.HasCustomLimits
	}

	response.Success(w, http.StatusOK, resp, middleware.GetRequestID(r.Context()))
}

// Usage handles GET /organizations/{id}/usage.
func (h *EntitlementHandler) Usage(w http.ResponseWriter, r *http.Request) {
	orgID, ok := scopedOrganization(w, r)
	if !ok {
		return
	}

	usage, err := h.ent.Usage(r.Context(), orgID)
	if err != nil {
		writeEntitlementError(w, r, err, "Failed to count usage")
		return
	}

	response.Success(w, http.StatusOK, usage, middleware.GetRequestID(r.Context()))
}

// Limits handles GET /organizations/{id}/limits.
func (h *EntitlementHandler) Limits(w http.ResponseWriter, r *http.Request) {
	orgID, ok := scopedOrganization(w, r)
	if !ok {
		return
	}

	report, err := h.ent.CheckLimits(r.Context(), orgID)
	if err != nil {
		writeEntitlementError(w, r, err, "Failed to check limits")
		return
	}

	response.Success(w, http.StatusOK, limitsResponse{LimitReport: report, Messages: report.Messages()},
		middleware.GetRequestID(r.Context()))
}

// CanAdd handles GET /organizations/{id}/can-add/{resource}. The answer is
// advisory; creation re-checks under the organization lock.
func (h *EntitlementHandler) CanAdd(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	orgID, ok := scopedOrganization(w, r)
	if !ok {
		return
	}

	resource, err := tier.ParseResource(chi.URLParam(r, "resource"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_RESOURCE", err.Error(), requestID)
		return
	}

	c, err := h.ent.Capacity(r.Context(), orgID, resource)
	if err != nil {
		writeEntitlementError(w, r, err, "Failed to check capacity")
		return
	}

	response.Success(w, http.StatusOK, canAddResponse{Capacity: c, CanAdd: c.CanAdd()}, requestID)
}

// Features handles GET /organizations/{id}/features. An optional
// comma-separated ?keys= narrows the result; every key is judged against the
// same resolved settings.
func (h *EntitlementHandler) Features(w http.ResponseWriter, r *http.Request) {
	orgID, ok := scopedOrganization(w, r)
	if !ok {
		return
	}

	var keys []string
	for _, k := range strings.Split(r.URL.Query().Get("keys"), ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}

	statuses, err := h.ent.FeatureStatuses(r.Context(), orgID, keys...)
	if err != nil {
		writeEntitlementError(w, r, err, "Failed to check features")
		return
	}

	if len(keys) == 0 {
		keys = make([]string, 0, len(statuses))
		for _, f := range h.ent.Catalog().All() {
			if _, ok := statuses[f.Key]; ok {
				keys = append(keys, f.Key)
			}
		}
	}

	items := make([]featureResponse, 0, len(keys))
	for _, k := range keys {
		items = append(items, h.describe(k, statuses[k]))
	}
	response.SuccessList(w, http.StatusOK, items, len(items), middleware.GetRequestID(r.Context()))
}

// Feature handles GET /organizations/{id}/features/{key}.
func (h *EntitlementHandler) Feature(w http.ResponseWriter, r *http.Request) {
	orgID, ok := scopedOrganization(w, r)
	if !ok {
		return
	}

	key := chi.URLParam(r, "key")
	status, err := h.ent.FeatureStatus(r.Context(), orgID, key)
	if err != nil {
		writeEntitlementError(w, r, err, "Failed to check feature")
		return
	}

	response.Success(w, http.StatusOK, h.describe(key, status), middleware.GetRequestID(r.Context()))
}

func (h *EntitlementHandler) describe(key string, status entitlement.Status) featureResponse {
	resp := featureResponse{Key: key, Status: status}
	if f, ok := h.ent.Catalog().Get(key); ok {
		resp.Name = f.Name
		resp.UpgradeType = string(f.UpgradeType)
		resp.MinimumTier = f.MinimumTier
	}
	return resp
}

type capacityReport struct {
	Resources []canAddResponse `json:"resources"`
}

// CapacityReport handles GET /organizations/{id}/reports/capacity: current
// usage against the add-on-aware cap for every resource type.
func (h *EntitlementHandler) CapacityReport(w http.ResponseWriter, r *http.Request) {
	orgID, ok := scopedOrganization(w, r)
	if !ok {
		return
	}

	all, err := h.ent.CapacityAll(r.Context(), orgID)
	if err != nil {
		writeEntitlementError(w, r, err, "Failed to build capacity report")
		return
	}

	report := capacityReport{Resources: make([]canAddResponse, 0, len(all))}
	for _, c := range all {
		report.Resources = append(report.Resources, canAddResponse{Capacity: c, CanAdd: c.CanAdd()})
	}

	response.Success(w, http.StatusOK, report, middleware.GetRequestID(r.Context()))
}
