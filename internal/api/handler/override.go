package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/rentdesk/rentdesk/internal/api/middleware"
	"github.com/rentdesk/rentdesk/internal/api/response"
	"github.com/rentdesk/rentdesk/internal/api/validation"
	"github.com/rentdesk/rentdesk/internal/entitlement"
	"github.com/rentdesk/rentdesk/internal/events"
	"github.com/rentdesk/rentdesk/internal/organization"
	"github.com/rentdesk/rentdesk/internal/override"
	"github.com/rentdesk/rentdesk/internal/tier"
)

var errInactiveTier = errors.New("tier is inactive")

type overrideResponse struct {
	OrganizationID     string                `json:"organizationId"`
	TierID             string                `json:"tierId"`
	TierVersion        int                   `json:"tierVersion"`
	CustomMonthlyPrice *int64                `json:"customMonthlyPrice"`
	CustomAnnualPrice  *int64                `json:"customAnnualPrice"`
	CustomLimits       override.CustomLimits `json:"customLimits"`
	CustomFeatures     map[string]bool       `json:"customFeatures"`
	HasCustomPricing   bool                  `json:"hasCustomPricing"`
	HasCustomLimits    bool                  `json:"hasCustomLimits"`
	UpdatedAt          string                `json:"updatedAt"`
}

func toOverrideResponse(o *override.Override) overrideResponse {
	return overrideResponse{
		OrganizationID:     o.OrganizationID.String(),
		TierID:             o.TierID.String(),
		TierVersion:        o.TierVersion,
		CustomMonthlyPrice: o.CustomMonthlyPrice,
		CustomAnnualPrice:  o.CustomAnnualPrice,
		CustomLimits:       o.CustomLimits,
		CustomFeatures:     o.CustomFeatures,
		HasCustomPricing:   o.HasCustomPricing,
		HasCustomLimits:    o.HasCustomLimits,
		UpdatedAt:          o.UpdatedAt.UTC().Format(timeFormat),
	}
}

// OverrideHandler manages the tier subscription and custom values of an organization.
type OverrideHandler struct {
	ent       Entitlements
	overrides override.Repository
	events    events.Publisher
}

// NewOverrideHandler creates a new OverrideHandler. overrides serves reads
// outside the organization lock.
func NewOverrideHandler(ent Entitlements, overrides override.Repository, publisher events.Publisher) *OverrideHandler {
	return &OverrideHandler{ent: ent, overrides: overrides, events: publisher}
}

// Put handles PUT /organizations/{id}/override. The override pins the tier's
// current version.
func (h *OverrideHandler) Put(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	orgID, ok := scopedOrganization(w, r)
	if !ok {
		return
	}

	var req validation.UpsertOverrideRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tierID, _ := uuid.Parse(req.TierID) // already validated

	o := &override.Override{
		OrganizationID:     orgID,
		TierID:             tierID,
		CustomMonthlyPrice: req.CustomMonthlyPrice,
		CustomAnnualPrice:  req.CustomAnnualPrice,
		CustomLimits: override.CustomLimits{
			MaxBusinesses:     req.CustomLimits.MaxBusinesses,
			MaxProperties:     req.CustomLimits.MaxProperties,
			MaxUnits:          req.CustomLimits.MaxUnits,
			MaxTenants:        req.CustomLimits.MaxTenants,
			MaxUsers:          req.CustomLimits.MaxUsers,
			MaxPaymentMethods: req.CustomLimits.MaxPaymentMethods,
		},
		CustomFeatures: req.CustomFeatures,
	}
	o.RefreshHints()

	err := h.ent.Locked(r.Context(), orgID, func(src entitlement.Sources) error {
		return upsertOverride(r.Context(), src, o)
	})
	if err != nil {
		switch {
		case errors.Is(err, tier.ErrTierNotFound), errors.Is(err, override.ErrUnknownReference):
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Tier not found", requestID)
		case errors.Is(err, errInactiveTier):
			response.Err(w, http.StatusConflict, "TIER_INACTIVE", "Cannot subscribe an organization to an inactive tier", requestID)
		case errors.Is(err, organization.ErrOrganizationNotFound):
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Organization not found", requestID)
		default:
			slog.Error("failed to upsert override", "error", err, "organizationId", orgID)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save override", requestID)
		}
		return
	}

	events.Notify(r.Context(), h.events, events.ForOrganization(events.OverrideUpserted, orgID))
	response.Success(w, http.StatusOK, toOverrideResponse(o), requestID)
}

func upsertOverride(ctx context.Context, src entitlement.Sources, o *override.Override) error {
	t, err := src.Tiers.GetByID(ctx, o.TierID)
	if err != nil {
		return err
	}
	if !t.IsActive {
		return errInactiveTier
	}
	o.TierVersion = t.Version
	return src.Overrides.Upsert(ctx, o)
}

// Get handles GET /organizations/{id}/override.
func (h *OverrideHandler) Get(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	orgID, ok := scopedOrganization(w, r)
	if !ok {
		return
	}

	o, err := h.overrides.GetByOrganization(r.Context(), orgID)
	if err != nil {
		if errors.Is(err, override.ErrOverrideNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Organization has no override", requestID)
			return
		}
		slog.Error("failed to get override", "error", err, "organizationId", orgID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get override", requestID)
		return
	}

	response.Success(w, http.StatusOK, toOverrideResponse(o), requestID)
}

// Delete handles DELETE /organizations/{id}/override. Afterwards the
// organization resolves to the default tier, if one is configured.
func (h *OverrideHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	orgID, ok := scopedOrganization(w, r)
	if !ok {
		return
	}

	err := h.ent.Locked(r.Context(), orgID, func(src entitlement.Sources) error {
		return src.Overrides.Delete(r.Context(), orgID)
	})
	if err != nil {
		switch {
		case errors.Is(err, override.ErrOverrideNotFound):
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Organization has no override", requestID)
		case errors.Is(err, organization.ErrOrganizationNotFound):
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Organization not found", requestID)
		default:
			slog.Error("failed to delete override", "error", err, "organizationId", orgID)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete override", requestID)
		}
		return
	}

	events.Notify(r.Context(), h.events, events.ForOrganization(events.OverrideDeleted, orgID))
	response.NoContent(w)
}
