package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rentdesk/rentdesk/internal/api/middleware"
	"github.com/rentdesk/rentdesk/internal/api/response"
	"github.com/rentdesk/rentdesk/internal/api/validation"
	"github.com/rentdesk/rentdesk/internal/events"
	"github.com/rentdesk/rentdesk/internal/tier"
)

// tierResponse is the full API representation (superusers).
type tierResponse struct {
	ID           string          `json:"id"`
	Slug         string          `json:"slug"`
	DisplayName  string          `json:"displayName"`
	Description  string          `json:"description"`
	MonthlyPrice int64           `json:"monthlyPrice"`
	AnnualPrice  int64           `json:"annualPrice"`
	Limits       tier.Limits     `json:"limits"`
	Features     map[string]bool `json:"features"`
	Version      int             `json:"version"`
	IsActive     bool            `json:"isActive"`
	CreatedAt    string          `json:"createdAt"`
	UpdatedAt    string          `json:"updatedAt"`
}

// tierSummaryResponse is what organization users see when comparing plans.
type tierSummaryResponse struct {
	ID           string          `json:"id"`
	Slug         string          `json:"slug"`
	DisplayName  string          `json:"displayName"`
	Description  string          `json:"description"`
	MonthlyPrice int64           `json:"monthlyPrice"`
	AnnualPrice  int64           `json:"annualPrice"`
	Limits       tier.Limits     `json:"limits"`
	Features     map[string]bool `json:"features"`
}

type tierVersionResponse struct {
	Version    int          `json:"version"`
	Snapshot   tierResponse `json:"snapshot"`
	RecordedAt string       `json:"recordedAt"`
}

func toTierResponse(t *tier.Tier) tierResponse {
	return tierResponse{
		ID:           t.ID.String(),
		Slug:         t.Slug,
		DisplayName:  t.DisplayName,
		Description:  t.Description,
		MonthlyPrice: t.MonthlyPrice,
		AnnualPrice:  t.AnnualPrice,
		Limits:       t.Limits,
		Features:     t.Features,
		Version:      t.Version,
		IsActive:     t.IsActive,
		CreatedAt:    t.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt:    t.UpdatedAt.UTC().Format(timeFormat),
	}
}

func toTierSummaryResponse(t *tier.Tier) tierSummaryResponse {
	return tierSummaryResponse{
		ID:           t.ID.String(),
		Slug:         t.Slug,
		DisplayName:  t.DisplayName,
		Description:  t.Description,
		MonthlyPrice: t.MonthlyPrice,
		AnnualPrice:  t.AnnualPrice,
		Limits:       t.Limits,
		Features:     t.Features,
	}
}

// TierHandler handles tier CRUD endpoints.
type TierHandler struct {
	repo   tier.Repository
	events events.Publisher
}

// NewTierHandler creates a new TierHandler.
func NewTierHandler(repo tier.Repository, publisher events.Publisher) *TierHandler {
	return &TierHandler{repo: repo, events: publisher}
}

// Create handles POST /tiers.
func (h *TierHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req validation.CreateTierRequest
	if !decodeBody(w, r, &req) {
		return
	}

	t := &tier.Tier{
		Slug:         strings.TrimSpace(req.Slug),
		DisplayName:  strings.TrimSpace(req.DisplayName),
		Description:  req.Description,
		MonthlyPrice: req.MonthlyPrice,
		AnnualPrice:  req.AnnualPrice,
		Limits: tier.Limits{
			MaxBusinesses:     *req.Limits.MaxBusinesses,
			MaxProperties:     *req.Limits.MaxProperties,
			MaxUnits:          *req.Limits.MaxUnits,
			MaxTenants:        *req.Limits.MaxTenants,
			MaxUsers:          *req.Limits.MaxUsers,
			MaxPaymentMethods: *req.Limits.MaxPaymentMethods,
		},
		Features: req.Features,
		IsActive: req.IsActive == nil || *req.IsActive,
	}

	if err := h.repo.Create(r.Context(), t); err != nil {
		if errors.Is(err, tier.ErrDuplicateTierSlug) {
			response.Err(w, http.StatusConflict, "DUPLICATE_SLUG", fmt.Sprintf("A tier with slug %q already exists", t.Slug), requestID)
			return
		}
		slog.Error("failed to create tier", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create tier", requestID)
		return
	}

	response.Success(w, http.StatusCreated, toTierResponse(t), requestID)
}

// List handles GET /tiers. Organization users see active tiers only, in
// summary form.
func (h *TierHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	tiers, err := h.repo.List(r.Context())
	if err != nil {
		slog.Error("failed to list tiers", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list tiers", requestID)
		return
	}

	if !isSuperuser(r) {
		items := make([]tierSummaryResponse, 0, len(tiers))
		for i := range tiers {
			if tiers[i].IsActive {
				items = append(items, toTierSummaryResponse(&tiers[i]))
			}
		}
		response.SuccessList(w, http.StatusOK, items, len(items), requestID)
		return
	}

	items := make([]tierResponse, 0, len(tiers))
	for i := range tiers {
		items = append(items, toTierResponse(&tiers[i]))
	}
	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// GetByID handles GET /tiers/{id}.
func (h *TierHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	t, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, tier.ErrTierNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Tier not found", requestID)
			return
		}
		slog.Error("failed to get tier", "error", err, "id", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get tier", requestID)
		return
	}

	if !isSuperuser(r) {
		if !t.IsActive {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Tier not found", requestID)
			return
		}
		response.Success(w, http.StatusOK, toTierSummaryResponse(t), requestID)
		return
	}

	response.Success(w, http.StatusOK, toTierResponse(t), requestID)
}

// Update handles PATCH /tiers/{id}. The body must carry the version the
// caller last read; a stale version is rejected with 409.
func (h *TierHandler) Update(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req validation.UpdateTierRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.DisplayName != nil {
		trimmed := strings.TrimSpace(*req.DisplayName)
		req.DisplayName = &trimmed
	}

	fields := tier.UpdateFields{
		DisplayName:       req.DisplayName,
		Description:       req.Description,
		MonthlyPrice:      req.MonthlyPrice,
		AnnualPrice:       req.AnnualPrice,
		MaxBusinesses:     req.MaxBusinesses,
		MaxProperties:     req.MaxProperties,
		MaxUnits:          req.MaxUnits,
		MaxTenants:        req.MaxTenants,
		MaxUsers:          req.MaxUsers,
		MaxPaymentMethods: req.MaxPaymentMethods,
		Features:          req.Features,
		IsActive:          req.IsActive,
	}

	t, err := h.repo.Update(r.Context(), id, req.ExpectedVersion, fields)
	if err != nil {
		switch {
		case errors.Is(err, tier.ErrTierNotFound):
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Tier not found", requestID)
		case errors.Is(err, tier.ErrVersionConflict):
			response.Err(w, http.StatusConflict, "VERSION_CONFLICT", "Tier was modified by someone else; reload and retry", requestID)
		default:
			slog.Error("failed to update tier", "error", err, "id", id)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update tier", requestID)
		}
		return
	}

	if !fields.IsEmpty() {
		events.Notify(r.Context(), h.events, events.ForTier(events.TierUpdated, t.ID))
	}
	response.Success(w, http.StatusOK, toTierResponse(t), requestID)
}

// Versions handles GET /tiers/{id}/versions.
func (h *TierHandler) Versions(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	versions, err := h.repo.ListVersions(r.Context(), id)
	if err != nil {
		if errors.Is(err, tier.ErrTierNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Tier not found", requestID)
			return
		}
		slog.Error("failed to list tier versions", "error", err, "id", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list tier versions", requestID)
		return
	}

	items := make([]tierVersionResponse, 0, len(versions))
	for i := range versions {
		v := &versions[i]
		items = append(items, tierVersionResponse{
			Version:    v.Version,
			Snapshot:   toTierResponse(&v.Snapshot),
			RecordedAt: v.CreatedAt.UTC().Format(timeFormat),
		})
	}
	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// Delete handles DELETE /tiers/{id}. Tiers with subscribers must be
// deactivated instead.
func (h *TierHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, tier.ErrTierNotFound):
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Tier not found", requestID)
		case errors.Is(err, tier.ErrTierHasSubscribers):
			response.Err(w, http.StatusConflict, "TIER_HAS_SUBSCRIBERS", "Cannot delete a tier organizations subscribe to; deactivate it instead", requestID)
		default:
			slog.Error("failed to delete tier", "error", err, "id", id)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete tier", requestID)
		}
		return
	}

	events.Notify(r.Context(), h.events, events.ForTier(events.TierDeleted, id))
	response.NoContent(w)
}

func isSuperuser(r *http.Request) bool {
	identity := middleware.GetIdentity(r.Context())
	return identity != nil && identity.IsSuperuser
}
