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
	"github.com/rentdesk/rentdesk/internal/organization"
)

type organizationResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func toOrganizationResponse(o *organization.Organization) organizationResponse {
	return organizationResponse{
		ID:        o.ID.String(),
		Name:      o.Name,
		CreatedAt: o.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt: o.UpdatedAt.UTC().Format(timeFormat),
	}
}

// OrganizationHandler handles organization endpoints.
type OrganizationHandler struct {
	repo organization.Repository
}

// NewOrganizationHandler creates a new OrganizationHandler.
func NewOrganizationHandler(repo organization.Repository) *OrganizationHandler {
	return &OrganizationHandler{repo: repo}
}

// Create handles POST /organizations.
func (h *OrganizationHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req validation.CreateOrganizationRequest
	if !decodeBody(w, r, &req) {
		return
	}

	o := &organization.Organization{Name: strings.TrimSpace(req.Name)}
	if err := h.repo.Create(r.Context(), o); err != nil {
		if errors.Is(err, organization.ErrDuplicateOrganizationName) {
			response.Err(w, http.StatusConflict, "DUPLICATE_NAME", fmt.Sprintf("An organization named %q already exists", o.Name), requestID)
			return
		}
		slog.Error("failed to create organization", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create organization", requestID)
		return
	}

	response.Success(w, http.StatusCreated, toOrganizationResponse(o), requestID)
}

// List handles GET /organizations.
func (h *OrganizationHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	orgs, err := h.repo.List(r.Context())
	if err != nil {
		slog.Error("failed to list organizations", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list organizations", requestID)
		return
	}

	items := make([]organizationResponse, 0, len(orgs))
	for i := range orgs {
		items = append(items, toOrganizationResponse(&orgs[i]))
	}
	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// Delete handles DELETE /organizations/{id}.
func (h *OrganizationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, organization.ErrOrganizationNotFound):
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Organization not found", requestID)
		case errors.Is(err, organization.ErrOrganizationHasUsers):
			response.Err(w, http.StatusConflict, "ORGANIZATION_HAS_USERS", "Cannot delete an organization that still has users", requestID)
		default:
			slog.Error("failed to delete organization", "error", err, "id", id)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete organization", requestID)
		}
		return
	}

	response.NoContent(w)
}
