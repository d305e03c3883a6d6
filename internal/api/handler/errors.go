package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rentdesk/rentdesk/internal/addon"
	"github.com/rentdesk/rentdesk/internal/api/middleware"
	"github.com/rentdesk/rentdesk/internal/api/response"
	"github.com/rentdesk/rentdesk/internal/api/validation"
	"github.com/rentdesk/rentdesk/internal/entitlement"
	"github.com/rentdesk/rentdesk/internal/organization"
)

const maxBodyBytes = 1 << 20

const timeFormat = "2006-01-02T15:04:05Z"

// decodeBody reads a JSON body into dst and validates it. On failure the
// error response has been written and false is returned.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	requestID := middleware.GetRequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return false
	}

	if fieldErrors := validation.Struct(dst); len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return false
	}
	return true
}

// pathID parses the URL parameter name as a UUID, writing 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", name+" must be a valid UUID", middleware.GetRequestID(r.Context()))
		return uuid.Nil, false
	}
	return id, true
}

// scopedOrganization returns the organization set by RequireOrganizationAccess.
func scopedOrganization(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	orgID, ok := middleware.GetOrganizationID(r.Context())
	if !ok {
		slog.Error("organization scope missing", "path", r.URL.Path)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Organization scope missing", middleware.GetRequestID(r.Context()))
	}
	return orgID, ok
}

// limitDetails is the error detail of LIMIT_REACHED.
type limitDetails struct {
	Resource string `json:"resource"`
	Current  int    `json:"current"`
	Max      int    `json:"max"`
}

// writeEntitlementError maps the errors shared by every entitlement-aware
// endpoint. Anything unrecognised is logged and answered with 500 and
// failMessage.
func writeEntitlementError(w http.ResponseWriter, r *http.Request, err error, failMessage string) {
	requestID := middleware.GetRequestID(r.Context())

	var limitErr *entitlement.LimitReachedError
	switch {
	case errors.As(err, &limitErr):
		response.ErrWithDetails(w, http.StatusPaymentRequired, "LIMIT_REACHED",
			limitErr.Resource.DisplayName()+" limit reached",
			limitDetails{Resource: string(limitErr.Resource), Current: limitErr.Current, Max: limitErr.Max},
			requestID)
	case errors.Is(err, entitlement.ErrNoTierConfigured):
		response.Err(w, http.StatusConflict, "NO_TIER_CONFIGURED", "Organization has no tier configured", requestID)
	case errors.Is(err, entitlement.ErrTierNotFound):
		response.Err(w, http.StatusConflict, "TIER_NOT_FOUND", "Organization tier is missing or inactive", requestID)
	case errors.Is(err, organization.ErrOrganizationNotFound):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Organization not found", requestID)
	case errors.Is(err, addon.ErrProductNotFound):
		response.Err(w, http.StatusNotFound, "ADDON_PRODUCT_NOT_FOUND", "Add-on product not found", requestID)
	case errors.Is(err, addon.ErrInvalidQuantity):
		response.Err(w, http.StatusBadRequest, "INVALID_QUANTITY", "quantity must be between 1 and 2147483647", requestID)
	default:
		slog.Error("entitlement request failed", "error", err, "path", r.URL.Path, "requestId", requestID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", failMessage, requestID)
	}
}
