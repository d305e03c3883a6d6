package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/rentdesk/rentdesk/internal/api/response"
	"github.com/rentdesk/rentdesk/internal/entitlement"
)

// FeatureChecker gates one feature for an organization. *entitlement.Service
// implements it.
type FeatureChecker interface {
	FeatureStatus(ctx context.Context, orgID uuid.UUID, key string) (entitlement.Status, error)
}

// featureDenial is the error detail of FEATURE_NOT_ENABLED. Status tells the
// client whether to offer an add-on or a tier upgrade.
type featureDenial struct {
	Feature string             `json:"feature"`
	Status  entitlement.Status `json:"status"`
}

// RequireFeature returns middleware that lets the request through only when
// key is active for the request's organization. It must run after
// RequireOrganizationAccess.
func RequireFeature(checker FeatureChecker, key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			orgID, ok := GetOrganizationID(r.Context())
			if !ok {
				slog.Error("feature gate without organization scope", "feature", key, "requestId", requestID)
				response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to check feature", requestID)
				return
			}

			status, err := checker.FeatureStatus(r.Context(), orgID, key)
			if err != nil {
				switch {
				case errors.Is(err, entitlement.ErrNoTierConfigured):
					response.Err(w, http.StatusConflict, "NO_TIER_CONFIGURED", "Organization has no tier configured", requestID)
				case errors.Is(err, entitlement.ErrTierNotFound):
					response.Err(w, http.StatusConflict, "TIER_NOT_FOUND", "Organization tier is missing or inactive", requestID)
				default:
					slog.Error("failed to check feature", "error", err, "feature", key, "organizationId", orgID)
					response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to check feature", requestID)
				}
				return
			}

			if status != entitlement.StatusActive {
				response.ErrWithDetails(w, http.StatusForbidden, "FEATURE_NOT_ENABLED",
					"Feature is not enabled for this organization",
					featureDenial{Feature: key, Status: status}, requestID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
