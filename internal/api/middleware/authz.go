package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rentdesk/rentdesk/internal/api/response"
)

const organizationKey contextKey = "organizationID"

// RequireSuperuser returns middleware that rejects non-superuser identities with 403.
func RequireSuperuser() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			identity := GetIdentity(r.Context())
			if identity == nil {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "API key is required", requestID)
				return
			}

			if !identity.IsSuperuser {
				response.Err(w, http.StatusForbidden, "FORBIDDEN", "Superuser access required", requestID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireOrganizationAccess returns middleware that reads the organization id
// from the URL parameter param and admits superusers and members of that
// organization. The id is stored for GetOrganizationID.
func RequireOrganizationAccess(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			identity := GetIdentity(r.Context())
			if identity == nil {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "API key is required", requestID)
				return
			}

			orgID, err := uuid.Parse(chi.URLParam(r, param))
			if err != nil {
				response.Err(w, http.StatusBadRequest, "INVALID_ID", param+" must be a valid UUID", requestID)
				return
			}

			// Foreign organizations answer 404 so their ids cannot be discovered.
			if !identity.CanAccess(orgID) {
				response.Err(w, http.StatusNotFound, "NOT_FOUND", "Organization not found", requestID)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithOrganizationID(r.Context(), orgID)))
		})
	}
}

// WithOrganizationID returns a copy of ctx scoped to orgID.
func WithOrganizationID(ctx context.Context, orgID uuid.UUID) context.Context {
	return context.WithValue(ctx, organizationKey, orgID)
}

// GetOrganizationID returns the organization the request is scoped to.
func GetOrganizationID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(organizationKey).(uuid.UUID)
	return id, ok
}
