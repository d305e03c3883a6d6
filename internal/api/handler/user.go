package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/rentdesk/rentdesk/internal/api/middleware"
	"github.com/rentdesk/rentdesk/internal/api/response"
	"github.com/rentdesk/rentdesk/internal/api/validation"
	"github.com/rentdesk/rentdesk/internal/auth"
	"github.com/rentdesk/rentdesk/internal/database"
	"github.com/rentdesk/rentdesk/internal/events"
	"github.com/rentdesk/rentdesk/internal/organization"
	"github.com/rentdesk/rentdesk/internal/tier"
)

// KeyGenerator issues API keys. *auth.Service implements it.
type KeyGenerator interface {
	GenerateKey() (rawKey, prefix, hash string, err error)
}

type userResponse struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	OrganizationID   *string `json:"organizationId,omitempty"`
	OrganizationName *string `json:"organizationName,omitempty"`
	ApiKeyPrefix     string  `json:"apiKeyPrefix"`
	IsSuperuser      bool    `json:"isSuperuser"`
	CreatedAt        string  `json:"createdAt"`
	RevokedAt        *string `json:"revokedAt,omitempty"`
}

type userWithKeyResponse struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	OrganizationID   string `json:"organizationId"`
	OrganizationName string `json:"organizationName"`
	ApiKey           string `json:"apiKey"`
	CreatedAt        string `json:"createdAt"`
}

// UserHandler handles user endpoints. Users count against the max_users cap
// of their organization.
type UserHandler struct {
	keys    KeyGenerator
	users   auth.UserRepository
	txUsers func(q database.Querier) auth.UserRepository
	orgs    organization.Repository
	ent     Entitlements
	events  events.Publisher
}

// NewUserHandler creates a new UserHandler. users serves reads outside a
// transaction; txUsers binds a repository to the guard transaction.
func NewUserHandler(keys KeyGenerator, users auth.UserRepository, txUsers func(q database.Querier) auth.UserRepository, orgs organization.Repository, ent Entitlements, publisher events.Publisher) *UserHandler {
	return &UserHandler{
		keys:    keys,
		users:   users,
		txUsers: txUsers,
		orgs:    orgs,
		ent:     ent,
		events:  publisher,
	}
}

// Create handles POST /users.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req validation.CreateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}

	orgID, _ := uuid.Parse(req.OrganizationID) // already validated

	org, err := h.orgs.GetByID(r.Context(), orgID)
	if err != nil {
		if errors.Is(err, organization.ErrOrganizationNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Organization not found", requestID)
			return
		}
		slog.Error("failed to get organization", "error", err, "organizationId", orgID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create user", requestID)
		return
	}

	rawKey, prefix, hash, err := h.keys.GenerateKey()
	if err != nil {
		slog.Error("failed to generate API key", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create user", requestID)
		return
	}

	u := &auth.User{
		Name:           strings.TrimSpace(req.Name),
		OrganizationID: &orgID,
		ApiKeyPrefix:   prefix,
		ApiKeyHash:     hash,
	}

	err = h.ent.Guard(r.Context(), orgID, tier.ResourceUser, func(q database.Querier) error {
		return h.txUsers(q).Create(r.Context(), u)
	})
	if err != nil {
		writeEntitlementError(w, r, err, "Failed to create user")
		return
	}

	events.Notify(r.Context(), h.events, events.ForOrganization(events.InventoryModified, orgID))
	response.Success(w, http.StatusCreated, userWithKeyResponse{
		ID:               u.ID.String(),
		Name:             u.Name,
		OrganizationID:   orgID.String(),
		OrganizationName: org.Name,
		ApiKey:           rawKey,
		CreatedAt:        u.CreatedAt.UTC().Format(timeFormat),
	}, requestID)
}

// List handles GET /users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	users, err := h.users.List(r.Context())
	if err != nil {
		slog.Error("failed to list users", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list users", requestID)
		return
	}

	items := make([]userResponse, 0, len(users))
	for i := range users {
		u := &users[i]
		resp := userResponse{
			ID:               u.ID.String(),
			Name:             u.Name,
			OrganizationName: u.OrganizationName,
			ApiKeyPrefix:     u.ApiKeyPrefix,
			IsSuperuser:      u.IsSuperuser,
			CreatedAt:        u.CreatedAt.UTC().Format(timeFormat),
		}
		if u.OrganizationID != nil {
			oid := u.OrganizationID.String()
			resp.OrganizationID = &oid
		}
		if u.RevokedAt != nil {
			revoked := u.RevokedAt.UTC().Format(timeFormat)
			resp.RevokedAt = &revoked
		}
		items = append(items, resp)
	}

	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// Delete handles DELETE /users/{id} (soft-revoke). A revoked user frees a
// seat under the organization's user cap.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	u, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "User not found", requestID)
			return
		}
		slog.Error("failed to get user", "error", err, "id", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to revoke user", requestID)
		return
	}

	if u.IsSuperuser {
		response.Err(w, http.StatusForbidden, "FORBIDDEN", "Cannot revoke the superuser", requestID)
		return
	}

	if err := h.users.Revoke(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, auth.ErrUserNotFound):
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "User not found", requestID)
		case errors.Is(err, auth.ErrUserRevoked):
			response.NoContent(w)
		default:
			slog.Error("failed to revoke user", "error", err, "id", id)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to revoke user", requestID)
		}
		return
	}

	if u.OrganizationID != nil {
		events.Notify(r.Context(), h.events, events.ForOrganization(events.InventoryModified, *u.OrganizationID))
	}
	response.NoContent(w)
}
