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
	"github.com/rentdesk/rentdesk/internal/database"
	"github.com/rentdesk/rentdesk/internal/events"
	"github.com/rentdesk/rentdesk/internal/inventory"
	"github.com/rentdesk/rentdesk/internal/tier"
)

// Route parameter carrying the id of a row of each kind.
var idParams = map[inventory.Kind]string{
	tier.ResourceBusiness: "businessId",
	tier.ResourceProperty: "propertyId",
	tier.ResourceUnit:     "unitId",
	tier.ResourceTenant:   "tenantId",
}

// IDParam returns the route parameter name used for the id of kind.
func IDParam(kind inventory.Kind) string {
	return idParams[kind]
}

type inventoryItemResponse struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	ParentID  string `json:"parentId"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
}

// InventoryHandler creates and soft-deletes businesses, properties, units and
// tenant access rows. Every create is cap-checked under the organization lock.
type InventoryHandler struct {
	ent    Entitlements
	repo   inventory.Repository
	txRepo func(q database.Querier) inventory.Repository
	events events.Publisher
}

// NewInventoryHandler creates a new InventoryHandler. repo serves reads
// outside a transaction; txRepo binds a repository to the guard transaction.
func NewInventoryHandler(ent Entitlements, repo inventory.Repository, txRepo func(q database.Querier) inventory.Repository, publisher events.Publisher) *InventoryHandler {
	return &InventoryHandler{ent: ent, repo: repo, txRepo: txRepo, events: publisher}
}

// Create returns the handler for POST on the collection of kind. Businesses
// hang off the organization; every other kind off a parent named in the path.
func (h *InventoryHandler) Create(kind inventory.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetRequestID(r.Context())

		orgID, ok := scopedOrganization(w, r)
		if !ok {
			return
		}

		parentID := orgID
		parentKind, hasParent := inventory.ParentKind(kind)
		if hasParent {
			if parentID, ok = pathID(w, r, IDParam(parentKind)); !ok {
				return
			}
			if !h.owned(w, r, parentKind, parentID, orgID) {
				return
			}
		}

		var req validation.CreateInventoryItemRequest
		if !decodeBody(w, r, &req) {
			return
		}

		item := &inventory.Item{Kind: kind, ParentID: parentID, Name: strings.TrimSpace(req.Name)}
		err := h.ent.Guard(r.Context(), orgID, kind, func(q database.Querier) error {
			repo := h.txRepo(q)
			if hasParent {
				owner, err := repo.OrganizationOf(r.Context(), parentKind, parentID)
				if err != nil {
					return err
				}
				if owner != orgID {
					return inventory.ErrNotFound
				}
			}
			return repo.Create(r.Context(), item)
		})
		if err != nil {
			if errors.Is(err, inventory.ErrNotFound) {
				response.Err(w, http.StatusNotFound, "NOT_FOUND", notFoundMessage(parentKind), requestID)
				return
			}
			writeEntitlementError(w, r, err, "Failed to create "+string(kind))
			return
		}

		events.Notify(r.Context(), h.events, events.ForOrganization(events.InventoryModified, orgID))
		response.Success(w, http.StatusCreated, inventoryItemResponse{
			ID:        item.ID.String(),
			Kind:      string(item.Kind),
			ParentID:  item.ParentID.String(),
			Name:      item.Name,
			CreatedAt: item.CreatedAt.UTC().Format(timeFormat),
		}, requestID)
	}
}

// Delete returns the handler for DELETE on a row of kind. The row is
// soft-deleted and stops counting against limits immediately.
func (h *InventoryHandler) Delete(kind inventory.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetRequestID(r.Context())

		orgID, ok := scopedOrganization(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, IDParam(kind))
		if !ok {
			return
		}
		if !h.owned(w, r, kind, id, orgID) {
			return
		}

		if err := h.repo.SoftDelete(r.Context(), kind, id); err != nil {
			if errors.Is(err, inventory.ErrNotFound) {
				response.Err(w, http.StatusNotFound, "NOT_FOUND", notFoundMessage(kind), requestID)
				return
			}
			slog.Error("failed to delete inventory item", "error", err, "kind", kind, "id", id)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete "+string(kind), requestID)
			return
		}

		events.Notify(r.Context(), h.events, events.ForOrganization(events.InventoryModified, orgID))
		response.NoContent(w)
	}
}

// owned writes 404 unless the active row belongs to orgID.
func (h *InventoryHandler) owned(w http.ResponseWriter, r *http.Request, kind inventory.Kind, id, orgID uuid.UUID) bool {
	requestID := middleware.GetRequestID(r.Context())

	owner, err := h.repo.OrganizationOf(r.Context(), kind, id)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", notFoundMessage(kind), requestID)
			return false
		}
		slog.Error("failed to resolve inventory owner", "error", err, "kind", kind, "id", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to resolve "+string(kind), requestID)
		return false
	}
	if owner != orgID {
		response.Err(w, http.StatusNotFound, "NOT_FOUND", notFoundMessage(kind), requestID)
		return false
	}
	return true
}

func notFoundMessage(kind inventory.Kind) string {
	return strings.ToUpper(string(kind[:1])) + string(kind[1:]) + " not found"
}
