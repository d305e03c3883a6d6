package inventory

import (
	"time"

	"github.com/google/uuid"

	"github.com/rentdesk/rentdesk/internal/tier"
)

// Kind identifies an inventory table. Each kind maps to one capped resource.
type Kind = tier.Resource

// Item is a row in one of the inventory tables. ParentID is the owning
// organization, business, property or unit depending on the kind.
type Item struct {
	ID        uuid.UUID
	Kind      Kind
	ParentID  uuid.UUID
	Name      string
	CreatedAt time.Time
	DeletedAt *time.Time
}

// parentOf maps each creatable kind to the kind of its parent.
var parentOf = map[Kind]Kind{
	tier.ResourceProperty: tier.ResourceBusiness,
	tier.ResourceUnit:     tier.ResourceProperty,
	tier.ResourceTenant:   tier.ResourceUnit,
}

// ParentKind returns the kind a new row of k hangs under. Businesses hang
// directly under an organization and report ok=false.
func ParentKind(k Kind) (Kind, bool) {
	p, ok := parentOf[k]
	return p, ok
}

type table struct {
	name         string
	parentColumn string
}

var tables = map[Kind]table{
	tier.ResourceBusiness: {name: "businesses", parentColumn: "organization_id"},
	tier.ResourceProperty: {name: "properties", parentColumn: "business_id"},
	tier.ResourceUnit:     {name: "units", parentColumn: "property_id"},
	tier.ResourceTenant:   {name: "tenant_access", parentColumn: "unit_id"},
}
