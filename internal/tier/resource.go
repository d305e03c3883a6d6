package tier

import "fmt"

// Resource names a capped, countable resource type.
type Resource string

const (
	ResourceBusiness Resource = "business"
	ResourceProperty Resource = "property"
	ResourceUnit     Resource = "unit"
	ResourceTenant   Resource = "tenant"
	ResourceUser     Resource = "user"
)

// Resources lists the resource types enforced by limit checks, in display order.
var Resources = []Resource{
	ResourceBusiness,
	ResourceProperty,
	ResourceUnit,
	ResourceTenant,
	ResourceUser,
}

var displayNames = map[Resource]string{
	ResourceBusiness: "Businesses",
	ResourceProperty: "Properties",
	ResourceUnit:     "Units",
	ResourceTenant:   "Tenants",
	ResourceUser:     "Users",
}

// ParseResource converts a string to a Resource.
func ParseResource(s string) (Resource, error) {
	r := Resource(s)
	if _, ok := displayNames[r]; !ok {
		return "", fmt.Errorf("unknown resource type %q", s)
	}
	return r, nil
}

// DisplayName returns the plural label used in violation messages.
func (r Resource) DisplayName() string {
	if name, ok := displayNames[r]; ok {
		return name
	}
	return string(r)
}
