package validation

// LimitsRequest carries every cap of a tier. All caps are required so a tier
// never silently defaults to zero.
type LimitsRequest struct {
	MaxBusinesses     *int `json:"maxBusinesses" validate:"required,gte=0,lte=2147483647"`
	MaxProperties     *int `json:"maxProperties" validate:"required,gte=0,lte=2147483647"`
	MaxUnits          *int `json:"maxUnits" validate:"required,gte=0,lte=2147483647"`
	MaxTenants        *int `json:"maxTenants" validate:"required,gte=0,lte=2147483647"`
	MaxUsers          *int `json:"maxUsers" validate:"required,gte=0,lte=2147483647"`
	MaxPaymentMethods *int `json:"maxPaymentMethods" validate:"required,gte=0,lte=2147483647"`
}

// CreateTierRequest is the body of POST /tiers.
type CreateTierRequest struct {
	Slug         string          `json:"slug" validate:"required,max=63,slug"`
	DisplayName  string          `json:"displayName" validate:"required,max=255"`
	Description  string          `json:"description" validate:"max=1000"`
	MonthlyPrice int64           `json:"monthlyPrice" validate:"gte=0"`
	AnnualPrice  int64           `json:"annualPrice" validate:"gte=0"`
	Limits       LimitsRequest   `json:"limits"`
	Features     map[string]bool `json:"features" validate:"omitempty,dive,keys,max=63,slug,endkeys"`
	IsActive     *bool           `json:"isActive"`
}

// UpdateTierRequest is the body of PATCH /tiers/{id}. Absent fields are left
// unchanged; expectedVersion is the version the caller last read.
type UpdateTierRequest struct {
	ExpectedVersion   int             `json:"expectedVersion" validate:"required,gte=1"`
	DisplayName       *string         `json:"displayName" validate:"omitnil,min=1,max=255"`
	Description       *string         `json:"description" validate:"omitnil,max=1000"`
	MonthlyPrice      *int64          `json:"monthlyPrice" validate:"omitnil,gte=0"`
	AnnualPrice       *int64          `json:"annualPrice" validate:"omitnil,gte=0"`
	MaxBusinesses     *int            `json:"maxBusinesses" validate:"omitnil,gte=0,lte=2147483647"`
	MaxProperties     *int            `json:"maxProperties" validate:"omitnil,gte=0,lte=2147483647"`
	MaxUnits          *int            `json:"maxUnits" validate:"omitnil,gte=0,lte=2147483647"`
	MaxTenants        *int            `json:"maxTenants" validate:"omitnil,gte=0,lte=2147483647"`
	MaxUsers          *int            `json:"maxUsers" validate:"omitnil,gte=0,lte=2147483647"`
	MaxPaymentMethods *int            `json:"maxPaymentMethods" validate:"omitnil,gte=0,lte=2147483647"`
	Features          map[string]bool `json:"features" validate:"omitempty,dive,keys,max=63,slug,endkeys"`
	IsActive          *bool           `json:"isActive"`
}

// CreateOrganizationRequest is the body of POST /organizations.
type CreateOrganizationRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// CustomLimitsRequest holds optional cap overrides. A null or absent cap
// falls back to the tier.
type CustomLimitsRequest struct {
	MaxBusinesses     *int `json:"maxBusinesses" validate:"omitnil,gte=0,lte=2147483647"`
	MaxProperties     *int `json:"maxProperties" validate:"omitnil,gte=0,lte=2147483647"`
	MaxUnits          *int `json:"maxUnits" validate:"omitnil,gte=0,lte=2147483647"`
	MaxTenants        *int `json:"maxTenants" validate:"omitnil,gte=0,lte=2147483647"`
	MaxUsers          *int `json:"maxUsers" validate:"omitnil,gte=0,lte=2147483647"`
	MaxPaymentMethods *int `json:"maxPaymentMethods" validate:"omitnil,gte=0,lte=2147483647"`
}

// UpsertOverrideRequest is the body of PUT /organizations/{id}/override.
type UpsertOverrideRequest struct {
	TierID             string              `json:"tierId" validate:"required,uuid"`
	CustomMonthlyPrice *int64              `json:"customMonthlyPrice" validate:"omitnil,gte=0"`
	CustomAnnualPrice  *int64              `json:"customAnnualPrice" validate:"omitnil,gte=0"`
	CustomLimits       CustomLimitsRequest `json:"customLimits"`
	CustomFeatures     map[string]bool     `json:"customFeatures" validate:"omitempty,dive,keys,max=63,slug,endkeys"`
}

// CreateAddonProductRequest is the body of POST /addon-products. A zero
// unitsPerAddon means one unit per purchased add-on.
type CreateAddonProductRequest struct {
	Slug          string `json:"slug" validate:"required,max=63,slug"`
	Name          string `json:"name" validate:"required,max=255"`
	ResourceType  string `json:"resourceType" validate:"required,resource"`
	UnitsPerAddon int    `json:"unitsPerAddon" validate:"gte=0,lte=2147483647"`
	UnitPrice     int64  `json:"unitPrice" validate:"gte=0"`
	IsActive      *bool  `json:"isActive"`
}

// PurchaseAddonRequest is the body of POST /organizations/{id}/addons. The
// quantity is checked by the ledger.
type PurchaseAddonRequest struct {
	ProductSlug string `json:"productSlug" validate:"required,max=63,slug"`
	Quantity    int    `json:"quantity"`
}

// CreateInventoryItemRequest is the body of every inventory create endpoint.
type CreateInventoryItemRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Name           string `json:"name" validate:"required,max=255"`
	OrganizationID string `json:"organizationId" validate:"required,uuid"`
}
