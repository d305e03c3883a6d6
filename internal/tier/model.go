package tier

import (
	"time"

	"github.com/google/uuid"
)

// Limits holds the resource caps of a tier.
type Limits struct {
	MaxBusinesses     int `json:"maxBusinesses"`
	MaxProperties     int `json:"maxProperties"`
	MaxUnits          int `json:"maxUnits"`
	MaxTenants        int `json:"maxTenants"`
	MaxUsers          int `json:"maxUsers"`
	MaxPaymentMethods int `json:"maxPaymentMethods"`
}

// Cap returns the cap for a countable resource type.
func (l Limits) Cap(r Resource) int {
	switch r {
	case ResourceBusiness:
		return l.MaxBusinesses
	case ResourceProperty:
		return l.MaxProperties
	case ResourceUnit:
		return l.MaxUnits
	case ResourceTenant:
		return l.MaxTenants
	case ResourceUser:
		return l.MaxUsers
	}
	return 0
}

// Tier represents a row in the tiers table.
type Tier struct {
	ID           uuid.UUID       `json:"id"`
	Slug         string          `json:"slug"`
	DisplayName  string          `json:"displayName"`
	Description  string          `json:"description"`
	MonthlyPrice int64           `json:"monthlyPrice"`
	AnnualPrice  int64           `json:"annualPrice"`
	Limits       Limits          `json:"limits"`
	Features     map[string]bool `json:"features"`
	Version      int             `json:"version"`
	IsActive     bool            `json:"isActive"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// VersionRecord is a snapshot of a tier as it was before an edit.
type VersionRecord struct {
	ID        uuid.UUID
	TierID    uuid.UUID
	Version   int
	Snapshot  Tier
	CreatedAt time.Time
}

// UpdateFields holds optional fields for a partial tier update.
// Nil fields are not updated.
type UpdateFields struct {
	DisplayName       *string
	Description       *string
	MonthlyPrice      *int64
	AnnualPrice       *int64
	MaxBusinesses     *int
	MaxProperties     *int
	MaxUnits          *int
	MaxTenants        *int
	MaxUsers          *int
	MaxPaymentMethods *int
	Features          map[string]bool
	IsActive          *bool
}

// IsEmpty reports whether no field is set.
func (f UpdateFields) IsEmpty() bool {
	return f.DisplayName == nil && f.Description == nil &&
		f.MonthlyPrice == nil && f.AnnualPrice == nil &&
		f.MaxBusinesses == nil && f.MaxProperties == nil && f.MaxUnits == nil &&
		f.MaxTenants == nil && f.MaxUsers == nil && f.MaxPaymentMethods == nil &&
		f.Features == nil && f.IsActive == nil
}
