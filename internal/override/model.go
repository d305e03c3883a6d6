package override

import (
	"time"

	"github.com/google/uuid"
)

// CustomLimits holds per-organization cap overrides. A nil field means the
// tier's value applies.
type CustomLimits struct {
	MaxBusinesses     *int `json:"maxBusinesses,omitempty"`
	MaxProperties     *int `json:"maxProperties,omitempty"`
	MaxUnits          *int `json:"maxUnits,omitempty"`
	MaxTenants        *int `json:"maxTenants,omitempty"`
	MaxUsers          *int `json:"maxUsers,omitempty"`
	MaxPaymentMethods *int `json:"maxPaymentMethods,omitempty"`
}

// Any reports whether at least one cap is overridden.
func (c CustomLimits) Any() bool {
	return c.MaxBusinesses != nil || c.MaxProperties != nil || c.MaxUnits != nil ||
		c.MaxTenants != nil || c.MaxUsers != nil || c.MaxPaymentMethods != nil
}

// Override represents a row in the organization_overrides table: the tier an
// organization subscribes to plus optional custom values layered on top.
type Override struct {
	ID                 uuid.UUID
	OrganizationID     uuid.UUID
	TierID             uuid.UUID
	TierVersion        int
	CustomMonthlyPrice *int64
	CustomAnnualPrice  *int64
	CustomLimits       CustomLimits
	CustomFeatures     map[string]bool
	HasCustomPricing   bool
	HasCustomLimits    bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// RefreshHints recomputes HasCustomPricing and HasCustomLimits from the
// individual fields. The hints are display aids only.
func (o *Override) RefreshHints() {
	o.HasCustomPricing = o.CustomMonthlyPrice != nil || o.CustomAnnualPrice != nil
	o.HasCustomLimits = o.CustomLimits.Any() || len(o.CustomFeatures) > 0
}
