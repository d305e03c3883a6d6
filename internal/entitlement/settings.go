package entitlement

import (
	"maps"

	"github.com/rentdesk/rentdesk/internal/override"
	"github.com/rentdesk/rentdesk/internal/tier"
)

// Effective is the merged view of a tier and an organization's override.
type Effective struct {
	MonthlyPrice int64           `json:"monthlyPrice"`
	AnnualPrice  int64           `json:"annualPrice"`
	Limits       tier.Limits     `json:"limits"`
	Features     map[string]bool `json:"features"`
}

// Cap returns the effective cap for r.
func (e Effective) Cap(r tier.Resource) int {
	return e.Limits.Cap(r)
}

// Settings is the result of resolving an organization. Override is nil when
// the organization runs on the configured default tier.
type Settings struct {
	Tier      *tier.Tier
	Override  *override.Override
	Effective Effective
}

// Merge layers o on top of t. Each custom value wins when set and features
// are merged per key with o winning. o may be nil. The returned feature map
// is always a fresh copy.
func Merge(t *tier.Tier, o *override.Override) Effective {
	eff := Effective{
		MonthlyPrice: t.MonthlyPrice,
		AnnualPrice:  t.AnnualPrice,
		Limits:       t.Limits,
		Features:     make(map[string]bool, len(t.Features)),
	}
	maps.Copy(eff.Features, t.Features)

	if o == nil {
		return eff
	}

	eff.MonthlyPrice = orElse(o.CustomMonthlyPrice, eff.MonthlyPrice)
	eff.AnnualPrice = orElse(o.CustomAnnualPrice, eff.AnnualPrice)

	c := o.CustomLimits
	eff.Limits.MaxBusinesses = orElse(c.MaxBusinesses, eff.Limits.MaxBusinesses)
	eff.Limits.MaxProperties = orElse(c.MaxProperties, eff.Limits.MaxProperties)
	eff.Limits.MaxUnits = orElse(c.MaxUnits, eff.Limits.MaxUnits)
	eff.Limits.MaxTenants = orElse(c.MaxTenants, eff.Limits.MaxTenants)
	eff.Limits.MaxUsers = orElse(c.MaxUsers, eff.Limits.MaxUsers)
	eff.Limits.MaxPaymentMethods = orElse(c.MaxPaymentMethods, eff.Limits.MaxPaymentMethods)

	maps.Copy(eff.Features, o.CustomFeatures)
	return eff
}

func orElse[T any](custom *T, fallback T) T {
	if custom != nil {
		return *custom
	}
	return fallback
}
