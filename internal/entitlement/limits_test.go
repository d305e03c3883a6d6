package entitlement_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rentdesk/rentdesk/internal/entitlement"
	"github.com/rentdesk/rentdesk/internal/tier"
)

func TestCheckLimits(t *testing.T) {
	eff := entitlement.Effective{Limits: tier.Limits{
		MaxBusinesses: 1, MaxProperties: 3, MaxUnits: 10, MaxTenants: 20, MaxUsers: 2,
	}}

	tests := []struct {
		name     string
		usage    entitlement.Usage
		within   bool
		messages []string
	}{
		{
			name:     "empty",
			usage:    entitlement.Usage{},
			within:   true,
			messages: []string{},
		},
		{
			name:     "exactly at every cap",
			usage:    entitlement.Usage{Businesses: 1, Properties: 3, Units: 10, Tenants: 20, Users: 2},
			within:   true,
			messages: []string{},
		},
		{
			name:     "properties over",
			usage:    entitlement.Usage{Businesses: 1, Properties: 5},
			within:   false,
			messages: []string{"Properties: 5/3"},
		},
		{
			name:     "several over in display order",
			usage:    entitlement.Usage{Businesses: 2, Units: 11, Users: 3},
			within:   false,
			messages: []string{"Businesses: 2/1", "Units: 11/10", "Users: 3/2"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := entitlement.CheckLimits(eff, tt.usage)
			assert.Equal(t, tt.within, report.WithinLimits)
			assert.Equal(t, tt.messages, report.Messages())
			assert.Len(t, report.Violations, len(tt.messages))
		})
	}
}

func TestCheckLimits_ViolationTuple(t *testing.T) {
	eff := entitlement.Effective{Limits: tier.Limits{MaxProperties: 3, MaxBusinesses: 9, MaxUnits: 9, MaxTenants: 9, MaxUsers: 9}}

	report := entitlement.CheckLimits(eff, entitlement.Usage{Properties: 5})
	assert.Equal(t, []entitlement.Violation{{Resource: tier.ResourceProperty, Current: 5, Max: 3}}, report.Violations)
}
