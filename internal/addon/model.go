package addon

import (
	"time"

	"github.com/google/uuid"

	"github.com/rentdesk/rentdesk/internal/tier"
)

// Status is the lifecycle state of an add-on purchase.
type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	// StatusExpired marks a cancelled purchase whose billing period has lapsed.
	// It is written by the sweeper for reporting; InEffect gives the same answer
	// for a lapsed cancelled purchase either way.
	StatusExpired Status = "expired"
)

// Product represents a row in the addon_products table.
type Product struct {
	ID            uuid.UUID
	Slug          string
	Name          string
	ResourceType  tier.Resource
	UnitsPerAddon int
	UnitPrice     int64
	IsActive      bool
	CreatedAt     time.Time
}

// Purchase represents a row in the addon_purchases table joined with the
// product fields needed to compute cap bonuses.
type Purchase struct {
	ID              uuid.UUID
	OrganizationID  uuid.UUID
	ProductID       uuid.UUID
	ProductSlug     string
	ResourceType    tier.Resource
	UnitsPerAddon   int
	Quantity        int
	Status          Status
	NextBillingDate time.Time
	CancelledAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// InEffect reports whether the purchase raises caps at the given instant.
// A cancelled purchase stays in effect until its next billing date passes.
func (p Purchase) InEffect(now time.Time) bool {
	switch p.Status {
	case StatusActive:
		return true
	case StatusCancelled:
		return now.Before(p.NextBillingDate)
	default:
		return false
	}
}

// Units returns the cap increase granted by the purchase.
func (p Purchase) Units() int {
	per := p.UnitsPerAddon
	if per < 1 {
		per = 1
	}
	return p.Quantity * per
}

// Bonus sums the cap increase for resource r over the purchases in effect at now.
func Bonus(purchases []Purchase, r tier.Resource, now time.Time) int {
	total := 0
	for _, p := range purchases {
		if p.ResourceType == r && p.InEffect(now) {
			total += p.Units()
		}
	}
	return total
}

// Bonuses returns the cap increase per resource type over the purchases in effect at now.
func Bonuses(purchases []Purchase, now time.Time) map[tier.Resource]int {
	out := make(map[tier.Resource]int, len(tier.Resources))
	for _, r := range tier.Resources {
		out[r] = 0
	}
	for _, p := range purchases {
		if p.InEffect(now) {
			out[p.ResourceType] += p.Units()
		}
	}
	return out
}
