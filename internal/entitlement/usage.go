package entitlement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rentdesk/rentdesk/internal/inventory"
	"github.com/rentdesk/rentdesk/internal/tier"
)

// Usage is a snapshot of an organization's active resources.
type Usage struct {
	Businesses int `json:"businesses"`
	Properties int `json:"properties"`
	Units      int `json:"units"`
	Tenants    int `json:"tenants"`
	Users      int `json:"users"`
}

// Of returns the count for r.
func (u Usage) Of(r tier.Resource) int {
	switch r {
	case tier.ResourceBusiness:
		return u.Businesses
	case tier.ResourceProperty:
		return u.Properties
	case tier.ResourceUnit:
		return u.Units
	case tier.ResourceTenant:
		return u.Tenants
	case tier.ResourceUser:
		return u.Users
	}
	return 0
}

// UserCounter counts an organization's non-revoked users.
type UserCounter interface {
	CountActiveByOrganization(ctx context.Context, orgID uuid.UUID) (int, error)
}

// UsageCounter counts resources by walking the ownership chain
// business -> property -> unit -> tenant access, one hop per query.
type UsageCounter struct {
	inventory inventory.Repository
	users     UserCounter
}

// NewUsageCounter creates a UsageCounter.
func NewUsageCounter(inv inventory.Repository, users UserCounter) *UsageCounter {
	return &UsageCounter{inventory: inv, users: users}
}

// Count returns every count for orgID. The user count runs alongside the
// inventory chain.
func (c *UsageCounter) Count(ctx context.Context, orgID uuid.UUID) (Usage, error) {
	var u Usage

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := c.users.CountActiveByOrganization(gctx, orgID)
		if err != nil {
			return fmt.Errorf("counting users: %w", err)
		}
		u.Users = n
		return nil
	})
	g.Go(func() error {
		return c.walk(gctx, orgID, tier.ResourceTenant, &u)
	})

	if err := g.Wait(); err != nil {
		return Usage{}, err
	}
	return u, nil
}

// CountResource counts only r, issuing no queries past the hop r lives on.
func (c *UsageCounter) CountResource(ctx context.Context, orgID uuid.UUID, r tier.Resource) (int, error) {
	if r == tier.ResourceUser {
		n, err := c.users.CountActiveByOrganization(ctx, orgID)
		if err != nil {
			return 0, fmt.Errorf("counting users: %w", err)
		}
		return n, nil
	}

	var u Usage
	if err := c.walk(ctx, orgID, r, &u); err != nil {
		return 0, err
	}
	return u.Of(r), nil
}

// walk fills u hop by hop until it has counted stop. An empty hop ends the
// walk early since nothing can hang under it.
func (c *UsageCounter) walk(ctx context.Context, orgID uuid.UUID, stop tier.Resource, u *Usage) error {
	businesses, err := c.inventory.ActiveBusinessIDs(ctx, orgID)
	if err != nil {
		return fmt.Errorf("counting businesses: %w", err)
	}
	u.Businesses = len(businesses)
	if stop == tier.ResourceBusiness || len(businesses) == 0 {
		return nil
	}

	properties, err := c.inventory.ActivePropertyIDs(ctx, businesses)
	if err != nil {
		return fmt.Errorf("counting properties: %w", err)
	}
	u.Properties = len(properties)
	if stop == tier.ResourceProperty || len(properties) == 0 {
		return nil
	}

	units, err := c.inventory.ActiveUnitIDs(ctx, properties)
	if err != nil {
		return fmt.Errorf("counting units: %w", err)
	}
	u.Units = len(units)
	if stop == tier.ResourceUnit || len(units) == 0 {
		return nil
	}

	tenants, err := c.inventory.CountActiveTenants(ctx, units)
	if err != nil {
		return fmt.Errorf("counting tenants: %w", err)
	}
	u.Tenants = tenants
	return nil
}
