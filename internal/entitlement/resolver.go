package entitlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rentdesk/rentdesk/internal/override"
	"github.com/rentdesk/rentdesk/internal/tier"
)

// Resolver computes effective settings from the tier and override stores.
// Nothing is cached; every call reads the stores.
type Resolver struct {
	tiers           tier.Repository
	overrides       override.Repository
	defaultTierSlug string
}

// NewResolver creates a Resolver. An empty defaultTierSlug means organizations
// without an override fail with ErrNoTierConfigured.
func NewResolver(tiers tier.Repository, overrides override.Repository, defaultTierSlug string) *Resolver {
	return &Resolver{tiers: tiers, overrides: overrides, defaultTierSlug: defaultTierSlug}
}

// Resolve returns the tier, override and merged effective settings of orgID.
func (r *Resolver) Resolve(ctx context.Context, orgID uuid.UUID) (*Settings, error) {
	o, err := r.overrides.GetByOrganization(ctx, orgID)
	switch {
	case errors.Is(err, override.ErrOverrideNotFound):
		return r.resolveDefault(ctx)
	case err != nil:
		return nil, fmt.Errorf("loading override: %w", err)
	}

	t, err := r.tiers.GetByID(ctx, o.TierID)
	if err != nil {
		if errors.Is(err, tier.ErrTierNotFound) {
			return nil, fmt.Errorf("%w: tier %s", ErrTierNotFound, o.TierID)
		}
		return nil, fmt.Errorf("loading tier: %w", err)
	}
	if !t.IsActive {
		return nil, fmt.Errorf("%w: tier %s is inactive", ErrTierNotFound, t.Slug)
	}

	return &Settings{Tier: t, Override: o, Effective: Merge(t, o)}, nil
}

func (r *Resolver) resolveDefault(ctx context.Context) (*Settings, error) {
	if r.defaultTierSlug == "" {
		return nil, ErrNoTierConfigured
	}

	t, err := r.tiers.GetBySlug(ctx, r.defaultTierSlug)
	if err != nil {
		if errors.Is(err, tier.ErrTierNotFound) {
			return nil, fmt.Errorf("%w: default tier %q", ErrTierNotFound, r.defaultTierSlug)
		}
		return nil, fmt.Errorf("loading default tier: %w", err)
	}
	if !t.IsActive {
		return nil, fmt.Errorf("%w: default tier %q is inactive", ErrTierNotFound, t.Slug)
	}

	return &Settings{Tier: t, Effective: Merge(t, nil)}, nil
}
