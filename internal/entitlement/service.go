package entitlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rentdesk/rentdesk/internal/addon"
	"github.com/rentdesk/rentdesk/internal/catalog"
	"github.com/rentdesk/rentdesk/internal/database"
	"github.com/rentdesk/rentdesk/internal/metrics"
	"github.com/rentdesk/rentdesk/internal/tier"
)

// Capacity describes how much room an organization has for one resource.
type Capacity struct {
	Resource tier.Resource `json:"resource"`
	Current  int           `json:"current"`
	Cap      int           `json:"cap"`
	Bonus    int           `json:"addonBonus"`
	Max      int           `json:"max"`
}

// CanAdd reports whether one more resource fits.
func (c Capacity) CanAdd() bool {
	return c.Current < c.Max
}

// Options configures a Service.
type Options struct {
	DefaultTierSlug string
	// Now defaults to time.Now. It decides which cancelled add-ons are still in effect.
	Now func() time.Time
}

// Service answers entitlement questions for one organization at a time.
type Service struct {
	runner  TxRunner
	sources SourcesFunc
	base    Sources
	catalog *catalog.Catalog
	opts    Options
}

// NewService creates a Service. Reads outside a transaction go through pool.
func NewService(runner TxRunner, pool database.Querier, sources SourcesFunc, cat *catalog.Catalog, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		runner:  runner,
		sources: sources,
		base:    sources(pool),
		catalog: cat,
		opts:    opts,
	}
}

// Catalog returns the feature catalog the Service gates against.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// ResolveEffectiveSettings returns the organization's tier, override and
// merged settings.
func (s *Service) ResolveEffectiveSettings(ctx context.Context, orgID uuid.UUID) (*Settings, error) {
	return s.resolve(ctx, s.base, orgID)
}

func (s *Service) resolve(ctx context.Context, src Sources, orgID uuid.UUID) (*Settings, error) {
	start := time.Now()
	settings, err := NewResolver(src.Tiers, src.Overrides, s.opts.DefaultTierSlug).Resolve(ctx, orgID)
	metrics.ResolveDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ResolveFailuresTotal.WithLabelValues(failureKind(err)).Inc()
		return nil, err
	}
	return settings, nil
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, ErrNoTierConfigured):
		return "no_tier_configured"
	case errors.Is(err, ErrTierNotFound):
		return "tier_not_found"
	default:
		return "internal"
	}
}

// Usage returns the organization's active resource counts.
func (s *Service) Usage(ctx context.Context, orgID uuid.UUID) (Usage, error) {
	return NewUsageCounter(s.base.Inventory, s.base.Users).Count(ctx, orgID)
}

// CheckLimits reports every resource whose usage exceeds its cap. Add-on
// bonuses in effect are added to the caps first.
func (s *Service) CheckLimits(ctx context.Context, orgID uuid.UUID) (LimitReport, error) {
	settings, err := s.ResolveEffectiveSettings(ctx, orgID)
	if err != nil {
		return LimitReport{}, err
	}
	usage, err := s.Usage(ctx, orgID)
	if err != nil {
		return LimitReport{}, err
	}
	bonuses, err := s.bonuses(ctx, s.base, orgID)
	if err != nil {
		return LimitReport{}, err
	}

	eff := settings.Effective
	eff.Limits.MaxBusinesses += bonuses[tier.ResourceBusiness]
	eff.Limits.MaxProperties += bonuses[tier.ResourceProperty]
	eff.Limits.MaxUnits += bonuses[tier.ResourceUnit]
	eff.Limits.MaxTenants += bonuses[tier.ResourceTenant]
	eff.Limits.MaxUsers += bonuses[tier.ResourceUser]
	return CheckLimits(eff, usage), nil
}

// Capacity returns current usage and the add-on-aware cap for r. It is the
// pre-flight check behind CheckCanAdd and is recorded as one limit check.
func (s *Service) Capacity(ctx context.Context, orgID uuid.UUID, r tier.Resource) (Capacity, error) {
	c, err := s.capacity(ctx, s.base, orgID, r)
	if err != nil {
		return Capacity{}, err
	}
	recordLimitCheck(c)
	return c, nil
}

func (s *Service) capacity(ctx context.Context, src Sources, orgID uuid.UUID, r tier.Resource) (Capacity, error) {
	settings, err := s.resolve(ctx, src, orgID)
	if err != nil {
		return Capacity{}, err
	}

	current, err := NewUsageCounter(src.Inventory, src.Users).CountResource(ctx, orgID, r)
	if err != nil {
		return Capacity{}, err
	}

	purchases, err := src.Addons.ListPurchases(ctx, orgID)
	if err != nil {
		return Capacity{}, fmt.Errorf("loading addon purchases: %w", err)
	}
	bonus := addon.Bonus(purchases, r, s.opts.Now())

	c := Capacity{
		Resource: r,
		Current:  current,
		Cap:      settings.Effective.Cap(r),
		Bonus:    bonus,
	}
	c.Max = c.Cap + c.Bonus
	return c, nil
}

// CapacityAll returns Capacity for every resource type in display order. The
// organization is resolved once and its purchases are listed once.
func (s *Service) CapacityAll(ctx context.Context, orgID uuid.UUID) ([]Capacity, error) {
	settings, err := s.ResolveEffectiveSettings(ctx, orgID)
	if err != nil {
		return nil, err
	}
	usage, err := s.Usage(ctx, orgID)
	if err != nil {
		return nil, err
	}
	bonuses, err := s.bonuses(ctx, s.base, orgID)
	if err != nil {
		return nil, err
	}

	out := make([]Capacity, 0, len(tier.Resources))
	for _, r := range tier.Resources {
		c := Capacity{
			Resource: r,
			Current:  usage.Of(r),
			Cap:      settings.Effective.Cap(r),
			Bonus:    bonuses[r],
		}
		c.Max = c.Cap + c.Bonus
		out = append(out, c)
	}
	return out, nil
}

func (s *Service) bonuses(ctx context.Context, src Sources, orgID uuid.UUID) (map[tier.Resource]int, error) {
	purchases, err := src.Addons.ListPurchases(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("loading addon purchases: %w", err)
	}
	return addon.Bonuses(purchases, s.opts.Now()), nil
}

// CheckCanAdd reports whether the organization may create one more r. It is
// a pre-flight hint; creation itself goes through Guard.
func (s *Service) CheckCanAdd(ctx context.Context, orgID uuid.UUID, r tier.Resource) (bool, error) {
	c, err := s.Capacity(ctx, orgID, r)
	if err != nil {
		return false, err
	}
	return c.CanAdd(), nil
}

// EnsureCanAdd is CheckCanAdd returning a *LimitReachedError when there is no room.
func (s *Service) EnsureCanAdd(ctx context.Context, orgID uuid.UUID, r tier.Resource) error {
	c, err := s.Capacity(ctx, orgID, r)
	if err != nil {
		return err
	}
	if !c.CanAdd() {
		return &LimitReachedError{Resource: r, Current: c.Current, Max: c.Max}
	}
	return nil
}

// Guard runs create in a transaction that holds the organization's row lock
// and only after the cap check passes inside that same transaction. Writers
// for one organization serialize on the lock, so racing creators cannot both
// take the last slot.
func (s *Service) Guard(ctx context.Context, orgID uuid.UUID, r tier.Resource, create func(q database.Querier) error) error {
	return s.runner.InTx(ctx, func(q database.Querier) error {
		src := s.sources(q)
		if err := src.Organizations.Lock(ctx, orgID); err != nil {
			return err
		}

		c, err := s.capacity(ctx, src, orgID, r)
		if err != nil {
			return err
		}
		recordLimitCheck(c)
		if !c.CanAdd() {
			return &LimitReachedError{Resource: r, Current: c.Current, Max: c.Max}
		}

		return create(q)
	})
}

// Locked runs fn in a transaction holding the organization's row lock. Used
// for override and add-on writes.
func (s *Service) Locked(ctx context.Context, orgID uuid.UUID, fn func(src Sources) error) error {
	return s.runner.InTx(ctx, func(q database.Querier) error {
		src := s.sources(q)
		if err := src.Organizations.Lock(ctx, orgID); err != nil {
			return err
		}
		return fn(src)
	})
}

func recordLimitCheck(c Capacity) {
	outcome := metrics.OutcomeAllowed
	if !c.CanAdd() {
		outcome = metrics.OutcomeDenied
	}
	metrics.LimitChecksTotal.WithLabelValues(string(c.Resource), outcome).Inc()
}

// FeatureStatus resolves the organization and gates key.
func (s *Service) FeatureStatus(ctx context.Context, orgID uuid.UUID, key string) (Status, error) {
	statuses, err := s.FeatureStatuses(ctx, orgID, key)
	if err != nil {
		return "", err
	}
	return statuses[key], nil
}

// FeatureStatuses resolves once and gates every key against that snapshot.
// With no keys, every catalog feature is gated.
func (s *Service) FeatureStatuses(ctx context.Context, orgID uuid.UUID, keys ...string) (map[string]Status, error) {
	settings, err := s.ResolveEffectiveSettings(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 && s.catalog != nil {
		keys = s.catalog.Keys()
	}

	out := make(map[string]Status, len(keys))
	for _, k := range keys {
		st := FeatureStatus(settings.Effective.Features, s.catalog, k)
		metrics.FeatureDecisionsTotal.WithLabelValues(string(st)).Inc()
		out[k] = st
	}
	return out, nil
}
