package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Entitlement metrics
var (
	// ResolveDuration tracks how long resolving effective settings takes.
	ResolveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rentdesk_entitlement_resolve_duration_seconds",
			Help:    "Effective-settings resolution duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	// ResolveFailuresTotal tracks failed resolutions by kind
	ResolveFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rentdesk_entitlement_resolve_failures_total",
			Help: "Total number of failed effective-settings resolutions by kind",
		},
		[]string{"kind"},
	)

	// LimitChecksTotal tracks can-add checks by resource and outcome
	LimitChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rentdesk_entitlement_limit_checks_total",
			Help: "Total number of can-add checks by resource and outcome",
		},
		[]string{"resource", "outcome"},
	)

	// FeatureDecisionsTotal tracks feature gate decisions by status
	FeatureDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rentdesk_entitlement_feature_decisions_total",
			Help: "Total number of feature gate decisions by status",
		},
		[]string{"status"},
	)
)

// Add-on metrics
var (
	// AddonPurchasesTotal tracks purchase and cancel operations by product
	AddonPurchasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rentdesk_addon_operations_total",
			Help: "Total number of add-on operations by product and action",
		},
		[]string{"product", "action"},
	)

	// AddonsExpiredTotal tracks purchases relabelled as expired by the sweeper
	AddonsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rentdesk_addon_expired_total",
			Help: "Total number of cancelled add-on purchases marked expired",
		},
	)
)

// Outcome labels for LimitChecksTotal.
const (
	OutcomeAllowed = "allowed"
	OutcomeDenied  = "denied"
)
