package entitlement

import (
	"fmt"

	"github.com/rentdesk/rentdesk/internal/tier"
)

// Violation is one resource whose usage exceeds its cap.
type Violation struct {
	Resource tier.Resource `json:"resource"`
	Current  int           `json:"current"`
	Max      int           `json:"max"`
}

// Message formats the violation for display, e.g. "Properties: 5/3".
func (v Violation) Message() string {
	return fmt.Sprintf("%s: %d/%d", v.Resource.DisplayName(), v.Current, v.Max)
}

// LimitReport is the outcome of CheckLimits.
type LimitReport struct {
	WithinLimits bool        `json:"withinLimits"`
	Violations   []Violation `json:"violations"`
}

// Messages returns the display string of every violation.
func (r LimitReport) Messages() []string {
	out := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		out = append(out, v.Message())
	}
	return out
}

// CheckLimits compares usage with the effective caps. Sitting exactly at a
// cap is compliant; only usage above it is a violation.
func CheckLimits(eff Effective, usage Usage) LimitReport {
	report := LimitReport{Violations: []Violation{}}
	for _, r := range tier.Resources {
		current, limit := usage.Of(r), eff.Cap(r)
		if current > limit {
			report.Violations = append(report.Violations, Violation{Resource: r, Current: current, Max: limit})
		}
	}
	report.WithinLimits = len(report.Violations) == 0
	return report
}
