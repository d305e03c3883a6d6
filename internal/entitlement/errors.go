package entitlement

import (
	"errors"
	"fmt"

	"github.com/rentdesk/rentdesk/internal/tier"
)

// ErrNoTierConfigured is returned when an organization has no override and no
// default tier is configured. Callers must not substitute zero caps.
var ErrNoTierConfigured = errors.New("no tier configured for organization")

// ErrTierNotFound is returned when the tier an organization resolves to is
// missing or inactive.
var ErrTierNotFound = errors.New("effective tier not found or inactive")

// ErrLimitReached matches every *LimitReachedError via errors.Is.
var ErrLimitReached = errors.New("limit reached")

// LimitReachedError reports that one more resource of a type would exceed the
// organization's cap including add-ons.
type LimitReachedError struct {
	Resource tier.Resource
	Current  int
	Max      int
}

func (e *LimitReachedError) Error() string {
	return fmt.Sprintf("%s limit reached: %d/%d", e.Resource, e.Current, e.Max)
}

// Is makes errors.Is(err, ErrLimitReached) true.
func (e *LimitReachedError) Is(target error) bool {
	return target == ErrLimitReached
}
