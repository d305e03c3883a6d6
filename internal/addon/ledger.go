package addon

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// billingPeriod is the length of one add-on billing cycle.
const billingPeriod = 1 // months

// Ledger records add-on purchases and cancellations for organizations.
type Ledger struct {
	repo Repository
	now  func() time.Time
}

// NewLedger creates a Ledger. A nil clock defaults to time.Now.
func NewLedger(repo Repository, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{repo: repo, now: now}
}

// Purchase records quantity units of the product identified by slug for the
// organization. The first billing date is one period from now. quantity must
// fit the INTEGER column.
func (l *Ledger) Purchase(ctx context.Context, orgID uuid.UUID, productSlug string, quantity int) (*Purchase, error) {
	if quantity <= 0 || quantity > math.MaxInt32 {
		return nil, ErrInvalidQuantity
	}

	product, err := l.repo.GetProductBySlug(ctx, productSlug)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, ErrProductNotFound
	}

	p := &Purchase{
		OrganizationID:  orgID,
		ProductID:       product.ID,
		ProductSlug:     product.Slug,
		ResourceType:    product.ResourceType,
		UnitsPerAddon:   product.UnitsPerAddon,
		Quantity:        quantity,
		Status:          StatusActive,
		NextBillingDate: l.now().UTC().AddDate(0, billingPeriod, 0),
	}
	if err := l.repo.CreatePurchase(ctx, p); err != nil {
		return nil, fmt.Errorf("recording addon purchase: %w", err)
	}
	return p, nil
}

// Cancel requests cancellation. Caps are not reduced until the purchase's
// next billing date passes.
func (l *Ledger) Cancel(ctx context.Context, orgID, purchaseID uuid.UUID) (*Purchase, error) {
	return l.repo.Cancel(ctx, orgID, purchaseID, l.now().UTC())
}

// List returns the organization's purchases that have not expired.
func (l *Ledger) List(ctx context.Context, orgID uuid.UUID) ([]Purchase, error) {
	return l.repo.ListPurchases(ctx, orgID)
}

// IsNotFound reports whether err means the product or purchase does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) || errors.Is(err, ErrPurchaseNotFound)
}
