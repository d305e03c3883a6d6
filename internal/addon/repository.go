package addon

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrProductNotFound is returned when an add-on product does not exist or is inactive.
var ErrProductNotFound = errors.New("addon product not found")

// ErrDuplicateProductSlug is returned when an add-on product with the same slug already exists.
var ErrDuplicateProductSlug = errors.New("addon product slug already exists")

// ErrPurchaseNotFound is returned when an add-on purchase is not found for the organization.
var ErrPurchaseNotFound = errors.New("addon purchase not found")

// ErrAlreadyCancelled is returned when cancelling a purchase that is not active.
var ErrAlreadyCancelled = errors.New("addon purchase already cancelled")

// ErrInvalidQuantity is returned for a purchase quantity outside 1..math.MaxInt32.
var ErrInvalidQuantity = errors.New("addon quantity must be positive")

// Repository provides operations on the addon_products and addon_purchases tables.
type Repository interface {
	CreateProduct(ctx context.Context, p *Product) error
	GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*Product, error)
	ListProducts(ctx context.Context) ([]Product, error)

	CreatePurchase(ctx context.Context, p *Purchase) error
	// ListPurchases returns the organization's purchases that are not expired.
	ListPurchases(ctx context.Context, orgID uuid.UUID) ([]Purchase, error)
	Cancel(ctx context.Context, orgID, purchaseID uuid.UUID, at time.Time) (*Purchase, error)
	// ExpireLapsed marks cancelled purchases whose billing date is before now as expired.
	ExpireLapsed(ctx context.Context, now time.Time) (int64, error)
}
