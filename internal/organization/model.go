package organization

import (
	"time"

	"github.com/google/uuid"
)

// Organization represents a row in the organizations table. An organization is
// the tenant that owns businesses and users and holds a tier subscription.
type Organization struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
