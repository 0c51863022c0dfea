package organization

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, o *Organization) error
	GetByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	Update(ctx context.Context, o *Organization) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateCapacity(ctx context.Context, id uuid.UUID, availableBeds int, cap Capacity) error
	// DecrementBeds atomically takes one bed. It returns false when no bed
	// was available, without error.
	DecrementBeds(ctx context.Context, id uuid.UUID) (bool, error)
	ListByType(ctx context.Context, orgType string, limit, offset int) ([]*Organization, int, error)
	ListNearby(ctx context.Context, orgType string, lat, lng, radiusKm float64) ([]*Organization, error)
	ListActiveByType(ctx context.Context, orgType string) ([]*Organization, error)
}
