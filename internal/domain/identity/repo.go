package identity

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	List(ctx context.Context, limit, offset int) ([]*User, int, error)
	ListActiveByOrganization(ctx context.Context, orgID uuid.UUID) ([]*User, error)
	ListActiveByRole(ctx context.Context, role string) ([]*User, error)
}
