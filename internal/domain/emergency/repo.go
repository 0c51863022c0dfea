package emergency

import (
	"context"

	"github.com/google/uuid"
)

type RequestRepository interface {
	Create(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	// CancelIfActive atomically cancels the request unless it already
	// reached a terminal state. It returns false when the guard rejected
	// the write, without error.
	CancelIfActive(ctx context.Context, id uuid.UUID) (bool, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Request, int, error)
	List(ctx context.Context, limit, offset int) ([]*Request, int, error)
	// ListByStatuses loads every request in any of the given statuses,
	// newest first. Used for live views and dashboard reductions.
	ListByStatuses(ctx context.Context, statuses []string) ([]*Request, error)
}

type ResponseRepository interface {
	Create(ctx context.Context, r *Response) error
	GetByID(ctx context.Context, id uuid.UUID) (*Response, error)
	Update(ctx context.Context, r *Response) error
	// ExistsForOrg reports whether a response row already links the request
	// to the organization.
	ExistsForOrg(ctx context.Context, requestID, orgID uuid.UUID) (bool, error)
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*Response, error)
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*Response, error)
	ListByStatus(ctx context.Context, status string) ([]*Response, error)
}
