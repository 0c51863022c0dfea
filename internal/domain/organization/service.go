package organization

import (
	"context"

	"github.com/google/uuid"

	"github.com/lifeline/lifeline/internal/platform/apperr"
	"github.com/lifeline/lifeline/internal/platform/websocket"
)

// Broadcaster pushes real-time refresh hints to connected dashboards.
type Broadcaster interface {
	Broadcast(event string, payload interface{})
}

type Service struct {
	repo      Repository
	broadcast Broadcaster
}

func NewService(repo Repository, broadcast Broadcaster) *Service {
	return &Service{repo: repo, broadcast: broadcast}
}

// CreateInput is the create request payload shared by hospitals and teams.
type CreateInput struct {
	Name          string   `json:"name"`
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	AvailableBeds int      `json:"available_beds"`
	Capacity      Capacity `json:"capacity"`
	Address       string   `json:"address"`
	Phone         string   `json:"phone"`
}

// Create registers a new organization of the given type. Hospital creation
// broadcasts a hospital-created hint so dashboards refresh their lists.
func (s *Service) Create(ctx context.Context, orgType string, in CreateInput) (*Organization, error) {
	if in.Name == "" {
		return nil, apperr.Validation("name is required")
	}
	if orgType != TypeHospital && orgType != TypeRescueTeam {
		return nil, apperr.Validation("unknown organization type: %s", orgType)
	}
	if in.AvailableBeds < 0 {
		return nil, apperr.Validation("available_beds cannot be negative")
	}

	status := StatusActive
	if orgType == TypeRescueTeam {
		status = StatusAvailable
	}

	o := &Organization{
		Name:          in.Name,
		Type:          orgType,
		Status:        status,
		Latitude:      in.Latitude,
		Longitude:     in.Longitude,
		AvailableBeds: in.AvailableBeds,
		Capacity:      in.Capacity,
		Address:       in.Address,
		Phone:         in.Phone,
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, apperr.Internal(err)
	}

	if orgType == TypeHospital {
		s.broadcast.Broadcast(websocket.EventHospitalCreated, o)
	}
	return o, nil
}

// Get returns an organization, checking it is of the expected type so a
// hospital route cannot read rescue teams and vice versa.
func (s *Service) Get(ctx context.Context, orgType string, id uuid.UUID) (*Organization, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil || o.Type != orgType {
		return nil, apperr.NotFound("organization")
	}
	return o, nil
}

// UpdateInput holds the mutable profile fields.
type UpdateInput struct {
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Address   string   `json:"address"`
	Phone     string   `json:"phone"`
}

func (s *Service) Update(ctx context.Context, orgType string, id uuid.UUID, in UpdateInput) (*Organization, error) {
	o, err := s.Get(ctx, orgType, id)
	if err != nil {
		return nil, err
	}
	if in.Name != "" {
		o.Name = in.Name
	}
	if in.Latitude != nil {
		o.Latitude = *in.Latitude
	}
	if in.Longitude != nil {
		o.Longitude = *in.Longitude
	}
	if in.Address != "" {
		o.Address = in.Address
	}
	if in.Phone != "" {
		o.Phone = in.Phone
	}
	if err := s.repo.Update(ctx, o); err != nil {
		return nil, apperr.Internal(err)
	}
	return o, nil
}

// Delete soft-deletes by flipping status to INACTIVE.
func (s *Service) Delete(ctx context.Context, orgType string, id uuid.UUID) error {
	if _, err := s.Get(ctx, orgType, id); err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusInactive); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// UpdateCapacity sets a hospital's bed availability and capacity record and
// broadcasts stats-updated so dashboards recompute.
func (s *Service) UpdateCapacity(ctx context.Context, id uuid.UUID, availableBeds int, cap Capacity) (*Organization, error) {
	if availableBeds < 0 {
		return nil, apperr.Validation("available_beds cannot be negative")
	}
	o, err := s.Get(ctx, TypeHospital, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCapacity(ctx, id, availableBeds, cap); err != nil {
		return nil, apperr.Internal(err)
	}
	o.AvailableBeds = availableBeds
	o.Capacity = cap

	s.broadcast.Broadcast(websocket.EventStatsUpdated, map[string]interface{}{
		"organization_id": id,
		"available_beds":  availableBeds,
	})
	return o, nil
}

// UpdateTeamStatus sets a rescue team's operational state after normalizing
// the incoming value.
func (s *Service) UpdateTeamStatus(ctx context.Context, id uuid.UUID, status string) (*Organization, error) {
	o, err := s.Get(ctx, TypeRescueTeam, id)
	if err != nil {
		return nil, err
	}
	normalized := NormalizeTeamStatus(status)
	if err := s.repo.UpdateStatus(ctx, id, normalized); err != nil {
		return nil, apperr.Internal(err)
	}
	o.Status = normalized
	return o, nil
}

func (s *Service) List(ctx context.Context, orgType string, limit, offset int) ([]*Organization, int, error) {
	return s.repo.ListByType(ctx, orgType, limit, offset)
}

// ListNearby returns active organizations of a type within radiusKm of the
// given point, ordered by distance.
func (s *Service) ListNearby(ctx context.Context, orgType string, lat, lng, radiusKm float64) ([]*Organization, error) {
	if lat < -90 || lat > 90 {
		return nil, apperr.Validation("latitude must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		return nil, apperr.Validation("longitude must be between -180 and 180")
	}
	if radiusKm <= 0 {
		radiusKm = 50
	}
	return s.repo.ListNearby(ctx, orgType, lat, lng, radiusKm)
}

func (s *Service) ListActive(ctx context.Context, orgType string) ([]*Organization, error) {
	return s.repo.ListActiveByType(ctx, orgType)
}
