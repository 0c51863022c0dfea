// Package dashboard aggregates live operational data for the emergency
// center console. Reductions run in application code over loaded rows;
// at this system's row counts that beats maintaining materialized
// aggregates.
package dashboard

import (
	"context"

	"github.com/google/uuid"

	"github.com/lifeline/lifeline/internal/domain/emergency"
	"github.com/lifeline/lifeline/internal/domain/organization"
	"github.com/lifeline/lifeline/internal/platform/apperr"
	"github.com/lifeline/lifeline/internal/platform/websocket"
)

// Lifecycle is the slice of the emergency service the dashboard drives.
type Lifecycle interface {
	AssignCase(ctx context.Context, requestID, orgID uuid.UUID) (*emergency.Response, error)
	Cancel(ctx context.Context, requestID uuid.UUID) (*emergency.Request, error)
	ActiveRequests(ctx context.Context) ([]*emergency.Request, error)
}

// Broadcaster pushes real-time refresh hints to connected dashboards.
type Broadcaster interface {
	Broadcast(event string, payload interface{})
}

type Service struct {
	lifecycle Lifecycle
	requests  emergency.RequestRepository
	responses emergency.ResponseRepository
	orgs      organization.Repository
	broadcast Broadcaster
}

func NewService(lifecycle Lifecycle, requests emergency.RequestRepository,
	responses emergency.ResponseRepository, orgs organization.Repository,
	broadcast Broadcaster) *Service {
	return &Service{
		lifecycle: lifecycle,
		requests:  requests,
		responses: responses,
		orgs:      orgs,
		broadcast: broadcast,
	}
}

// Stats is the aggregate snapshot the console polls.
type Stats struct {
	TotalRequests          int            `json:"total_requests"`
	ByStatus               map[string]int `json:"by_status"`
	CriticalCount          int            `json:"critical_count"`
	AvgResponseTimeMinutes float64        `json:"avg_response_time_minutes"`
	AvailableBeds          int            `json:"available_beds"`
}

var allRequestStatuses = []string{
	emergency.RequestPending,
	emergency.RequestAssigned,
	emergency.RequestInProgress,
	emergency.RequestCompleted,
	emergency.RequestCancelled,
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	requests, err := s.requests.ListByStatuses(ctx, allRequestStatuses)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	stats := &Stats{ByStatus: make(map[string]int, len(allRequestStatuses))}
	for _, st := range allRequestStatuses {
		stats.ByStatus[st] = 0
	}
	for _, r := range requests {
		stats.TotalRequests++
		stats.ByStatus[r.Status]++
		if r.Severity == 4 {
			stats.CriticalCount++
		}
	}

	completed, err := s.responses.ListByStatus(ctx, emergency.ResponseCompleted)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	var totalMinutes float64
	var counted int
	for _, p := range completed {
		// Rows missing either timestamp are excluded from the average.
		if p.CompletionTime == nil || p.DispatchTime.IsZero() {
			continue
		}
		totalMinutes += p.CompletionTime.Sub(p.DispatchTime).Minutes()
		counted++
	}
	if counted > 0 {
		stats.AvgResponseTimeMinutes = totalMinutes / float64(counted)
	}

	hospitals, err := s.orgs.ListActiveByType(ctx, organization.TypeHospital)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	for _, h := range hospitals {
		if h.Status == organization.StatusActive {
			stats.AvailableBeds += h.AvailableBeds
		}
	}
	return stats, nil
}

func (s *Service) ActiveEmergencies(ctx context.Context) ([]*emergency.Request, error) {
	return s.lifecycle.ActiveRequests(ctx)
}

// TeamLocation is the map-marker view of a rescue team.
type TeamLocation struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
}

func (s *Service) TeamLocations(ctx context.Context) ([]TeamLocation, error) {
	teams, err := s.orgs.ListActiveByType(ctx, organization.TypeRescueTeam)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	locations := make([]TeamLocation, 0, len(teams))
	for _, t := range teams {
		locations = append(locations, TeamLocation{
			ID: t.ID, Name: t.Name, Status: t.Status,
			Latitude: t.Latitude, Longitude: t.Longitude,
		})
	}
	return locations, nil
}

// HospitalCapacity is the bed-availability view of a hospital.
type HospitalCapacity struct {
	ID            uuid.UUID             `json:"id"`
	Name          string                `json:"name"`
	Status        string                `json:"status"`
	AvailableBeds int                   `json:"available_beds"`
	Capacity      organization.Capacity `json:"capacity"`
}

func (s *Service) HospitalCapacities(ctx context.Context) ([]HospitalCapacity, error) {
	hospitals, err := s.orgs.ListActiveByType(ctx, organization.TypeHospital)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	capacities := make([]HospitalCapacity, 0, len(hospitals))
	for _, h := range hospitals {
		capacities = append(capacities, HospitalCapacity{
			ID: h.ID, Name: h.Name, Status: h.Status,
			AvailableBeds: h.AvailableBeds, Capacity: h.Capacity,
		})
	}
	return capacities, nil
}

// AssignCase delegates to the lifecycle's lenient assignment path and nudges
// every console to refresh its aggregates.
func (s *Service) AssignCase(ctx context.Context, requestID, orgID uuid.UUID) (*emergency.Response, error) {
	resp, err := s.lifecycle.AssignCase(ctx, requestID, orgID)
	if err != nil {
		return nil, err
	}
	s.broadcast.Broadcast(websocket.EventStatsUpdated, map[string]interface{}{
		"request_id": requestID,
	})
	return resp, nil
}

func (s *Service) CancelCase(ctx context.Context, requestID uuid.UUID) (*emergency.Request, error) {
	req, err := s.lifecycle.Cancel(ctx, requestID)
	if err != nil {
		return nil, err
	}
	s.broadcast.Broadcast(websocket.EventStatsUpdated, map[string]interface{}{
		"request_id": requestID,
	})
	return req, nil
}
