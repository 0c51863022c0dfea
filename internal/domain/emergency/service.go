package emergency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/lifeline/lifeline/internal/domain/identity"
	"github.com/lifeline/lifeline/internal/domain/notification"
	"github.com/lifeline/lifeline/internal/domain/organization"
	"github.com/lifeline/lifeline/internal/platform/apperr"
	"github.com/lifeline/lifeline/internal/platform/db"
	"github.com/lifeline/lifeline/internal/platform/websocket"
)

// Broadcaster pushes real-time refresh hints to connected dashboards.
type Broadcaster interface {
	Broadcast(event string, payload interface{})
}

// Notifier writes per-user notification rows. Satisfied by
// *notification.Service.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, typ, title, body string, metadata map[string]interface{}) (*notification.Notification, error)
}

// UserDirectory resolves fan-out targets. Satisfied by *identity.Service.
type UserDirectory interface {
	ListActiveByRole(ctx context.Context, role string) ([]*identity.User, error)
	ListActiveByOrganization(ctx context.Context, orgID uuid.UUID) ([]*identity.User, error)
}

// Organizations is the slice of the organization repository the lifecycle
// needs; going through the repository keeps the bed decrement inside the
// assignment transaction.
type Organizations interface {
	GetByID(ctx context.Context, id uuid.UUID) (*organization.Organization, error)
	DecrementBeds(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service owns every legal EmergencyRequest/EmergencyResponse transition.
type Service struct {
	requests  RequestRepository
	responses ResponseRepository
	orgs      Organizations
	users     UserDirectory
	notifier  Notifier
	broadcast Broadcaster
	pool      *pgxpool.Pool
	logger    zerolog.Logger
}

// NewService wires the lifecycle service. A nil pool runs mutations without
// a wrapping transaction.
func NewService(requests RequestRepository, responses ResponseRepository,
	orgs Organizations, users UserDirectory, notifier Notifier,
	broadcast Broadcaster, pool *pgxpool.Pool, logger zerolog.Logger) *Service {
	return &Service{
		requests:  requests,
		responses: responses,
		orgs:      orgs,
		users:     users,
		notifier:  notifier,
		broadcast: broadcast,
		pool:      pool,
		logger:    logger,
	}
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.pool == nil {
		return fn(ctx)
	}
	return db.InTx(ctx, s.pool, fn)
}

// isUniqueViolation reports whether err is the unique index on
// (emergency_request_id, organization_id) rejecting a concurrent duplicate.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// errAlreadyAssigned is the duplicate-assignment rejection, whether caught
// by the pre-insert read or by the unique index under concurrency.
func errAlreadyAssigned() error {
	return apperr.Validation("emergency request already assigned to this organization")
}

type CreateInput struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Address     string   `json:"address"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Severity    int      `json:"severity"`
	Grade       string   `json:"grade"`
	Symptoms    []string `json:"symptoms"`
}

// Create files a new SOS request as PENDING, broadcasts an emergency event
// and notifies every active emergency center operator.
func (s *Service) Create(ctx context.Context, patientID uuid.UUID, in CreateInput) (*Request, error) {
	if patientID == uuid.Nil {
		return nil, apperr.Validation("patient_id is required")
	}
	if in.Latitude < -90 || in.Latitude > 90 || in.Longitude < -180 || in.Longitude > 180 {
		return nil, apperr.Validation("invalid coordinates")
	}

	severity := in.Severity
	if in.Grade != "" {
		// The grade mapping is authoritative whenever a grade is present.
		mapped, ok := SeverityForGrade(in.Grade)
		if !ok {
			return nil, apperr.Validation("unknown grade: %s", in.Grade)
		}
		severity = mapped
	} else if severity != 0 && (severity < 1 || severity > 4) {
		return nil, apperr.Validation("severity must be between 1 and 4")
	} else if severity == 0 {
		severity = 1
	}

	req := &Request{
		PatientID:   patientID,
		Status:      RequestPending,
		Type:        in.Type,
		Description: in.Description,
		Address:     in.Address,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Severity:    severity,
		Grade:       in.Grade,
		Symptoms:    in.Symptoms,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, apperr.Internal(err)
	}

	s.broadcast.Broadcast(websocket.EventEmergency, map[string]interface{}{
		"request_id": req.ID,
		"severity":   req.Severity,
		"latitude":   req.Latitude,
		"longitude":  req.Longitude,
	})
	s.notifyRole(ctx, identity.RoleEmergencyCenter, notification.TypeEmergency,
		"New emergency request", in.Description, map[string]interface{}{"request_id": req.ID})
	return req, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Request, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("emergency request")
	}
	return req, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Request, int, error) {
	return s.requests.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Request, int, error) {
	return s.requests.List(ctx, limit, offset)
}

// ActiveRequests loads every request that still needs attention, highest
// severity first.
func (s *Service) ActiveRequests(ctx context.Context) ([]*Request, error) {
	return s.requests.ListByStatuses(ctx,
		[]string{RequestPending, RequestAssigned, RequestInProgress})
}

// AssignedCases lists the responses dispatched to one organization.
func (s *Service) AssignedCases(ctx context.Context, orgID uuid.UUID) ([]*Response, error) {
	return s.responses.ListByOrganization(ctx, orgID)
}

func (s *Service) ResponsesForRequest(ctx context.Context, requestID uuid.UUID) ([]*Response, error) {
	return s.responses.ListByRequest(ctx, requestID)
}

// AssignToHospital is the strict assignment path: the request must still be
// PENDING, the target must be a hospital with a free bed, and the bed is
// taken atomically in the same transaction that records the assignment.
func (s *Service) AssignToHospital(ctx context.Context, requestID, hospitalID uuid.UUID) (*Response, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperr.NotFound("emergency request")
	}
	if req.Status != RequestPending {
		return nil, apperr.Validation("cannot assign emergency request: current status: %s", req.Status)
	}

	org, err := s.orgs.GetByID(ctx, hospitalID)
	if err != nil {
		return nil, apperr.NotFound("hospital")
	}
	if org.Type != organization.TypeHospital {
		return nil, apperr.Validation("organization %s is not a hospital", org.Name)
	}
	if org.AvailableBeds <= 0 {
		return nil, apperr.Validation("hospital has no available beds")
	}

	exists, err := s.responses.ExistsForOrg(ctx, requestID, hospitalID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if exists {
		return nil, errAlreadyAssigned()
	}

	resp := &Response{
		EmergencyRequestID: requestID,
		OrganizationID:     hospitalID,
		Status:             ResponseAssigned,
		DispatchTime:       time.Now(),
	}
	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.responses.Create(ctx, resp); err != nil {
			if isUniqueViolation(err) {
				return errAlreadyAssigned()
			}
			return apperr.Internal(err)
		}
		taken, err := s.orgs.DecrementBeds(ctx, hospitalID)
		if err != nil {
			return apperr.Internal(err)
		}
		if !taken {
			return apperr.Validation("hospital has no available beds")
		}
		if err := s.requests.UpdateStatus(ctx, requestID, RequestAssigned); err != nil {
			return apperr.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyOrg(ctx, hospitalID, notification.TypeAssignment,
		"Emergency case assigned", req.Description, map[string]interface{}{"request_id": requestID})
	s.notifyUser(ctx, req.PatientID, notification.TypeAssignment,
		"Hospital assigned", org.Name, map[string]interface{}{"request_id": requestID})
	s.broadcast.Broadcast(websocket.EventStatusUpdate, map[string]interface{}{
		"request_id": requestID, "status": RequestAssigned,
	})
	s.broadcast.Broadcast(websocket.EventStatsUpdated, map[string]interface{}{
		"organization_id": hospitalID,
	})
	return resp, nil
}

// AssignCase is the dashboard assignment path. It accepts hospitals and
// rescue teams, tolerates requests already in flight and never touches bed
// capacity.
func (s *Service) AssignCase(ctx context.Context, requestID, orgID uuid.UUID) (*Response, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperr.NotFound("emergency request")
	}
	switch req.Status {
	case RequestPending, RequestAssigned, RequestInProgress:
	default:
		return nil, apperr.Validation("cannot assign emergency request: current status: %s", req.Status)
	}

	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return nil, apperr.NotFound("organization")
	}

	exists, err := s.responses.ExistsForOrg(ctx, requestID, orgID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if exists {
		return nil, errAlreadyAssigned()
	}

	resp := &Response{
		EmergencyRequestID: requestID,
		OrganizationID:     orgID,
		Status:             ResponseAssigned,
		DispatchTime:       time.Now(),
	}
	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.responses.Create(ctx, resp); err != nil {
			if isUniqueViolation(err) {
				return errAlreadyAssigned()
			}
			return apperr.Internal(err)
		}
		if req.Status == RequestPending {
			if err := s.requests.UpdateStatus(ctx, requestID, RequestAssigned); err != nil {
				return apperr.Internal(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyOrg(ctx, orgID, notification.TypeAssignment,
		"Emergency case assigned", req.Description, map[string]interface{}{"request_id": requestID})
	s.notifyUser(ctx, req.PatientID, notification.TypeAssignment,
		"Responder assigned", org.Name, map[string]interface{}{"request_id": requestID})
	s.broadcast.Broadcast(websocket.EventStatusUpdate, map[string]interface{}{
		"request_id": requestID, "status": RequestAssigned,
	})
	return resp, nil
}

// AcceptEmergency records a hospital volunteering for a still-pending
// request without taking a bed.
func (s *Service) AcceptEmergency(ctx context.Context, requestID, hospitalID uuid.UUID) (*Response, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperr.NotFound("emergency request")
	}
	if req.Status != RequestPending {
		return nil, apperr.Validation("cannot accept emergency request: current status: %s", req.Status)
	}

	org, err := s.orgs.GetByID(ctx, hospitalID)
	if err != nil {
		return nil, apperr.NotFound("hospital")
	}
	if org.Type != organization.TypeHospital {
		return nil, apperr.Validation("organization %s is not a hospital", org.Name)
	}

	exists, err := s.responses.ExistsForOrg(ctx, requestID, hospitalID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if exists {
		return nil, errAlreadyAssigned()
	}

	resp := &Response{
		EmergencyRequestID: requestID,
		OrganizationID:     hospitalID,
		Status:             ResponseAccepted,
		DispatchTime:       time.Now(),
	}
	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.responses.Create(ctx, resp); err != nil {
			if isUniqueViolation(err) {
				return errAlreadyAssigned()
			}
			return apperr.Internal(err)
		}
		return s.requests.UpdateStatus(ctx, requestID, RequestAssigned)
	})
	if err != nil {
		return nil, err
	}

	s.notifyUser(ctx, req.PatientID, notification.TypeAssignment,
		"Hospital accepted your request", org.Name, map[string]interface{}{"request_id": requestID})
	s.broadcast.Broadcast(websocket.EventStatusUpdate, map[string]interface{}{
		"request_id": requestID, "status": RequestAssigned,
	})
	return resp, nil
}

// StartResponse moves an accepted response to IN_PROGRESS and forces the
// parent request along with it.
func (s *Service) StartResponse(ctx context.Context, responseID uuid.UUID) (*Response, error) {
	resp, err := s.responses.GetByID(ctx, responseID)
	if err != nil {
		return nil, apperr.NotFound("emergency response")
	}
	if resp.Status != ResponseAccepted {
		return nil, apperr.Validation("cannot start emergency response: current status: %s", resp.Status)
	}

	resp.Status = ResponseInProgress
	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.responses.Update(ctx, resp); err != nil {
			return apperr.Internal(err)
		}
		return s.requests.UpdateStatus(ctx, resp.EmergencyRequestID, RequestInProgress)
	})
	if err != nil {
		return nil, err
	}

	s.notifyPatientOfRequest(ctx, resp.EmergencyRequestID, notification.TypeStatusChange,
		"Response in progress", "")
	s.broadcast.Broadcast(websocket.EventStatusUpdate, map[string]interface{}{
		"request_id": resp.EmergencyRequestID, "status": RequestInProgress,
	})
	return resp, nil
}

// OverrideResponseStatus sets a response to any status without joint-state
// validation and mirrors the parent request. The route guard restricts it
// to center operators and admins. COMPLETED stamps the completion time.
func (s *Service) OverrideResponseStatus(ctx context.Context, responseID uuid.UUID, status, notes string) (*Response, error) {
	if !ValidResponseStatus(status) {
		return nil, apperr.Validation("unknown response status: %s", status)
	}
	resp, err := s.responses.GetByID(ctx, responseID)
	if err != nil {
		return nil, apperr.NotFound("emergency response")
	}

	resp.Status = status
	if notes != "" {
		resp.Notes = notes
	}
	if status == ResponseCompleted && resp.CompletionTime == nil {
		now := time.Now()
		resp.CompletionTime = &now
	}

	mirrored := mirrorRequestStatus(status)
	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.responses.Update(ctx, resp); err != nil {
			return apperr.Internal(err)
		}
		return s.requests.UpdateStatus(ctx, resp.EmergencyRequestID, mirrored)
	})
	if err != nil {
		return nil, err
	}

	s.notifyPatientOfRequest(ctx, resp.EmergencyRequestID, notification.TypeStatusChange,
		"Emergency status updated", mirrored)
	s.broadcast.Broadcast(websocket.EventStatusUpdate, map[string]interface{}{
		"request_id": resp.EmergencyRequestID, "status": mirrored,
	})
	return resp, nil
}

// UpdateStatus is the manual request-status path. It validates only enum
// membership; the route guard keeps it to center operators and admins.
func (s *Service) UpdateStatus(ctx context.Context, requestID uuid.UUID, status string) (*Request, error) {
	if !ValidRequestStatus(status) {
		return nil, apperr.Validation("unknown request status: %s", status)
	}
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperr.NotFound("emergency request")
	}
	err = s.inTx(ctx, func(ctx context.Context) error {
		return s.requests.UpdateStatus(ctx, requestID, status)
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	req.Status = status

	s.notifyUser(ctx, req.PatientID, notification.TypeStatusChange,
		"Emergency status updated", status, map[string]interface{}{"request_id": requestID})
	s.broadcast.Broadcast(websocket.EventStatusUpdate, map[string]interface{}{
		"request_id": requestID, "status": status,
	})
	return req, nil
}

// Cancel rejects terminal requests and cancels the rest. The terminal-state
// guard lives in the UPDATE itself, so a request completed between the read
// and the write stays completed.
func (s *Service) Cancel(ctx context.Context, requestID uuid.UUID) (*Request, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperr.NotFound("emergency request")
	}

	var cancelled bool
	err = s.inTx(ctx, func(ctx context.Context) error {
		ok, err := s.requests.CancelIfActive(ctx, requestID)
		if err != nil {
			return apperr.Internal(err)
		}
		cancelled = ok
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !cancelled {
		// Re-read so the rejection reports whatever terminal state won.
		if cur, err := s.requests.GetByID(ctx, requestID); err == nil {
			req = cur
		}
		return nil, apperr.Validation("cannot cancel emergency request: current status: %s", req.Status)
	}
	req.Status = RequestCancelled

	s.notifyUser(ctx, req.PatientID, notification.TypeCancellation,
		"Emergency request cancelled", "", map[string]interface{}{"request_id": requestID})
	s.broadcast.Broadcast(websocket.EventStatusUpdate, map[string]interface{}{
		"request_id": requestID, "status": RequestCancelled,
	})
	return req, nil
}

// Notification fan-out is best-effort: failures are logged at warn level
// and never undo the committed state change.

func (s *Service) notifyUser(ctx context.Context, userID uuid.UUID, typ, title, body string, metadata map[string]interface{}) {
	if _, err := s.notifier.Notify(ctx, userID, typ, title, body, metadata); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID.String()).Msg("notification delivery failed")
	}
}

func (s *Service) notifyOrg(ctx context.Context, orgID uuid.UUID, typ, title, body string, metadata map[string]interface{}) {
	users, err := s.users.ListActiveByOrganization(ctx, orgID)
	if err != nil {
		s.logger.Warn().Err(err).Str("organization_id", orgID.String()).Msg("notification fan-out failed")
		return
	}
	for _, u := range users {
		s.notifyUser(ctx, u.ID, typ, title, body, metadata)
	}
}

func (s *Service) notifyRole(ctx context.Context, role, typ, title, body string, metadata map[string]interface{}) {
	users, err := s.users.ListActiveByRole(ctx, role)
	if err != nil {
		s.logger.Warn().Err(err).Str("role", role).Msg("notification fan-out failed")
		return
	}
	for _, u := range users {
		s.notifyUser(ctx, u.ID, typ, title, body, metadata)
	}
}

func (s *Service) notifyPatientOfRequest(ctx context.Context, requestID uuid.UUID, typ, title, body string) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		s.logger.Warn().Err(err).Str("request_id", requestID.String()).Msg("notification fan-out failed")
		return
	}
	s.notifyUser(ctx, req.PatientID, typ, title, body, map[string]interface{}{"request_id": requestID})
}
