package emergency

import (
	"time"

	"github.com/google/uuid"
)

// Emergency request statuses.
const (
	RequestPending    = "PENDING"
	RequestAssigned   = "ASSIGNED"
	RequestInProgress = "IN_PROGRESS"
	RequestCompleted  = "COMPLETED"
	RequestCancelled  = "CANCELLED"
)

// Emergency response statuses.
const (
	ResponseAccepted   = "ACCEPTED"
	ResponseAssigned   = "ASSIGNED"
	ResponseInProgress = "IN_PROGRESS"
	ResponseCompleted  = "COMPLETED"
	ResponseCancelled  = "CANCELLED"
)

// Triage grades reported by the caller or the center.
const (
	GradeCritical  = "CRITICAL"
	GradeUrgent    = "URGENT"
	GradeNonUrgent = "NON_URGENT"
)

// Request maps to the emergency_requests table. Rows are never deleted;
// terminal states are COMPLETED and CANCELLED.
type Request struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	Status      string    `db:"status" json:"status"`
	Type        string    `db:"type" json:"type"`
	Description string    `db:"description" json:"description"`
	Address     string    `db:"address" json:"address"`
	Latitude    float64   `db:"latitude" json:"latitude"`
	Longitude   float64   `db:"longitude" json:"longitude"`
	Severity    int       `db:"severity" json:"severity"`
	Grade       string    `db:"grade" json:"grade"`
	Symptoms    []string  `db:"symptoms" json:"symptoms"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Response maps to the emergency_responses table: one row per
// (request, organization) pair, append-only history of who handled what.
type Response struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	EmergencyRequestID uuid.UUID  `db:"emergency_request_id" json:"emergency_request_id"`
	OrganizationID     uuid.UUID  `db:"organization_id" json:"organization_id"`
	Status             string     `db:"status" json:"status"`
	DispatchTime       time.Time  `db:"dispatch_time" json:"dispatch_time"`
	CompletionTime     *time.Time `db:"completion_time" json:"completion_time,omitempty"`
	Notes              string     `db:"notes" json:"notes"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// gradeSeverity is the single place grades turn into numeric severity.
var gradeSeverity = map[string]int{
	GradeCritical:  4,
	GradeUrgent:    2,
	GradeNonUrgent: 1,
}

// SeverityForGrade returns the numeric severity for a triage grade.
func SeverityForGrade(grade string) (int, bool) {
	sev, ok := gradeSeverity[grade]
	return sev, ok
}

func ValidRequestStatus(s string) bool {
	switch s {
	case RequestPending, RequestAssigned, RequestInProgress, RequestCompleted, RequestCancelled:
		return true
	}
	return false
}

func ValidResponseStatus(s string) bool {
	switch s {
	case ResponseAccepted, ResponseAssigned, ResponseInProgress, ResponseCompleted, ResponseCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether a request status admits no further transitions.
func IsTerminal(status string) bool {
	return status == RequestCompleted || status == RequestCancelled
}

// mirrorRequestStatus maps a response status onto the parent request status
// used when the two are kept in lockstep.
func mirrorRequestStatus(responseStatus string) string {
	switch responseStatus {
	case ResponseAccepted, ResponseAssigned:
		return RequestAssigned
	case ResponseInProgress:
		return RequestInProgress
	case ResponseCompleted:
		return RequestCompleted
	case ResponseCancelled:
		return RequestCancelled
	default:
		return RequestPending
	}
}
