package notification

import (
	"time"

	"github.com/google/uuid"
)

// Notification types.
const (
	TypeEmergency    = "EMERGENCY"
	TypeAssignment   = "ASSIGNMENT"
	TypeStatusChange = "STATUS_CHANGE"
	TypeCancellation = "CANCELLATION"
)

// Notification maps to the notifications table.
type Notification struct {
	ID        uuid.UUID              `db:"id" json:"id"`
	UserID    uuid.UUID              `db:"user_id" json:"user_id"`
	Type      string                 `db:"type" json:"type"`
	Title     string                 `db:"title" json:"title"`
	Body      string                 `db:"body" json:"body"`
	IsRead    bool                   `db:"is_read" json:"is_read"`
	Metadata  map[string]interface{} `db:"metadata" json:"metadata,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}
