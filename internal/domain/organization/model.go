package organization

import (
	"time"

	"github.com/google/uuid"
)

// Organization types.
const (
	TypeHospital   = "HOSPITAL"
	TypeRescueTeam = "RESCUE_TEAM"
)

// Organization statuses. ACTIVE/INACTIVE track registration; rescue teams
// additionally report AVAILABLE/BUSY/OFFLINE operational states.
const (
	StatusActive    = "ACTIVE"
	StatusInactive  = "INACTIVE"
	StatusAvailable = "AVAILABLE"
	StatusBusy      = "BUSY"
	StatusOffline   = "OFFLINE"
)

// Capacity is the structured capacity record stored as jsonb.
type Capacity struct {
	TotalBeds      int `json:"total_beds"`
	ICUBeds        int `json:"icu_beds"`
	StaffCount     int `json:"staff_count"`
	AmbulanceCount int `json:"ambulance_count"`
}

// Organization maps to the organizations table. Hospitals and rescue teams
// share the row shape; AvailableBeds and Capacity only carry meaning for
// hospitals.
type Organization struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Type          string    `db:"type" json:"type"`
	Status        string    `db:"status" json:"status"`
	Latitude      float64   `db:"latitude" json:"latitude"`
	Longitude     float64   `db:"longitude" json:"longitude"`
	AvailableBeds int       `db:"available_beds" json:"available_beds"`
	Capacity      Capacity  `db:"capacity" json:"capacity"`
	Address       string    `db:"address" json:"address"`
	Phone         string    `db:"phone" json:"phone"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// NormalizeTeamStatus maps any accepted spelling of a rescue team's
// operational state onto the canonical enum. It is the single place team
// status strings are interpreted; unknown values map to OFFLINE.
func NormalizeTeamStatus(s string) string {
	switch s {
	case StatusAvailable, "available", "ready", StatusActive, "active":
		return StatusAvailable
	case StatusBusy, "busy", "dispatched", "engaged":
		return StatusBusy
	case StatusOffline, "offline", StatusInactive, "inactive":
		return StatusOffline
	default:
		return StatusOffline
	}
}
