package models

import "time"

// Status represents the lifecycle state of an appointment.
type Status string

const (
	StatusRequested  Status = "REQUESTED"
	StatusScheduled  Status = "SCHEDULED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCanceled   Status = "CANCELED"
)

// IsLive reports whether an appointment in this status occupies its
// telescope and counts against its owner's time allotment.
func (s Status) IsLive() bool {
	switch s {
	case StatusRequested, StatusScheduled, StatusInProgress:
		return true
	}
	return false
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusRequested, StatusScheduled, StatusInProgress, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// AppointmentType discriminates the four observation modes.
type AppointmentType string

const (
	TypePoint         AppointmentType = "POINT"
	TypeCelestialBody AppointmentType = "CELESTIAL_BODY"
	TypeDriftScan     AppointmentType = "DRIFT_SCAN"
	TypeRasterScan    AppointmentType = "RASTER_SCAN"
)

// Valid reports whether t is one of the known observation modes.
func (t AppointmentType) Valid() bool {
	switch t {
	case TypePoint, TypeCelestialBody, TypeDriftScan, TypeRasterScan:
		return true
	}
	return false
}

// Priority is advisory metadata and plays no part in scheduling decisions.
type Priority string

const (
	PriorityPrimary   Priority = "PRIMARY"
	PrioritySecondary Priority = "SECONDARY"
)

// Appointment is an exclusive-use observing session on one telescope.
// Exactly one variant payload (coordinate, celestial body reference,
// orientation or raster path) is attached per appointment; the payload
// lives in its own table and is replaced, never merged, on update.
type Appointment struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	TelescopeID string          `json:"telescope_id"`
	StartTime   time.Time       `json:"start_time"`
	EndTime     time.Time       `json:"end_time"`
	Status      Status          `json:"status"`
	Priority    Priority        `json:"priority"`
	Type        AppointmentType `json:"type"`
	Public      bool            `json:"public"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Duration returns the length of the observing session.
func (a *Appointment) Duration() time.Duration {
	return a.EndTime.Sub(a.StartTime)
}

// Overlaps checks this appointment's interval against [start, end).
// Half-open semantics: a session ending exactly when another starts does
// not overlap, so back-to-back bookings are allowed.
func (a *Appointment) Overlaps(start, end time.Time) bool {
	return a.StartTime.Before(end) && start.Before(a.EndTime)
}
