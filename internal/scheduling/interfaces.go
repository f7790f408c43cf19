package scheduling

import (
	"context"
	"time"

	"skydish/internal/models"
)

// UserStore looks up users with their role sets.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// TelescopeStore is the telescope registry.
type TelescopeStore interface {
	TelescopeExists(ctx context.Context, id string) (bool, error)
	ListTelescopes(ctx context.Context) ([]models.Telescope, error)
}

// CatalogStore resolves celestial body references.
type CatalogStore interface {
	GetCelestialBody(ctx context.Context, id string) (*models.CelestialBody, error)
}

// AppointmentStore persists appointment envelopes and enumerates live
// ones. Lookups return (nil, nil) when the row is absent.
type AppointmentStore interface {
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	CreateAppointment(ctx context.Context, appt *models.Appointment) error
	UpdateAppointment(ctx context.Context, appt *models.Appointment) error
	UpdateAppointmentStatus(ctx context.Context, id string, status models.Status) error
	LiveAppointmentsByTelescope(ctx context.Context, telescopeID string) ([]models.Appointment, error)
	LiveAppointmentsByUser(ctx context.Context, userID string) ([]models.Appointment, error)
}

// TimeCapStore looks up per-user time allotments. A missing row returns
// (nil, nil); a row with a nil Cap means unlimited.
type TimeCapStore interface {
	GetTimeCap(ctx context.Context, userID string) (*models.TimeCap, error)
}

// PayloadStore owns the variant payload rows, keyed by appointment id.
// DeletePayload removes whatever payload rows exist for the appointment
// regardless of variant, so a type-changing update leaves no orphans.
type PayloadStore interface {
	SavePointCoordinate(ctx context.Context, appointmentID string, c models.Coordinate) error
	SaveBodyRef(ctx context.Context, appointmentID, bodyID string) error
	SaveOrientation(ctx context.Context, appointmentID string, o models.Orientation) error
	SaveRasterPath(ctx context.Context, appointmentID string, path []models.Coordinate) error
	GetPointCoordinate(ctx context.Context, appointmentID string) (*models.Coordinate, error)
	GetBodyRef(ctx context.Context, appointmentID string) (string, error)
	GetOrientation(ctx context.Context, appointmentID string) (*models.Orientation, error)
	GetRasterPath(ctx context.Context, appointmentID string) ([]models.Coordinate, error)
	DeletePayload(ctx context.Context, appointmentID string) error
}

// HeartbeatStore reads the externally refreshed last-communication
// timestamp for a telescope. Implementations must not cache: the engine
// reads it fresh on every validation call.
type HeartbeatStore interface {
	LastCommunication(ctx context.Context, telescopeID string) (time.Time, bool, error)
	Record(ctx context.Context, telescopeID string, at time.Time) error
}

// Stores bundles everything a validate-then-commit needs inside one
// transaction. Heartbeats stay outside the bundle: they are an external
// liveness signal, not transactional state.
type Stores struct {
	Users        UserStore
	Telescopes   TelescopeStore
	Catalog      CatalogStore
	Appointments AppointmentStore
	Caps         TimeCapStore
	Payloads     PayloadStore
}

// TxRunner runs fn with a Stores bundle scoped to a single transaction.
// The read-check-then-write sequence of every admission decision happens
// entirely inside one InTx call, so two concurrent requests cannot both
// observe a free slot and both commit.
type TxRunner interface {
	InTx(ctx context.Context, fn func(s Stores) error) error
}
