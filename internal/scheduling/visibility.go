package scheduling

import (
	"context"
	"time"

	"skydish/internal/models"
)

// Details is an appointment with its variant payload resolved.
type Details struct {
	Appointment models.Appointment    `json:"appointment"`
	Coordinate  *models.Coordinate    `json:"coordinate,omitempty"`
	Body        *models.CelestialBody `json:"body,omitempty"`
	Orientation *models.Orientation   `json:"orientation,omitempty"`
	RasterPath  []models.Coordinate   `json:"raster_path,omitempty"`
}

// GetForViewer loads an appointment if the viewer may see it. Owners and
// elevated viewers see everything; anyone else only public appointments
// that have completed.
func (e *Engine) GetForViewer(ctx context.Context, id, viewerID string, elevated bool) (*Details, ErrorSet, error) {
	errs := ErrorSet{}
	var details *Details
	err := e.db.InTx(ctx, func(s Stores) error {
		appt, err := s.Appointments.GetAppointment(ctx, id)
		if err != nil {
			return err
		}
		if appt == nil {
			errs.Add(TagID, "appointment %s does not exist", id)
			return nil
		}
		visible := elevated || appt.UserID == viewerID ||
			(appt.Public && appt.Status == models.StatusCompleted)
		if !visible {
			errs.Add(TagPublic, "appointment %s is not publicly visible", id)
			return nil
		}
		details = &Details{Appointment: *appt}
		return e.loadPayload(ctx, s, details)
	})
	if err != nil {
		return nil, nil, err
	}
	if !errs.Empty() {
		return nil, errs, nil
	}
	return details, nil, nil
}

func (e *Engine) loadPayload(ctx context.Context, s Stores, d *Details) error {
	switch d.Appointment.Type {
	case models.TypePoint:
		c, err := s.Payloads.GetPointCoordinate(ctx, d.Appointment.ID)
		if err != nil {
			return err
		}
		d.Coordinate = c
	case models.TypeCelestialBody:
		bodyID, err := s.Payloads.GetBodyRef(ctx, d.Appointment.ID)
		if err != nil {
			return err
		}
		if bodyID != "" {
			body, err := s.Catalog.GetCelestialBody(ctx, bodyID)
			if err != nil {
				return err
			}
			d.Body = body
		}
	case models.TypeDriftScan:
		o, err := s.Payloads.GetOrientation(ctx, d.Appointment.ID)
		if err != nil {
			return err
		}
		d.Orientation = o
	case models.TypeRasterScan:
		path, err := s.Payloads.GetRasterPath(ctx, d.Appointment.ID)
		if err != nil {
			return err
		}
		d.RasterPath = path
	}
	return nil
}

// TelescopeSchedule lists live appointments on a telescope overlapping
// the [from, to) window, for schedule displays and exports.
func (e *Engine) TelescopeSchedule(ctx context.Context, telescopeID string, from, to time.Time) ([]models.Appointment, ErrorSet, error) {
	errs := ErrorSet{}
	if !to.After(from) {
		errs.Add(TagSearch, "schedule window end must be after its start")
		return nil, errs, nil
	}

	var schedule []models.Appointment
	err := e.db.InTx(ctx, func(s Stores) error {
		exists, err := s.Telescopes.TelescopeExists(ctx, telescopeID)
		if err != nil {
			return err
		}
		if !exists {
			errs.Add(TagTelescopeID, "telescope %s does not exist", telescopeID)
			return nil
		}
		live, err := s.Appointments.LiveAppointmentsByTelescope(ctx, telescopeID)
		if err != nil {
			return err
		}
		for i := range live {
			if live[i].Overlaps(from, to) {
				schedule = append(schedule, live[i])
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if !errs.Empty() {
		return nil, errs, nil
	}
	return schedule, nil, nil
}

// ListTelescopes returns every registered telescope.
func (e *Engine) ListTelescopes(ctx context.Context) ([]models.Telescope, error) {
	var out []models.Telescope
	err := e.db.InTx(ctx, func(s Stores) error {
		var err error
		out, err = s.Telescopes.ListTelescopes(ctx)
		return err
	})
	return out, err
}

// OwnerOf resolves an appointment's owning user id for authorization
// checks. Returns empty when the appointment does not exist.
func (e *Engine) OwnerOf(ctx context.Context, id string) (string, error) {
	var owner string
	err := e.db.InTx(ctx, func(s Stores) error {
		appt, err := s.Appointments.GetAppointment(ctx, id)
		if err != nil {
			return err
		}
		if appt != nil {
			owner = appt.UserID
		}
		return nil
	})
	return owner, err
}
