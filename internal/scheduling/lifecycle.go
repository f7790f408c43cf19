package scheduling

import (
	"context"

	"skydish/internal/events"
	"skydish/internal/metrics"
	"skydish/internal/models"
)

// allowedTransitions is the appointment status machine. Inert statuses
// (COMPLETED, CANCELED) have no outgoing edges.
var allowedTransitions = map[models.Status][]models.Status{
	models.StatusRequested:  {models.StatusScheduled, models.StatusCanceled},
	models.StatusScheduled:  {models.StatusRequested, models.StatusInProgress, models.StatusCompleted, models.StatusCanceled},
	models.StatusInProgress: {models.StatusCompleted, models.StatusCanceled},
}

// CanTransition reports whether the status machine allows from -> to.
func CanTransition(from, to models.Status) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Approve moves a requested appointment onto the schedule.
func (e *Engine) Approve(ctx context.Context, id string) (ErrorSet, error) {
	return e.transition(ctx, id, models.StatusScheduled, models.StatusRequested)
}

// Deny sends a scheduled appointment back to requested.
func (e *Engine) Deny(ctx context.Context, id string) (ErrorSet, error) {
	return e.transition(ctx, id, models.StatusRequested, models.StatusScheduled)
}

// Begin marks a scheduled appointment as observing.
func (e *Engine) Begin(ctx context.Context, id string) (ErrorSet, error) {
	return e.transition(ctx, id, models.StatusInProgress, models.StatusScheduled)
}

// Complete finishes a scheduled or running appointment.
func (e *Engine) Complete(ctx context.Context, id string) (ErrorSet, error) {
	return e.transition(ctx, id, models.StatusCompleted, models.StatusScheduled, models.StatusInProgress)
}

// Cancel withdraws any live appointment, freeing its slot and quota.
func (e *Engine) Cancel(ctx context.Context, id string) (ErrorSet, error) {
	return e.transition(ctx, id, models.StatusCanceled,
		models.StatusRequested, models.StatusScheduled, models.StatusInProgress)
}

func (e *Engine) transition(ctx context.Context, id string, to models.Status, from ...models.Status) (ErrorSet, error) {
	errs := ErrorSet{}
	var appt *models.Appointment
	err := e.db.InTx(ctx, func(s Stores) error {
		existing, err := s.Appointments.GetAppointment(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			errs.Add(TagID, "appointment %s does not exist", id)
			return nil
		}
		ok := false
		for _, f := range from {
			if existing.Status == f {
				ok = true
				break
			}
		}
		if !ok || !CanTransition(existing.Status, to) {
			errs.Add(TagStatus, "cannot move appointment %s from %s to %s", id, existing.Status, to)
			return nil
		}
		if err := s.Appointments.UpdateAppointmentStatus(ctx, id, to); err != nil {
			return err
		}
		appt = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !errs.Empty() {
		return errs, nil
	}

	metrics.IncStatusTransition(string(to))
	if e.bus != nil {
		e.bus.Publish(events.Event{
			Type:          events.TypeAppointmentStatusChanged,
			AppointmentID: id,
			UserID:        appt.UserID,
			TelescopeID:   appt.TelescopeID,
			Status:        string(to),
			At:            e.now(),
		})
	}
	e.logger.Info().
		Str("appointment_id", id).
		Str("from", string(appt.Status)).
		Str("to", string(to)).
		Msg("appointment status changed")
	return nil, nil
}
