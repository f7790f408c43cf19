package scheduling

import (
	"context"
	"time"

	"skydish/internal/models"
)

// Unlimited marks a user whose cap record carries no value.
const Unlimited = time.Duration(-1)

// AvailableTime returns how much observing time the user has left across
// all telescopes, or Unlimited. Failures come back tagged: a user with no
// approved role has no category of service, and an approved user without
// a cap record is a configuration error, not unlimited time.
func (e *Engine) AvailableTime(ctx context.Context, s Stores, user *models.User, excludeID string) (time.Duration, ErrorSet, error) {
	errs := ErrorSet{}

	if !user.HasApprovedRole() {
		errs.Add(TagCategoryOfService, "user %s has no approved category of service", user.ID)
		return 0, errs, nil
	}

	cap, err := s.Caps.GetTimeCap(ctx, user.ID)
	if err != nil {
		return 0, nil, err
	}
	if cap == nil {
		errs.Add(TagAllottedTimeCap, "user %s has no allotted time cap record", user.ID)
		return 0, errs, nil
	}
	if cap.Cap == nil {
		return Unlimited, errs, nil
	}

	used, err := e.liveTimeUsed(ctx, s, user.ID, excludeID)
	if err != nil {
		return 0, nil, err
	}

	remaining := *cap.Cap - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining, errs, nil
}

// liveTimeUsed sums the durations of the user's live appointments on
// every telescope, skipping the appointment being updated.
func (e *Engine) liveTimeUsed(ctx context.Context, s Stores, userID, excludeID string) (time.Duration, error) {
	live, err := s.Appointments.LiveAppointmentsByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	var used time.Duration
	for i := range live {
		if live[i].ID == excludeID {
			continue
		}
		used += live[i].Duration()
	}
	return used, nil
}

// checkQuota verifies the proposed duration fits the user's remaining
// allotment, folding any category/cap failures into errs.
func (e *Engine) checkQuota(ctx context.Context, s Stores, user *models.User, proposed time.Duration, excludeID string, errs ErrorSet) error {
	remaining, qerrs, err := e.AvailableTime(ctx, s, user, excludeID)
	if err != nil {
		return err
	}
	errs.Merge(qerrs)
	if !qerrs.Empty() || remaining == Unlimited {
		return nil
	}
	if remaining < proposed {
		errs.Add(TagAllottedTime, "requested %s exceeds remaining allotted time %s", proposed, remaining)
	}
	return nil
}
