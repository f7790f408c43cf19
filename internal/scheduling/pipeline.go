package scheduling

import (
	"context"

	"skydish/internal/models"
)

// runPipeline executes the checks shared by every observation mode and
// returns the union of failing categories. Independent checks each
// contribute their own tag; only dependent ones short-circuit (no quota
// math for an unknown user, no conflict scan over an inverted interval).
//
// excludeID is the appointment being updated, or empty on create.
// needsLiveness is false for raster scans, which historically never
// gated on telescope connectivity.
func (e *Engine) runPipeline(ctx context.Context, s Stores, env Envelope, excludeID string, needsLiveness bool) (*models.User, ErrorSet, error) {
	errs := ErrorSet{}

	user, err := s.Users.GetUser(ctx, env.UserID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		errs.Add(TagUserID, "user %s does not exist", env.UserID)
	}

	telescopeOK, err := s.Telescopes.TelescopeExists(ctx, env.TelescopeID)
	if err != nil {
		return nil, nil, err
	}
	if !telescopeOK {
		errs.Add(TagTelescopeID, "telescope %s does not exist", env.TelescopeID)
	}

	boundsOK := true
	if !env.EndTime.After(env.StartTime) {
		errs.Add(TagEndTime, "end time must be after start time")
		boundsOK = false
	}
	if env.StartTime.Before(e.now()) {
		errs.Add(TagStartTime, "start time must not be in the past")
		boundsOK = false
	}

	if user != nil && boundsOK {
		if err := e.checkQuota(ctx, s, user, env.Duration(), excludeID, errs); err != nil {
			return nil, nil, err
		}
	} else if user != nil && !user.HasApprovedRole() {
		// Category of service does not depend on the proposed interval.
		errs.Add(TagCategoryOfService, "user %s has no approved category of service", user.ID)
	}

	if telescopeOK && boundsOK {
		conflict, err := hasConflict(ctx, s.Appointments, env.TelescopeID, env.StartTime, env.EndTime, excludeID)
		if err != nil {
			return nil, nil, err
		}
		if conflict {
			errs.Add(TagOverlap, "requested interval overlaps an existing appointment on telescope %s", env.TelescopeID)
		}
	}

	if needsLiveness && telescopeOK {
		reachable, err := e.isReachable(ctx, env.TelescopeID)
		if err != nil {
			return nil, nil, err
		}
		if !reachable {
			errs.Add(TagConnection, "telescope %s has not reported a heartbeat recently", env.TelescopeID)
		}
	}

	return user, errs, nil
}
