package scheduling

import (
	"context"
	"time"
)

// hasConflict reports whether [start, end) overlaps any live appointment
// on the telescope other than excludeID. First overlap wins; there is no
// need to enumerate every collision. The exclusion keeps an update from
// conflicting with its own pre-update interval.
func hasConflict(ctx context.Context, appointments AppointmentStore, telescopeID string, start, end time.Time, excludeID string) (bool, error) {
	live, err := appointments.LiveAppointmentsByTelescope(ctx, telescopeID)
	if err != nil {
		return false, err
	}
	for i := range live {
		if live[i].ID == excludeID {
			continue
		}
		if live[i].Overlaps(start, end) {
			return true, nil
		}
	}
	return false, nil
}
