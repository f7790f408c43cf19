package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusIsLive(t *testing.T) {
	assert.True(t, StatusRequested.IsLive())
	assert.True(t, StatusScheduled.IsLive())
	assert.True(t, StatusInProgress.IsLive())
	assert.False(t, StatusCompleted.IsLive())
	assert.False(t, StatusCanceled.IsLive())
}

func TestAppointmentOverlaps(t *testing.T) {
	base := time.Date(2026, 9, 1, 20, 0, 0, 0, time.UTC)
	appt := &Appointment{
		StartTime: base,
		EndTime:   base.Add(2 * time.Hour),
	}

	t.Run("ContainedInterval", func(t *testing.T) {
		assert.True(t, appt.Overlaps(base.Add(30*time.Minute), base.Add(time.Hour)))
	})

	t.Run("SameStart", func(t *testing.T) {
		assert.True(t, appt.Overlaps(base, base.Add(time.Second)))
	})

	t.Run("TouchingEndIsNotOverlap", func(t *testing.T) {
		// Half-open: [20:00, 22:00) and [22:00, 23:00) do not conflict.
		assert.False(t, appt.Overlaps(appt.EndTime, appt.EndTime.Add(time.Hour)))
	})

	t.Run("TouchingStartIsNotOverlap", func(t *testing.T) {
		assert.False(t, appt.Overlaps(base.Add(-time.Hour), base))
	})

	t.Run("Symmetry", func(t *testing.T) {
		other := &Appointment{
			StartTime: base.Add(time.Hour),
			EndTime:   base.Add(3 * time.Hour),
		}
		assert.Equal(t,
			appt.Overlaps(other.StartTime, other.EndTime),
			other.Overlaps(appt.StartTime, appt.EndTime),
		)
	})
}

func TestAppointmentDuration(t *testing.T) {
	start := time.Now()
	appt := &Appointment{StartTime: start, EndTime: start.Add(90 * time.Minute)}
	assert.Equal(t, 90*time.Minute, appt.Duration())
}

func TestNewCoordinate(t *testing.T) {
	t.Run("RightAscensionFromHMS", func(t *testing.T) {
		c := NewCoordinate(6, 30, 0, -10)
		assert.InDelta(t, 97.5, c.RightAscension, 1e-9)
		assert.Equal(t, -10.0, c.Declination)
	})

	t.Run("ZeroHour", func(t *testing.T) {
		c := NewCoordinate(0, 0, 0, 45)
		assert.Zero(t, c.RightAscension)
	})

	t.Run("SecondsContribute", func(t *testing.T) {
		c := NewCoordinate(0, 0, 3600, 0) // out of range, but the math still holds
		assert.InDelta(t, 15.0, c.RightAscension, 1e-9)
	})
}

func TestHasApprovedRole(t *testing.T) {
	u := &User{
		ID: "u1",
		Roles: []Role{
			{Name: RoleGuest, Approved: true},
			{Name: RoleAdmin, Approved: false},
		},
	}

	assert.True(t, u.HasApprovedRole())
	assert.True(t, u.HasApprovedRole(RoleGuest))
	assert.False(t, u.HasApprovedRole(RoleAdmin), "unapproved role must not count")
	assert.False(t, u.HasApprovedRole(RoleMember))

	none := &User{ID: "u2", Roles: []Role{{Name: RoleGuest}}}
	assert.False(t, none.HasApprovedRole(), "no approved roles means no category of service")
}
