package models

import "time"

// RoleName is a membership tier. A user may hold several roles; each one
// is individually approved by an operator before it grants anything.
type RoleName string

const (
	RoleUser       RoleName = "USER"
	RoleGuest      RoleName = "GUEST"
	RoleResearcher RoleName = "RESEARCHER"
	RoleMember     RoleName = "MEMBER"
	RoleAdmin      RoleName = "ADMIN"
)

// Role is a membership grant with its approval flag.
type Role struct {
	Name     RoleName `json:"name"`
	Approved bool     `json:"approved"`
}

// User owns appointments and carries the role set that determines quota
// tier and capabilities.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Roles     []Role    `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

// HasApprovedRole reports whether the user holds any approved role from
// names. With no arguments it asks whether any role at all is approved,
// which is the "has a category of service" check.
func (u *User) HasApprovedRole(names ...RoleName) bool {
	for _, r := range u.Roles {
		if !r.Approved {
			continue
		}
		if len(names) == 0 {
			return true
		}
		for _, n := range names {
			if r.Name == n {
				return true
			}
		}
	}
	return false
}

// TimeCap is a user's total permitted cumulative appointment duration.
// A nil Cap means unlimited observing time.
type TimeCap struct {
	UserID string         `json:"user_id"`
	Cap    *time.Duration `json:"cap,omitempty"`
}

// Telescope is a bookable physical resource.
type Telescope struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
