// Package access provides the capability and ownership gate wrapped
// around every scheduling operation.
package access

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"skydish/internal/metrics"
	"skydish/internal/models"
)

// Caller identifies the requesting principal. Authentication itself is
// an external collaborator; the guard only consumes its outcome.
type Caller struct {
	UserID        string
	Authenticated bool
}

// Capability declares what an operation requires: at least one approved
// role from AnyOf, and for owner-scoped operations either ownership of
// the target or an approved elevated role.
type Capability struct {
	AnyOf       []models.RoleName
	OwnerScoped bool
	Elevated    []models.RoleName
}

// Report names why access was refused. A nil *Report means access was
// granted. Authorization refusals never mix with validation errors; the
// wrapped operation is not invoked at all.
type Report struct {
	MissingRoles    []models.RoleName `json:"missing_roles,omitempty"`
	InvalidResource bool              `json:"invalid_resource,omitempty"`
}

func (r *Report) Error() string {
	if r == nil {
		return ""
	}
	if r.InvalidResource {
		return "access denied: caller does not own the resource"
	}
	names := make([]string, 0, len(r.MissingRoles))
	for _, n := range r.MissingRoles {
		names = append(names, string(n))
	}
	return fmt.Sprintf("access denied: missing roles %s", strings.Join(names, ", "))
}

// UserSource fetches the caller's current role set. The guard reads it
// on every check; roles revoked mid-session take effect immediately.
type UserSource interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// Guard is a pure gate: it never mutates state, it only refuses or
// passes through.
type Guard struct {
	users  UserSource
	logger zerolog.Logger
}

// NewGuard creates a new authorization guard.
func NewGuard(users UserSource, logger zerolog.Logger) *Guard {
	return &Guard{
		users:  users,
		logger: logger.With().Str("component", "access").Logger(),
	}
}

// Check evaluates cap for the caller against the resource owned by
// ownerID (empty for non-owner-scoped operations). It returns a denial
// report, or nil when the caller may proceed.
func (g *Guard) Check(ctx context.Context, caller Caller, cap Capability, ownerID string) (*Report, error) {
	if !caller.Authenticated {
		return g.deny(caller, &Report{MissingRoles: []models.RoleName{models.RoleUser}}), nil
	}

	user, err := g.users.GetUser(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading caller %s: %w", caller.UserID, err)
	}
	if user == nil {
		return g.deny(caller, &Report{MissingRoles: []models.RoleName{models.RoleUser}}), nil
	}

	if len(cap.AnyOf) > 0 && !user.HasApprovedRole(cap.AnyOf...) {
		missing := make([]models.RoleName, 0, len(cap.AnyOf))
		for _, n := range cap.AnyOf {
			if !user.HasApprovedRole(n) {
				missing = append(missing, n)
			}
		}
		return g.deny(caller, &Report{MissingRoles: missing}), nil
	}

	if cap.OwnerScoped {
		if ownerID == "" {
			return g.deny(caller, &Report{InvalidResource: true}), nil
		}
		if caller.UserID != ownerID {
			elevated := len(cap.Elevated) > 0 && user.HasApprovedRole(cap.Elevated...)
			if !elevated {
				return g.deny(caller, &Report{InvalidResource: true}), nil
			}
		}
	}

	return nil, nil
}

// Run gates op behind Check. On denial op is never invoked and its
// result is never consulted.
func (g *Guard) Run(ctx context.Context, caller Caller, cap Capability, ownerID string, op func(ctx context.Context) error) (*Report, error) {
	report, err := g.Check(ctx, caller, cap, ownerID)
	if err != nil {
		return nil, err
	}
	if report != nil {
		return report, nil
	}
	return nil, op(ctx)
}

func (g *Guard) deny(caller Caller, report *Report) *Report {
	metrics.IncAccessDenied()
	g.logger.Debug().
		Str("user_id", caller.UserID).
		Bool("authenticated", caller.Authenticated).
		Str("reason", report.Error()).
		Msg("access denied")
	return report
}
