package database

import (
	"context"
	"fmt"
	"time"

	"skydish/internal/config"
	"skydish/internal/models"
	"skydish/internal/scheduling"
)

// SyncFleetFromConfig reconciles the telescope registry, celestial
// catalog and provisioned users with fleet.yaml. Telescopes absent from
// the file are deactivated rather than deleted so their appointment
// history survives. guestCap seeds an allotment for guest-tier users who
// have none. The whole sync runs in one transaction.
func (db *DB) SyncFleetFromConfig(ctx context.Context, fleet *config.FleetConfig, guestCap time.Duration) error {
	return db.InTx(ctx, func(s scheduling.Stores) error {
		qs, ok := s.Telescopes.(*queries)
		if !ok {
			return fmt.Errorf("fleet sync requires sqlite-backed stores")
		}

		keep := make([]string, 0, len(fleet.Telescopes))
		for _, tc := range fleet.Telescopes {
			t := &models.Telescope{ID: tc.ID, Name: tc.Name, Active: tc.Active}
			if err := qs.UpsertTelescope(ctx, t); err != nil {
				return err
			}
			keep = append(keep, tc.ID)
		}
		deactivated, err := qs.DeactivateTelescopesExcept(ctx, keep)
		if err != nil {
			return fmt.Errorf("deactivate removed telescopes: %w", err)
		}
		if deactivated > 0 {
			db.logger.Info().Int64("count", deactivated).Msg("deactivated telescopes removed from fleet config")
		}

		for _, bc := range fleet.Bodies {
			body := &models.CelestialBody{
				ID:         bc.ID,
				Name:       bc.Name,
				Coordinate: models.NewCoordinate(bc.Hours, bc.Minutes, bc.Seconds, bc.Declination),
			}
			if err := qs.UpsertCelestialBody(ctx, body); err != nil {
				return err
			}
		}

		for _, uc := range fleet.Users {
			u := &models.User{ID: uc.ID, Name: uc.Name}
			for _, rc := range uc.Roles {
				u.Roles = append(u.Roles, models.Role{
					Name:     models.RoleName(rc.Name),
					Approved: rc.Approved,
				})
			}
			if err := qs.UpsertUser(ctx, u); err != nil {
				return err
			}

			switch {
			case uc.Unlimited:
				if err := qs.SetTimeCap(ctx, uc.ID, nil); err != nil {
					return err
				}
			case uc.CapHours > 0:
				cap := time.Duration(uc.CapHours) * time.Hour
				if err := qs.SetTimeCap(ctx, uc.ID, &cap); err != nil {
					return err
				}
			case u.HasApprovedRole(models.RoleGuest) && guestCap > 0:
				if err := qs.EnsureTimeCap(ctx, uc.ID, guestCap); err != nil {
					return err
				}
			}
		}

		db.logger.Info().
			Int("telescopes", len(fleet.Telescopes)).
			Int("bodies", len(fleet.Bodies)).
			Int("users", len(fleet.Users)).
			Msg("fleet config synced")
		return nil
	})
}
