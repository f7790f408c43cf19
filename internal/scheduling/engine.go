package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"skydish/internal/events"
	"skydish/internal/metrics"
	"skydish/internal/models"
)

// StatusPolicy decides the status a freshly admitted appointment enters.
// Which privilege schedules directly is an operator decision, so the
// policy is injected rather than baked in.
type StatusPolicy func(user *models.User) models.Status

// DefaultStatusPolicy schedules approved admins immediately and files
// everyone else's request for review.
func DefaultStatusPolicy(user *models.User) models.Status {
	if user.HasApprovedRole(models.RoleAdmin) {
		return models.StatusScheduled
	}
	return models.StatusRequested
}

// Config carries the engine's tunables.
type Config struct {
	// HeartbeatStaleness is how old a telescope's last communication may
	// be before new pointing appointments are refused.
	HeartbeatStaleness time.Duration
	// StatusPolicy defaults to DefaultStatusPolicy when nil.
	StatusPolicy StatusPolicy
	// Clock defaults to time.Now; tests pin it.
	Clock func() time.Time
}

// Engine admits, updates and transitions appointments. All decisions for
// one call run inside a single transaction obtained from db.
type Engine struct {
	db           TxRunner
	heartbeats   HeartbeatStore
	staleness    time.Duration
	statusPolicy StatusPolicy
	nowFn        func() time.Time
	bus          *events.Bus
	logger       zerolog.Logger
}

// NewEngine creates the scheduling engine. bus may be nil.
func NewEngine(db TxRunner, heartbeats HeartbeatStore, cfg Config, bus *events.Bus, logger zerolog.Logger) *Engine {
	if cfg.HeartbeatStaleness <= 0 {
		cfg.HeartbeatStaleness = 15 * time.Minute
	}
	if cfg.StatusPolicy == nil {
		cfg.StatusPolicy = DefaultStatusPolicy
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Engine{
		db:           db,
		heartbeats:   heartbeats,
		staleness:    cfg.HeartbeatStaleness,
		statusPolicy: cfg.StatusPolicy,
		nowFn:        cfg.Clock,
		bus:          bus,
		logger:       logger.With().Str("component", "scheduling").Logger(),
	}
}

func (e *Engine) now() time.Time {
	return e.nowFn()
}

// CreatePoint admits a fixed-coordinate appointment.
func (e *Engine) CreatePoint(ctx context.Context, req PointRequest) (string, ErrorSet, error) {
	errs := ErrorSet{}
	validateCoordinate(req.Coordinate, "", errs)
	return e.create(ctx, req.Envelope, models.TypePoint, errs, true, nil,
		func(ctx context.Context, s Stores, id string) error {
			c := models.NewCoordinate(req.Coordinate.Hours, req.Coordinate.Minutes, req.Coordinate.Seconds, req.Coordinate.Declination)
			return s.Payloads.SavePointCoordinate(ctx, id, c)
		})
}

// CreateCelestialBody admits a catalog-tracking appointment.
func (e *Engine) CreateCelestialBody(ctx context.Context, req CelestialBodyRequest) (string, ErrorSet, error) {
	errs := ErrorSet{}
	return e.create(ctx, req.Envelope, models.TypeCelestialBody, errs, true,
		e.bodyExistsCheck(req.BodyID),
		func(ctx context.Context, s Stores, id string) error {
			return s.Payloads.SaveBodyRef(ctx, id, req.BodyID)
		})
}

// CreateDriftScan admits a fixed-orientation appointment.
func (e *Engine) CreateDriftScan(ctx context.Context, req DriftScanRequest) (string, ErrorSet, error) {
	errs := ErrorSet{}
	validateOrientation(req.Azimuth, req.Elevation, errs)
	return e.create(ctx, req.Envelope, models.TypeDriftScan, errs, true, nil,
		func(ctx context.Context, s Stores, id string) error {
			return s.Payloads.SaveOrientation(ctx, id, models.Orientation{Azimuth: req.Azimuth, Elevation: req.Elevation})
		})
}

// CreateRasterScan admits a multi-coordinate sweep. Raster scans never
// gated on telescope connectivity, a quirk kept on purpose.
func (e *Engine) CreateRasterScan(ctx context.Context, req RasterScanRequest) (string, ErrorSet, error) {
	errs := ErrorSet{}
	validateRasterPath(req.Coordinates, errs)
	return e.create(ctx, req.Envelope, models.TypeRasterScan, errs, false, nil,
		func(ctx context.Context, s Stores, id string) error {
			return s.Payloads.SaveRasterPath(ctx, id, buildRasterPath(req.Coordinates))
		})
}

// UpdatePoint revalidates and rewrites an appointment as a point
// observation, replacing whatever payload it had before.
func (e *Engine) UpdatePoint(ctx context.Context, id string, req PointRequest) (ErrorSet, error) {
	errs := ErrorSet{}
	validateCoordinate(req.Coordinate, "", errs)
	return e.update(ctx, id, req.Envelope, models.TypePoint, errs, true, nil,
		func(ctx context.Context, s Stores, id string) error {
			c := models.NewCoordinate(req.Coordinate.Hours, req.Coordinate.Minutes, req.Coordinate.Seconds, req.Coordinate.Declination)
			return s.Payloads.SavePointCoordinate(ctx, id, c)
		})
}

// UpdateCelestialBody revalidates and rewrites an appointment as a
// catalog-tracking observation.
func (e *Engine) UpdateCelestialBody(ctx context.Context, id string, req CelestialBodyRequest) (ErrorSet, error) {
	errs := ErrorSet{}
	return e.update(ctx, id, req.Envelope, models.TypeCelestialBody, errs, true,
		e.bodyExistsCheck(req.BodyID),
		func(ctx context.Context, s Stores, id string) error {
			return s.Payloads.SaveBodyRef(ctx, id, req.BodyID)
		})
}

// UpdateDriftScan revalidates and rewrites an appointment as a drift scan.
func (e *Engine) UpdateDriftScan(ctx context.Context, id string, req DriftScanRequest) (ErrorSet, error) {
	errs := ErrorSet{}
	validateOrientation(req.Azimuth, req.Elevation, errs)
	return e.update(ctx, id, req.Envelope, models.TypeDriftScan, errs, true, nil,
		func(ctx context.Context, s Stores, id string) error {
			return s.Payloads.SaveOrientation(ctx, id, models.Orientation{Azimuth: req.Azimuth, Elevation: req.Elevation})
		})
}

// UpdateRasterScan revalidates and rewrites an appointment as a raster
// sweep.
func (e *Engine) UpdateRasterScan(ctx context.Context, id string, req RasterScanRequest) (ErrorSet, error) {
	errs := ErrorSet{}
	validateRasterPath(req.Coordinates, errs)
	return e.update(ctx, id, req.Envelope, models.TypeRasterScan, errs, false, nil,
		func(ctx context.Context, s Stores, id string) error {
			return s.Payloads.SaveRasterPath(ctx, id, buildRasterPath(req.Coordinates))
		})
}

// storeCheck is a variant check that needs transactional store access,
// such as catalog existence.
type storeCheck func(ctx context.Context, s Stores, errs ErrorSet) error

// persistPayload writes the variant payload for an admitted appointment.
type persistPayload func(ctx context.Context, s Stores, appointmentID string) error

func (e *Engine) bodyExistsCheck(bodyID string) storeCheck {
	return func(ctx context.Context, s Stores, errs ErrorSet) error {
		body, err := s.Catalog.GetCelestialBody(ctx, bodyID)
		if err != nil {
			return err
		}
		if body == nil {
			errs.Add(TagCelestialBody, "celestial body %s does not exist", bodyID)
		}
		return nil
	}
}

func validateRasterPath(coords []CoordinateInput, errs ErrorSet) {
	if len(coords) < 2 {
		errs.Add(TagCoordinates, "raster scan requires at least 2 coordinates, got %d", len(coords))
	}
	for i, c := range coords {
		validateCoordinate(c, fmt.Sprintf("coordinate %d: ", i), errs)
	}
}

func buildRasterPath(coords []CoordinateInput) []models.Coordinate {
	path := make([]models.Coordinate, 0, len(coords))
	for _, c := range coords {
		path = append(path, models.NewCoordinate(c.Hours, c.Minutes, c.Seconds, c.Declination))
	}
	return path
}

// create runs the shared pipeline plus variant checks inside one
// transaction and commits the appointment with its payload on success.
func (e *Engine) create(ctx context.Context, env Envelope, typ models.AppointmentType, errs ErrorSet, needsLiveness bool, check storeCheck, persist persistPayload) (string, ErrorSet, error) {
	var (
		id     string
		status models.Status
	)
	err := e.db.InTx(ctx, func(s Stores) error {
		user, perrs, err := e.runPipeline(ctx, s, env, "", needsLiveness)
		if err != nil {
			return err
		}
		errs.Merge(perrs)
		if check != nil {
			if err := check(ctx, s, errs); err != nil {
				return err
			}
		}
		if !errs.Empty() {
			return nil
		}

		now := e.now()
		appt := &models.Appointment{
			ID:          uuid.NewString(),
			UserID:      env.UserID,
			TelescopeID: env.TelescopeID,
			StartTime:   env.StartTime,
			EndTime:     env.EndTime,
			Status:      e.statusPolicy(user),
			Priority:    priorityOrDefault(env.Priority),
			Type:        typ,
			Public:      env.Public,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.Appointments.CreateAppointment(ctx, appt); err != nil {
			return err
		}
		if err := persist(ctx, s, appt.ID); err != nil {
			return err
		}
		id = appt.ID
		status = appt.Status
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	if !errs.Empty() {
		e.recordRejection(typ, errs)
		return "", errs, nil
	}

	metrics.IncAppointmentAdmitted(string(typ), string(status))
	e.publish(events.TypeAppointmentCreated, id, env, status)
	e.logger.Info().
		Str("appointment_id", id).
		Str("user_id", env.UserID).
		Str("telescope_id", env.TelescopeID).
		Str("type", string(typ)).
		Str("status", string(status)).
		Msg("appointment admitted")
	return id, nil, nil
}

// update revalidates the new interval with the appointment's own prior
// occupancy excluded from conflict checks, then replaces envelope and
// payload. Payload rows are always deleted and rewritten, so a
// type-changing update cannot leave orphans.
func (e *Engine) update(ctx context.Context, id string, env Envelope, typ models.AppointmentType, errs ErrorSet, needsLiveness bool, check storeCheck, persist persistPayload) (ErrorSet, error) {
	var status models.Status
	err := e.db.InTx(ctx, func(s Stores) error {
		existing, err := s.Appointments.GetAppointment(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			errs.Add(TagID, "appointment %s does not exist", id)
			return nil
		}
		if !existing.Status.IsLive() {
			errs.Add(TagStatus, "appointment %s is %s and cannot be updated", id, existing.Status)
		}

		_, perrs, err := e.runPipeline(ctx, s, env, id, needsLiveness)
		if err != nil {
			return err
		}
		errs.Merge(perrs)
		if check != nil {
			if err := check(ctx, s, errs); err != nil {
				return err
			}
		}
		if !errs.Empty() {
			return nil
		}

		existing.TelescopeID = env.TelescopeID
		existing.StartTime = env.StartTime
		existing.EndTime = env.EndTime
		existing.Public = env.Public
		existing.Priority = priorityOrDefault(env.Priority)
		existing.Type = typ
		existing.UpdatedAt = e.now()
		if err := s.Appointments.UpdateAppointment(ctx, existing); err != nil {
			return err
		}
		if err := s.Payloads.DeletePayload(ctx, id); err != nil {
			return err
		}
		if err := persist(ctx, s, id); err != nil {
			return err
		}
		status = existing.Status
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !errs.Empty() {
		e.recordRejection(typ, errs)
		return errs, nil
	}

	e.publish(events.TypeAppointmentUpdated, id, env, status)
	e.logger.Info().
		Str("appointment_id", id).
		Str("type", string(typ)).
		Msg("appointment updated")
	return nil, nil
}

func (e *Engine) recordRejection(typ models.AppointmentType, errs ErrorSet) {
	for _, tag := range errs.Tags() {
		metrics.IncValidationFailure(string(tag))
	}
	e.logger.Debug().
		Str("type", string(typ)).
		Str("errors", errs.String()).
		Msg("appointment rejected")
}

func (e *Engine) publish(eventType string, id string, env Envelope, status models.Status) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(events.Event{
		Type:          eventType,
		AppointmentID: id,
		UserID:        env.UserID,
		TelescopeID:   env.TelescopeID,
		Status:        string(status),
		At:            e.now(),
	})
}

func priorityOrDefault(p models.Priority) models.Priority {
	if p == "" {
		return models.PrioritySecondary
	}
	return p
}
