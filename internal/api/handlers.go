package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"skydish/internal/access"
	"skydish/internal/metrics"
	"skydish/internal/models"
	"skydish/internal/scheduling"
)

// bookingRoles may create and update appointments.
var bookingRoles = []models.RoleName{
	models.RoleGuest, models.RoleResearcher, models.RoleMember, models.RoleAdmin,
}

// appointmentRequest is the wire form for creates and updates. The type
// field selects the variant; only that variant's payload fields are read.
type appointmentRequest struct {
	Type        models.AppointmentType       `json:"type"`
	TelescopeID string                       `json:"telescope_id"`
	UserID      string                       `json:"user_id,omitempty"`
	StartTime   time.Time                    `json:"start_time"`
	EndTime     time.Time                    `json:"end_time"`
	Public      bool                         `json:"public"`
	Priority    models.Priority              `json:"priority,omitempty"`
	Coordinate  *scheduling.CoordinateInput  `json:"coordinate,omitempty"`
	BodyID      string                       `json:"body_id,omitempty"`
	Azimuth     float64                      `json:"azimuth,omitempty"`
	Elevation   float64                      `json:"elevation,omitempty"`
	Coordinates []scheduling.CoordinateInput `json:"coordinates,omitempty"`
}

func (req *appointmentRequest) envelope(caller access.Caller) scheduling.Envelope {
	userID := req.UserID
	if userID == "" {
		userID = caller.UserID
	}
	return scheduling.Envelope{
		UserID:      userID,
		TelescopeID: req.TelescopeID,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Public:      req.Public,
		Priority:    req.Priority,
	}
}

func coordinateOrZero(c *scheduling.CoordinateInput) scheduling.CoordinateInput {
	if c == nil {
		return scheduling.CoordinateInput{}
	}
	return *c
}

func (s *Server) handleCreateAppointment(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_appointment")
	caller := callerFrom(r)

	var req appointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if !req.Type.Valid() {
		writeError(w, http.StatusBadRequest, "unknown appointment type")
		return
	}
	env := req.envelope(caller)

	// Booking for someone else is an elevated operation.
	cap := access.Capability{AnyOf: bookingRoles}
	if env.UserID != caller.UserID {
		cap.OwnerScoped = true
		cap.Elevated = []models.RoleName{models.RoleAdmin}
	}

	var (
		id   string
		errs scheduling.ErrorSet
	)
	rep, err := s.guard.Run(r.Context(), caller, cap, env.UserID, func(ctx context.Context) error {
		var opErr error
		id, errs, opErr = s.dispatchCreate(ctx, req, env)
		return opErr
	})
	if err != nil {
		s.internalError(w, err)
		return
	}
	if rep != nil {
		writeDenial(w, rep)
		return
	}
	if !errs.Empty() {
		writeErrorSet(w, errs)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) dispatchCreate(ctx context.Context, req appointmentRequest, env scheduling.Envelope) (string, scheduling.ErrorSet, error) {
	switch req.Type {
	case models.TypePoint:
		return s.engine.CreatePoint(ctx, scheduling.PointRequest{Envelope: env, Coordinate: coordinateOrZero(req.Coordinate)})
	case models.TypeCelestialBody:
		return s.engine.CreateCelestialBody(ctx, scheduling.CelestialBodyRequest{Envelope: env, BodyID: req.BodyID})
	case models.TypeDriftScan:
		return s.engine.CreateDriftScan(ctx, scheduling.DriftScanRequest{Envelope: env, Azimuth: req.Azimuth, Elevation: req.Elevation})
	default:
		return s.engine.CreateRasterScan(ctx, scheduling.RasterScanRequest{Envelope: env, Coordinates: req.Coordinates})
	}
}

func (s *Server) handleUpdateAppointment(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("update_appointment")
	caller := callerFrom(r)
	id := r.PathValue("id")

	var req appointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if !req.Type.Valid() {
		writeError(w, http.StatusBadRequest, "unknown appointment type")
		return
	}

	owner, err := s.engine.OwnerOf(r.Context(), id)
	if err != nil {
		s.internalError(w, err)
		return
	}
	env := req.envelope(caller)
	if req.UserID == "" && owner != "" {
		env.UserID = owner
	}

	// A missing appointment skips the ownership gate so the engine can
	// report it as not found instead of a denial.
	cap := access.Capability{AnyOf: bookingRoles}
	if owner != "" {
		cap.OwnerScoped = true
		cap.Elevated = []models.RoleName{models.RoleAdmin}
	}

	var errs scheduling.ErrorSet
	rep, err := s.guard.Run(r.Context(), caller, cap, owner, func(ctx context.Context) error {
		var opErr error
		errs, opErr = s.dispatchUpdate(ctx, id, req, env)
		return opErr
	})
	if err != nil {
		s.internalError(w, err)
		return
	}
	if rep != nil {
		writeDenial(w, rep)
		return
	}
	if !errs.Empty() {
		writeErrorSet(w, errs)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) dispatchUpdate(ctx context.Context, id string, req appointmentRequest, env scheduling.Envelope) (scheduling.ErrorSet, error) {
	switch req.Type {
	case models.TypePoint:
		return s.engine.UpdatePoint(ctx, id, scheduling.PointRequest{Envelope: env, Coordinate: coordinateOrZero(req.Coordinate)})
	case models.TypeCelestialBody:
		return s.engine.UpdateCelestialBody(ctx, id, scheduling.CelestialBodyRequest{Envelope: env, BodyID: req.BodyID})
	case models.TypeDriftScan:
		return s.engine.UpdateDriftScan(ctx, id, scheduling.DriftScanRequest{Envelope: env, Azimuth: req.Azimuth, Elevation: req.Elevation})
	default:
		return s.engine.UpdateRasterScan(ctx, id, scheduling.RasterScanRequest{Envelope: env, Coordinates: req.Coordinates})
	}
}

func (s *Server) handleGetAppointment(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("get_appointment")
	caller := callerFrom(r)
	id := r.PathValue("id")

	elevated, err := s.isElevated(r.Context(), caller)
	if err != nil {
		s.internalError(w, err)
		return
	}

	details, errs, err := s.engine.GetForViewer(r.Context(), id, caller.UserID, elevated)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if !errs.Empty() {
		writeErrorSet(w, errs)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// lifecycleHandler gates a status transition behind the admin role.
func (s *Server) lifecycleHandler(name string, op func(ctx context.Context, id string) (scheduling.ErrorSet, error)) http.HandlerFunc {
	cap := access.Capability{AnyOf: []models.RoleName{models.RoleAdmin}}
	return func(w http.ResponseWriter, r *http.Request) {
		metrics.IncHTTP(name)
		caller := callerFrom(r)
		id := r.PathValue("id")

		var errs scheduling.ErrorSet
		rep, err := s.guard.Run(r.Context(), caller, cap, "", func(ctx context.Context) error {
			var opErr error
			errs, opErr = op(ctx, id)
			return opErr
		})
		if err != nil {
			s.internalError(w, err)
			return
		}
		if rep != nil {
			writeDenial(w, rep)
			return
		}
		if !errs.Empty() {
			writeErrorSet(w, errs)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": id})
	}
}

// handleCancel differs from the other transitions: owners may cancel
// their own appointments, admins anyone's.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("cancel")
	caller := callerFrom(r)
	id := r.PathValue("id")

	owner, err := s.engine.OwnerOf(r.Context(), id)
	if err != nil {
		s.internalError(w, err)
		return
	}

	cap := access.Capability{AnyOf: bookingRoles}
	if owner != "" {
		cap.OwnerScoped = true
		cap.Elevated = []models.RoleName{models.RoleAdmin}
	}

	var errs scheduling.ErrorSet
	rep, err := s.guard.Run(r.Context(), caller, cap, owner, func(ctx context.Context) error {
		var opErr error
		errs, opErr = s.engine.Cancel(ctx, id)
		return opErr
	})
	if err != nil {
		s.internalError(w, err)
		return
	}
	if rep != nil {
		writeDenial(w, rep)
		return
	}
	if !errs.Empty() {
		writeErrorSet(w, errs)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleListTelescopes(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list_telescopes")
	telescopes, err := s.engine.ListTelescopes(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"telescopes": telescopes})
}

func (s *Server) handleTelescopeSchedule(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("telescope_schedule")
	id := r.PathValue("id")

	from, to, errs := scheduleWindow(r)
	if errs != nil {
		writeErrorSet(w, errs)
		return
	}

	schedule, serrs, err := s.engine.TelescopeSchedule(r.Context(), id, from, to)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if !serrs.Empty() {
		writeErrorSet(w, serrs)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schedule": schedule})
}

// scheduleWindow parses from/to query parameters, defaulting to the next
// seven days.
func scheduleWindow(r *http.Request) (time.Time, time.Time, scheduling.ErrorSet) {
	now := time.Now()
	from, to := now, now.Add(7*24*time.Hour)

	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			errs := scheduling.ErrorSet{}
			errs.Add(scheduling.TagSearch, "from must be RFC3339, got %q", v)
			return from, to, errs
		}
		from = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			errs := scheduling.ErrorSet{}
			errs.Add(scheduling.TagSearch, "to must be RFC3339, got %q", v)
			return from, to, errs
		}
		to = t
	}
	return from, to, nil
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("heartbeat")
	id := r.PathValue("id")

	// Telescopes report on their own schedule; an explicit timestamp in
	// the body overrides ingestion time.
	at := time.Now()
	var body struct {
		At *time.Time `json:"at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.At != nil {
		at = *body.At
	}

	if err := s.heartbeats.Record(r.Context(), id, at); err != nil {
		s.internalError(w, err)
		return
	}
	metrics.IncHeartbeat()
	writeJSON(w, http.StatusAccepted, map[string]string{"telescope_id": id})
}

func (s *Server) handleSearchBodies(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("search_bodies")

	query := r.URL.Query().Get("q")
	if query == "" {
		errs := scheduling.ErrorSet{}
		errs.Add(scheduling.TagSearch, "query parameter q is required")
		writeErrorSet(w, errs)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	bodies, err := s.catalog.Search(r.Context(), query, limit)
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bodies": bodies})
}

func (s *Server) handleScheduleExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("schedule_export")
	caller := callerFrom(r)

	rep, err := s.guard.Check(r.Context(), caller, access.Capability{AnyOf: []models.RoleName{models.RoleAdmin}}, "")
	if err != nil {
		s.internalError(w, err)
		return
	}
	if rep != nil {
		writeDenial(w, rep)
		return
	}

	from, to, errs := scheduleWindow(r)
	if errs != nil {
		writeErrorSet(w, errs)
		return
	}

	f, err := s.exporter.ScheduleWorkbook(r.Context(), from, to)
	if err != nil {
		s.internalError(w, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="schedule.xlsx"`)
	if _, err := f.WriteTo(w); err != nil {
		s.logger.Error().Err(err).Msg("writing schedule workbook")
	}
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.logger.Error().Err(err).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}
