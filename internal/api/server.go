// Package api exposes the scheduling engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"skydish/internal/access"
	"skydish/internal/catalog"
	"skydish/internal/models"
	"skydish/internal/report"
	"skydish/internal/scheduling"
)

// Server hosts the appointment API. Authentication happens upstream; the
// server trusts the X-User-ID header the authenticator injects and the
// guard decides everything else.
type Server struct {
	engine     *scheduling.Engine
	guard      *access.Guard
	users      access.UserSource
	heartbeats scheduling.HeartbeatStore
	catalog    *catalog.Cache
	exporter   *report.Exporter
	limiter    *clientLimiter
	logger     zerolog.Logger
	httpServer *http.Server
}

// Options carries the server's collaborators.
type Options struct {
	Engine     *scheduling.Engine
	Guard      *access.Guard
	Users      access.UserSource
	Heartbeats scheduling.HeartbeatStore
	Catalog    *catalog.Cache
	Exporter   *report.Exporter
	// RatePerSecond and Burst bound per-caller request rates. Zero
	// disables limiting.
	RatePerSecond float64
	Burst         int
}

// NewServer wires the routes.
func NewServer(opts Options, logger zerolog.Logger) *Server {
	s := &Server{
		engine:     opts.Engine,
		guard:      opts.Guard,
		users:      opts.Users,
		heartbeats: opts.Heartbeats,
		catalog:    opts.Catalog,
		exporter:   opts.Exporter,
		logger:     logger.With().Str("component", "api").Logger(),
	}
	if opts.RatePerSecond > 0 {
		s.limiter = newClientLimiter(opts.RatePerSecond, opts.Burst)
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/appointments", s.handleCreateAppointment)
	mux.HandleFunc("PUT /api/appointments/{id}", s.handleUpdateAppointment)
	mux.HandleFunc("GET /api/appointments/{id}", s.handleGetAppointment)
	mux.HandleFunc("POST /api/appointments/{id}/approve", s.lifecycleHandler("approve", s.engine.Approve))
	mux.HandleFunc("POST /api/appointments/{id}/deny", s.lifecycleHandler("deny", s.engine.Deny))
	mux.HandleFunc("POST /api/appointments/{id}/begin", s.lifecycleHandler("begin", s.engine.Begin))
	mux.HandleFunc("POST /api/appointments/{id}/complete", s.lifecycleHandler("complete", s.engine.Complete))
	mux.HandleFunc("POST /api/appointments/{id}/cancel", s.handleCancel)

	mux.HandleFunc("GET /api/telescopes", s.handleListTelescopes)
	mux.HandleFunc("GET /api/telescopes/{id}/schedule", s.handleTelescopeSchedule)
	mux.HandleFunc("POST /api/telescopes/{id}/heartbeat", s.handleHeartbeat)

	mux.HandleFunc("GET /api/bodies", s.handleSearchBodies)
	mux.HandleFunc("GET /api/reports/schedule", s.handleScheduleExport)

	return s.withMiddleware(mux)
}

// Start serves the API until the listener fails or Shutdown is called.
func (s *Server) Start(port int) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.logger.Info().Int("port", port).Msg("api server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// callerFrom reads the authenticated principal injected by the upstream
// authenticator. An absent header is an unauthenticated caller; the
// guard turns that into a denial.
func callerFrom(r *http.Request) access.Caller {
	id := r.Header.Get("X-User-ID")
	return access.Caller{UserID: id, Authenticated: id != ""}
}

// isElevated reports whether the caller holds an approved admin role,
// read fresh so revocations apply immediately.
func (s *Server) isElevated(ctx context.Context, caller access.Caller) (bool, error) {
	if !caller.Authenticated {
		return false, nil
	}
	user, err := s.users.GetUser(ctx, caller.UserID)
	if err != nil {
		return false, err
	}
	return user != nil && user.HasApprovedRole(models.RoleAdmin), nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeErrorSet maps validation failure categories onto HTTP statuses:
// a missing target is 404, a visibility refusal 403, anything else 422.
func writeErrorSet(w http.ResponseWriter, errs scheduling.ErrorSet) {
	status := http.StatusUnprocessableEntity
	switch {
	case errs.Has(scheduling.TagID):
		status = http.StatusNotFound
	case errs.Has(scheduling.TagPublic):
		status = http.StatusForbidden
	}
	writeJSON(w, status, map[string]any{"errors": errs})
}

func writeDenial(w http.ResponseWriter, rep *access.Report) {
	writeJSON(w, http.StatusForbidden, map[string]any{"denied": rep})
}
