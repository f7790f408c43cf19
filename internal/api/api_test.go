package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skydish/internal/access"
	"skydish/internal/catalog"
	"skydish/internal/config"
	"skydish/internal/database"
	"skydish/internal/report"
	"skydish/internal/scheduling"
)

type testAPI struct {
	server  *httptest.Server
	db      *database.DB
	engine  *scheduling.Engine
	baseURL string
}

func newTestAPI(t *testing.T, opts func(*Options)) *testAPI {
	t.Helper()
	logger := zerolog.Nop()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "api.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	fleet := &config.FleetConfig{
		Telescopes: []config.TelescopeConfig{{ID: "dish-1", Name: "North Dish", Active: true}},
		Bodies: []config.BodyConfig{
			{ID: "m31", Name: "Andromeda Galaxy", Hours: 0, Minutes: 42, Seconds: 44, Declination: 41.27},
		},
		Users: []config.UserConfig{
			{ID: "guest-1", Name: "Guest", Roles: []config.RoleConfig{{Name: "GUEST", Approved: true}}, CapHours: 4},
			{ID: "admin-1", Name: "Admin", Roles: []config.RoleConfig{{Name: "ADMIN", Approved: true}}, Unlimited: true},
			{ID: "researcher-1", Name: "Researcher", Roles: []config.RoleConfig{{Name: "RESEARCHER", Approved: true}}, CapHours: 8},
		},
	}
	require.NoError(t, db.SyncFleetFromConfig(context.Background(), fleet, 2*time.Hour))

	heartbeats := database.NewHeartbeatStore(db)
	require.NoError(t, heartbeats.Record(context.Background(), "dish-1", time.Now()))

	engine := scheduling.NewEngine(db, heartbeats, scheduling.Config{}, nil, logger)
	guard := access.NewGuard(db.Stores().Users, logger)

	options := Options{
		Engine:     engine,
		Guard:      guard,
		Users:      db.Stores().Users,
		Heartbeats: heartbeats,
		Catalog:    catalog.NewCache(db, time.Minute, logger),
		Exporter:   report.NewExporter(engine, logger),
	}
	if opts != nil {
		opts(&options)
	}

	srv := httptest.NewServer(NewServer(options, logger).Handler())
	t.Cleanup(srv.Close)

	return &testAPI{server: srv, db: db, engine: engine, baseURL: srv.URL}
}

func (a *testAPI) do(t *testing.T, method, path, userID string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, a.baseURL+path, &buf)
	require.NoError(t, err)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func pointBody(start time.Time) map[string]any {
	return map[string]any{
		"type":         "POINT",
		"telescope_id": "dish-1",
		"start_time":   start.Format(time.RFC3339),
		"end_time":     start.Add(time.Hour).Format(time.RFC3339),
		"coordinate":   map[string]any{"hours": 5, "minutes": 30, "seconds": 0, "declination": 20},
	}
}

func TestCreateRequiresAuthentication(t *testing.T) {
	a := newTestAPI(t, nil)
	resp := a.do(t, http.MethodPost, "/api/appointments", "", pointBody(time.Now().Add(time.Hour)))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCreateAndFetchAppointment(t *testing.T) {
	a := newTestAPI(t, nil)
	start := time.Now().Add(time.Hour).Truncate(time.Second)

	resp := a.do(t, http.MethodPost, "/api/appointments", "guest-1", pointBody(start))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[map[string]string](t, resp)
	id := created["id"]
	require.NotEmpty(t, id)

	resp = a.do(t, http.MethodGet, "/api/appointments/"+id, "guest-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	details := decode[scheduling.Details](t, resp)
	assert.Equal(t, "guest-1", details.Appointment.UserID)
	require.NotNil(t, details.Coordinate)
	assert.Equal(t, 5, details.Coordinate.Hours)
}

func TestCreateOverlapRejected(t *testing.T) {
	a := newTestAPI(t, nil)
	start := time.Now().Add(time.Hour).Truncate(time.Second)

	resp := a.do(t, http.MethodPost, "/api/appointments", "guest-1", pointBody(start))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = a.do(t, http.MethodPost, "/api/appointments", "researcher-1", pointBody(start))
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	body := decode[map[string]map[string][]string](t, resp)
	assert.Contains(t, body["errors"], "OVERLAP")
}

func TestCreateUnknownTypeRejected(t *testing.T) {
	a := newTestAPI(t, nil)
	body := pointBody(time.Now().Add(time.Hour))
	body["type"] = "SPECTROGRAPH"

	resp := a.do(t, http.MethodPost, "/api/appointments", "guest-1", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStrangerCannotFetchPrivateAppointment(t *testing.T) {
	a := newTestAPI(t, nil)
	start := time.Now().Add(time.Hour).Truncate(time.Second)

	resp := a.do(t, http.MethodPost, "/api/appointments", "guest-1", pointBody(start))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := decode[map[string]string](t, resp)["id"]

	resp = a.do(t, http.MethodGet, "/api/appointments/"+id, "researcher-1", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Admins see everything.
	resp = a.do(t, http.MethodGet, "/api/appointments/"+id, "admin-1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLifecycleRequiresAdmin(t *testing.T) {
	a := newTestAPI(t, nil)
	start := time.Now().Add(time.Hour).Truncate(time.Second)

	resp := a.do(t, http.MethodPost, "/api/appointments", "guest-1", pointBody(start))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := decode[map[string]string](t, resp)["id"]

	resp = a.do(t, http.MethodPost, "/api/appointments/"+id+"/approve", "guest-1", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = a.do(t, http.MethodPost, "/api/appointments/"+id+"/approve", "admin-1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Already scheduled; approving again is a status failure, not a 500.
	resp = a.do(t, http.MethodPost, "/api/appointments/"+id+"/approve", "admin-1", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestOwnerCanCancel(t *testing.T) {
	a := newTestAPI(t, nil)
	start := time.Now().Add(time.Hour).Truncate(time.Second)

	resp := a.do(t, http.MethodPost, "/api/appointments", "guest-1", pointBody(start))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := decode[map[string]string](t, resp)["id"]

	// A different non-admin may not cancel someone else's session.
	resp = a.do(t, http.MethodPost, "/api/appointments/"+id+"/cancel", "researcher-1", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = a.do(t, http.MethodPost, "/api/appointments/"+id+"/cancel", "guest-1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUpdateAppointmentMissing(t *testing.T) {
	a := newTestAPI(t, nil)
	resp := a.do(t, http.MethodPut, "/api/appointments/ghost", "guest-1", pointBody(time.Now().Add(time.Hour)))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateMovesAppointment(t *testing.T) {
	a := newTestAPI(t, nil)
	start := time.Now().Add(time.Hour).Truncate(time.Second)

	resp := a.do(t, http.MethodPost, "/api/appointments", "guest-1", pointBody(start))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := decode[map[string]string](t, resp)["id"]

	moved := pointBody(start.Add(30 * time.Minute))
	resp = a.do(t, http.MethodPut, "/api/appointments/"+id, "guest-1", moved)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "an update must not collide with its own interval")
}

func TestHeartbeatIngest(t *testing.T) {
	a := newTestAPI(t, nil)
	resp := a.do(t, http.MethodPost, "/api/telescopes/dish-1/heartbeat", "", map[string]any{})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestBodySearch(t *testing.T) {
	a := newTestAPI(t, nil)

	resp := a.do(t, http.MethodGet, "/api/bodies?q=andromeda", "guest-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string][]map[string]any](t, resp)
	require.Len(t, body["bodies"], 1)

	resp = a.do(t, http.MethodGet, "/api/bodies", "guest-1", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestScheduleExportRequiresAdmin(t *testing.T) {
	a := newTestAPI(t, nil)

	resp := a.do(t, http.MethodGet, "/api/reports/schedule", "guest-1", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = a.do(t, http.MethodGet, "/api/reports/schedule", "admin-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "spreadsheetml")
}

func TestRateLimit(t *testing.T) {
	a := newTestAPI(t, func(o *Options) {
		o.RatePerSecond = 1
		o.Burst = 1
	})

	limited := false
	for i := 0; i < 3; i++ {
		resp := a.do(t, http.MethodGet, fmt.Sprintf("/api/telescopes?n=%d", i), "guest-1", nil)
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = true
		}
	}
	assert.True(t, limited, "burst of requests past the bucket must be refused")
}
