package scheduling

import (
	"context"
	"sync"
	"time"

	"skydish/internal/models"
)

// memStore is an in-memory Stores bundle plus heartbeat store. InTx
// runs fn directly; transactional isolation is the sqlite layer's
// concern, not this package's.
type memStore struct {
	mu           sync.Mutex
	users        map[string]*models.User
	telescopes   map[string]bool
	bodies       map[string]*models.CelestialBody
	appointments map[string]*models.Appointment
	caps         map[string]*models.TimeCap
	points       map[string]models.Coordinate
	bodyRefs     map[string]string
	orientations map[string]models.Orientation
	rasters      map[string][]models.Coordinate
	heartbeats   map[string]time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:        make(map[string]*models.User),
		telescopes:   make(map[string]bool),
		bodies:       make(map[string]*models.CelestialBody),
		appointments: make(map[string]*models.Appointment),
		caps:         make(map[string]*models.TimeCap),
		points:       make(map[string]models.Coordinate),
		bodyRefs:     make(map[string]string),
		orientations: make(map[string]models.Orientation),
		rasters:      make(map[string][]models.Coordinate),
		heartbeats:   make(map[string]time.Time),
	}
}

func (m *memStore) InTx(_ context.Context, fn func(s Stores) error) error {
	return fn(Stores{
		Users:        m,
		Telescopes:   m,
		Catalog:      m,
		Appointments: m,
		Caps:         m,
		Payloads:     m,
	})
}

func (m *memStore) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id], nil
}

func (m *memStore) TelescopeExists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.telescopes[id], nil
}

func (m *memStore) ListTelescopes(_ context.Context) ([]models.Telescope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Telescope, 0, len(m.telescopes))
	for id, active := range m.telescopes {
		out = append(out, models.Telescope{ID: id, Name: id, Active: active})
	}
	return out, nil
}

func (m *memStore) GetCelestialBody(_ context.Context, id string) (*models.CelestialBody, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bodies[id], nil
}

func (m *memStore) GetAppointment(_ context.Context, id string) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.appointments[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, nil
}

func (m *memStore) CreateAppointment(_ context.Context, appt *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *appt
	m.appointments[appt.ID] = &copied
	return nil
}

func (m *memStore) UpdateAppointment(_ context.Context, appt *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *appt
	m.appointments[appt.ID] = &copied
	return nil
}

func (m *memStore) UpdateAppointmentStatus(_ context.Context, id string, status models.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appointments[id].Status = status
	return nil
}

func (m *memStore) LiveAppointmentsByTelescope(_ context.Context, telescopeID string) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Appointment
	for _, a := range m.appointments {
		if a.TelescopeID == telescopeID && a.Status.IsLive() {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memStore) LiveAppointmentsByUser(_ context.Context, userID string) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Appointment
	for _, a := range m.appointments {
		if a.UserID == userID && a.Status.IsLive() {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memStore) GetTimeCap(_ context.Context, userID string) (*models.TimeCap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.caps[userID], nil
}

func (m *memStore) SavePointCoordinate(_ context.Context, id string, c models.Coordinate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points[id] = c
	return nil
}

func (m *memStore) SaveBodyRef(_ context.Context, id, bodyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bodyRefs[id] = bodyID
	return nil
}

func (m *memStore) SaveOrientation(_ context.Context, id string, o models.Orientation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orientations[id] = o
	return nil
}

func (m *memStore) SaveRasterPath(_ context.Context, id string, path []models.Coordinate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rasters[id] = append([]models.Coordinate(nil), path...)
	return nil
}

func (m *memStore) GetPointCoordinate(_ context.Context, id string) (*models.Coordinate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.points[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (m *memStore) GetBodyRef(_ context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bodyRefs[id], nil
}

func (m *memStore) GetOrientation(_ context.Context, id string) (*models.Orientation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orientations[id]; ok {
		return &o, nil
	}
	return nil, nil
}

func (m *memStore) GetRasterPath(_ context.Context, id string) ([]models.Coordinate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rasters[id], nil
}

func (m *memStore) DeletePayload(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.points, id)
	delete(m.bodyRefs, id)
	delete(m.orientations, id)
	delete(m.rasters, id)
	return nil
}

func (m *memStore) LastCommunication(_ context.Context, telescopeID string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.heartbeats[telescopeID]
	return at, ok, nil
}

func (m *memStore) Record(_ context.Context, telescopeID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.heartbeats[telescopeID] = at
	return nil
}

// payloadCount reports how many payload rows of any variant exist for
// the appointment.
func (m *memStore) payloadCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	if _, ok := m.points[id]; ok {
		n++
	}
	if _, ok := m.bodyRefs[id]; ok {
		n++
	}
	if _, ok := m.orientations[id]; ok {
		n++
	}
	if len(m.rasters[id]) > 0 {
		n++
	}
	return n
}
