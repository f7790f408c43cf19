package scheduling

import (
	"time"

	"skydish/internal/models"
)

// Envelope carries the fields common to all four observation modes.
type Envelope struct {
	UserID      string          `json:"user_id"`
	TelescopeID string          `json:"telescope_id"`
	StartTime   time.Time       `json:"start_time"`
	EndTime     time.Time       `json:"end_time"`
	Public      bool            `json:"public"`
	Priority    models.Priority `json:"priority"`
}

// Duration returns the proposed session length. Negative when the
// interval is inverted; the pipeline rejects those before quota math.
func (e Envelope) Duration() time.Duration {
	return e.EndTime.Sub(e.StartTime)
}

// CoordinateInput is a raw sexagesimal sky position as submitted.
type CoordinateInput struct {
	Hours       int     `json:"hours"`
	Minutes     int     `json:"minutes"`
	Seconds     float64 `json:"seconds"`
	Declination float64 `json:"declination"`
}

// PointRequest books a single fixed sky coordinate.
type PointRequest struct {
	Envelope
	Coordinate CoordinateInput `json:"coordinate"`
}

// CelestialBodyRequest books tracking of a catalog entry.
type CelestialBodyRequest struct {
	Envelope
	BodyID string `json:"body_id"`
}

// DriftScanRequest books a fixed dish orientation.
type DriftScanRequest struct {
	Envelope
	Azimuth   float64 `json:"azimuth"`
	Elevation float64 `json:"elevation"`
}

// RasterScanRequest books an ordered sweep over two or more coordinates.
type RasterScanRequest struct {
	Envelope
	Coordinates []CoordinateInput `json:"coordinates"`
}

// validateCoordinate range-checks one sexagesimal coordinate. The label
// prefixes messages so raster entries are attributable by index.
func validateCoordinate(c CoordinateInput, label string, errs ErrorSet) {
	if c.Hours < 0 || c.Hours >= 24 {
		errs.Add(TagHours, "%shours must be in [0, 24), got %d", label, c.Hours)
	}
	if c.Minutes < 0 || c.Minutes >= 60 {
		errs.Add(TagMinutes, "%sminutes must be in [0, 60), got %d", label, c.Minutes)
	}
	if c.Seconds < 0 || c.Seconds >= 60 {
		errs.Add(TagSeconds, "%sseconds must be in [0, 60), got %g", label, c.Seconds)
	}
	if c.Declination < -90 || c.Declination > 90 {
		errs.Add(TagDeclination, "%sdeclination must be in [-90, 90], got %g", label, c.Declination)
	}
}

// validateOrientation range-checks a drift-scan attitude.
func validateOrientation(azimuth, elevation float64, errs ErrorSet) {
	if azimuth < 0 || azimuth >= 360 {
		errs.Add(TagAzimuth, "azimuth must be in [0, 360), got %g", azimuth)
	}
	if elevation < 0 || elevation > 90 {
		errs.Add(TagElevation, "elevation must be in [0, 90], got %g", elevation)
	}
}
