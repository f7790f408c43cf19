package models

// Coordinate is an equatorial sky position. Right ascension is derived
// from the sexagesimal hours/minutes/seconds, which are kept for display.
type Coordinate struct {
	Hours          int     `json:"hours"`
	Minutes        int     `json:"minutes"`
	Seconds        float64 `json:"seconds"`
	RightAscension float64 `json:"right_ascension"` // degrees
	Declination    float64 `json:"declination"`     // degrees
}

// NewCoordinate builds a coordinate and computes right ascension in
// degrees (15 degrees per hour of RA). Range checking is the validators'
// job, not the constructor's.
func NewCoordinate(hours, minutes int, seconds, declination float64) Coordinate {
	ra := (float64(hours) + float64(minutes)/60 + seconds/3600) * 15
	return Coordinate{
		Hours:          hours,
		Minutes:        minutes,
		Seconds:        seconds,
		RightAscension: ra,
		Declination:    declination,
	}
}

// Orientation is a fixed telescope attitude for drift scans. The dish
// does not track sky motion; whatever drifts through the beam is recorded.
type Orientation struct {
	Azimuth   float64 `json:"azimuth"`   // degrees, [0, 360)
	Elevation float64 `json:"elevation"` // degrees, [0, 90]
}

// CelestialBody is a catalog entry a tracking appointment may reference.
type CelestialBody struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Coordinate Coordinate `json:"coordinate"`
}

// Heartbeat records the last time a telescope reported in.
type Heartbeat struct {
	TelescopeID       string `json:"telescope_id"`
	LastCommunication int64  `json:"last_communication"` // unix milliseconds
}
