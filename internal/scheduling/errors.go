// Package scheduling implements the appointment admission engine: the
// shared validation pipeline, quota and conflict accounting, telescope
// liveness gating and the four observation-mode validators.
package scheduling

import (
	"fmt"
	"sort"
	"strings"
)

// Tag is a stable, string-keyed validation failure category. Callers
// switch on tags, never on message text.
type Tag string

const (
	TagUserID            Tag = "USER_ID"
	TagTelescopeID       Tag = "TELESCOPE_ID"
	TagStartTime         Tag = "START_TIME"
	TagEndTime           Tag = "END_TIME"
	TagStatus            Tag = "STATUS"
	TagID                Tag = "ID"
	TagCategoryOfService Tag = "CATEGORY_OF_SERVICE"
	TagAllottedTimeCap   Tag = "ALLOTTED_TIME_CAP"
	TagAllottedTime      Tag = "ALLOTTED_TIME"
	TagOverlap           Tag = "OVERLAP"
	TagConnection        Tag = "CONNECTION"
	TagHours             Tag = "HOURS"
	TagMinutes           Tag = "MINUTES"
	TagSeconds           Tag = "SECONDS"
	TagDeclination       Tag = "DECLINATION"
	TagAzimuth           Tag = "AZIMUTH"
	TagElevation         Tag = "ELEVATION"
	TagCelestialBody     Tag = "CELESTIAL_BODY"
	TagCoordinates       Tag = "COORDINATES"
	TagSearch            Tag = "SEARCH"
	TagPublic            Tag = "PUBLIC"
)

// ErrorSet collects validation failures, one or more messages per tag.
// An empty set means the request is admissible. Validation failures are
// expected outcomes and travel as values; Go errors are reserved for
// storage and infrastructure faults.
type ErrorSet map[Tag][]string

// Add records a failure message under tag.
func (e ErrorSet) Add(tag Tag, format string, args ...interface{}) {
	e[tag] = append(e[tag], fmt.Sprintf(format, args...))
}

// Merge folds every entry of other into e.
func (e ErrorSet) Merge(other ErrorSet) {
	for tag, msgs := range other {
		e[tag] = append(e[tag], msgs...)
	}
}

// Has reports whether any failure was recorded under tag.
func (e ErrorSet) Has(tag Tag) bool {
	return len(e[tag]) > 0
}

// Empty reports whether no failures were recorded.
func (e ErrorSet) Empty() bool {
	return len(e) == 0
}

// Tags returns the failing categories in deterministic order.
func (e ErrorSet) Tags() []Tag {
	tags := make([]Tag, 0, len(e))
	for tag := range e {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// String renders the set for logs.
func (e ErrorSet) String() string {
	if e.Empty() {
		return "ok"
	}
	parts := make([]string, 0, len(e))
	for _, tag := range e.Tags() {
		parts = append(parts, fmt.Sprintf("%s: %s", tag, strings.Join(e[tag], "; ")))
	}
	return strings.Join(parts, ", ")
}
