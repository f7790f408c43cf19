package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	appointmentAdmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skydish",
			Name:      "appointment_admitted_total",
			Help:      "Count of admitted appointments by type and status.",
		},
		[]string{"type", "status"},
	)

	validationFailure = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skydish",
			Name:      "validation_failure_total",
			Help:      "Count of validation failures by error tag.",
		},
		[]string{"tag"},
	)

	statusTransition = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skydish",
			Name:      "status_transition_total",
			Help:      "Count of appointment status transitions.",
		},
		[]string{"to"},
	)

	accessDenied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "skydish",
			Name:      "access_denied_total",
			Help:      "Count of requests refused by the authorization guard.",
		},
	)

	heartbeatReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "skydish",
			Name:      "heartbeat_received_total",
			Help:      "Count of telescope heartbeats ingested.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skydish",
			Name:      "http_requests_total",
			Help:      "Count of API requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			appointmentAdmitted,
			validationFailure,
			statusTransition,
			accessDenied,
			heartbeatReceived,
			httpRequests,
		)
	})
}

func IncAppointmentAdmitted(appointmentType, status string) {
	appointmentAdmitted.WithLabelValues(appointmentType, status).Inc()
}

func IncValidationFailure(tag string) {
	validationFailure.WithLabelValues(tag).Inc()
}

func IncStatusTransition(to string) {
	statusTransition.WithLabelValues(to).Inc()
}

func IncAccessDenied() {
	accessDenied.Inc()
}

func IncHeartbeat() {
	heartbeatReceived.Inc()
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}
