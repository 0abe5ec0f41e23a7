package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Run metrics
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetdeploy_runs_total",
			Help: "Total number of deploy runs by result",
		},
		[]string{"result"},
	)

	StepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleetdeploy_step_duration_seconds",
			Help:    "Deploy step duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"step"},
	)

	// Poll metrics
	PollAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetdeploy_poll_attempts_total",
			Help: "Total number of probe invocations by wait",
		},
		[]string{"wait"},
	)

	PollTimeoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetdeploy_poll_timeouts_total",
			Help: "Total number of polls that exceeded their budget by wait",
		},
		[]string{"wait"},
	)

	// Cleanup metrics
	CleanupDeletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetdeploy_cleanup_deleted_total",
			Help: "Total number of superseded resources deleted by kind",
		},
		[]string{"kind"},
	)

	// Fleet metrics
	FleetCapacity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fleetdeploy_fleet_capacity",
			Help: "Capacity bounds last applied to a fleet",
		},
		[]string{"fleet", "bound"},
	)
)

func init() {
	prometheus.MustRegister(RunsTotal)
	prometheus.MustRegister(StepDuration)
	prometheus.MustRegister(PollAttemptsTotal)
	prometheus.MustRegister(PollTimeoutsTotal)
	prometheus.MustRegister(CleanupDeletedTotal)
	prometheus.MustRegister(FleetCapacity)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
