package alerts

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clinic",
		Subsystem: "alerts",
		Name:      "submissions_total",
		Help:      "The number of alert submissions by event type and outcome",
	}, []string{"event_type", "outcome"})

	statusUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clinic",
		Subsystem: "alerts",
		Name:      "status_updates_total",
		Help:      "The number of staff status transitions by target status",
	}, []string{"status"})
)
