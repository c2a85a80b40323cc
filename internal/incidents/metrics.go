package incidents

import (
	"github.com/oncallhq/incident-deck/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "incidentdeck"

var statusTransitions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "incidents",
		Name:      "status_transitions_total",
		Help:      "Total incident status transitions",
	},
	[]string{"from", "to"},
)

// recordTransition records a completed status transition.
func recordTransition(from, to domain.IncidentStatus) {
	statusTransitions.WithLabelValues(string(from), string(to)).Inc()
}
