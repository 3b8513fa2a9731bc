package resolver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var resolveOutcomes = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "delivery_dashboard",
		Subsystem: "resolver",
		Name:      "references_total",
		Help:      "Total number of reference resolutions by outcome.",
	},
	[]string{"reason"},
)
