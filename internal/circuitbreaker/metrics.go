package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BreakerEnabled indicates whether an agent's breaker allows bidding.
	BreakerEnabled = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "optionhouse_funds_breaker_enabled",
		Help: "Whether the funds breaker allows bidding (1=enabled, 0=tripped)",
	}, []string{"owner"})

	// BreakerTripsTotal counts breaker trips per agent.
	BreakerTripsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optionhouse_funds_breaker_trips_total",
		Help: "Total number of times the funds breaker tripped",
	}, []string{"owner"})
)
