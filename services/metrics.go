package services

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	OrdersSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tableside",
			Name:      "orders_submitted_total",
			Help:      "Orders committed, by write tier and source",
		},
		[]string{"tier", "source"},
	)

	OrderTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tableside",
			Name:      "order_transitions_total",
			Help:      "Committed status transitions",
		},
		[]string{"from", "to", "kind"},
	)

	SurfaceRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tableside",
			Name:      "surface_refreshes_total",
			Help:      "Surface view fetches, by trigger",
		},
		[]string{"surface", "trigger"},
	)

	SurfaceLateOrders = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tableside",
			Name:      "surface_late_orders",
			Help:      "Orders currently classified late on a surface",
		},
		[]string{"surface"},
	)
)

var registerOnce sync.Once

// Collectors lists the domain metrics for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{OrdersSubmitted, OrderTransitions, SurfaceRefreshes, SurfaceLateOrders}
}

func RegisterMetrics(extra ...prometheus.Collector) {
	registerOnce.Do(func() {
		prometheus.MustRegister(append(Collectors(), extra...)...)
	})
}
