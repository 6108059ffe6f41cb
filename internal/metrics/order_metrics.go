package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics tracks the order placement path. A nil *OrderMetrics is a
// valid no-op recorder.
type OrderMetrics struct {
	placed      prometheus.Counter
	replayed    prometheus.Counter
	rejected    *prometheus.CounterVec
	collisions  prometheus.Counter
	transitions *prometheus.CounterVec
	placement   prometheus.Histogram
}

func NewOrderMetrics(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		placed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "coffeeshop_orders_placed_total",
			Help: "Total number of orders persisted",
		}),
		replayed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "coffeeshop_orders_replayed_total",
			Help: "Total number of submissions answered with an existing order for the same idempotency key",
		}),
		rejected: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "coffeeshop_order_rejections_total",
			Help: "Total number of rejected order lines by reason",
		}, []string{"reason"}),
		collisions: registerCounter(registerer, prometheus.CounterOpts{
			Name: "coffeeshop_order_number_collisions_total",
			Help: "Total number of order number unique violations that triggered a retry",
		}),
		transitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "coffeeshop_order_status_transitions_total",
			Help: "Total number of order status changes by target status",
		}, []string{"status"}),
		placement: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "coffeeshop_order_placement_duration_seconds",
			Help:    "Duration of successful order placements in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
	}
}

func (m *OrderMetrics) OrderPlaced(d time.Duration) {
	if m == nil {
		return
	}
	m.placed.Inc()
	m.placement.Observe(d.Seconds())
}

func (m *OrderMetrics) OrderReplayed() {
	if m == nil {
		return
	}
	m.replayed.Inc()
}

func (m *OrderMetrics) LineRejected(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *OrderMetrics) NumberCollision() {
	if m == nil {
		return
	}
	m.collisions.Inc()
}

func (m *OrderMetrics) StatusChanged(status string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(status).Inc()
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}
