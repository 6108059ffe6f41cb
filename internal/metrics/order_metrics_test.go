package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestOrderMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetrics(reg)

	m.OrderPlaced(20 * time.Millisecond)
	m.OrderPlaced(30 * time.Millisecond)
	m.OrderReplayed()
	m.LineRejected("unavailable")
	m.LineRejected("unavailable")
	m.LineRejected("not_found")
	m.NumberCollision()
	m.StatusChanged("preparing")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.placed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.replayed))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.rejected.WithLabelValues("unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejected.WithLabelValues("not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.collisions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("preparing")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.placement))
}

func TestOrderMetrics_ReRegistrationReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewOrderMetrics(reg)
	second := NewOrderMetrics(reg)

	first.OrderReplayed()
	assert.Equal(t, 1.0, testutil.ToFloat64(second.replayed))
}

func TestOrderMetrics_NilIsNoop(t *testing.T) {
	var m *OrderMetrics
	assert.NotPanics(t, func() {
		m.OrderPlaced(time.Second)
		m.OrderReplayed()
		m.LineRejected("not_found")
		m.NumberCollision()
		m.StatusChanged("ready")
	})
}

func TestTimer(t *testing.T) {
	timer := StartTimer()
	time.Sleep(time.Millisecond)
	assert.GreaterOrEqual(t, timer.Duration(), time.Millisecond)
}
