package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.OrderCreated()
	m.OrderCreated()
	m.OrderStatusChanged("shipped")
	m.Notification("welcome", "sent")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OrdersCreatedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrderStatusChanges.WithLabelValues("shipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("welcome", "sent")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.OrderCreated()
		m.OrderStatusChanged("confirmed")
		m.Notification("welcome", "failed")
		m.ObserveHTTP("/health", "GET", 200, time.Millisecond)
	})
}

func TestMetrics_ObserveHTTP(t *testing.T) {
	m := New()
	m.ObserveHTTP("/products/:id", "GET", 404, 20*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("/products/:id", "GET", "404")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequestDuration))
}
