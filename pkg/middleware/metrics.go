package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flowlytix/order-service/pkg/metrics"
)

// MetricsMiddleware creates middleware that records HTTP metrics
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip metrics endpoint to avoid recursion
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		m.IncrementHTTPRequestsInFlight()
		defer m.DecrementHTTPRequestsInFlight()

		start := time.Now()

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		method := c.Request.Method
		path := c.FullPath() // Use route pattern, not actual path
		if path == "" {
			path = c.Request.URL.Path
		}

		m.RecordHTTPRequest(method, path, status, duration)
	}
}

// MetricsEndpoint returns a handler for the /metrics endpoint
func MetricsEndpoint(m *metrics.Metrics) gin.HandlerFunc {
	handler := m.Handler()
	return func(c *gin.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	}
}

// BusinessMetrics provides helpers for recording order business metrics
type BusinessMetrics struct {
	metrics *metrics.Metrics
}

// NewBusinessMetrics creates a new BusinessMetrics helper
func NewBusinessMetrics(m *metrics.Metrics) *BusinessMetrics {
	return &BusinessMetrics{metrics: m}
}

// RecordOrderCreated records an order creation event
func (b *BusinessMetrics) RecordOrderCreated(agencyID string) {
	b.metrics.RecordOrderCreated(agencyID)
}

// RecordOrderFailed records a failed order creation by reason
func (b *BusinessMetrics) RecordOrderFailed(reason string) {
	b.metrics.RecordOrderFailed(reason)
}

// RecordFulfillmentTransition records a fulfillment transition attempt
func (b *BusinessMetrics) RecordFulfillmentTransition(action string, success bool) {
	b.metrics.RecordFulfillmentTransition(action, success)
}

// RecordLotReservation records a reservation transaction outcome
func (b *BusinessMetrics) RecordLotReservation(outcome string) {
	b.metrics.RecordLotReservation(outcome)
}

// RecordCreditRejection records a credit limit rejection
func (b *BusinessMetrics) RecordCreditRejection(agencyID string) {
	b.metrics.RecordCreditRejection(agencyID)
}

// RecordCircuitBreakerState records circuit breaker state
func (b *BusinessMetrics) RecordCircuitBreakerState(name string, state int) {
	b.metrics.SetCircuitBreakerState(name, state)
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (b *BusinessMetrics) RecordCircuitBreakerTrip(name string) {
	b.metrics.RecordCircuitBreakerTrip(name)
}
