package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RedisErrors counts Redis errors by operation type.
var RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatterbox_redis_errors_total",
	Help: "Total number of Redis errors by operation type",
}, []string{"operation"})

// SessionRevocations counts sessions explicitly revoked at logout.
var SessionRevocations = promauto.NewCounter(prometheus.CounterOpts{
	Name: "chatterbox_session_revocations_total",
	Help: "Total number of sessions revoked via logout",
})

// ChatGateDecisions counts chat allow-list checks by outcome (granted/denied).
var ChatGateDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatterbox_chat_gate_decisions_total",
	Help: "Total number of chat gate name submissions by outcome",
}, []string{"outcome"})

// InitMetrics creates the Prometheus HTTP middleware for the given service name.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New(serviceName)
}

// MetricsMiddleware returns the Fiber handler that records HTTP metrics.
func MetricsMiddleware(p *fiberprometheus.FiberPrometheus) fiber.Handler {
	return p.Middleware
}
