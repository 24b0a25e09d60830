// Package statusapi exposes the dispatcher's operational surface over
// HTTP: queue depths, breaker states, cache size and health on /status,
// a liveness/readiness probe on /healthz, and Prometheus text exposition
// on /metrics, wired the way the teacher pack's gin-based management API
// exposes its own operational endpoints.
package statusapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kocayinsec/network-automation-sender/breaker"
	"github.com/kocayinsec/network-automation-sender/dispatch"
	"github.com/kocayinsec/network-automation-sender/model"
)

// statusView is the JSON shape returned by GET /status.
type statusView struct {
	QueueSize     int                       `json:"queue_size"`
	QueueDepths   map[string]int            `json:"queue_depths"`
	InFlight      int                       `json:"in_flight"`
	Workers       int                       `json:"workers"`
	CacheSize     int                       `json:"cache_size"`
	DeadLettered  int                       `json:"dead_lettered"`
	Health        model.Health              `json:"health"`
	BreakerStates map[string]breakerView    `json:"breaker_states"`
}

type breakerView struct {
	State     string `json:"state"`
	Failures  int64  `json:"failures"`
	Successes int64  `json:"successes"`
}

// New builds a gin.Engine exposing the dispatcher's status, health and
// metrics endpoints. Callers mount it directly or embed its routes into
// a larger router via RegisterRoutes.
func New(coordinator *dispatch.Coordinator) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	RegisterRoutes(r.Group("/"), coordinator)
	return r
}

// RegisterRoutes attaches the status API's endpoints to an existing gin
// router group, for callers that want to embed it alongside their own
// routes rather than run a dedicated engine.
func RegisterRoutes(group gin.IRouter, coordinator *dispatch.Coordinator) {
	group.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, buildStatusView(coordinator.Status()))
	})

	group.GET("/healthz", func(c *gin.Context) {
		health := coordinator.Status().Health
		code := http.StatusOK
		if health == model.HealthUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"health": health, "checked_at": time.Now().UTC()})
	})

	group.GET("/metrics", gin.WrapH(promhttp.HandlerFor(coordinator.Collectors().Registry(), promhttp.HandlerOpts{})))
}

func buildStatusView(stats dispatch.Stats) statusView {
	breakers := make(map[string]breakerView, len(stats.BreakerStates))
	for origin, s := range stats.BreakerStates {
		breakers[origin] = breakerView{
			State:     stateName(s.State),
			Failures:  s.Failures,
			Successes: s.Successes,
		}
	}

	depths := map[string]int{
		"critical": stats.QueueDepths[model.Critical],
		"high":     stats.QueueDepths[model.High],
		"normal":   stats.QueueDepths[model.Normal],
		"low":      stats.QueueDepths[model.Low],
	}

	return statusView{
		QueueSize:     stats.QueueSize,
		QueueDepths:   depths,
		InFlight:      stats.InFlight,
		Workers:       stats.Workers,
		CacheSize:     stats.CacheSize,
		DeadLettered:  stats.DeadLettered,
		Health:        stats.Health,
		BreakerStates: breakers,
	}
}

func stateName(s breaker.State) string {
	return s.String()
}
