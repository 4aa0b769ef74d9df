package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kbukum/autotune/component"
)

// HealthChecker returns health status for registered components.
type HealthChecker func(ctx context.Context) []component.Health

// Describer returns the descriptions of registered components.
type Describer func() []component.Description

// startTime records when the process started for uptime calculation.
var startTime = time.Now()

// HealthHandler reports the service health summarized from checker.
// An unhealthy component turns the response into 503.
func HealthHandler(service, version string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var results []component.Health
		if checker != nil {
			results = checker(c.Request.Context())
		}
		sh := Summarize(service, version, results)

		httpStatus := http.StatusOK
		if sh.Status == component.StatusUnhealthy {
			httpStatus = http.StatusServiceUnavailable
		}
		c.JSON(httpStatus, gin.H{
			"status":     sh.Status,
			"service":    sh.Service,
			"version":    sh.Version,
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"components": sh.Components,
		})
	}
}

// InfoHandler reports the service version and what each component runs with.
func InfoHandler(service, version string, describe Describer) gin.HandlerFunc {
	return func(c *gin.Context) {
		components := []gin.H{}
		if describe != nil {
			for _, d := range describe() {
				components = append(components, gin.H{
					"name":    d.Name,
					"type":    d.Type,
					"details": d.Details,
				})
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"service":    service,
			"version":    version,
			"uptime":     time.Since(startTime).String(),
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"components": components,
		})
	}
}

// newRouter mounts /metrics, /health and /info. Without a checker or
// describer the latter two report no components.
func newRouter(metrics http.Handler, ep endpoints) *gin.Engine {
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/metrics", gin.WrapH(metrics))
	engine.GET("/health", HealthHandler(ep.service, ep.version, ep.checker))
	engine.GET("/info", InfoHandler(ep.service, ep.version, ep.describe))
	return engine
}

type endpoints struct {
	service  string
	version  string
	checker  HealthChecker
	describe Describer
}
