// Package server wires the HTTP router and the optional gRPC health server.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	cataloghandler "servicehub/backend/internal/catalog/handler"
	healthhandler "servicehub/backend/internal/health/handler"
	identityhandler "servicehub/backend/internal/identity/handler"
	policydomain "servicehub/backend/internal/policy/domain"
	profilehandler "servicehub/backend/internal/profile/handler"
	"servicehub/backend/internal/server/middleware"
	"servicehub/backend/internal/telemetry/metrics"
)

// Deps holds the handlers and cross-cutting dependencies of the HTTP API.
type Deps struct {
	Log         *slog.Logger
	ServiceName string
	// Access enforces the Session Guard and the authorization policy per route.
	Access   *middleware.Access
	Auth     *identityhandler.Handler
	Profiles *profilehandler.Handler
	Catalog  *cataloghandler.Handler
	Health   *healthhandler.HTTP
	// Metrics records per-route counters. If nil, /metrics is not served.
	Metrics        *metrics.Collector
	MetricsHandler http.Handler
}

// NewRouter builds the gin engine.
//
// Route → operation mapping:
//   - POST /auth/register          → auth.register (public)
//   - POST /auth/login             → auth.login (public)
//   - GET  /me                     → profile.me (owner)
//   - GET  /users/:id/profile      → profile.get_own (owner)
//   - GET  /profiles, /profiles/:id → public reads
//   - PUT, DELETE /profiles/:id    → authenticated
//   - GET  /services, /services/:id → public reads
//   - POST /services, PUT, DELETE /services/:id → authenticated
func NewRouter(d Deps) *gin.Engine {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.RequestID(), middleware.Tracing(d.ServiceName), middleware.AccessLog(log))
	if d.Metrics != nil {
		r.Use(middleware.Metrics(d.Metrics))
	}
	r.NoRoute(func(c *gin.Context) { c.JSON(http.StatusNotFound, gin.H{"error": "not found"}) })

	if d.Health != nil {
		r.GET("/healthz", d.Health.Liveness)
		r.GET("/readyz", d.Health.Readiness)
	}
	if d.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(d.MetricsHandler))
	}

	a := d.Access
	if d.Auth != nil {
		r.POST("/auth/register", a.RequireAccess(policydomain.OpRegister, nil), d.Auth.Register)
		r.POST("/auth/login", a.RequireAccess(policydomain.OpLogin, nil), d.Auth.Login)
	}
	if d.Profiles != nil {
		r.GET("/me", a.RequireAccess(policydomain.OpProfileMe, middleware.OwnerSelf), d.Profiles.Me)
		r.GET("/users/:id/profile", a.RequireAccess(policydomain.OpProfileOwn, middleware.OwnerParam("id")), d.Profiles.OwnProfile)
		r.GET("/profiles", a.RequireAccess(policydomain.OpProfileList, nil), d.Profiles.List)
		r.GET("/profiles/:id", a.RequireAccess(policydomain.OpProfileGet, nil), d.Profiles.Get)
		r.PUT("/profiles/:id", a.RequireAccess(policydomain.OpProfileUpdate, nil), d.Profiles.Update)
		r.DELETE("/profiles/:id", a.RequireAccess(policydomain.OpProfileDelete, nil), d.Profiles.Delete)
	}
	if d.Catalog != nil {
		r.GET("/services", a.RequireAccess(policydomain.OpServiceList, nil), d.Catalog.List)
		r.GET("/services/:id", a.RequireAccess(policydomain.OpServiceGet, nil), d.Catalog.Get)
		r.POST("/services", a.RequireAccess(policydomain.OpServiceCreate, nil), d.Catalog.Create)
		r.PUT("/services/:id", a.RequireAccess(policydomain.OpServiceUpdate, nil), d.Catalog.Update)
		r.DELETE("/services/:id", a.RequireAccess(policydomain.OpServiceDelete, nil), d.Catalog.Delete)
	}
	return r
}
