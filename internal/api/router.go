// Package api provides the HTTP status API of the daemon.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/prevairwatch/prevairwatch/internal/api/handler"
	"github.com/prevairwatch/prevairwatch/internal/api/middleware"
	"github.com/prevairwatch/prevairwatch/internal/api/models"
	"github.com/prevairwatch/prevairwatch/internal/api/response"
	"github.com/prevairwatch/prevairwatch/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	RequireTLS  bool

	UpdateHours int
	Monitor     handler.Refresher
	Stations    handler.StationLookup
	Devices     handler.DeviceStore
	Registry    *resilience.Registry
	Subsystems  func() []models.SubsystemStatus

	// TokenValidator protects /v1/admin. The admin routes answer 503 when
	// it is nil.
	TokenValidator middleware.TokenValidator
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "prevairwatch"
	}

	// Global middleware, order matters.
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)

	opsHandler := handler.NewOpsHandler(handler.OpsHandlerConfig{
		Version:     cfg.Version,
		BuildTime:   cfg.BuildTime,
		UpdateHours: cfg.UpdateHours,
		Monitor:     cfg.Monitor,
		Registry:    cfg.Registry,
		Subsystems:  cfg.Subsystems,
	})
	stationHandler := handler.NewStationHandler(cfg.Monitor, cfg.Stations)
	deviceHandler := handler.NewDeviceHandler(cfg.Devices, cfg.Logger)
	adminHandler := handler.NewAdminHandler(cfg.Monitor, cfg.Logger)

	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)
	lookupRateLimit := middleware.RateLimitByIP(middleware.LookupRateLimit)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "no such endpoint")
	})

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.With(standardRateLimit).Get("/status", opsHandler.SystemStatus)
		})

		r.Group(func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/station", stationHandler.GetStation)
			r.Get("/pollutants", stationHandler.ListPollutants)
			r.Get("/devices", deviceHandler.ListDevices)
			r.Get("/devices/{unit}", deviceHandler.GetDevice)
		})

		// Runs a live selection against PREV'AIR.
		r.With(lookupRateLimit).Get("/stations/nearest", stationHandler.NearestStation)

		r.Route("/admin", func(r chi.Router) {
			if cfg.TokenValidator == nil {
				r.HandleFunc("/*", func(w http.ResponseWriter, r *http.Request) {
					response.ServiceUnavailable(w, r, "admin endpoints are disabled")
				})
				return
			}
			r.Use(middleware.AdminAuth(cfg.TokenValidator))
			r.Use(middleware.RateLimitBySubject(middleware.AdminRateLimit))
			r.Post("/refresh", adminHandler.Refresh)
			r.Delete("/devices/{unit}", deviceHandler.DeleteDevice)
		})
	})

	return r
}
