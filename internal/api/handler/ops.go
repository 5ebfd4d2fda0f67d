// Package handler provides the HTTP handlers of the status API.
package handler

import (
	"net/http"

	"github.com/prevairwatch/prevairwatch/internal/api/models"
	"github.com/prevairwatch/prevairwatch/internal/api/response"
	"github.com/prevairwatch/prevairwatch/internal/provider/resilience"
)

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version     string
	buildTime   string
	updateHours int
	monitor     MonitorView
	registry    *resilience.Registry
	subsystems  func() []models.SubsystemStatus
}

// OpsHandlerConfig holds configuration for the OpsHandler.
type OpsHandlerConfig struct {
	Version     string
	BuildTime   string
	UpdateHours int
	Monitor     MonitorView
	Registry    *resilience.Registry

	// Subsystems reports optional subsystems such as MQTT or the database.
	Subsystems func() []models.SubsystemStatus
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsHandlerConfig) *OpsHandler {
	return &OpsHandler{
		version:     cfg.Version,
		buildTime:   cfg.BuildTime,
		updateHours: cfg.UpdateHours,
		monitor:     cfg.Monitor,
		registry:    cfg.Registry,
		subsystems:  cfg.Subsystems,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(clock()),
		Details: map[string]any{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready. The daemon is ready once a
// station has been selected.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if !h.monitor.Ready() {
		response.JSON(w, r, http.StatusServiceUnavailable, models.Health{
			Status:  models.HealthStatusFail,
			Time:    models.Timestamp(clock()),
			Details: map[string]any{"reason": "no station selected"},
		})
		return
	}

	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(clock()),
	})
}

// SystemStatus handles GET /v1/ops/status - station, polling and provider
// status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	state := h.monitor.Snapshot()
	stats := h.monitor.Stats()

	status := models.SystemStatus{
		Status:  models.HealthStatusOK,
		Time:    models.Timestamp(clock()),
		Station: stationModel(state.Selection, state.NextUpdate),
		Polling: models.PollingStatus{
			UpdateHours:         h.updateHours,
			NextUpdate:          models.TimestampPtr(state.NextUpdate),
			LastCycleAt:         models.TimestampPtr(stats.LastCycleAt),
			LastCycleDurationMs: stats.LastCycleDuration.Milliseconds(),
			Cycles:              stats.Cycles,
			ManualRefreshes:     stats.ManualRefreshes,
			NoStationCycles:     stats.NoStationCycles,
			FailedFetches:       stats.FailedFetches,
			DeviceErrors:        stats.DeviceErrors,
		},
		Providers: []*resilience.ProviderHealth{},
	}

	if h.registry != nil {
		status.Providers = h.registry.GetAllHealth()
	}
	if h.subsystems != nil {
		status.Subsystems = h.subsystems()
	}

	switch {
	case !state.Selection.Found:
		status.Status = models.HealthStatusFail
	case degraded(status):
		status.Status = models.HealthStatusDegraded
	}

	response.JSON(w, r, http.StatusOK, status)
}

func degraded(s models.SystemStatus) bool {
	for _, p := range s.Providers {
		if !p.IsHealthy() {
			return true
		}
	}
	for _, sub := range s.Subsystems {
		if sub.Status != models.HealthStatusOK {
			return true
		}
	}
	return false
}
