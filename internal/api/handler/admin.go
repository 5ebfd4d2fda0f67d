package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/prevairwatch/prevairwatch/internal/api/models"
	"github.com/prevairwatch/prevairwatch/internal/api/response"
)

// AdminHandler handles the token-protected admin endpoints.
type AdminHandler struct {
	monitor Refresher
	logger  zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(monitor Refresher, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{monitor: monitor, logger: logger}
}

// Refresh handles POST /v1/admin/refresh. It runs a polling cycle
// synchronously and returns the resulting readings.
func (h *AdminHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	subject := GetSubject(r.Context())
	h.logger.Info().Str("subject", subject).Msg("manual refresh requested")

	h.monitor.Refresh(r.Context())

	state := h.monitor.Snapshot()
	response.JSON(w, r, http.StatusOK, models.RefreshResult{
		RequestedBy: subject,
		Station:     stationModel(state.Selection, state.NextUpdate),
		Items:       pollutantModels(state.Pollutants),
	})
}
