package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prevairwatch/prevairwatch/internal/api/models"
	"github.com/prevairwatch/prevairwatch/internal/api/response"
	"github.com/prevairwatch/prevairwatch/internal/device"
)

// DeviceHandler handles device endpoints.
type DeviceHandler struct {
	devices DeviceStore
	logger  zerolog.Logger
}

// NewDeviceHandler creates a new DeviceHandler.
func NewDeviceHandler(devices DeviceStore, logger zerolog.Logger) *DeviceHandler {
	return &DeviceHandler{devices: devices, logger: logger}
}

// ListDevices handles GET /v1/devices.
func (h *DeviceHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.devices.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list devices")
		response.InternalError(w, r, "failed to list devices")
		return
	}

	items := make([]models.Device, 0, len(devices))
	for _, d := range devices {
		items = append(items, deviceModel(d))
	}

	response.JSON(w, r, http.StatusOK, models.DeviceList{
		Items: items,
		Meta:  models.PagedResponseMeta{Count: len(items)},
	})
}

// GetDevice handles GET /v1/devices/{unit}.
func (h *DeviceHandler) GetDevice(w http.ResponseWriter, r *http.Request) {
	unit, ok := parseUnit(w, r)
	if !ok {
		return
	}

	d, err := h.devices.Get(r.Context(), unit)
	switch {
	case errors.Is(err, device.ErrDeviceNotFound):
		response.NotFound(w, r, "device not found")
		return
	case err != nil:
		h.logger.Error().Err(err).Int("unit", unit).Msg("failed to get device")
		response.InternalError(w, r, "failed to get device")
		return
	}

	response.JSON(w, r, http.StatusOK, deviceModel(d))
}

// DeleteDevice handles DELETE /v1/admin/devices/{unit}. A removed
// pollutant device comes back on the next cycle that reports its level.
func (h *DeviceHandler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	unit, ok := parseUnit(w, r)
	if !ok {
		return
	}

	err := h.devices.Delete(r.Context(), unit)
	switch {
	case errors.Is(err, device.ErrDeviceNotFound):
		response.NotFound(w, r, "device not found")
		return
	case err != nil:
		h.logger.Error().Err(err).Int("unit", unit).Msg("failed to delete device")
		response.InternalError(w, r, "failed to delete device")
		return
	}

	h.logger.Info().Int("unit", unit).Str("subject", GetSubject(r.Context())).Msg("device deleted via admin API")
	response.NoContent(w, r)
}

func parseUnit(w http.ResponseWriter, r *http.Request) (int, bool) {
	unit, err := strconv.Atoi(chi.URLParam(r, "unit"))
	if err != nil || unit < 1 || unit > 255 {
		response.BadRequest(w, r, "invalid device unit", []models.FieldError{
			{Field: "unit", Message: "must be an integer between 1 and 255", Code: models.CodeInvalid},
		})
		return 0, false
	}
	return unit, true
}
