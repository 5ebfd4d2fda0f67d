package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prevairwatch/prevairwatch/internal/airquality"
	"github.com/prevairwatch/prevairwatch/internal/api/models"
	"github.com/prevairwatch/prevairwatch/internal/api/response"
)

// StationHandler serves the selected station, its pollutant readings and
// live station lookups.
type StationHandler struct {
	monitor MonitorView
	lookup  StationLookup
}

// NewStationHandler creates a new StationHandler.
func NewStationHandler(monitor MonitorView, lookup StationLookup) *StationHandler {
	return &StationHandler{monitor: monitor, lookup: lookup}
}

// GetStation handles GET /v1/station.
func (h *StationHandler) GetStation(w http.ResponseWriter, r *http.Request) {
	state := h.monitor.Snapshot()
	response.JSON(w, r, http.StatusOK, stationModel(state.Selection, state.NextUpdate))
}

// ListPollutants handles GET /v1/pollutants.
func (h *StationHandler) ListPollutants(w http.ResponseWriter, r *http.Request) {
	state := h.monitor.Snapshot()
	response.JSON(w, r, http.StatusOK, models.PollutantList{
		Station: stationModel(state.Selection, state.NextUpdate),
		Items:   pollutantModels(state.Pollutants),
	})
}

// NearestStation handles GET /v1/stations/nearest?lat=&lon=[&code=]. It
// fetches the station list and runs the selection live.
func (h *StationHandler) NearestStation(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	code := strings.TrimSpace(query.Get("code"))

	var fieldErrors []models.FieldError
	lat, latErr := parseCoordinate(query.Get("lat"), 90)
	lon, lonErr := parseCoordinate(query.Get("lon"), 180)
	if code == "" || query.Has("lat") || query.Has("lon") {
		if latErr != nil {
			fieldErrors = append(fieldErrors, coordinateError("lat", latErr))
		}
		if lonErr != nil {
			fieldErrors = append(fieldErrors, coordinateError("lon", lonErr))
		}
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid station query", fieldErrors)
		return
	}

	sel, err := h.lookup.SelectStation(r.Context(), code, airquality.Point{Lat: lat, Lon: lon})
	switch {
	case errors.Is(err, airquality.ErrStationNotFound):
		response.NotFound(w, r, "no matching station")
		return
	case err != nil:
		response.Upstream(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, stationModel(sel, time.Time{}))
}

var (
	errMissing    = errors.New("required")
	errNotANumber = errors.New("must be a number")
	errOutOfRange = errors.New("out of range")
)

func parseCoordinate(raw string, limit float64) (float64, error) {
	if raw == "" {
		return 0, errMissing
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) {
		return 0, errNotANumber
	}
	if v < -limit || v > limit {
		return 0, errOutOfRange
	}
	return v, nil
}

func coordinateError(field string, err error) models.FieldError {
	code := models.CodeInvalid
	switch {
	case errors.Is(err, errMissing):
		code = models.CodeRequired
	case errors.Is(err, errOutOfRange):
		code = models.CodeOutOfRange
	}
	return models.FieldError{Field: field, Message: err.Error(), Code: code}
}
