// Package monitor drives the polling lifecycle: it selects the station once
// at start-up, then on every due heartbeat fetches each tracked pollutant
// and pushes the classified levels to the device table.
package monitor

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/prevairwatch/prevairwatch/internal/airquality"
)

// Polling period bounds, in hours.
const (
	DefaultUpdateHours = 1
	MinUpdateHours     = 1
	MaxUpdateHours     = 24
)

// ErrInvalidLocation is returned for a home location that is not "lat;lon".
var ErrInvalidLocation = errors.New("invalid location")

// Config holds the polling configuration.
type Config struct {
	// StationCode forces a station instead of the nearest one (optional).
	StationCode string

	// UpdateHours is the polling period, already clamped.
	UpdateHours int

	// Home is the location used for nearest-station selection.
	Home airquality.Point
}

// Period returns the polling period.
func (c Config) Period() time.Duration {
	hours := c.UpdateHours
	if hours < MinUpdateHours {
		hours = DefaultUpdateHours
	}
	return time.Duration(hours) * time.Hour
}

// ClampUpdateHours parses the polling period and clamps it to
// [MinUpdateHours, MaxUpdateHours]. Unparsable input keeps the default.
// Every correction is logged as an error.
func ClampUpdateHours(raw string, logger zerolog.Logger) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultUpdateHours
	}

	hours, err := strconv.Atoi(raw)
	if err != nil {
		logger.Error().Str("value", raw).Msg("invalid polling interval parameter")
		return DefaultUpdateHours
	}

	switch {
	case hours < MinUpdateHours:
		logger.Error().Int("value", hours).Msgf("specified polling interval too short: changed to %d hour", MinUpdateHours)
		return MinUpdateHours
	case hours > MaxUpdateHours:
		logger.Error().Int("value", hours).Msgf("specified polling interval too long: changed to %d hours", MaxUpdateHours)
		return MaxUpdateHours
	}

	return hours
}

// ParseLocation parses a "lat;lon" pair in decimal degrees.
func ParseLocation(s string) (airquality.Point, error) {
	latStr, lonStr, ok := strings.Cut(s, ";")
	if !ok {
		return airquality.Point{}, fmt.Errorf("%w: %q: expected lat;lon", ErrInvalidLocation, s)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil || math.IsNaN(lat) {
		return airquality.Point{}, fmt.Errorf("%w: latitude %q", ErrInvalidLocation, latStr)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil || math.IsNaN(lon) {
		return airquality.Point{}, fmt.Errorf("%w: longitude %q", ErrInvalidLocation, lonStr)
	}

	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return airquality.Point{}, fmt.Errorf("%w: %q out of range", ErrInvalidLocation, s)
	}

	return airquality.Point{Lat: lat, Lon: lon}, nil
}
