package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/prevairwatch/prevairwatch/internal/airquality"
	"github.com/prevairwatch/prevairwatch/internal/device"
	"github.com/prevairwatch/prevairwatch/internal/telemetry"
)

const (
	tracerName = "github.com/prevairwatch/prevairwatch/internal/monitor"

	// dateLayout is the date format of the PREV'AIR query string.
	dateLayout = "2006-01-02"
)

// Readings is the subset of the air quality service used by the monitor.
type Readings interface {
	SelectStation(ctx context.Context, explicitCode string, home airquality.Point) (airquality.Selection, error)
	GetDailyIndex(ctx context.Context, insee, date string) (int, error)
	GetPollutantLevel(ctx context.Context, stationCode, date, pollutantCode string) (airquality.Reading, error)
}

// Devices is the subset of the device service used by the monitor.
type Devices interface {
	EnsureStationDevice(ctx context.Context) (bool, error)
	UpdateStation(ctx context.Context, text string) error
	EnsurePollutantDevice(ctx context.Context, p airquality.Pollutant) (bool, error)
	UpdatePollutant(ctx context.Context, p airquality.Pollutant, level int) error
}

// Stats tracks polling statistics.
type Stats struct {
	Cycles            int64         `json:"cycles"`
	ManualRefreshes   int64         `json:"manual_refreshes"`
	NoStationCycles   int64         `json:"no_station_cycles"`
	FailedFetches     int64         `json:"failed_fetches"`
	DeviceErrors      int64         `json:"device_errors"`
	LastCycleAt       time.Time     `json:"last_cycle_at"`
	LastCycleDuration time.Duration `json:"last_cycle_duration_ns"`
	TotalDuration     time.Duration `json:"total_duration_ns"`
}

// MonitorConfig holds configuration for creating a Monitor.
type MonitorConfig struct {
	Config     Config
	Pollutants []airquality.Pollutant
	Readings   Readings
	Devices    Devices
	Metrics    *telemetry.PollMetrics
	Logger     zerolog.Logger
}

// Monitor owns the polling state. Start, Tick and Refresh are serialized:
// a cycle never overlaps another.
type Monitor struct {
	cfg      Config
	readings Readings
	devices  Devices
	metrics  *telemetry.PollMetrics
	logger   zerolog.Logger
	tracer   trace.Tracer

	mu    sync.Mutex
	state State
	stats Stats
}

// New creates a monitor. Pollutants default to airquality.DefaultPollutants.
func New(cfg MonitorConfig) *Monitor {
	pollutants := cfg.Pollutants
	if len(pollutants) == 0 {
		pollutants = airquality.DefaultPollutants()
	}

	return &Monitor{
		cfg:      cfg.Config,
		readings: cfg.Readings,
		devices:  cfg.Devices,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger.With().Str("component", "monitor").Logger(),
		tracer:   otel.Tracer(tracerName),
		state:    NewState(pollutants),
	}
}

// StationText is the value shown by the station device.
func StationText(sel airquality.Selection) string {
	return fmt.Sprintf("%s (%s/%s) at %dkm", sel.Name, sel.Code, sel.INSEE, sel.DistanceKm)
}

// Start selects the station and initializes the station device. A failed
// selection is logged and leaves the monitor without a station: every
// cycle then reports no data.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info().Int("hours", m.cfg.UpdateHours).Msgf("using polling interval of %d hour(s)", m.cfg.UpdateHours)

	sel, err := m.readings.SelectStation(ctx, m.cfg.StationCode, m.cfg.Home)
	if err != nil {
		m.logger.Error().Err(err).Str("station_code", m.cfg.StationCode).Msg("station selection failed")
	}
	m.state.Selection = sel

	m.logger.Info().
		Str("code", sel.Code).
		Str("insee", sel.INSEE).
		Int("distance_km", sel.DistanceKm).
		Msgf("using station %s/%s %s at %dkm", sel.Code, sel.INSEE, sel.Name, sel.DistanceKm)

	if _, err := m.devices.EnsureStationDevice(ctx); err != nil {
		return fmt.Errorf("create station device: %w", err)
	}
	if err := m.devices.UpdateStation(ctx, StationText(sel)); err != nil {
		m.logger.Error().Err(err).Int("unit", device.StationUnit).Msg("failed to update station device")
	}

	return nil
}

// Tick is called on every heartbeat. It runs a cycle when one is due and
// reports whether it did.
func (m *Monitor) Tick(ctx context.Context, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.Due(now) {
		return false
	}
	m.state.NextUpdate = now.Add(m.cfg.Period())
	m.cycle(ctx, now)
	return true
}

// Refresh runs a cycle immediately and restarts the polling period.
func (m *Monitor) Refresh(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.state.NextUpdate = now.Add(m.cfg.Period())
	m.stats.ManualRefreshes++
	m.cycle(ctx, now)
}

// HealthCheck fetches the station list once and checks the configured
// station can still be selected. The polling state is left untouched.
func (m *Monitor) HealthCheck(ctx context.Context) error {
	sel, err := m.readings.SelectStation(ctx, m.cfg.StationCode, m.cfg.Home)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}

	m.logger.Info().
		Str("code", sel.Code).
		Int("distance_km", sel.DistanceKm).
		Msg("health check passed")
	return nil
}

// Snapshot returns a copy of the current state.
func (m *Monitor) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// Stats returns a copy of the polling statistics.
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Ready reports whether a station has been selected.
func (m *Monitor) Ready() bool {
	return m.Snapshot().Selection.Found
}

// cycle fetches every pollutant and updates the devices. The caller holds mu.
func (m *Monitor) cycle(ctx context.Context, now time.Time) {
	sel := m.state.Selection

	ctx, span := m.tracer.Start(ctx, "monitor.Cycle",
		trace.WithAttributes(attribute.String("station.code", sel.Code)))
	defer span.End()

	start := time.Now()
	failures := 0

	if sel.Found {
		for i := range m.state.Pollutants {
			if err := m.fetch(ctx, &m.state.Pollutants[i], sel, now); err != nil {
				failures++
			}
		}
	} else {
		m.stats.NoStationCycles++
		m.logger.Error().Msg("no data: no station selected")
	}

	for i := range m.state.Pollutants {
		ps := m.state.Pollutants[i]
		if !ps.Present {
			continue
		}
		m.metrics.RecordLevel(ctx, ps.Pollutant.Name, ps.Level)
		m.display(ctx, ps)
	}

	duration := time.Since(start)
	m.stats.Cycles++
	m.stats.FailedFetches += int64(failures)
	m.stats.LastCycleAt = now
	m.stats.LastCycleDuration = duration
	m.stats.TotalDuration += duration
	m.metrics.RecordCycle(ctx, sel.Code, duration, failures)

	span.SetAttributes(attribute.Int("cycle.failures", failures))
	if failures > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d fetches failed", failures))
	}

	m.logger.Info().
		Str("station", sel.Code).
		Int("failures", failures).
		Dur("duration", duration).
		Time("next_update", m.state.NextUpdate).
		Msg("polling cycle completed")
}

// fetch reads one pollutant into ps. Any failure clears the reading. A
// missing row returns nil: the station simply does not report it.
func (m *Monitor) fetch(ctx context.Context, ps *PollutantState, sel airquality.Selection, now time.Time) error {
	var (
		reading airquality.Reading
		err     error
	)

	switch ps.Pollutant.Code {
	case airquality.CodeIndexToday:
		reading.Level, err = m.readings.GetDailyIndex(ctx, sel.INSEE, now.Format(dateLayout))
	case airquality.CodeIndexTomorrow:
		reading.Level, err = m.readings.GetDailyIndex(ctx, sel.INSEE, now.Add(24*time.Hour).Format(dateLayout))
	default:
		reading, err = m.readings.GetPollutantLevel(ctx, sel.Code, now.Format(dateLayout), ps.Pollutant.Code)
	}

	logger := m.logger.With().Str("pollutant", ps.Pollutant.Name).Str("code", ps.Pollutant.Code).Logger()

	if err != nil {
		ps.Present = false
		if errors.Is(err, airquality.ErrNoMeasurements) || errors.Is(err, airquality.ErrNoIndex) {
			logger.Debug().Msg("no reading for station")
			return nil
		}
		logger.Warn().Err(err).Msg("pollutant fetch failed")
		return err
	}

	ps.Level = reading.Level
	ps.LevelMax = reading.LevelMax
	ps.Present = true

	logger.Debug().
		Int("level", ps.Level).
		Int("level_max", ps.LevelMax).
		Msgf("%s = %d (max = %d)", ps.Pollutant.Name, ps.Level, ps.LevelMax)
	return nil
}

// display creates the pollutant device when missing and writes its level.
func (m *Monitor) display(ctx context.Context, ps PollutantState) {
	logger := m.logger.With().Int("unit", ps.Pollutant.Index).Str("pollutant", ps.Pollutant.Name).Logger()

	if _, err := m.devices.EnsurePollutantDevice(ctx, ps.Pollutant); err != nil {
		m.stats.DeviceErrors++
		logger.Error().Err(err).Msg("failed to create pollutant device")
		return
	}

	if err := m.devices.UpdatePollutant(ctx, ps.Pollutant, ps.Level); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			logger.Debug().Msg("pollutant device removed, skipping update")
			return
		}
		m.stats.DeviceErrors++
		logger.Error().Err(err).Msg("failed to update pollutant device")
	}
}
